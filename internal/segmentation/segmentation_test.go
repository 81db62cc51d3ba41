package segmentation

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Brownie44l1/stylescope/internal/imageio"
	"github.com/Brownie44l1/stylescope/internal/model"
)

// stripePredictor labels each pixel by its red value, one class per 40 levels.
type stripePredictor struct{}

func (stripePredictor) Predict(img image.Image) (*model.Prediction, error) {
	b := img.Bounds()
	pred := &model.Prediction{Width: b.Dx(), Height: b.Dy(), Labels: make([]int32, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			pred.Labels[y*b.Dx()+x] = int32((r >> 8) / 40)
		}
	}
	return pred, nil
}

type fixedPredictor struct {
	pred *model.Prediction
	err  error
}

func (f fixedPredictor) Predict(image.Image) (*model.Prediction, error) {
	return f.pred, f.err
}

type recordingDisplay struct {
	names []string
	sizes []image.Rectangle
}

func (d *recordingDisplay) Show(name string, img image.Image) error {
	d.names = append(d.names, name)
	d.sizes = append(d.sizes, img.Bounds())
	return nil
}

func testPalette() Palette {
	palette := make(Palette, 8)
	for i := range palette {
		palette[i] = colorful.Color{R: float64(i) / 10, G: 0.5, B: 1}
	}
	return palette
}

// stripes is 8 columns wide; column x has red = 40*x+5, so class = x, with
// column widths weighted so classes have distinct pixel counts.
func stripes() *image.RGBA {
	widths := []int{1, 2, 3, 4, 5, 6, 7}
	total := 0
	for _, w := range widths {
		total += w
	}
	img := image.NewRGBA(image.Rect(0, 0, total, 4))
	x := 0
	for class, w := range widths {
		for i := 0; i < w; i++ {
			for y := 0; y < 4; y++ {
				img.SetRGBA(x, y, color.RGBA{uint8(40*class + 5), uint8(10 * y), 77, 255})
			}
			x++
		}
	}
	return img
}

func newTestSegmenter(display Displayer) *Segmenter {
	names, _ := ReadClassNames(strings.NewReader(testNamesCSV))
	return New(stripePredictor{}, testPalette(), names, display)
}

func TestSegmentReturnsTopClasses(t *testing.T) {
	s := newTestSegmenter(nil)
	img := stripes()

	masks, err := s.Segment(img, false)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(masks) != NumberOfClasses {
		t.Fatalf("len(masks) = %d, want %d", len(masks), NumberOfClasses)
	}

	wantClasses := []int{6, 5, 4, 3, 2}
	for i, m := range masks {
		if m.Class != wantClasses[i] {
			t.Errorf("masks[%d].Class = %d, want %d", i, m.Class, wantClasses[i])
		}
		if m.Pixels != (wantClasses[i]+1)*4 {
			t.Errorf("masks[%d].Pixels = %d, want %d", i, m.Pixels, (wantClasses[i]+1)*4)
		}
		if m.Image.Bounds() != img.Bounds() {
			t.Errorf("masks[%d] bounds = %v, want %v", i, m.Image.Bounds(), img.Bounds())
		}
	}
	if masks[4].Name != "sky" {
		t.Errorf("masks[4].Name = %q, want sky", masks[4].Name)
	}
}

func TestCutoutMaskKeepsClassPixels(t *testing.T) {
	s := newTestSegmenter(nil)
	img := stripes()
	masks, err := s.Segment(img, false)
	if err != nil {
		t.Fatal(err)
	}

	mask := masks[0]
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			src := img.RGBAAt(x, y)
			got := mask.Image.RGBAAt(x, y)
			if int(src.R/40) == mask.Class {
				if got != src {
					t.Fatalf("pixel (%d,%d) = %v, want source %v", x, y, got, src)
				}
			} else if got != (color.RGBA{0, 0, 0, 255}) {
				t.Fatalf("pixel (%d,%d) = %v, want black", x, y, got)
			}
		}
	}
}

func TestSilhouetteMaskUsesPalette(t *testing.T) {
	s := newTestSegmenter(nil)
	img := stripes()

	cut, err := s.Segment(img, false)
	if err != nil {
		t.Fatal(err)
	}
	sil, err := s.Segment(img, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(cut) != len(sil) {
		t.Fatalf("cutout gave %d masks, silhouette gave %d", len(cut), len(sil))
	}

	for i := range sil {
		if sil[i].Image.Bounds() != cut[i].Image.Bounds() {
			t.Errorf("mask %d shapes differ", i)
		}
		if bytes.Equal(sil[i].Image.Pix, cut[i].Image.Pix) {
			t.Errorf("mask %d has identical content in both modes", i)
		}
	}

	r, g, b := s.Palette().RGB(sil[0].Class)
	want := color.RGBA{r, g, b, 255}
	// The last column belongs to the most frequent class.
	if got := sil[0].Image.RGBAAt(img.Bounds().Dx()-1, 0); got != want {
		t.Errorf("silhouette pixel = %v, want %v", got, want)
	}
	if got := sil[0].Image.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("background pixel = %v, want black", got)
	}
	if sil[0].Color != s.Palette().Hex(sil[0].Class) {
		t.Errorf("Color = %q, want %q", sil[0].Color, s.Palette().Hex(sil[0].Class))
	}
}

func TestSegmentFewerClasses(t *testing.T) {
	pred := &model.Prediction{Width: 2, Height: 2, Labels: []int32{3, 3, 3, 9}}
	s := New(fixedPredictor{pred: pred}, testPalette(), ClassNames{}, nil)

	masks, err := s.Segment(image.NewRGBA(image.Rect(0, 0, 2, 2)), true)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(masks) != 2 {
		t.Fatalf("len(masks) = %d, want 2", len(masks))
	}
	if masks[0].Class != 3 || masks[1].Class != 9 {
		t.Errorf("classes = %d,%d, want 3,9", masks[0].Class, masks[1].Class)
	}
	if masks[1].Name != "class 9" {
		t.Errorf("Name = %q", masks[1].Name)
	}
}

func TestSegmentErrors(t *testing.T) {
	tests := []struct {
		name      string
		predictor Predictor
	}{
		{name: "predictor failure", predictor: fixedPredictor{err: errors.New("boom")}},
		{name: "size mismatch", predictor: fixedPredictor{pred: &model.Prediction{Width: 1, Height: 1, Labels: []int32{0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.predictor, testPalette(), ClassNames{}, nil)
			if _, err := s.Segment(image.NewRGBA(image.Rect(0, 0, 2, 2)), false); err == nil {
				t.Error("Segment() should fail")
			}
		})
	}

	s := newTestSegmenter(nil)
	if _, err := s.SegmentBytes([]byte{0x00, 0x01}, false); !errors.Is(err, imageio.ErrDecode) {
		t.Errorf("SegmentBytes() with malformed data error = %v, want ErrDecode", err)
	}
	if _, err := s.SegmentFile(filepath.Join(t.TempDir(), "missing.png"), false); err == nil {
		t.Error("SegmentFile() with a missing file should fail")
	}
}

func TestSegmentFileMatchesBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, stripes()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "stripes.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestSegmenter(nil)
	for _, silhouette := range []bool{false, true} {
		fromFile, err := s.SegmentFile(path, silhouette)
		if err != nil {
			t.Fatalf("SegmentFile() error = %v", err)
		}
		fromBytes, err := s.SegmentBytes(buf.Bytes(), silhouette)
		if err != nil {
			t.Fatalf("SegmentBytes() error = %v", err)
		}
		if len(fromFile) != len(fromBytes) {
			t.Fatalf("mask counts differ: %d vs %d", len(fromFile), len(fromBytes))
		}
		for i := range fromFile {
			if fromFile[i].Class != fromBytes[i].Class || !bytes.Equal(fromFile[i].Image.Pix, fromBytes[i].Image.Pix) {
				t.Errorf("silhouette=%v mask %d differs between file and bytes", silhouette, i)
			}
		}
	}
}

func TestSegmentDisplaysComparisons(t *testing.T) {
	display := &recordingDisplay{}
	s := newTestSegmenter(display)
	img := stripes()

	masks, err := s.Segment(img, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(display.names) != len(masks) {
		t.Fatalf("displayed %d images, want %d", len(display.names), len(masks))
	}
	want := image.Rect(0, 0, 2*img.Bounds().Dx(), img.Bounds().Dy())
	for i, r := range display.sizes {
		if r != want {
			t.Errorf("comparison %d bounds = %v, want %v", i, r, want)
		}
	}
}

func TestDirDisplayer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := DirDisplayer{Dir: dir}
	if err := d.Show("0001-002", SideBySide(stripes(), stripes())); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "0001-002.png")); err != nil {
		t.Errorf("comparison not written: %v", err)
	}
}

func TestSideBySide(t *testing.T) {
	left := image.NewRGBA(image.Rect(0, 0, 2, 1))
	left.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	right := image.NewRGBA(image.Rect(5, 5, 8, 7))
	right.SetRGBA(5, 5, color.RGBA{0, 255, 0, 255})

	out := SideBySide(left, right)
	if out.Bounds() != image.Rect(0, 0, 5, 2) {
		t.Fatalf("Bounds() = %v", out.Bounds())
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("left pixel = %v", got)
	}
	if got := out.RGBAAt(2, 0); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("right pixel = %v", got)
	}
}

func TestRankClassesBreaksTiesByIndex(t *testing.T) {
	pred := &model.Prediction{Width: 3, Height: 2, Labels: []int32{4, 1, 4, 1, 0, 7}}
	got := RankClasses(pred)
	want := []ClassCount{{1, 2}, {4, 2}, {0, 1}, {7, 1}}
	if len(got) != len(want) {
		t.Fatalf("RankClasses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RankClasses()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
