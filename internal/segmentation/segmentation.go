// Package segmentation turns a semantic segmentation network's per-pixel
// class map into cutout or silhouette masks of the most frequent classes.
package segmentation

import (
	"fmt"
	"image"
	"log"
	"sort"
	"sync/atomic"

	"github.com/Brownie44l1/stylescope/internal/imageio"
	"github.com/Brownie44l1/stylescope/internal/model"
)

// NumberOfClasses is the maximum number of masks returned per image.
const NumberOfClasses = 5

// PaletteVariable is the palette matrix name inside color150.mat.
const PaletteVariable = "colors"

// Predictor produces a per-pixel class map at the image's native size.
type Predictor interface {
	Predict(img image.Image) (*model.Prediction, error)
}

// Mask is the image of one predicted class.
type Mask struct {
	Class  int
	Name   string
	Pixels int
	Color  string
	Image  *image.RGBA
}

// Segmenter holds the loaded network, palette and class names. It is not
// modified after construction.
type Segmenter struct {
	predictor Predictor
	palette   Palette
	names     ClassNames
	display   Displayer

	shown atomic.Uint64
}

// New returns a Segmenter. display may be nil to skip rendering comparisons.
func New(predictor Predictor, palette Palette, names ClassNames, display Displayer) *Segmenter {
	return &Segmenter{
		predictor: predictor,
		palette:   palette,
		names:     names,
		display:   display,
	}
}

// Load reads the palette and class names from disk and returns a Segmenter.
func Load(predictor Predictor, palettePath, namesPath string, display Displayer) (*Segmenter, error) {
	palette, err := LoadPalette(palettePath, PaletteVariable)
	if err != nil {
		return nil, err
	}
	names, err := LoadClassNames(namesPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d palette colors and %d class names", len(palette), len(names))
	return New(predictor, palette, names, display), nil
}

func (s *Segmenter) Palette() Palette { return s.palette }

// SegmentFile decodes the image at path and segments it.
func (s *Segmenter) SegmentFile(path string, silhouette bool) ([]Mask, error) {
	img, err := imageio.Open(path)
	if err != nil {
		return nil, err
	}
	return s.Segment(img, silhouette)
}

// SegmentBytes decodes an encoded image held in memory and segments it.
func (s *Segmenter) SegmentBytes(data []byte, silhouette bool) ([]Mask, error) {
	img, err := imageio.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.Segment(img, silhouette)
}

// Segment runs the network over img and returns one mask for each of the
// NumberOfClasses most frequent classes, most frequent first. In silhouette
// mode class pixels take the palette color; otherwise they keep the source
// color. Every other pixel is black.
func (s *Segmenter) Segment(img *image.RGBA, silhouette bool) ([]Mask, error) {
	bounds := img.Bounds()
	pred, err := s.predictor.Predict(img)
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}
	if pred.Width != bounds.Dx() || pred.Height != bounds.Dy() {
		return nil, fmt.Errorf("prediction is %dx%d, image is %dx%d",
			pred.Width, pred.Height, bounds.Dx(), bounds.Dy())
	}

	ranked := RankClasses(pred)
	if len(ranked) > NumberOfClasses {
		ranked = ranked[:NumberOfClasses]
	}

	masks := make([]Mask, 0, len(ranked))
	for _, rc := range ranked {
		var maskImg *image.RGBA
		if silhouette {
			maskImg = s.silhouetteMask(pred, rc.Class)
		} else {
			maskImg = cutMask(img, pred, rc.Class)
		}
		mask := Mask{
			Class:  rc.Class,
			Name:   s.names.Name(rc.Class),
			Pixels: rc.Pixels,
			Color:  s.palette.Hex(rc.Class),
			Image:  maskImg,
		}
		if err := s.show(img, mask); err != nil {
			return nil, err
		}
		masks = append(masks, mask)
	}
	return masks, nil
}

func (s *Segmenter) show(src *image.RGBA, mask Mask) error {
	if s.display == nil {
		return nil
	}
	n := s.shown.Add(1)
	name := fmt.Sprintf("%04d-%03d", n, mask.Class)
	log.Printf("Displaying %s (%d pixels) as %s", mask.Name, mask.Pixels, name)
	if err := s.display.Show(name, SideBySide(src, mask.Image)); err != nil {
		return fmt.Errorf("failed to display mask: %w", err)
	}
	return nil
}

// ClassCount is the number of pixels predicted as Class.
type ClassCount struct {
	Class  int
	Pixels int
}

// RankClasses counts the pixels of every class present in pred, ordered by
// count descending and then by class index.
func RankClasses(pred *model.Prediction) []ClassCount {
	counts := make(map[int]int)
	for _, label := range pred.Labels {
		counts[int(label)]++
	}
	ranked := make([]ClassCount, 0, len(counts))
	for class, n := range counts {
		ranked = append(ranked, ClassCount{Class: class, Pixels: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Pixels != ranked[j].Pixels {
			return ranked[i].Pixels > ranked[j].Pixels
		}
		return ranked[i].Class < ranked[j].Class
	})
	return ranked
}

func cutMask(img *image.RGBA, pred *model.Prediction, class int) *image.RGBA {
	out := blank(pred.Width, pred.Height)
	origin := img.Bounds().Min
	for y := 0; y < pred.Height; y++ {
		for x := 0; x < pred.Width; x++ {
			if int(pred.At(x, y)) != class {
				continue
			}
			si := img.PixOffset(origin.X+x, origin.Y+y)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+3], img.Pix[si:si+3])
		}
	}
	return out
}

func (s *Segmenter) silhouetteMask(pred *model.Prediction, class int) *image.RGBA {
	out := blank(pred.Width, pred.Height)
	r, g, b := s.palette.RGB(class)
	for y := 0; y < pred.Height; y++ {
		for x := 0; x < pred.Width; x++ {
			if int(pred.At(x, y)) != class {
				continue
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
		}
	}
	return out
}

// blank returns an opaque black image.
func blank(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}
