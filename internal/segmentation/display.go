package segmentation

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/Brownie44l1/stylescope/internal/imageio"
)

// Displayer shows a source image next to one of its masks.
type Displayer interface {
	Show(name string, img image.Image) error
}

// SideBySide places left and right next to each other on one canvas.
func SideBySide(left, right image.Image) *image.RGBA {
	lb, rb := left.Bounds(), right.Bounds()
	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), height))
	draw.Draw(canvas, image.Rect(0, 0, lb.Dx(), lb.Dy()), left, lb.Min, draw.Src)
	draw.Draw(canvas, image.Rect(lb.Dx(), 0, lb.Dx()+rb.Dx(), rb.Dy()), right, rb.Min, draw.Src)
	return canvas
}

// DirDisplayer writes every comparison as a PNG file into Dir.
type DirDisplayer struct {
	Dir string
}

func (d DirDisplayer) Show(name string, img image.Image) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create display dir: %w", err)
	}
	path := filepath.Join(d.Dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := imageio.EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
