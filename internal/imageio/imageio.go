// Package imageio decodes images from disk or memory into opaque RGB rasters.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// ErrDecode reports image data that could not be decoded.
var ErrDecode = errors.New("failed to decode image")

// Open reads and decodes the image stored at path.
func Open(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return Decode(data)
}

// Decode decodes an encoded image (JPEG, PNG, GIF or WebP) and converts it to RGB.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data cannot be empty", ErrDecode)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return ToRGB(img), nil
}

// ToRGB drops the alpha channel, keeping the straight (non-premultiplied)
// color values of every pixel, and returns a fully opaque image anchored at (0,0).
func ToRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := out.PixOffset(x, y)
			out.Pix[i] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

// Resize scales img to exactly width x height with a Lanczos3 filter.
func Resize(img image.Image, width, height int) *image.RGBA {
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	return ToRGB(resized)
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
