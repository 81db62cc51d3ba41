// Package styleloss scores how closely two images share per-channel
// spatial correlation, using one Gram matrix per RGB channel.
package styleloss

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/Brownie44l1/stylescope/internal/imageio"
)

const (
	// Width and Height are the dimensions every image is resized to before
	// its Gram matrices are computed.
	Width  = 500
	Height = 300

	channels = 3
)

// Normalization controls how 8-bit channel values are mapped into [0,1].
type Normalization int

const (
	// Truncate integer-divides each value by 255, so only saturated (255)
	// values become 1 and every other value becomes 0.
	Truncate Normalization = iota
	// Scale divides each value by 255 as a float.
	Scale
)

// ParseNormalization maps "truncate" or "scale" to a Normalization.
func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "", "truncate":
		return Truncate, nil
	case "scale":
		return Scale, nil
	default:
		return Truncate, fmt.Errorf("unknown gram normalization %q", s)
	}
}

func (n Normalization) String() string {
	if n == Scale {
		return "scale"
	}
	return "truncate"
}

func (n Normalization) apply(v uint8) float64 {
	if n == Scale {
		return float64(v) / 255
	}
	return float64(v / 255)
}

// Grams holds the Gram matrix of each color channel.
type Grams struct {
	Red, Green, Blue *mat.SymDense
}

func (g Grams) channels() [channels]*mat.SymDense {
	return [channels]*mat.SymDense{g.Red, g.Green, g.Blue}
}

// CalcGram decodes the image at path and returns its per-channel Gram matrices.
func CalcGram(path string, norm Normalization) (Grams, error) {
	img, err := imageio.Open(path)
	if err != nil {
		return Grams{}, err
	}
	return GramOf(img, norm), nil
}

// GramOf resizes img to Width x Height and computes C·Cᵗ for each channel
// matrix C (Height rows by Width columns). Every matrix is Height x Height.
func GramOf(img image.Image, norm Normalization) Grams {
	resized := imageio.Resize(img, Width, Height)

	var planes [channels]*mat.Dense
	for c := range planes {
		planes[c] = mat.NewDense(Height, Width, nil)
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			i := resized.PixOffset(x, y)
			for c := range planes {
				planes[c].Set(y, x, norm.apply(resized.Pix[i+c]))
			}
		}
	}

	var grams [channels]*mat.SymDense
	for c, plane := range planes {
		grams[c] = &mat.SymDense{}
		grams[c].SymOuterK(1, plane)
	}
	return Grams{Red: grams[0], Green: grams[1], Blue: grams[2]}
}
