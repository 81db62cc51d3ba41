package styleloss

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// Inf is reported by MSE when the sum overflows.
	Inf = 10000

	coef = 1000
)

// MSE returns the sum of squared elementwise differences of a and b.
// A sum that is not finite is replaced by Inf. MSE panics with
// mat.ErrShape if the dimensions differ.
func MSE(a, b mat.Matrix) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(mat.ErrShape)
	}

	var sum float64
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			d := a.At(i, j) - b.At(i, j)
			sum += d * d
		}
	}
	if math.IsInf(sum, 0) || math.IsNaN(sum) {
		return Inf
	}
	return sum
}

// Loss combines the per-channel MSE of two Gram sets, normalized by the
// matrix area and squared channel count and scaled by 1000.
func Loss(result, style Grams) float64 {
	r, s := result.channels(), style.channels()
	var total float64
	for c := range r {
		total += MSE(r[c], s[c])
	}
	n := float64(r[0].SymmetricDim())
	return total / (4.0 * n * n * channels * channels) * coef
}

// StyleLoss scores the image at resultPath against the image at stylePath.
// Lower values mean more similar channel correlation.
func StyleLoss(resultPath, stylePath string, norm Normalization) (float64, error) {
	result, err := CalcGram(resultPath, norm)
	if err != nil {
		return 0, err
	}
	style, err := CalcGram(stylePath, norm)
	if err != nil {
		return 0, err
	}
	return Loss(result, style), nil
}

// StyleLossImages is StyleLoss for already decoded images.
func StyleLossImages(result, style image.Image, norm Normalization) float64 {
	return Loss(GramOf(result, norm), GramOf(style, norm))
}
