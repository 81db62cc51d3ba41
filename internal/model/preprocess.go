package model

import "image"

// Preprocess converts img to a CHW float32 tensor at its native resolution,
// scaling each channel to [0,1] and then normalizing with Mean and Std.
func Preprocess(img image.Image) (data []float32, width, height int) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	plane := width * height
	data = make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			rNorm := float32(r>>8) / 255.0
			gNorm := float32(g>>8) / 255.0
			bNorm := float32(b>>8) / 255.0

			pixelIndex := y*width + x
			data[pixelIndex] = (rNorm - Mean[0]) / Std[0]
			data[plane+pixelIndex] = (gNorm - Mean[1]) / Std[1]
			data[2*plane+pixelIndex] = (bNorm - Mean[2]) / Std[2]
		}
	}
	return data, width, height
}
