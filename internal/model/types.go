package model

// ImageNet channel statistics the encoder was trained with.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

// Options locates the encoder/decoder pair and names their tensors.
type Options struct {
	SharedLibraryPath string
	EncoderPath       string
	DecoderPath       string
	NumClasses        int
	NumThreads        int

	EncoderInput  string
	EncoderOutput string
	DecoderInput  string
	DecoderOutput string
}

// DefaultOptions returns the tensor names of the ade20k resnet50dilated /
// ppm_deepsup ONNX export.
func DefaultOptions() Options {
	return Options{
		NumClasses:    150,
		EncoderInput:  "img_data",
		EncoderOutput: "conv5",
		DecoderInput:  "conv5",
		DecoderOutput: "scores",
	}
}

// Scores holds per-class scores laid out as [class][y][x].
type Scores struct {
	Classes int
	Width   int
	Height  int
	Data    []float32
}

// Prediction is a per-pixel class map, row-major, Width*Height long.
type Prediction struct {
	Width  int
	Height int
	Labels []int32
}

// At returns the class predicted for pixel (x, y).
func (p *Prediction) At(x, y int) int32 {
	return p.Labels[y*p.Width+x]
}
