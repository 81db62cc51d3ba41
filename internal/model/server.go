package model

import (
	"fmt"
	"image"
	"log"

	ort "github.com/yalue/onnxruntime_go"
)

// Server runs the segmentation encoder and decoder networks. The sessions
// accept any input resolution, so images are segmented at native size.
type Server struct {
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	opts    Options
}

func NewServer(opts Options) (*Server, error) {
	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOptions.Destroy()
	if opts.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(opts.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	encoder, err := ort.NewDynamicAdvancedSession(opts.EncoderPath,
		[]string{opts.EncoderInput}, []string{opts.EncoderOutput}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder session: %w", err)
	}

	decoder, err := ort.NewDynamicAdvancedSession(opts.DecoderPath,
		[]string{opts.DecoderInput}, []string{opts.DecoderOutput}, sessionOptions)
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("failed to create decoder session: %w", err)
	}

	return &Server{
		encoder: encoder,
		decoder: decoder,
		opts:    opts,
	}, nil
}

// Predict segments img at its native resolution and returns the per-pixel
// arg-max class map.
func (s *Server) Predict(img image.Image) (*Prediction, error) {
	scores, err := s.Scores(img)
	if err != nil {
		return nil, err
	}
	return scores.Argmax(), nil
}

// Scores runs the encoder and decoder and returns class scores resized to
// the input image size.
func (s *Server) Scores(img image.Image) (*Scores, error) {
	inputData, width, height := Preprocess(img)
	log.Printf("Preprocessed image: %d values (3 channels × %d × %d)", len(inputData), height, width)

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(height), int64(width)), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	features := []ort.ArbitraryTensor{nil}
	if err := s.encoder.Run([]ort.ArbitraryTensor{input}, features); err != nil {
		return nil, fmt.Errorf("encoder inference failed: %w", err)
	}
	defer features[0].Destroy()

	outputs := []ort.ArbitraryTensor{nil}
	if err := s.decoder.Run(features, outputs); err != nil {
		return nil, fmt.Errorf("decoder inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("decoder output is not a float32 tensor")
	}
	return scoresFromOutput(out.GetShape(), out.GetData(), width, height, s.opts.NumClasses)
}

// scoresFromOutput validates a [1,C,H,W] decoder output, copies its data
// out of the tensor and resizes it to width x height. numClasses <= 0
// accepts any class count.
func scoresFromOutput(shape ort.Shape, data []float32, width, height, numClasses int) (*Scores, error) {
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected decoder output shape %v", shape)
	}
	if numClasses > 0 && int(shape[1]) != numClasses {
		return nil, fmt.Errorf("decoder produced %d classes, want %d", shape[1], numClasses)
	}

	// The output tensor is released by the caller, so copy its data.
	copied := make([]float32, len(data))
	copy(copied, data)

	raw := &Scores{
		Classes: int(shape[1]),
		Height:  int(shape[2]),
		Width:   int(shape[3]),
		Data:    copied,
	}
	return raw.Resize(width, height)
}

func (s *Server) Close() {
	if s.encoder != nil {
		s.encoder.Destroy()
	}
	if s.decoder != nil {
		s.decoder.Destroy()
	}
	ort.DestroyEnvironment()
}
