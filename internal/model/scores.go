package model

import "fmt"

// Resize bilinearly resamples every class plane to width x height using
// half-pixel centers, the way the decoder upsamples to the requested
// segmentation size.
func (s *Scores) Resize(width, height int) (*Scores, error) {
	if s.Width <= 0 || s.Height <= 0 || s.Classes <= 0 {
		return nil, fmt.Errorf("empty scores %dx%dx%d", s.Classes, s.Height, s.Width)
	}
	if len(s.Data) != s.Classes*s.Width*s.Height {
		return nil, fmt.Errorf("scores hold %d values, want %d", len(s.Data), s.Classes*s.Width*s.Height)
	}
	if s.Width == width && s.Height == height {
		return s, nil
	}

	xs := sampleAxis(s.Width, width)
	ys := sampleAxis(s.Height, height)

	out := &Scores{
		Classes: s.Classes,
		Width:   width,
		Height:  height,
		Data:    make([]float32, s.Classes*width*height),
	}
	srcPlane := s.Width * s.Height
	dstPlane := width * height
	for c := 0; c < s.Classes; c++ {
		src := s.Data[c*srcPlane : (c+1)*srcPlane]
		dst := out.Data[c*dstPlane : (c+1)*dstPlane]
		for y, sy := range ys {
			top := src[sy.lo*s.Width : (sy.lo+1)*s.Width]
			bottom := src[sy.hi*s.Width : (sy.hi+1)*s.Width]
			for x, sx := range xs {
				t := top[sx.lo] + (top[sx.hi]-top[sx.lo])*sx.frac
				b := bottom[sx.lo] + (bottom[sx.hi]-bottom[sx.lo])*sx.frac
				dst[y*width+x] = t + (b-t)*sy.frac
			}
		}
	}
	return out, nil
}

type sample struct {
	lo, hi int
	frac   float32
}

func sampleAxis(src, dst int) []sample {
	samples := make([]sample, dst)
	scale := float32(src) / float32(dst)
	for i := range samples {
		pos := (float32(i)+0.5)*scale - 0.5
		if pos < 0 {
			pos = 0
		}
		lo := int(pos)
		if lo > src-1 {
			lo = src - 1
		}
		hi := lo + 1
		if hi > src-1 {
			hi = src - 1
		}
		samples[i] = sample{lo: lo, hi: hi, frac: pos - float32(lo)}
	}
	return samples
}

// Argmax picks the highest scoring class of every pixel. Ties go to the
// lower class index.
func (s *Scores) Argmax() *Prediction {
	plane := s.Width * s.Height
	pred := &Prediction{
		Width:  s.Width,
		Height: s.Height,
		Labels: make([]int32, plane),
	}
	best := make([]float32, plane)
	copy(best, s.Data[:plane])
	for c := 1; c < s.Classes; c++ {
		scores := s.Data[c*plane : (c+1)*plane]
		for i, v := range scores {
			if v > best[i] {
				best[i] = v
				pred.Labels[i] = int32(c)
			}
		}
	}
	return pred
}
