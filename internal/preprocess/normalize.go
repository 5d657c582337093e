// Package preprocess converts raw image tensors into the normalized input a CLIP-style backend expects.
package preprocess

import (
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/models"
)

// Published CLIP per-channel statistics (R, G, B).
var (
	Mean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	Std  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// Normalize applies (x - mean_c) / std_c per channel and returns a new tensor.
// The input is expected in [0,1]; resizing and cropping happen upstream.
func Normalize(t *models.ImageTensor) (*models.ImageTensor, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Channels != models.ImageChannels {
		return nil, &models.ShapeError{
			Context: "preprocess",
			Got:     fmt.Sprintf("%d channels", t.Channels),
			Want:    fmt.Sprintf("%d channels", models.ImageChannels),
		}
	}
	out := models.NewImageTensor(t.Channels, t.Height, t.Width)
	for c := 0; c < t.Channels; c++ {
		src := t.Channel(c)
		dst := out.Channel(c)
		mean, std := Mean[c], Std[c]
		for i, v := range src {
			dst[i] = (v - mean) / std
		}
	}
	return out, nil
}

// NormalizeValue returns the normalized value of a single channel intensity.
func NormalizeValue(channel int, v float32) float32 {
	return (v - Mean[channel]) / Std[channel]
}

// Batch stacks same-shape tensors into one NCHW buffer and returns it with its shape.
func Batch(tensors ...*models.ImageTensor) ([]float32, []int64, error) {
	if len(tensors) == 0 {
		return nil, nil, fmt.Errorf("batch: no tensors")
	}
	first := tensors[0]
	if err := first.Validate(); err != nil {
		return nil, nil, err
	}
	per := len(first.Data)
	data := make([]float32, 0, per*len(tensors))
	for i, t := range tensors {
		if err := t.Validate(); err != nil {
			return nil, nil, err
		}
		if t.Channels != first.Channels || t.Height != first.Height || t.Width != first.Width {
			return nil, nil, &models.ShapeError{
				Context: fmt.Sprintf("batch item %d", i),
				Got:     fmt.Sprintf("(%d,%d,%d)", t.Channels, t.Height, t.Width),
				Want:    fmt.Sprintf("(%d,%d,%d)", first.Channels, first.Height, first.Width),
			}
		}
		data = append(data, t.Data...)
	}
	shape := []int64{int64(len(tensors)), int64(first.Channels), int64(first.Height), int64(first.Width)}
	return data, shape, nil
}
