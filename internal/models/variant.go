package models

import "fmt"

// Precision is the numeric class of an inference backend.
type Precision string

const (
	PrecisionFP32 Precision = "fp32"
	PrecisionFP16 Precision = "fp16"
	PrecisionINT8 Precision = "int8"
)

// ModelVariant identifies one backend implementation. It is immutable once constructed.
type ModelVariant struct {
	Name       string    `json:"name" yaml:"name"`
	Precision  Precision `json:"precision" yaml:"precision"`
	InputShape []int64   `json:"input_shape" yaml:"input_shape"` // NCHW, batch of one
	OutputDim  int       `json:"output_dim" yaml:"output_dim"`
}

// NewModelVariant returns a variant for a CLIP-style visual encoder taking (1,3,size,size) input.
func NewModelVariant(name string, precision Precision, imageSize, outputDim int) ModelVariant {
	return ModelVariant{
		Name:       name,
		Precision:  precision,
		InputShape: []int64{1, ImageChannels, int64(imageSize), int64(imageSize)},
		OutputDim:  outputDim,
	}
}

// String returns "name (precision)".
func (v ModelVariant) String() string {
	if v.Precision == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Precision)
}

// CheckInput returns a ShapeError when t does not match the variant's expected input shape.
func (v ModelVariant) CheckInput(t *ImageTensor) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if len(v.InputShape) != 4 {
		return nil
	}
	want := v.InputShape[1:]
	if int64(t.Channels) != want[0] || int64(t.Height) != want[1] || int64(t.Width) != want[2] {
		return &ShapeError{
			Context: fmt.Sprintf("input for %s", v.Name),
			Got:     fmt.Sprintf("(%d,%d,%d)", t.Channels, t.Height, t.Width),
			Want:    fmt.Sprintf("(%d,%d,%d)", want[0], want[1], want[2]),
		}
	}
	return nil
}
