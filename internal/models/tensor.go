// Package models defines core data structures for tensors, galleries, scores and verification reports.
package models

import "fmt"

// Default image geometry expected by CLIP-style visual encoders.
const (
	ImageChannels = 3
	ImageSize     = 224
)

// ImageTensor is a single image in CHW layout (channel-major, then rows, then columns).
type ImageTensor struct {
	Channels int       `json:"channels"`
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Data     []float32 `json:"data"`
}

// NewImageTensor allocates a zeroed tensor of the given shape.
func NewImageTensor(channels, height, width int) *ImageTensor {
	return &ImageTensor{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// NewImageTensorFromData wraps data as a CHW tensor. The data length must match the shape.
func NewImageTensorFromData(channels, height, width int, data []float32) (*ImageTensor, error) {
	if channels <= 0 || height <= 0 || width <= 0 {
		return nil, &ShapeError{Context: "image tensor", Got: fmt.Sprintf("(%d,%d,%d)", channels, height, width), Want: "positive dimensions"}
	}
	if len(data) != channels*height*width {
		return nil, &ShapeError{
			Context: "image tensor data",
			Got:     fmt.Sprintf("%d values", len(data)),
			Want:    fmt.Sprintf("%d values for (%d,%d,%d)", channels*height*width, channels, height, width),
		}
	}
	out := make([]float32, len(data))
	copy(out, data)
	return &ImageTensor{Channels: channels, Height: height, Width: width, Data: out}, nil
}

// PlaneSize returns the number of values in one channel.
func (t *ImageTensor) PlaneSize() int {
	return t.Height * t.Width
}

// Shape returns the NCHW shape of the tensor as a batch of one.
func (t *ImageTensor) Shape() []int64 {
	return []int64{1, int64(t.Channels), int64(t.Height), int64(t.Width)}
}

// Channel returns the slice backing channel c. Writes go through to the tensor.
func (t *ImageTensor) Channel(c int) []float32 {
	n := t.PlaneSize()
	return t.Data[c*n : (c+1)*n]
}

// FillChannel sets every value in channel c to v.
func (t *ImageTensor) FillChannel(c int, v float32) {
	plane := t.Channel(c)
	for i := range plane {
		plane[i] = v
	}
}

// Clone returns a deep copy.
func (t *ImageTensor) Clone() *ImageTensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &ImageTensor{Channels: t.Channels, Height: t.Height, Width: t.Width, Data: data}
}

// Validate checks that the data length matches the declared shape.
func (t *ImageTensor) Validate() error {
	if t == nil {
		return &ShapeError{Context: "image tensor", Got: "nil", Want: "tensor"}
	}
	if len(t.Data) != t.Channels*t.Height*t.Width {
		return &ShapeError{
			Context: "image tensor data",
			Got:     fmt.Sprintf("%d values", len(t.Data)),
			Want:    fmt.Sprintf("%d values for (%d,%d,%d)", t.Channels*t.Height*t.Width, t.Channels, t.Height, t.Width),
		}
	}
	return nil
}
