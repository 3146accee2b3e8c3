//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned when the binary was built without CGO.
var ErrONNXUnavailable = errors.New("ONNX provider requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXProvider stub type when built without CGO (see onnx.go for the real implementation).
type ONNXProvider struct{}

// NewONNXProvider returns ErrONNXUnavailable when built without CGO.
func NewONNXProvider(_ string, _, _ int) (*ONNXProvider, error) {
	return nil, ErrONNXUnavailable
}

// Embed implements Provider.
func (p *ONNXProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

// Dimensions implements Provider.
func (p *ONNXProvider) Dimensions() int { return 0 }

// Close implements Provider.
func (p *ONNXProvider) Close() error { return nil }
