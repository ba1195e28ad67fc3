//go:build !cgo
// +build !cgo

package rerank

import (
	"context"
	"errors"
)

// ONNXCrossEncoder stub type when built without CGO (see onnx.go for real implementation).
type ONNXCrossEncoder struct{}

// NewONNXCrossEncoder returns an error when built without CGO (ONNX not available).
func NewONNXCrossEncoder(_ string, _ int) (*ONNXCrossEncoder, error) {
	return nil, errors.New("ONNX cross-encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Score is not implemented without CGO.
func (c *ONNXCrossEncoder) Score(_ context.Context, _ string, _ []string) ([]float64, error) {
	return nil, errors.New("ONNX cross-encoder requires CGO")
}

// Close is a no-op for the stub.
func (c *ONNXCrossEncoder) Close() error { return nil }
