package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	a, err := e.Embed(context.Background(), "อ้อยตอ")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(context.Background(), "อ้อยตอ")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text must yield same embedding")
		}
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(64)
	v, _ := e.Embed(context.Background(), "test")
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", sum)
	}
}

func TestMockEmbedderDimensions(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != 1024 {
		t.Errorf("expected default 1024 dimensions, got %d", e.Dimensions())
	}
}
