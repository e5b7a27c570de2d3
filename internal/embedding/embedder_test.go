package embedding

import (
	"context"
	"math"
	"testing"
)

func TestGenerateEmbeddings_EmptyInput(t *testing.T) {
	// No API call should be made for empty input, so a nil client is safe.
	e := NewEmbedder(nil, "", 0, true)

	got, err := e.GenerateEmbeddings(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d vectors", len(got))
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	normalizeL2(v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(sum))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized vector: %v", v)
	}
}

func TestNormalizeL2_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalizeL2(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("zero vector changed at %d: %f", i, x)
		}
	}
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder(nil, "", 0, false)
	if e.model != DefaultModel {
		t.Errorf("model = %q, want %q", e.model, DefaultModel)
	}
	if e.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", e.batchSize, DefaultBatchSize)
	}
}
