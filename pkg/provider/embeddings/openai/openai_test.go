package openai

import "testing"

func TestNewValidation(t *testing.T) {
	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Error("expected error for empty API key")
	}

	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New with empty model: %v", err)
	}
	if p.ModelID() != DefaultModel {
		t.Errorf("default model = %q, want %q", p.ModelID(), DefaultModel)
	}
}

func TestNewAcceptsOptions(t *testing.T) {
	_, err := New("sk-test", "text-embedding-3-small",
		WithBaseURL("https://llm.internal.example/v1"),
		WithOrganization("org-abc"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestModelDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"some-future-model", 1536},
	}
	for _, tt := range tests {
		if got := modelDimensions(tt.model); got != tt.want {
			t.Errorf("modelDimensions(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}
}

func TestToFloat32(t *testing.T) {
	out := toFloat32([]float64{1.0, -0.5, 0.25})
	want := []float32{1.0, -0.5, 0.25}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}
