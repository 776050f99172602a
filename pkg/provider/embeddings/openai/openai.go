// Package openai provides an embeddings provider backed by the OpenAI
// embeddings API, for installations that prefer hosted models over a local
// Ollama instance.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/markizano/asthralios/pkg/provider/embeddings"
)

// DefaultModel is used when New is called with an empty model name.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// Compile-time check that *Provider satisfies embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider using the official OpenAI client.
type Provider struct {
	client oai.Client
	model  string
}

// Option configures the underlying OpenAI client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at an OpenAI-compatible endpoint instead of
// api.openai.com.
func WithBaseURL(url string) Option {
	return func(ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithBaseURL(url))
	}
}

// WithOrganization attaches an organization ID to every request.
func WithOrganization(org string) Option {
	return func(ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithOrganization(org))
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(ro *[]option.RequestOption) {
		*ro = append(*ro, option.WithHTTPClient(&http.Client{Timeout: d}))
	}
}

// New constructs an OpenAI embeddings Provider. An empty model falls back to
// DefaultModel.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: embed: empty response")
	}
	return toFloat32(resp.Data[0].Embedding), nil
}

// EmbedBatch implements embeddings.Provider. The API may return embeddings
// out of order; each entry carries its input index, which is used to place it.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: embed batch: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(vecs) {
			return nil, fmt.Errorf("openai embeddings: embed batch: index %d out of range", e.Index)
		}
		vecs[e.Index] = toFloat32(e.Embedding)
	}
	return vecs, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	return modelDimensions(p.model)
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}

// modelDimensions maps OpenAI embedding models to their output size. Unknown
// models fall back to 1536, the size shared by 3-small and ada-002.
func modelDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"),
		strings.Contains(lower, "text-embedding-ada-002"):
		return 1536
	default:
		return 1536
	}
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
