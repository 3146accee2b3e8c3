package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	// Azure selects the Azure OpenAI URL scheme; Model is then the deployment name.
	Azure      bool
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
	Dimensions int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIProvider embeds text through an OpenAI-compatible API (OpenAI or Azure OpenAI).
type OpenAIProvider struct {
	embedder   *embeddings.EmbedderImpl
	dimensions int
}

// NewOpenAIProvider creates a provider backed by langchaingo's OpenAI client.
func NewOpenAIProvider(o OpenAIOptions) (*OpenAIProvider, error) {
	client := o.HTTPClient
	if client == nil {
		timeout := o.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	opts := []openai.Option{
		openai.WithToken(o.APIKey),
		openai.WithModel(o.Model),
		openai.WithEmbeddingModel(o.Model),
		openai.WithHTTPClient(client),
	}
	if o.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(o.Endpoint))
	}
	if o.Azure {
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure), openai.WithAPIVersion(o.APIVersion))
	}
	// Only the text-embedding-3 family accepts an explicit dimensions parameter.
	if o.Dimensions > 0 && strings.HasPrefix(o.Model, "text-embedding-3") {
		opts = append(opts, openai.WithEmbeddingDimensions(o.Dimensions))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &OpenAIProvider{embedder: embedder, dimensions: o.Dimensions}, nil
}

// Embed implements Provider. Client errors other than throttling are returned as
// PermanentError so the generator does not retry them.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return nil, Permanent(fmt.Errorf("embedding has %d dimensions, want %d", len(vec), p.dimensions))
	}
	return vec, nil
}

// Dimensions returns the configured embedding dimension.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *OpenAIProvider) Close() error {
	return nil
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, _ := strconv.Atoi(m[1])
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return Permanent(err)
	}
	return err
}
