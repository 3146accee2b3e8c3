//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/vectorize/pkg/utils"
)

// ONNXProvider runs a local sentence-embedding model with ONNX Runtime.
// It requires CGO and the onnxruntime shared library. Inference is serialised
// because the session reuses one set of tensors.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXProvider loads the model at modelPath. InitializeEnvironment is called if not already done.
func NewONNXProvider(modelPath string, dimensions, maxTokens int) (*ONNXProvider, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	p := &ONNXProvider{dimensions: dimensions, maxTokens: maxTokens}
	ids, mask, types := bertInputs("", maxTokens)
	shape := ort.NewShape(1, int64(maxTokens))

	var err error
	if p.inputIDs, err = ort.NewTensor(shape, ids); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if p.attentionMask, err = ort.NewTensor(shape, mask); err != nil {
		p.destroyTensors()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if p.tokenTypeIDs, err = ort.NewTensor(shape, types); err != nil {
		p.destroyTensors()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if p.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		p.destroyTensors()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	p.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{p.inputIDs, p.attentionMask, p.tokenTypeIDs},
		[]ort.ArbitraryTensor{p.output},
		nil,
	)
	if err != nil {
		p.destroyTensors()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return p, nil
}

// Embed implements Provider.
func (p *ONNXProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ids, mask, types := bertInputs(text, p.maxTokens)
	copy(p.inputIDs.GetData(), ids)
	copy(p.attentionMask.GetData(), mask)
	copy(p.tokenTypeIDs.GetData(), types)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	emb := make([]float32, p.dimensions)
	copy(emb, p.output.GetData())
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (p *ONNXProvider) Dimensions() int {
	return p.dimensions
}

// Close destroys the session and tensors.
func (p *ONNXProvider) Close() error {
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	p.destroyTensors()
	return err
}

func (p *ONNXProvider) destroyTensors() {
	if p.inputIDs != nil {
		_ = p.inputIDs.Destroy()
		p.inputIDs = nil
	}
	if p.attentionMask != nil {
		_ = p.attentionMask.Destroy()
		p.attentionMask = nil
	}
	if p.tokenTypeIDs != nil {
		_ = p.tokenTypeIDs.Destroy()
		p.tokenTypeIDs = nil
	}
	if p.output != nil {
		_ = p.output.Destroy()
		p.output = nil
	}
}
