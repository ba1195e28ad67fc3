//go:build cgo
// +build cgo

package rerank

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXCrossEncoder runs a local ONNX cross-encoder (ms-marco-MiniLM export
// by default). The query and candidate text are packed into one sequence
// ([CLS] query [SEP] text [SEP], segment IDs 0/1) and the model emits a
// single relevance logit.
type ONNXCrossEncoder struct {
	session   *ort.AdvancedSession
	maxTokens int
	// Pre-allocated tensors for Run(); pairs are scored one at a time
	// under the mutex.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXCrossEncoder creates an ONNX cross-encoder. InitializeEnvironment is called if not already done.
func NewONNXCrossEncoder(modelPath string, maxTokens int) (*ONNXCrossEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}

	inputIDs := make([]int64, maxTokens)
	attentionMask := make([]int64, maxTokens)
	tokenTypeIDs := make([]int64, maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputData := make([]float32, 1)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, 1), outputData)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputs := []ort.ArbitraryTensor{outputTensor}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		inputs,
		outputs,
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXCrossEncoder{
		session:             session,
		maxTokens:           maxTokens,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Score scores each (query, text) pair and returns the relevance logits.
func (c *ONNXCrossEncoder) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	scores := make([]float64, len(texts))
	for i, text := range texts {
		inputIDs, attentionMask, tokenTypeIDs := tokenizePair(query, text, c.maxTokens)

		copy(c.inputIDsTensor.GetData(), inputIDs)
		copy(c.attentionMaskTensor.GetData(), attentionMask)
		copy(c.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

		if err := c.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed on pair %d: %w", i, err)
		}
		scores[i] = float64(c.outputTensor.GetData()[0])
	}
	return scores, nil
}

// Close destroys the session and tensors.
func (c *ONNXCrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{c.inputIDsTensor, c.attentionMaskTensor, c.tokenTypeIDsTensor} {
		if t != nil {
			t.Destroy()
		}
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	return nil
}
