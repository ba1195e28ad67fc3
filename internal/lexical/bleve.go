package lexical

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"

	"github.com/kasetai/khonha/internal/models"
)

// analyzerName is the registered name of the Thai-friendly text analyzer.
const analyzerName = "thai_ngram"

// indexedChunk is the document shape stored in Bleve.
type indexedChunk struct {
	Text string `json:"text"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused so the
// lexical index survives process restarts without a rebuild. If you change
// the analyzer in code, remove the index directory to force a full re-index.
//
// The analyzer is single tokenizer -> lowercase -> character 3-grams: the
// whole input becomes one token and the n-gram filter slices it into
// overlapping trigrams. Thai text carries no word delimiters and a
// word-oriented UAX#29 tokenizer discards Thai runs outright, so nothing
// Thai would ever be indexed. Whole-input trigrams keep every script, make
// query and chunk tokenization trivially consistent, and give partial-word
// recall, at the cost of grams spanning word boundaries. Chunks and queries
// go through the same analyzer; diverging tokenization between the two
// degrades recall silently, which is why the Thai round-trip test pins
// this down.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomTokenFilter("ngram_3", map[string]interface{}{
		"type": ngram.Name,
		"min":  3,
		"max":  3,
	}); err != nil {
		return nil, fmt.Errorf("failed to register ngram filter: %w", err)
	}
	if err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name, "ngram_3"},
	}); err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = analyzerName
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = analyzerName

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes one chunk's text by chunk ID.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	return b.index.Index(chunk.ID, indexedChunk{Text: chunk.Text})
}

// IndexBatch indexes chunks in one Bleve batch. Used by the artifact
// builder when deriving the lexical index from the chunk store.
func (b *BleveIndex) IndexBatch(ctx context.Context, chunks []*models.Chunk) error {
	batch := b.index.NewBatch()
	for _, chunk := range chunks {
		if err := batch.Index(chunk.ID, indexedChunk{Text: chunk.Text}); err != nil {
			return fmt.Errorf("failed to add chunk %s to batch: %w", chunk.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over chunk text and returns up to k hits by
// descending BM25 score. When k exceeds the corpus size, all matching
// chunks are returned.
func (b *BleveIndex) Search(ctx context.Context, query string, k int) ([]*Result, error) {
	if k <= 0 {
		return nil, nil
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField("text")
	search := bleve.NewSearchRequest(mq)
	search.Size = k
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the total number of chunks in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
