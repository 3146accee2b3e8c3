package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/vectorize/internal/models"
)

// BleveBackend stores records in a local Bleve index. Full-text fields use
// the standard analyzer; vectors are stored but not indexed.
type BleveBackend struct {
	index bleve.Index
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming.
	text.Analyzer = standard.Name
	for _, f := range []string{"content", "chunk", "title", "name"} {
		doc.AddFieldMappingsAt(f, text)
	}
	keyword := bleve.NewKeywordFieldMapping()
	for _, f := range []string{"id", "filePath", "extension", "fileType", "createdBy", "author"} {
		doc.AddFieldMappingsAt(f, keyword)
	}
	doc.AddFieldMappingsAt("chunkNumber", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("size", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("modifiedDateTime", bleve.NewDateTimeFieldMapping())
	doc.AddSubDocumentMapping("contentVector", bleve.NewDocumentDisabledMapping())

	im.AddDocumentMapping("record", doc)
	im.DefaultType = "record"
	im.DefaultMapping = doc
	return im
}

// NewBleveBackend opens the index at path, creating it when missing.
// Changing the mapping requires removing the directory.
func NewBleveBackend(path string) (*BleveBackend, error) {
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
		return &BleveBackend{index: index}, nil
	}
	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &BleveBackend{index: index}, nil
}

// NewMemoryBleveBackend returns a backend over an in-memory index.
func NewMemoryBleveBackend() (*BleveBackend, error) {
	index, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &BleveBackend{index: index}, nil
}

// UploadBatch indexes records in one Bleve batch, replacing any existing
// document with the same key. Records Bleve cannot map fail individually.
func (b *BleveBackend) UploadBatch(ctx context.Context, records []models.Record) ([]models.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch := b.index.NewBatch()
	results := make([]models.UploadResult, len(records))
	for i, r := range records {
		results[i] = models.UploadResult{Key: r.Key()}
		if err := batch.Index(r.Key(), r); err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Succeeded = true
	}
	if err := b.index.Batch(batch); err != nil {
		return nil, fmt.Errorf("bleve batch: %w", err)
	}
	return results, nil
}

// search runs a match query over the text fields and returns matching keys, best first.
func (b *BleveBackend) search(ctx context.Context, query string, limit int) ([]string, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	keys := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		keys[i] = hit.ID
	}
	return keys, nil
}

// DocCount returns the number of stored records.
func (b *BleveBackend) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveBackend) Close() error {
	return b.index.Close()
}
