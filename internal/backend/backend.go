// Package backend submits indexable records to a search index.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/models"
)

// SearchBackend accepts batches of records. UploadBatch returns one result per
// record the backend reported on; a non-nil error means the whole batch was
// not accepted.
type SearchBackend interface {
	UploadBatch(ctx context.Context, records []models.Record) ([]models.UploadResult, error)
	Close() error
}

// New builds the backend selected by cfg for the named index.
func New(cfg config.BackendConfig, index string, logger *zap.Logger) (SearchBackend, error) {
	switch cfg.Type {
	case config.BackendHTTP:
		b, err := NewHTTPBackend(HTTPOptions{
			Endpoint:   cfg.Endpoint,
			Index:      index,
			APIKey:     cfg.APIKey,
			APIVersion: cfg.APIVersion,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendBleve:
		b, err := NewBleveBackend(cfg.BlevePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}

// defaultTimeout bounds one batch request when none is configured.
const defaultTimeout = 60 * time.Second
