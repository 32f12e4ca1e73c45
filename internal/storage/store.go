// Package storage keeps processed uploads. Saving a dataset makes it the
// active one of its category; earlier datasets stay in the history.
package storage

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"stockpulse/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned when no dataset matches
	ErrNotFound = errors.New("dataset not found")

	// ErrInvalidDataset is returned when Save gets no processed data
	ErrInvalidDataset = errors.New("dataset has no processed data")
)

// Store persists datasets per category.
type Store interface {
	// Save stores the processed content of raw and makes it active for
	// category. It returns the new dataset id.
	Save(ctx context.Context, raw domain.RawFile, processed *domain.ResultData, category domain.Category) (string, error)

	// GetActive returns the active dataset of category or ErrNotFound.
	GetActive(ctx context.Context, category domain.Category) (*domain.Dataset, error)

	// ListHistory returns the metadata of every dataset of category,
	// newest first.
	ListHistory(ctx context.Context, category domain.Category) ([]domain.DatasetMeta, error)

	// Get returns one dataset by id or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Dataset, error)

	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error

	Close()
}

// Checksum returns the hex BLAKE2b-256 digest of content.
func Checksum(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// newMeta fills the metadata shared by every store implementation
func newMeta(id string, raw domain.RawFile, processed *domain.ResultData, category domain.Category) domain.DatasetMeta {
	meta := domain.DatasetMeta{
		ID:       id,
		Category: category,
		FileName: raw.Name,
		FileSize: int64(len(raw.Content)),
		Checksum: Checksum(raw.Content),
		Active:   true,
	}
	if meta.FileName == "" {
		meta.FileName = processed.FileName
	}
	for _, s := range processed.Sheets {
		if s.Category != category {
			continue
		}
		meta.SheetCount++
		meta.RowCount += s.RowCount
	}
	return meta
}
