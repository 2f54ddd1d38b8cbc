package ingest

import (
	"context"

	"districtpulse/pkg/contracts/domain"
)

// RowSource is the collaborator that fetches a full snapshot of raw rows.
// The engine never cares where the rows came from; a failed fetch must
// surface as an error so the caller can keep the previous snapshot and
// decide on retry policy.
type RowSource interface {
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// RowSourceFunc adapts a plain function to the RowSource interface.
type RowSourceFunc func(ctx context.Context) ([]domain.RawRecord, error)

// Fetch implements RowSource.
func (f RowSourceFunc) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	return f(ctx)
}
