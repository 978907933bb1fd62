package storage

import (
	"context"

	"github.com/yndnr/sheetsync-go/internal/core/service"
)

// Remote operation names reported by decorators.
const (
	OpReadRange        = "read_range"
	OpBatchRead        = "batch_read"
	OpBatchWrite       = "batch_write"
	OpAppendRows       = "append_rows"
	OpSheetMetadata    = "sheet_metadata"
	OpStructuralUpdate = "structural_update"
)

// aroundFunc runs call on behalf of op. It may block, skip or observe the call.
type aroundFunc func(ctx context.Context, op string, call func() error) error

// wrappedSource decorates every store it leases.
type wrappedSource struct {
	inner   service.Source
	around  aroundFunc
	onLease func(service.Lease)
}

func (s *wrappedSource) Acquire(ctx context.Context) (service.Lease, error) {
	lease, err := s.inner.Acquire(ctx)
	if err != nil {
		return lease, err
	}
	if s.onLease != nil {
		s.onLease(lease)
	}
	lease.Store = &wrappedStore{inner: lease.Store, around: s.around}
	return lease, nil
}

type wrappedStore struct {
	inner  service.GridStore
	around aroundFunc
}

func (s *wrappedStore) ReadRange(ctx context.Context, spreadsheetID, rng string) (out [][]string, err error) {
	err = s.around(ctx, OpReadRange, func() error {
		var err error
		out, err = s.inner.ReadRange(ctx, spreadsheetID, rng)
		return err
	})
	return out, err
}

func (s *wrappedStore) BatchRead(ctx context.Context, spreadsheetID string, ranges []string) (out [][][]string, err error) {
	err = s.around(ctx, OpBatchRead, func() error {
		var err error
		out, err = s.inner.BatchRead(ctx, spreadsheetID, ranges)
		return err
	})
	return out, err
}

func (s *wrappedStore) BatchWrite(ctx context.Context, spreadsheetID string, writes []service.RangeWrite) error {
	return s.around(ctx, OpBatchWrite, func() error {
		return s.inner.BatchWrite(ctx, spreadsheetID, writes)
	})
}

func (s *wrappedStore) AppendRows(ctx context.Context, spreadsheetID, rng string, values [][]any) (assigned string, err error) {
	err = s.around(ctx, OpAppendRows, func() error {
		var err error
		assigned, err = s.inner.AppendRows(ctx, spreadsheetID, rng, values)
		return err
	})
	return assigned, err
}

func (s *wrappedStore) SheetMetadata(ctx context.Context, spreadsheetID, sheet string) (meta *service.SheetMetadata, err error) {
	err = s.around(ctx, OpSheetMetadata, func() error {
		var err error
		meta, err = s.inner.SheetMetadata(ctx, spreadsheetID, sheet)
		return err
	})
	return meta, err
}

func (s *wrappedStore) StructuralUpdate(ctx context.Context, spreadsheetID string, ops []service.StructuralOp) error {
	return s.around(ctx, OpStructuralUpdate, func() error {
		return s.inner.StructuralUpdate(ctx, spreadsheetID, ops)
	})
}
