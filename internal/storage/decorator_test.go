package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/storage/memory"
)

const testBook = "book-1"

func newSource(t *testing.T) (*memory.Store, service.Source) {
	t.Helper()
	store := memory.NewStore()
	store.AddSheet(testBook, "Sheet1", [][]string{{"last_modified", "id"}, {"100", "1"}})
	return store, service.StaticSource{Store: store}
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  map[string]int
	errors int
	leases []bool
}

func (o *recordingObserver) RemoteCall(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = map[string]int{}
	}
	o.calls[op]++
	if err != nil {
		o.errors++
	}
}

func (o *recordingObserver) LeaseAcquired(cached bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leases = append(o.leases, cached)
}

// exerciseStore calls every GridStore method once.
func exerciseStore(t *testing.T, ctx context.Context, s service.GridStore) {
	t.Helper()

	if _, err := s.ReadRange(ctx, testBook, "Sheet1!1:1"); err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if _, err := s.BatchRead(ctx, testBook, []string{"Sheet1!A2"}); err != nil {
		t.Fatalf("BatchRead() error = %v", err)
	}
	if err := s.BatchWrite(ctx, testBook, []service.RangeWrite{{Range: "Sheet1!B2", Values: [][]any{{"2"}}}}); err != nil {
		t.Fatalf("BatchWrite() error = %v", err)
	}
	if _, err := s.AppendRows(ctx, testBook, "Sheet1!A1:C", [][]any{{int64(200), "", "d"}}); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	meta, err := s.SheetMetadata(ctx, testBook, "Sheet1")
	if err != nil {
		t.Fatalf("SheetMetadata() error = %v", err)
	}
	if err := s.StructuralUpdate(ctx, testBook, []service.StructuralOp{
		service.SetCellOp{SheetID: meta.SheetID, Row: 1, Col: 3, Value: "type"},
	}); err != nil {
		t.Fatalf("StructuralUpdate() error = %v", err)
	}
}

func TestInstrument_ReportsEveryCall(t *testing.T) {
	store, src := newSource(t)
	obs := &recordingObserver{}
	ctx := context.Background()

	lease, err := Instrument(src, obs, nil).Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	exerciseStore(t, ctx, lease.Store)

	for _, op := range []string{OpReadRange, OpBatchRead, OpBatchWrite, OpAppendRows, OpSheetMetadata, OpStructuralUpdate} {
		if obs.calls[op] != 1 {
			t.Errorf("calls[%s] = %d, want 1", op, obs.calls[op])
		}
	}
	if len(obs.leases) != 1 || !obs.leases[0] {
		t.Errorf("leases = %v, want [true]", obs.leases)
	}
	if got := store.Value(testBook, "Sheet1", 2, 2); got != "2" {
		t.Errorf("B2 = %q, want write to pass through", got)
	}
}

func TestInstrument_ReportsErrors(t *testing.T) {
	store, src := newSource(t)
	obs := &recordingObserver{}
	store.FailNext(memory.OpReadRange, errors.New("boom"))

	lease, _ := Instrument(src, obs, nil).Acquire(context.Background())
	if _, err := lease.Store.ReadRange(context.Background(), testBook, "Sheet1!A1"); err == nil {
		t.Fatal("expected error")
	}
	if obs.errors != 1 {
		t.Errorf("errors = %d, want 1", obs.errors)
	}
}

func TestThrottle_Disabled(t *testing.T) {
	_, src := newSource(t)
	if got := Throttle(src, 0, 10); got != src {
		t.Error("Throttle with zero rate should return the source unchanged")
	}
}

func TestThrottle_PassesCallsThrough(t *testing.T) {
	_, src := newSource(t)
	ctx := context.Background()

	lease, err := Throttle(src, 6000, 10).Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	exerciseStore(t, ctx, lease.Store)
}

func TestThrottle_WaitsForQuota(t *testing.T) {
	_, src := newSource(t)
	throttled := Throttle(src, 1, 2)

	lease, _ := throttled.Acquire(context.Background())
	for i := 0; i < 2; i++ {
		if _, err := lease.Store.ReadRange(context.Background(), testBook, "Sheet1!A1"); err != nil {
			t.Fatalf("burst call %d error = %v", i, err)
		}
	}

	// The limiter is shared by every lease.
	other, _ := throttled.Acquire(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := other.Store.ReadRange(ctx, testBook, "Sheet1!A1")
	if !errors.Is(err, domain.ErrRemoteStore) {
		t.Fatalf("error = %v, want ErrRemoteStore once the burst is spent", err)
	}
}
