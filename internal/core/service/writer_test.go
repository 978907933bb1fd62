package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/storage/memory"
)

func update(row int, col string, a, expected, lastModified int64, v string) domain.Update {
	return domain.Update{
		Row:             row,
		Column:          col,
		Value:           domain.CellPayload{A: a, V: json.RawMessage(v)},
		LastModified:    lastModified,
		ExpectedVersion: expected,
	}
}

func (f *fixture) apply(t *testing.T, updates ...domain.Update) *service.UpdateResult {
	t.Helper()
	res, err := f.engine.ApplyUpdates(context.Background(), service.UpdateRequest{
		Workbook: testWorkbook,
		Sheet:    testSheet,
		Updates:  updates,
	})
	require.NoError(t, err)
	return res
}

func lastBatchWrite(t *testing.T, s *memory.Store) []string {
	t.Helper()
	var ranges []string
	found := false
	for _, c := range s.Calls() {
		if c.Op == memory.OpBatchWrite {
			ranges, found = c.Ranges, true
		}
	}
	require.True(t, found, "no batch write issued")
	return ranges
}

func TestApplyUpdates_ConflictRule(t *testing.T) {
	tests := []struct {
		name          string
		stored        string
		upd           domain.Update
		wantAccepted  bool
		wantReason    domain.ConflictReason
		wantCurrent   int64
		wantCurrValue string
	}{
		{
			name:         "skip ahead is rejected even when server matches",
			stored:       `{"a":2,"v":"x"}`,
			upd:          update(2, "H", 4, 2, 100, `"y"`),
			wantReason:   domain.ReasonPayloadVersionMismatch,
			wantAccepted: false,
		},
		{
			name:         "plus one against matching server version is accepted",
			stored:       `{"a":2,"v":"x"}`,
			upd:          update(2, "H", 3, 2, 100, `"y"`),
			wantAccepted: true,
		},
		{
			name:          "plus one against newer server version is stale",
			stored:        `{"a":3,"v":"z"}`,
			upd:           update(2, "H", 3, 2, 100, `"y"`),
			wantReason:    domain.ReasonStaleExpectedVersion,
			wantCurrent:   3,
			wantCurrValue: `"z"`,
		},
		{
			name:         "empty cell is version zero",
			stored:       "",
			upd:          update(2, "H", 1, 0, 100, `{"k":1}`),
			wantAccepted: true,
		},
		{
			name:          "non JSON cell is version zero holding its text",
			stored:        "hello",
			upd:           update(2, "H", 2, 1, 100, `"y"`),
			wantReason:    domain.ReasonStaleExpectedVersion,
			wantCurrent:   0,
			wantCurrValue: `"hello"`,
		},
		{
			name:         "same version repeated is a payload mismatch",
			stored:       `{"a":2,"v":"x"}`,
			upd:          update(2, "H", 2, 2, 100, `"y"`),
			wantReason:   domain.ReasonPayloadVersionMismatch,
			wantAccepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, sheetRows(300, 200))
			f.setCell(t, "Sheet1!H2", tt.stored)

			res := f.apply(t, tt.upd)
			require.Len(t, res.Outcomes, 1)

			if tt.wantAccepted {
				assert.Equal(t, 1, res.Accepted)
				assert.Empty(t, res.Conflicts)
				assert.IsType(t, domain.Accepted{}, res.Outcomes[0])

				want, err := tt.upd.Value.Encode()
				require.NoError(t, err)
				assert.Equal(t, want, f.store.Value(testBook, testSheet, 8, 2))
				return
			}

			assert.Zero(t, res.Accepted)
			require.Len(t, res.Conflicts, 1)
			c := res.Conflicts[0]
			assert.Equal(t, tt.wantReason, c.Reason)
			assert.Equal(t, tt.upd, c.Update)
			if tt.wantReason == domain.ReasonStaleExpectedVersion {
				assert.Equal(t, tt.wantCurrent, c.CurrentVersion)
				assert.JSONEq(t, tt.wantCurrValue, string(c.CurrentValue))
			}
			assert.Zero(t, f.store.CallCount(memory.OpBatchWrite))
			assert.Equal(t, tt.stored, f.store.Value(testBook, testSheet, 8, 2))
		})
	}
}

func TestApplyUpdates_RowTimestampWrittenOnceWithMax(t *testing.T) {
	f := newFixture(t, sheetRows(300, 200))
	f.store.ResetCalls()

	res := f.apply(t,
		update(2, "H", 1, 0, 200, `"a"`),
		update(2, "I", 1, 0, 100, `"b"`),
		update(3, "H", 1, 0, 150, `"c"`),
	)
	require.Equal(t, 3, res.Accepted)

	assert.Equal(t, 1, f.store.CallCount(memory.OpBatchRead))
	assert.Equal(t, 1, f.store.CallCount(memory.OpBatchWrite))
	assert.Equal(t,
		[]string{"Sheet1!H2", "Sheet1!I2", "Sheet1!H3", "Sheet1!A2", "Sheet1!A3"},
		lastBatchWrite(t, f.store))

	assert.Equal(t, "200", f.store.Value(testBook, testSheet, 1, 2))
	assert.Equal(t, "150", f.store.Value(testBook, testSheet, 1, 3))
}

func TestApplyUpdates_PartialBatch(t *testing.T) {
	f := newFixture(t, sheetRows(300, 200))
	f.setCell(t, "Sheet1!I2", `{"a":5,"v":"server"}`)

	res := f.apply(t,
		update(2, "H", 1, 0, 400, `"ok"`),
		update(2, "I", 5, 4, 500, `"late"`),
		update(3, "H", 7, 0, 600, `"skip"`),
	)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, res.Conflicts, 2)
	assert.Equal(t, domain.ReasonStaleExpectedVersion, res.Conflicts[0].Reason)
	assert.Equal(t, int64(5), res.Conflicts[0].CurrentVersion)
	assert.Equal(t, domain.ReasonPayloadVersionMismatch, res.Conflicts[1].Reason)

	require.Len(t, res.Outcomes, 3)
	assert.IsType(t, domain.Accepted{}, res.Outcomes[0])
	assert.IsType(t, domain.Conflict{}, res.Outcomes[1])
	assert.IsType(t, domain.Conflict{}, res.Outcomes[2])

	assert.Equal(t, []string{"Sheet1!H2", "Sheet1!A2"}, lastBatchWrite(t, f.store))
	assert.Equal(t, "400", f.store.Value(testBook, testSheet, 1, 2), "only accepted timestamps count")
	assert.Equal(t, "200", f.store.Value(testBook, testSheet, 1, 3))

	assert.Equal(t, 1, f.observer.outcomes["accepted"])
	assert.Equal(t, 1, f.observer.outcomes[string(domain.ReasonStaleExpectedVersion)])
	assert.Equal(t, 1, f.observer.outcomes[string(domain.ReasonPayloadVersionMismatch)])
}

func TestApplyUpdates_SameCellEvaluatedInOrder(t *testing.T) {
	t.Run("chained versions both accepted", func(t *testing.T) {
		f := newFixture(t, sheetRows(300))

		res := f.apply(t,
			update(2, "H", 1, 0, 100, `"first"`),
			update(2, "H", 2, 1, 200, `"second"`),
		)
		assert.Equal(t, 2, res.Accepted)
		assert.Equal(t, `{"a":2,"v":"second"}`, f.store.Value(testBook, testSheet, 8, 2))
		assert.Equal(t, []string{"Sheet1!H2", "Sheet1!A2"}, lastBatchWrite(t, f.store))
		assert.Equal(t, 1, f.store.CallCount(memory.OpBatchRead))
	})

	t.Run("duplicate submission is stale", func(t *testing.T) {
		f := newFixture(t, sheetRows(300))

		res := f.apply(t,
			update(2, "H", 1, 0, 100, `"first"`),
			update(2, "H", 1, 0, 200, `"again"`),
		)
		assert.Equal(t, 1, res.Accepted)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, domain.ReasonStaleExpectedVersion, res.Conflicts[0].Reason)
		assert.Equal(t, int64(1), res.Conflicts[0].CurrentVersion)
		assert.JSONEq(t, `"first"`, string(res.Conflicts[0].CurrentValue))
		assert.Equal(t, "100", f.store.Value(testBook, testSheet, 1, 2))
	})
}

func TestApplyUpdates_Validation(t *testing.T) {
	tests := []struct {
		name    string
		upd     domain.Update
		wantErr *domain.DomainError
	}{
		{"header row", update(1, "H", 1, 0, 1, `1`), domain.ErrInvalidArgument},
		{"zero row", update(0, "H", 1, 0, 1, `1`), domain.ErrInvalidArgument},
		{"timestamp column", update(2, "A", 1, 0, 1, `1`), domain.ErrInvalidColumn},
		{"malformed column", update(2, "H1", 1, 0, 1, `1`), domain.ErrInvalidColumn},
		{"empty column", update(2, "", 1, 0, 1, `1`), domain.ErrInvalidColumn},
		{"negative expected version", update(2, "H", 0, -1, 1, `1`), domain.ErrInvalidArgument},
		{"value not JSON", update(2, "H", 1, 0, 1, `{oops`), domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, sheetRows(300))
			f.store.ResetCalls()

			_, err := f.engine.ApplyUpdates(context.Background(), service.UpdateRequest{
				Workbook: testWorkbook,
				Sheet:    testSheet,
				Updates:  []domain.Update{update(2, "H", 1, 0, 1, `1`), tt.upd},
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.Empty(t, f.store.Calls(), "validation must precede remote calls")
		})
	}
}

func TestApplyUpdates_EmptyBatch(t *testing.T) {
	f := newFixture(t, sheetRows(300))
	f.store.ResetCalls()

	res := f.apply(t)
	assert.Zero(t, res.Accepted)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, f.store.Calls())
}

func TestApplyUpdates_InvalidatesWindowOnWrite(t *testing.T) {
	f := newFixture(t, sheetRows(300, 200))
	f.changes(t, 300)

	f.apply(t, update(2, "H", 1, 0, 400, `"x"`))

	res := f.changes(t, 300)
	assert.True(t, res.ColumnsCached, "writes keep the boundary entry")
	assert.False(t, res.DataCached)
}

func TestApplyUpdates_AllConflictsKeepCache(t *testing.T) {
	f := newFixture(t, sheetRows(300, 200))
	f.changes(t, 300)

	res := f.apply(t, update(2, "H", 5, 0, 400, `"x"`))
	require.Len(t, res.Conflicts, 1)
	assert.Zero(t, f.store.CallCount(memory.OpBatchWrite))

	assert.True(t, f.changes(t, 300).DataCached)
}

func TestApplyUpdates_WriteFailure(t *testing.T) {
	f := newFixture(t, sheetRows(300, 200))
	f.changes(t, 300)
	f.store.FailNext(memory.OpBatchWrite, errors.New("backend unavailable"))

	_, err := f.engine.ApplyUpdates(context.Background(), service.UpdateRequest{
		Workbook: testWorkbook,
		Sheet:    testSheet,
		Updates:  []domain.Update{update(2, "H", 1, 0, 400, `"x"`)},
	})
	require.ErrorIs(t, err, domain.ErrRemoteStore)
	assert.True(t, f.changes(t, 300).DataCached, "failed writes must not invalidate")
}

func TestApplyUpdates_ReadFailure(t *testing.T) {
	f := newFixture(t, sheetRows(300))
	f.store.FailNext(memory.OpBatchRead, errors.New("timeout"))

	_, err := f.engine.ApplyUpdates(context.Background(), service.UpdateRequest{
		Workbook: testWorkbook,
		Sheet:    testSheet,
		Updates:  []domain.Update{update(2, "H", 1, 0, 400, `"x"`)},
	})
	require.ErrorIs(t, err, domain.ErrRemoteStore)
	assert.Zero(t, f.store.CallCount(memory.OpBatchWrite))
}

func TestApplyUpdates_UnknownWorkbook(t *testing.T) {
	f := newFixture(t, sheetRows(300))

	_, err := f.engine.ApplyUpdates(context.Background(), service.UpdateRequest{
		Workbook: "prod",
		Sheet:    testSheet,
		Updates:  []domain.Update{update(2, "H", 1, 0, 400, `"x"`)},
	})
	require.ErrorIs(t, err, domain.ErrUnknownWorkbook)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}
