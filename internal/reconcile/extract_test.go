package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows implements pgx.Rows over an in-memory row list.
type fakeRows struct {
	rows      [][]any
	idx       int
	iterErr   error
	valuesErr error
	closed    bool
}

func (f *fakeRows) Close()                                       { f.closed = true }
func (f *fakeRows) Err() error                                   { return f.iterErr }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Scan(dest ...any) error                       { return nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.idx < len(f.rows) {
		f.idx++
		return true
	}
	return false
}

func (f *fakeRows) Values() ([]any, error) {
	if f.valuesErr != nil {
		return nil, f.valuesErr
	}
	return f.rows[f.idx-1], nil
}

// fakeQuerier serves queued responses in query order.
type fakeQuerier struct {
	responses []*fakeRows
	queryErr  error
	queries   []string
	args      [][]any
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	rows := f.responses[0]
	f.responses = f.responses[1:]
	return rows, nil
}

func decodePair(row []any) (pair, error) {
	if len(row) != 2 {
		return pair{}, fmt.Errorf("want 2 columns, got %d", len(row))
	}
	id, err := Int64(row[0])
	if err != nil {
		return pair{}, err
	}
	return pair{ID: int(id), Name: Text(row[1])}, nil
}

func TestExtractDecodesRowsInOrder(t *testing.T) {
	rows := &fakeRows{rows: [][]any{{int64(1), "A"}, {int64(2), "B"}}}
	src := Source{Name: "reference", DB: &fakeQuerier{responses: []*fakeRows{rows}}}

	got, err := Extract(context.Background(), src, "SELECT 1", decodePair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != (pair{1, "A"}) || got[1] != (pair{2, "B"}) {
		t.Errorf("unexpected records: %v", got)
	}
	if !rows.closed {
		t.Error("rows were not closed")
	}
}

func TestExtractQueryFailureNamesSource(t *testing.T) {
	src := Source{Name: "legacy", DB: &fakeQuerier{queryErr: errors.New("connection refused")}}

	_, err := Extract(context.Background(), src, "SELECT 1", decodePair)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "legacy source") {
		t.Errorf("error does not name the failing source: %v", err)
	}
}

func TestExtractDecodeFailureClosesRows(t *testing.T) {
	rows := &fakeRows{rows: [][]any{{"not-a-number", "A"}}}
	src := Source{Name: "reference", DB: &fakeQuerier{responses: []*fakeRows{rows}}}

	_, err := Extract(context.Background(), src, "SELECT 1", decodePair)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !rows.closed {
		t.Error("rows were not closed on decode failure")
	}
}

func TestExtractIterationError(t *testing.T) {
	rows := &fakeRows{iterErr: errors.New("broken pipe")}
	src := Source{Name: "legacy", DB: &fakeQuerier{responses: []*fakeRows{rows}}}

	_, err := Extract(context.Background(), src, "SELECT 1", decodePair)
	if err == nil || !strings.Contains(err.Error(), "legacy source") {
		t.Errorf("expected iteration error naming the source, got %v", err)
	}
}

func TestExtractPassesQueryArgs(t *testing.T) {
	q := &fakeQuerier{responses: []*fakeRows{{}}}
	src := Source{Name: "reference", DB: q}

	allowed := []int64{7, 8}
	if _, err := Extract(context.Background(), src, "SELECT 1", decodePair, allowed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.args) != 1 || len(q.args[0]) != 1 {
		t.Fatalf("expected one query with one arg, got %v", q.args)
	}
}

func TestSpecCheckExtractsBothSides(t *testing.T) {
	refRows := &fakeRows{rows: [][]any{{int64(1), "A"}}}
	legRows := &fakeRows{rows: [][]any{{int64(1), "A"}, {int64(2), "B"}}}
	reference := Source{Name: "reference", DB: &fakeQuerier{responses: []*fakeRows{refRows}}}
	legacy := Source{Name: "legacy", DB: &fakeQuerier{responses: []*fakeRows{legRows}}}

	c := NewCheck(Spec[pair]{
		Entity:          "pairs",
		ReferenceLabel:  "ref.pairs",
		LegacyLabel:     "leg.pairs",
		ReferenceQuery:  "SELECT ref",
		LegacyQuery:     "SELECT leg",
		DecodeReference: decodePair,
		DecodeLegacy:    decodePair,
	})

	if err := c.Extract(context.Background(), reference, legacy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := c.Compare()
	if res.Entity != "pairs" || res.ReferenceLabel != "ref.pairs" {
		t.Errorf("labels not carried through: %+v", res)
	}
	if res.Result.Clean() {
		t.Error("expected a deviation")
	}
	if res.Result.LeftCount != 1 || res.Result.RightCount != 2 {
		t.Errorf("expected counts 1/2, got %d/%d", res.Result.LeftCount, res.Result.RightCount)
	}
}

func TestSpecCheckLegacyFailurePropagates(t *testing.T) {
	refRows := &fakeRows{rows: [][]any{{int64(1), "A"}}}
	reference := Source{Name: "reference", DB: &fakeQuerier{responses: []*fakeRows{refRows}}}
	legacy := Source{Name: "legacy", DB: &fakeQuerier{queryErr: errors.New("access denied")}}

	c := NewCheck(Spec[pair]{
		Entity:          "pairs",
		ReferenceQuery:  "SELECT ref",
		LegacyQuery:     "SELECT leg",
		DecodeReference: decodePair,
		DecodeLegacy:    decodePair,
	})

	err := c.Extract(context.Background(), reference, legacy)
	if err == nil || !strings.Contains(err.Error(), "legacy source") {
		t.Errorf("expected legacy extraction failure, got %v", err)
	}
}
