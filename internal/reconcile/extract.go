package reconcile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RowQuerier is the minimal query surface the extractor needs from a data
// source. *pgxpool.Pool satisfies it.
type RowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source is a named, already-configured data-source handle. The extractor
// never manages connection configuration, it only consumes the handle.
type Source struct {
	Name string
	DB   RowQuerier
}

// DecodeFunc converts one raw result row into a typed entity record. Row
// shape is decided once per entity type here, at the extraction boundary.
type DecodeFunc[R Tuple] func(row []any) (R, error)

// Extract runs a single projection query against src and returns the decoded
// rows in result order. The row iterator is always closed, including on
// error. There are no retries: any failure aborts the caller's run.
func Extract[R Tuple](ctx context.Context, src Source, query string, decode DecodeFunc[R], args ...any) ([]R, error) {
	rows, err := src.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s source: %w", src.Name, err)
	}
	defer rows.Close()

	var records []R
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s source row: %w", src.Name, err)
		}
		rec, err := decode(values)
		if err != nil {
			return nil, fmt.Errorf("decode %s source row: %w", src.Name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s source rows: %w", src.Name, err)
	}

	return records, nil
}
