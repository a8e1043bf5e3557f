package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ============================================================================
// PARQUET READER — raw bytes → Table via in-memory DuckDB
// ============================================================================

// ReadParquet decodes a Parquet object into a Table. The bytes are spooled
// to a temp file and read with DuckDB's read_parquet.
func ReadParquet(ctx context.Context, data []byte) (Table, error) {
	f, err := os.CreateTemp("", "spektr-*.parquet")
	if err != nil {
		return Table{}, fmt.Errorf("spool parquet: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return Table{}, fmt.Errorf("spool parquet: %w", err)
	}
	if err := f.Close(); err != nil {
		return Table{}, fmt.Errorf("spool parquet: %w", err)
	}
	return ReadParquetFile(ctx, f.Name())
}

// ReadParquetFile reads a Parquet file from disk into a Table.
func ReadParquetFile(ctx context.Context, path string) (Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return Table{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT * FROM read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return Table{}, fmt.Errorf("read_parquet %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Table{}, fmt.Errorf("read columns: %w", err)
	}

	t := Table{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return Table{}, fmt.Errorf("scan row %d: %w", len(t.Rows)+1, err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = cellString(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	return t, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
