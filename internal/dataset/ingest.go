package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/leapml/pkg/core"
)

// DefaultMaxBytes caps uploads at 100 MiB.
const DefaultMaxBytes int64 = 100 * 1024 * 1024

const readChunk = 1024 * 1024

// Format is a supported upload format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, true
	case ".parquet":
		return FormatParquet, true
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, true
	default:
		return "", false
	}
}

// IngestorConfig holds configuration for creating an Ingestor.
type IngestorConfig struct {
	// MaxBytes caps the size of a single upload. Zero means DefaultMaxBytes.
	MaxBytes int64
	Logger   *slog.Logger
}

// Ingestor parses uploaded files into tables using an in-memory DuckDB.
type Ingestor struct {
	db       *sql.DB
	maxBytes int64
	logger   *slog.Logger
}

// NewIngestor opens the in-memory DuckDB connection used for parsing.
func NewIngestor(ctx context.Context, cfg IngestorConfig) (*Ingestor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return &Ingestor{db: db, maxBytes: maxBytes, logger: logger}, nil
}

// Close releases the DuckDB connection.
func (i *Ingestor) Close() error {
	return i.db.Close()
}

// MaxBytes returns the upload size cap.
func (i *Ingestor) MaxBytes() int64 {
	return i.maxBytes
}

// Parse reads an upload in chunks, enforcing the size cap, and parses it
// according to the extension of filename.
func (i *Ingestor) Parse(ctx context.Context, filename string, r io.Reader) (*core.Table, error) {
	format, ok := FormatFromName(filename)
	if !ok {
		return nil, core.InputFormatErrorf("Unsupported file format. Please upload a .csv, .parquet or .json file.")
	}

	var buf bytes.Buffer
	chunk := make([]byte, readChunk)
	for {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if int64(buf.Len()) > i.maxBytes {
			return nil, core.InputFormatErrorf("Uploaded file exceeds the maximum allowed size of %d bytes.", i.maxBytes)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
	}
	if buf.Len() == 0 {
		return nil, core.InputFormatErrorf("Uploaded file is empty.")
	}

	tmp, err := os.CreateTemp("", "leapml-upload-*."+string(format))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	return i.load(ctx, tmp.Name(), format)
}

// LoadFile parses a file on disk.
func (i *Ingestor) LoadFile(ctx context.Context, path string) (*core.Table, error) {
	format, ok := FormatFromName(path)
	if !ok {
		return nil, core.InputFormatErrorf("unsupported file format: %s", filepath.Base(path))
	}
	return i.load(ctx, path, format)
}

func (i *Ingestor) load(ctx context.Context, path string, format Format) (*core.Table, error) {
	start := time.Now()
	quoted := strings.ReplaceAll(path, "'", "''")

	var source string
	switch format {
	case FormatCSV:
		source = fmt.Sprintf("read_csv_auto('%s', header=true)", quoted)
	case FormatParquet:
		source = fmt.Sprintf("read_parquet('%s')", quoted)
	case FormatJSON:
		source = fmt.Sprintf("read_json_auto('%s')", quoted)
	}

	rows, err := i.db.QueryContext(ctx, "SELECT * FROM "+source)
	if err != nil {
		return nil, &core.Error{Kind: core.KindInputFormat, Message: "Failed to parse dataset", Err: err}
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	columns := make([]*core.Column, len(types))
	for j, ct := range types {
		if isNumericType(ct.DatabaseTypeName()) {
			columns[j] = core.NewNumericColumn(ct.Name(), nil)
		} else {
			columns[j] = core.NewCategoricalColumn(ct.Name(), nil, []bool{})
		}
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for j := range values {
		ptrs[j] = &values[j]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for j, col := range columns {
			appendValue(col, values[j])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &core.Error{Kind: core.KindInputFormat, Message: "Failed to parse dataset", Err: err}
	}

	table, err := core.NewTable(columns...)
	if err != nil {
		return nil, err
	}
	if table.Rows() == 0 {
		return nil, core.InputFormatErrorf("Dataset contains no rows.")
	}

	i.logger.Debug("dataset parsed",
		slog.String("format", string(format)),
		slog.Int("rows", table.Rows()),
		slog.Int("columns", len(table.Columns)),
		slog.Duration("elapsed", time.Since(start)))
	return table, nil
}

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INTEGER": true, "BIGINT": true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true, "UHUGEINT": true,
	"FLOAT": true, "DOUBLE": true, "BOOLEAN": true,
}

func isNumericType(dbType string) bool {
	dbType = strings.ToUpper(dbType)
	return numericTypes[dbType] || strings.HasPrefix(dbType, "DECIMAL")
}

func appendValue(col *core.Column, v any) {
	if col.Kind == core.KindNumeric {
		col.Floats = append(col.Floats, toFloat(v))
		return
	}
	s, ok := toString(v)
	col.Strings = append(col.Strings, s)
	col.Valid = append(col.Valid, ok)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case float32:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	default:
		return math.NaN()
	}
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly), true
		}
		return x.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(x), true
	}
}
