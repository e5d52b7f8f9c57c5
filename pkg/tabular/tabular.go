// Package tabular decodes Tepilora binary payloads (Arrow IPC
// streams, Parquet files, CSV) into Arrow tables, and builds tables
// from JSON record lists for servers that answer tabular requests
// with JSON.
package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Static errors for err113 compliance.
var (
	ErrUnknownFormat = errors.New("cannot decode format")
	ErrNoRecords     = errors.New("no records to build a table from")
)

// Decode dispatches on a format keyword or content type: Arrow IPC
// streams, Parquet and CSV are supported. The caller owns the
// returned table and must Release it.
func Decode(content []byte, format string) (arrow.Table, error) {
	base, _, _ := strings.Cut(format, ";")
	base = strings.ToLower(strings.TrimSpace(base))

	switch {
	case base == "arrow" || strings.Contains(base, "arrow"):
		return DecodeIPCStream(content)
	case base == "parquet" || strings.Contains(base, "parquet"):
		return DecodeParquet(content)
	case base == "csv" || base == "text/csv":
		return DecodeCSV(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeIPCStream reads a complete Arrow IPC stream into a table.
func DecodeIPCStream(content []byte) (arrow.Table, error) {
	reader, err := ipc.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening IPC stream: %w", err)
	}
	defer reader.Release()

	var batches []arrow.Record

	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	for reader.Next() {
		batch := reader.Record()
		batch.Retain()
		batches = append(batches, batch)
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading IPC stream: %w", err)
	}

	return array.NewTableFromRecords(reader.Schema(), batches), nil
}

// DecodeParquet reads a Parquet file held in memory into a table.
func DecodeParquet(content []byte) (arrow.Table, error) {
	table, err := pqarrow.ReadTable(
		context.Background(),
		bytes.NewReader(content),
		parquet.NewReaderProperties(memory.NewGoAllocator()),
		pqarrow.ArrowReadProperties{},
		memory.NewGoAllocator(),
	)
	if err != nil {
		return nil, fmt.Errorf("reading parquet payload: %w", err)
	}

	return table, nil
}

// DecodeCSV reads a CSV payload with a header row into a table,
// inferring column types.
func DecodeCSV(content []byte) (arrow.Table, error) {
	reader := csv.NewInferringReader(bytes.NewReader(content),
		csv.WithHeader(true),
		csv.WithChunk(-1),
	)
	defer reader.Release()

	var batches []arrow.Record

	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	for reader.Next() {
		batch := reader.Record()
		batch.Retain()
		batches = append(batches, batch)
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading CSV payload: %w", err)
	}

	if len(batches) == 0 {
		return nil, ErrNoRecords
	}

	return array.NewTableFromRecords(batches[0].Schema(), batches), nil
}

// FromRecords builds a table from decoded JSON records. Column types
// are inferred from the values (bool, float64, everything else as
// string); keys missing from a record become nulls. Column order is
// lexicographic for determinism.
func FromRecords(records []map[string]interface{}) (arrow.Table, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	columns := inferColumns(records)

	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col.name, Type: col.dtype, Nullable: true}
	}

	schema := arrow.NewSchema(fields, nil)
	mem := memory.NewGoAllocator()

	arrays := make([]arrow.Array, len(columns))
	for i, col := range columns {
		arr, err := buildColumn(mem, col, records)
		if err != nil {
			for _, built := range arrays[:i] {
				built.Release()
			}

			return nil, err
		}

		arrays[i] = arr
	}

	batch := array.NewRecord(schema, arrays, int64(len(records)))
	defer batch.Release()

	for _, arr := range arrays {
		arr.Release()
	}

	return array.NewTableFromRecords(schema, []arrow.Record{batch}), nil
}

type column struct {
	name  string
	dtype arrow.DataType
}

// inferColumns unions the keys of every record and picks a type per
// column: bool if every present value is bool, float64 if every
// present value is numeric, string otherwise.
func inferColumns(records []map[string]interface{}) []column {
	type seen struct {
		bools   int
		numbers int
		others  int
	}

	counts := map[string]*seen{}

	var names []string

	for _, record := range records {
		for key, value := range record {
			s, ok := counts[key]
			if !ok {
				s = &seen{}
				counts[key] = s

				names = append(names, key)
			}

			switch value.(type) {
			case nil:
			case bool:
				s.bools++
			case float64:
				s.numbers++
			default:
				s.others++
			}
		}
	}

	sort.Strings(names)

	columns := make([]column, len(names))

	for i, name := range names {
		s := counts[name]

		dtype := arrow.DataType(arrow.BinaryTypes.String)
		if s.others == 0 && s.numbers == 0 && s.bools > 0 {
			dtype = arrow.FixedWidthTypes.Boolean
		} else if s.others == 0 && s.bools == 0 && s.numbers > 0 {
			dtype = arrow.PrimitiveTypes.Float64
		}

		columns[i] = column{name: name, dtype: dtype}
	}

	return columns
}

func buildColumn(mem memory.Allocator, col column, records []map[string]interface{}) (arrow.Array, error) {
	switch col.dtype.ID() {
	case arrow.BOOL:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()

		for _, record := range records {
			if v, ok := record[col.name].(bool); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		}

		return builder.NewArray(), nil
	case arrow.FLOAT64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()

		for _, record := range records {
			if v, ok := record[col.name].(float64); ok {
				builder.Append(v)
			} else {
				builder.AppendNull()
			}
		}

		return builder.NewArray(), nil
	default:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()

		for _, record := range records {
			value, present := record[col.name]
			if !present || value == nil {
				builder.AppendNull()

				continue
			}

			builder.Append(stringifyCell(value))
		}

		return builder.NewArray(), nil
	}
}

// stringifyCell renders one cell for a string column. Nested
// structures keep their JSON text.
func stringifyCell(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}

		return "false"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
