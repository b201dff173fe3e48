package bigquery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWireRow(t *testing.T, s string) TableRow {
	t.Helper()
	var row TableRow
	require.NoError(t, json.Unmarshal([]byte(s), &row))
	return row
}

func TestDecodeRow_NestedSchema(t *testing.T) {
	fields := []FieldSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "active", Type: "BOOLEAN"},
		{Name: "tags", Type: "STRING", Mode: "REPEATED"},
		{Name: "owner", Type: "RECORD", Fields: []FieldSchema{
			{Name: "name", Type: "STRING"},
			{Name: "score", Type: "FLOAT"},
		}},
	}
	row := decodeWireRow(t, `{"f":[{"v":"42"},{"v":"true"},{"v":[{"v":"a"},{"v":"b"}]},{"v":{"f":[{"v":"alice"},{"v":"99.5"}]}}]}`)

	got := DecodeRow(fields, row)
	assert.Equal(t, []any{
		int64(42),
		true,
		[]any{"a", "b"},
		map[string]any{"name": "alice", "score": 99.5},
	}, got)
}

func TestParseFieldValue_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSchema
		raw   any
		want  any
	}{
		{"null integer", FieldSchema{Type: "INT64"}, nil, nil},
		{"null record", FieldSchema{Type: "RECORD"}, nil, nil},
		{"safe integer", FieldSchema{Type: "INT64"}, "42", int64(42)},
		{"negative integer", FieldSchema{Type: "INTEGER"}, "-7", int64(-7)},
		{"max safe integer", FieldSchema{Type: "INT64"}, "9007199254740991", int64(9007199254740991)},
		{"unsafe integer", FieldSchema{Type: "INT64"}, "9007199254740993", "9007199254740993"},
		{"overflowing integer", FieldSchema{Type: "INT64"}, "99999999999999999999", "99999999999999999999"},
		{"non numeric integer", FieldSchema{Type: "INT64"}, "abc", "abc"},
		{"float", FieldSchema{Type: "FLOAT"}, "1.5", 1.5},
		{"float64 exponent", FieldSchema{Type: "FLOAT64"}, "1e3", 1000.0},
		{"numeric", FieldSchema{Type: "NUMERIC"}, "123.456", 123.456},
		{"infinity", FieldSchema{Type: "FLOAT"}, "Infinity", "Infinity"},
		{"nan", FieldSchema{Type: "FLOAT64"}, "NaN", "NaN"},
		{"bignumeric text", FieldSchema{Type: "BIGNUMERIC"}, "not-a-number", "not-a-number"},
		{"bool string true", FieldSchema{Type: "BOOL"}, "true", true},
		{"bool string false", FieldSchema{Type: "BOOLEAN"}, "false", false},
		{"bool native", FieldSchema{Type: "BOOL"}, true, true},
		{"bool other", FieldSchema{Type: "BOOL"}, "TRUE", false},
		{"string passthrough", FieldSchema{Type: "STRING"}, "hello", "hello"},
		{"timestamp passthrough", FieldSchema{Type: "TIMESTAMP"}, "1.7E9", "1.7E9"},
		{"lowercase type", FieldSchema{Type: "int64"}, "5", int64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFieldValue(tt.field, tt.raw))
		})
	}
}

func TestParseFieldValue_Repeated(t *testing.T) {
	field := FieldSchema{Name: "n", Type: "INT64", Mode: "REPEATED"}

	assert.Equal(t, []any{int64(1), int64(2)}, ParseFieldValue(field, []any{
		map[string]any{"v": "1"},
		map[string]any{"v": "2"},
	}))
	assert.Equal(t, []any{int64(3), nil}, ParseFieldValue(field, []any{"3", nil}))
	assert.Equal(t, []any{}, ParseFieldValue(field, "not-an-array"))
}

func TestParseFieldValue_RepeatedRecord(t *testing.T) {
	field := FieldSchema{Name: "items", Type: "STRUCT", Mode: "REPEATED", Fields: []FieldSchema{
		{Name: "sku", Type: "STRING"},
		{Name: "qty", Type: "INT64"},
	}}
	raw := []any{
		map[string]any{"v": map[string]any{"f": []any{map[string]any{"v": "A-1"}, map[string]any{"v": "2"}}}},
		map[string]any{"v": map[string]any{"f": []any{map[string]any{"v": "B-9"}}}},
	}

	assert.Equal(t, []any{
		map[string]any{"sku": "A-1", "qty": int64(2)},
		map[string]any{"sku": "B-9", "qty": nil},
	}, ParseFieldValue(field, raw))
}

func TestParseFieldValue_MalformedRecordPassesThrough(t *testing.T) {
	field := FieldSchema{Type: "RECORD", Fields: []FieldSchema{{Name: "a", Type: "STRING"}}}
	assert.Equal(t, "oops", ParseFieldValue(field, "oops"))
}

func TestDecodeRow_PadsMissingCells(t *testing.T) {
	fields := []FieldSchema{{Name: "a", Type: "STRING"}, {Name: "b", Type: "STRING"}}
	assert.Equal(t, []any{"x", nil}, DecodeRow(fields, TableRow{F: []TableCell{{V: "x"}}}))
}

func TestFormatFieldType(t *testing.T) {
	tests := []struct {
		field FieldSchema
		want  string
	}{
		{FieldSchema{Type: "STRING"}, "STRING"},
		{FieldSchema{Type: "STRING", Mode: "REPEATED"}, "ARRAY<STRING>"},
		{FieldSchema{Type: "RECORD", Fields: []FieldSchema{
			{Name: "name", Type: "STRING"},
			{Name: "score", Type: "FLOAT"},
		}}, "RECORD<name:STRING,score:FLOAT>"},
		{FieldSchema{Type: "RECORD", Mode: "REPEATED", Fields: []FieldSchema{
			{Name: "tags", Type: "STRING", Mode: "REPEATED"},
			{Name: "inner", Type: "STRUCT", Fields: []FieldSchema{{Name: "x", Type: "INT64"}}},
		}}, "ARRAY<RECORD<tags:ARRAY<STRING>,inner:STRUCT<x:INT64>>>"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFieldType(tt.field))
		})
	}
}
