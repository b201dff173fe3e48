package bigquery

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxSafeInteger is the largest integer a float64 represents exactly (2^53 - 1)
const maxSafeInteger = 1<<53 - 1

// ParseFieldValue decodes one wire value against its field schema.
// Null is null for every type. Integers outside the exactly-representable range and
// non-finite floats are returned as the original string.
func ParseFieldValue(field FieldSchema, raw any) any {
	if raw == nil {
		return nil
	}

	if strings.EqualFold(field.Mode, ModeRepeated) {
		items, ok := raw.([]any)
		if !ok {
			return []any{}
		}
		elem := field
		elem.Mode = ModeNullable
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, ParseFieldValue(elem, unwrapCell(item)))
		}
		return out
	}

	switch strings.ToUpper(field.Type) {
	case TypeRecord, TypeStruct:
		cells, ok := recordCells(raw)
		if !ok {
			return raw
		}
		obj := make(map[string]any, len(field.Fields))
		for i, sub := range field.Fields {
			var v any
			if i < len(cells) {
				v = unwrapCell(cells[i])
			}
			obj[sub.Name] = ParseFieldValue(sub, v)
		}
		return obj
	case TypeBool, TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v
		case string:
			return v == "true"
		default:
			return false
		}
	case TypeInt64, TypeInteger:
		return parseInteger(raw)
	case TypeFloat, TypeFloat64, TypeNumeric, TypeBigNumeric:
		return parseFloat(raw)
	default:
		return raw
	}
}

// DecodeRow decodes a wire row positionally. The result always has one entry per field.
func DecodeRow(fields []FieldSchema, row TableRow) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		if i < len(row.F) {
			out[i] = ParseFieldValue(f, row.F[i].V)
		}
	}
	return out
}

// DecodeRows decodes every row against fields
func DecodeRows(fields []FieldSchema, rows []TableRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, DecodeRow(fields, row))
	}
	return out
}

// FormatFieldType renders a display type such as ARRAY<STRING> or RECORD<name:STRING,score:FLOAT>
func FormatFieldType(field FieldSchema) string {
	base := strings.ToUpper(field.Type)
	if (base == TypeRecord || base == TypeStruct) && len(field.Fields) > 0 {
		parts := make([]string, 0, len(field.Fields))
		for _, sub := range field.Fields {
			parts = append(parts, sub.Name+":"+FormatFieldType(sub))
		}
		base += "<" + strings.Join(parts, ",") + ">"
	}
	if strings.EqualFold(field.Mode, ModeRepeated) {
		return "ARRAY<" + base + ">"
	}
	return base
}

// ColumnsFor builds display metadata for a field list
func ColumnsFor(fields []FieldSchema) []Column {
	cols := make([]Column, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, Column{
			Name:        f.Name,
			Type:        f.Type,
			Mode:        f.Mode,
			DisplayType: FormatFieldType(f),
		})
	}
	return cols
}

// unwrapCell returns v of a {v: value} wrapper, or item itself for a raw scalar
func unwrapCell(item any) any {
	if m, ok := item.(map[string]any); ok {
		if v, ok := m["v"]; ok {
			return v
		}
	}
	return item
}

// recordCells extracts the f list of a {f: [...]} record value
func recordCells(raw any) ([]any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	cells, ok := m["f"].([]any)
	return cells, ok
}

func parseInteger(raw any) any {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if n > maxSafeInteger || n < -maxSafeInteger {
				return v
			}
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && isSafeIntegral(f) {
			return int64(f)
		}
		return v
	case float64:
		if isSafeIntegral(v) {
			return int64(v)
		}
		return v
	case json.Number:
		return parseInteger(v.String())
	default:
		return raw
	}
}

func parseFloat(raw any) any {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return v
		}
		return f
	case float64:
		return v
	case json.Number:
		return parseFloat(v.String())
	default:
		return raw
	}
}

func isSafeIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger
}
