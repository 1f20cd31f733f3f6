package dbfixture

import (
	"fmt"
	"strings"
	"time"
)

// Decimal precision and scale used for inferred floating-point columns. Wide
// enough for fixture values without rounding them on the way back.
const (
	inferredPrecision = 10
	inferredScale     = 5
)

// Infer returns the column type for a sample value. It never fails: values
// of an unrecognized shape map to KindGeneric.
func Infer(v any) ColumnType {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ColumnType{Kind: KindInteger}
	case float32, float64:
		return ColumnType{Kind: KindDecimal, Precision: inferredPrecision, Scale: inferredScale}
	case time.Time, *time.Time:
		return ColumnType{Kind: KindDateTime}
	default:
		return ColumnType{Kind: KindGeneric}
	}
}

// ParseType converts a textual type hint into a ColumnType. Hints it does
// not recognize are kept as a raw SQL type.
func ParseType(hint string) ColumnType {
	h := strings.ToLower(strings.TrimSpace(hint))
	base := h
	if idx := strings.IndexByte(h, '('); idx >= 0 {
		base = strings.TrimSpace(h[:idx])
	}

	switch base {
	case "", "string", "generic", "varchar":
		if base != h {
			break
		}
		return ColumnType{Kind: KindGeneric}
	case "id", "identity":
		return ColumnType{Kind: KindIdentity}
	case "int", "integer", "bigint":
		if base != h {
			break
		}
		return ColumnType{Kind: KindInteger}
	case "text":
		return ColumnType{Kind: KindText}
	case "datetime", "timestamp":
		if base != h {
			break
		}
		return ColumnType{Kind: KindDateTime}
	case "numeric", "decimal":
		p, s, ok := parsePrecisionScale(h)
		if !ok {
			break
		}
		return ColumnType{Kind: KindDecimal, Precision: p, Scale: s}
	}
	return ColumnType{Raw: strings.TrimSpace(hint)}
}

// parsePrecisionScale reads "(p,s)" or "(p)" from a decimal hint. A bare
// "numeric" gets the inferred defaults.
func parsePrecisionScale(h string) (int, int, bool) {
	open := strings.IndexByte(h, '(')
	if open < 0 {
		return inferredPrecision, inferredScale, true
	}
	close := strings.LastIndexByte(h, ')')
	if close <= open {
		return 0, 0, false
	}
	var p, s int
	parts := strings.Split(h[open+1:close], ",")
	if n, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &p); n != 1 || err != nil {
		return 0, 0, false
	}
	if len(parts) > 1 {
		if n, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &s); n != 1 || err != nil {
			return 0, 0, false
		}
	}
	if len(parts) > 2 || s > p {
		return 0, 0, false
	}
	return p, s, true
}
