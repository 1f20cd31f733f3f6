package dbfixture

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// declaredKind classifies a driver-reported column type name. It covers the
// names SQLite (declared type), MySQL and PostgreSQL report.
func declaredKind(dbType string) Kind {
	dt := strings.ToUpper(strings.TrimSpace(dbType))
	switch {
	case dt == "":
		return KindGeneric
	case strings.Contains(dt, "INT") || dt == "SERIAL" || dt == "BIGSERIAL":
		return KindInteger
	case strings.HasPrefix(dt, "NUMERIC"), strings.HasPrefix(dt, "DECIMAL"),
		strings.Contains(dt, "REAL"), strings.Contains(dt, "FLOA"), strings.Contains(dt, "DOUB"):
		return KindDecimal
	case strings.HasPrefix(dt, "DATE"), strings.HasPrefix(dt, "TIMESTAMP"):
		return KindDateTime
	case strings.Contains(dt, "CHAR"), strings.Contains(dt, "TEXT"), strings.Contains(dt, "CLOB"):
		return KindText
	default:
		return KindGeneric
	}
}

// normalizeValue converts a scanned driver value into the representation
// fixtures use: int64, float64, string, time.Time or nil. Drivers that
// return numbers as text (MySQL's text protocol, PostgreSQL numeric) are
// parsed back into native numbers. Datetimes are returned in UTC.
func normalizeValue(val any, kind Kind) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch kind {
	case KindInteger:
		switch v := val.(type) {
		case int64:
			return v, nil
		case []byte:
			return parseInt(string(v))
		case string:
			return parseInt(v)
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
			return v, nil
		}

	case KindDecimal:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case []byte:
			return parseFloat(string(v))
		case string:
			return parseFloat(v)
		}

	case KindDateTime:
		switch v := val.(type) {
		case time.Time:
			return v.UTC(), nil
		case []byte:
			return parseTime(string(v))
		case string:
			return parseTime(v)
		}
	}

	if b, ok := val.([]byte); ok {
		return string(b), nil
	}
	return val, nil
}

func parseInt(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot coerce %q to integer: %w", s, err)
	}
	return n, nil
}

func parseFloat(s string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("cannot coerce %q to decimal: %w", s, err)
	}
	return f, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseTime(s string) (any, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %q to datetime", s)
}
