package models

import (
	"math"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

// Field readers tolerate the value shapes each backend hands back: the
// memory store keeps Go values, mongo returns int64/time.Time and the JSONB
// backend returns float64 and RFC 3339 strings.

func str(d database.Document, key string) string {
	v, _ := d[key].(string)
	return v
}

func optStr(d database.Document, key string) *string {
	v, ok := d[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func boolean(d database.Document, key string) bool {
	v, _ := d[key].(bool)
	return v
}

func number(d database.Document, key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func float(d database.Document, key string) float64 {
	f, _ := number(d, key)
	return f
}

func optFloat(d database.Document, key string) *float64 {
	f, ok := number(d, key)
	if !ok {
		return nil
	}
	return &f
}

func integer(d database.Document, key string) int {
	f, _ := number(d, key)
	return int(math.Round(f))
}

func timestamp(d database.Document, key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
