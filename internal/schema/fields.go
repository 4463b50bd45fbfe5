package schema

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field accessors over the loosely-typed candidate objects returned by
// the completion service. Nothing past this package touches raw
// map[string]interface{} values.

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// decimalField accepts JSON numbers and numeric strings: models
// routinely quote amounts read off receipts.
func decimalField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Decimal{}, fmt.Errorf("missing field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("field %q: %q is not a number", key, val)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
