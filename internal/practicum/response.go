package practicum

import (
	"encoding/json"
	"fmt"
	"math"
)

// Batch is a validated status response.
type Batch struct {
	// Homeworks holds the raw records, most recent first.
	Homeworks []any
	// CurrentDate is the server time; it becomes the next from_date.
	CurrentDate int64
}

// CheckResponse validates a decoded response and extracts the homework list.
func CheckResponse(v any) (Batch, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Batch{}, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	raw, ok := m["homeworks"]
	if !ok {
		return Batch{}, ErrMissingHomeworks
	}
	list, ok := raw.([]any)
	if !ok {
		return Batch{}, fmt.Errorf("%w: got %T", ErrHomeworksNotList, raw)
	}
	cd, ok := m["current_date"]
	if !ok {
		return Batch{}, ErrMissingCurrentDate
	}
	ts, err := unixSeconds(cd)
	if err != nil {
		return Batch{}, err
	}
	return Batch{Homeworks: list, CurrentDate: ts}, nil
}

func unixSeconds(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), nil
		}
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	}
	return 0, fmt.Errorf("%w: %v", ErrBadCurrentDate, v)
}
