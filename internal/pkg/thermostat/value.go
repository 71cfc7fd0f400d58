package thermostat

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/spf13/cast"
)

var (
	errNotNumeric = errors.New("value is not numeric")
	errNotFinite  = errors.New("value is not finite")
)

// ParseTemperature accepts a number or a numeric string.
func ParseTemperature(variable string, raw any) (float64, error) {
	var (
		v   float64
		err error
	)
	switch r := raw.(type) {
	case nil, bool:
		err = errNotNumeric
	case string:
		s := strings.TrimSpace(r)
		if s == "" {
			err = errNotNumeric
			break
		}
		v, err = cast.ToFloat64E(s)
	case json.Number:
		v, err = r.Float64()
	default:
		v, err = cast.ToFloat64E(r)
	}
	if err != nil {
		return 0, &ValidationError{Variable: variable, Value: raw, Err: errNotNumeric}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Variable: variable, Value: raw, Err: errNotFinite}
	}
	return v, nil
}
