package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Limit is a positive bound on a count, or Infinite.
type Limit int

// Infinite means no bound. Zero is not a valid Limit.
const Infinite Limit = -1

func errInvalidLimit(v interface{}) error {
	return ErrInvalidConfig(fmt.Sprintf("invalid limit: %v (must be a positive integer or 'infinite')", v))
}

// NewLimit returns a finite limit of n, which must be positive
func NewLimit(n int) (Limit, error) {
	if n <= 0 {
		return Infinite, errInvalidLimit(n)
	}
	return Limit(n), nil
}

// IsValid reports whether l is Infinite or a positive bound
func (l Limit) IsValid() bool {
	return l == Infinite || l > 0
}

// IsInfinite returns true if the limit does not bound anything.
func (l Limit) IsInfinite() bool {
	return l == Infinite
}

// String returns the string representation of Limit
func (l Limit) String() string {
	if l.IsInfinite() {
		return "infinite"
	}
	return strconv.Itoa(int(l))
}

// ParseLimit parses a positive integer or "infinite" (also "inf", "unlimited").
func ParseLimit(s string) (Limit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "infinite", "inf", "unlimited":
		return Infinite, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Infinite, errInvalidLimit(strconv.Quote(s))
	}
	return NewLimit(n)
}

// MarshalText implements encoding.TextMarshaler for Limit
func (l Limit) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Limit
func (l *Limit) UnmarshalText(text []byte) error {
	parsed, err := ParseLimit(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalJSON implements json.Marshaler for Limit
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsInfinite() {
		return json.Marshal(l.String())
	}
	return json.Marshal(int(l))
}

// UnmarshalJSON implements json.Unmarshaler for Limit
func (l *Limit) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := NewLimit(n)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler for Limit
func (l Limit) MarshalYAML() (interface{}, error) {
	if l.IsInfinite() {
		return l.String(), nil
	}
	return int(l), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Limit
func (l *Limit) UnmarshalYAML(value *yaml.Node) error {
	return l.UnmarshalText([]byte(value.Value))
}

var limitType = reflect.TypeOf(Limit(0))

// LimitHookFunc returns a mapstructure decode hook for numeric limits
// (config files and environment deliver plain ints or floats). Numbers
// outside the domain, including -1, decode to the invalid zero Limit so that
// Validate rejects them. Strings are left to TextUnmarshallerHookFunc.
func LimitHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != limitType || f == limitType {
			return data, nil
		}
		v := reflect.ValueOf(data)
		var n int64
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = v.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = int64(v.Uint())
		case reflect.Float32, reflect.Float64:
			x := v.Float()
			if x != math.Trunc(x) || x > math.MaxInt32 {
				return Limit(0), nil
			}
			n = int64(x)
		default:
			return data, nil
		}
		if n <= 0 || n > math.MaxInt32 {
			return Limit(0), nil
		}
		return Limit(n), nil
	}
}

// ConfigDecodeHook decodes limits and distribution types from the words
// and numbers found in config files, flags and the environment.
func ConfigDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		LimitHookFunc(),
	)
}
