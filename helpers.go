package crfsuite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// FormatParamValue renders a decoded configuration value as the string a
// trainer parameter is set with. Integral floats print without a fraction.
// It reports false for values that are not scalars.
func FormatParamValue(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case int:
		return strconv.Itoa(n), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case bool:
		if n {
			return "1", true
		}
		return "0", true
	default:
		return "", false
	}
}

// ParamsFromMap converts decoded configuration values to parameter strings.
func ParamsFromMap(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for name, v := range m {
		s, ok := FormatParamValue(v)
		if !ok {
			return nil, &errors.ConfigError{
				Field: "params." + name,
				Err:   fmt.Errorf("value of type %T is not a scalar", v),
			}
		}
		out[name] = s
	}
	return out, nil
}

// ParseParam splits a "name=value" assignment.
func ParseParam(assign string) (name, value string, err error) {
	name, value, ok := strings.Cut(assign, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", &errors.ConfigError{
			Field: "params",
			Err:   fmt.Errorf("parameter %q is not of the form name=value", assign),
		}
	}
	return name, strings.TrimSpace(value), nil
}

// ParseParams parses assignments; a later assignment of the same name wins.
func ParseParams(assigns []string) (map[string]string, error) {
	out := make(map[string]string, len(assigns))
	for _, a := range assigns {
		name, value, err := ParseParam(a)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

// SortedParamNames returns the names of params in lexical order, so they
// are applied deterministically.
func SortedParamNames(params map[string]string) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
