package adapter

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Arguments arrive as decoded YAML: ints, floats, strings, nil, or []any of
// those. The helpers below convert them for adapters.

// Int converts arg to an int. Floats must be whole numbers.
func Int(arg any) (int, error) {
	switch v := arg.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", arg, arg)
}

// Float converts arg to a float64.
func Float(arg any) (float64, error) {
	switch v := arg.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", arg, arg)
}

// Ints converts a list argument of exactly n numbers.
func Ints(arg any, n int) ([]int, error) {
	var items []any
	switch v := arg.(type) {
	case []any:
		items = v
	case []int:
		return checkLen(v, n)
	default:
		return nil, fmt.Errorf("expected a list of %d numbers, got %v", n, arg)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		i, err := Int(item)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return checkLen(out, n)
}

func checkLen(v []int, n int) ([]int, error) {
	if len(v) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(v))
	}
	return v, nil
}

// Pair reads a [width, height] argument. A single number or a one-element
// list means a square, and "WxH" strings are accepted.
func Pair(arg any) (int, int, error) {
	switch v := arg.(type) {
	case string:
		if w, h, ok := strings.Cut(strings.ToLower(v), "x"); ok {
			wi, err := Int(w)
			if err != nil {
				return 0, 0, err
			}
			hi, err := Int(h)
			if err != nil {
				return 0, 0, err
			}
			return wi, hi, nil
		}
	case []any:
		if len(v) == 1 {
			n, err := Int(v[0])
			return n, n, err
		}
		p, err := Ints(v, 2)
		if err != nil {
			return 0, 0, err
		}
		return p[0], p[1], nil
	case []int:
		p, err := Ints(v, 2)
		if err != nil {
			return 0, 0, err
		}
		return p[0], p[1], nil
	}
	n, err := Int(arg)
	return n, n, err
}

// String converts a scalar argument to its string form.
func String(arg any) (string, error) {
	switch v := arg.(type) {
	case string:
		return v, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("%v (%T) is not a scalar", arg, arg)
}

// Bool reads a flag argument. A missing argument enables the flag.
func Bool(arg any) (bool, error) {
	switch v := arg.(type) {
	case nil:
		return true, nil
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	}
	return false, fmt.Errorf("%v (%T) is not a boolean", arg, arg)
}

// Bytes is an in-memory Processed result.
type Bytes struct {
	Type string
	Data []byte
}

// MimeType returns b.Type.
func (b *Bytes) MimeType() string { return b.Type }

// WriteTo writes the buffered content to w.
func (b *Bytes) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(b.Data).WriteTo(w)
}
