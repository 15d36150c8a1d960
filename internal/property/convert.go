package property

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/spf13/cast"
)

// MaxDepth bounds how deeply a property bag may nest.
const MaxDepth = 64

// FromMap converts a loosely typed property bag into a Map.
// Cyclic bags, unsupported value types and bags nested deeper than MaxDepth
// are rejected with an error wrapping errs.ErrInvalidEntityShape.
func FromMap(raw map[string]any) (Map, error) {
	c := converter{active: make(map[uintptr]struct{})}
	v, err := c.convert(reflect.ValueOf(raw), "", 0)
	if err != nil {
		return nil, err
	}
	m, _ := v.Fields()
	if m == nil {
		m = Map{}
	}
	return m, nil
}

// FromAny converts a single loosely typed value.
func FromAny(raw any) (Value, error) {
	c := converter{active: make(map[uintptr]struct{})}
	return c.convert(reflect.ValueOf(raw), "", 0)
}

// MustMap is FromMap for literals in tests and fixtures; it panics on error.
func MustMap(raw map[string]any) Map {
	m, err := FromMap(raw)
	if err != nil {
		panic(err)
	}
	return m
}

type converter struct {
	// containers on the current recursion path
	active map[uintptr]struct{}
}

var (
	valueType  = reflect.TypeOf(Value{})
	mapType    = reflect.TypeOf(Map{})
	timeType   = reflect.TypeOf(time.Time{})
	numberType = reflect.TypeOf(json.Number(""))
)

func (c *converter) convert(rv reflect.Value, path string, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, &errs.ShapeError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d levels", MaxDepth)}
	}
	if !rv.IsValid() {
		return Missing(), nil
	}

	// Unwrap interfaces and pointers.
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Missing(), nil
		}
		rv = rv.Elem()
	}

	switch rv.Type() {
	case valueType:
		return rv.Interface().(Value), nil
	case mapType:
		return Nested(rv.Interface().(Map)), nil
	case timeType:
		return Text(rv.Interface().(time.Time).Format(time.RFC3339)), nil
	case numberType:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return Value{}, &errs.ShapeError{Path: path, Reason: err.Error()}
		}
		return finite(f, path)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(rv.Interface())
		if err != nil {
			return Value{}, &errs.ShapeError{Path: path, Reason: err.Error()}
		}
		return finite(f, path)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Text(string(rv.Bytes())), nil
		}
		return c.convertList(rv, path, depth)
	case reflect.Map:
		return c.convertMap(rv, path, depth)
	default:
		return Value{}, &errs.ShapeError{Path: path, Reason: fmt.Sprintf("unsupported value type %s", rv.Type())}
	}
}

// finite rejects NaN and infinities, which have no meaningful distance.
func finite(f float64, path string) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &errs.ShapeError{Path: path, Reason: fmt.Sprintf("number %v is not finite", f)}
	}
	return Number(f), nil
}

func (c *converter) enter(rv reflect.Value, path string) (func(), error) {
	if rv.Kind() == reflect.Array || rv.Len() == 0 {
		return func() {}, nil
	}
	ptr := rv.Pointer()
	if _, seen := c.active[ptr]; seen {
		return nil, &errs.ShapeError{Path: path, Reason: "property bag references itself"}
	}
	c.active[ptr] = struct{}{}
	return func() { delete(c.active, ptr) }, nil
}

func (c *converter) convertList(rv reflect.Value, path string, depth int) (Value, error) {
	leave, err := c.enter(rv, path)
	if err != nil {
		return Value{}, err
	}
	defer leave()

	items := make([]Value, 0, rv.Len())
	for i := range rv.Len() {
		item, err := c.convert(rv.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Value{kind: KindList, list: items}, nil
}

func (c *converter) convertMap(rv reflect.Value, path string, depth int) (Value, error) {
	leave, err := c.enter(rv, path)
	if err != nil {
		return Value{}, err
	}
	defer leave()

	out := make(Map, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return Value{}, &errs.ShapeError{Path: path, Reason: err.Error()}
		}
		if key == "" || strings.Contains(key, ".") {
			return Value{}, &errs.ShapeError{Path: path, Reason: fmt.Sprintf("invalid property name %q", key)}
		}
		child, err := c.convert(iter.Value(), Join(path, key), depth+1)
		if err != nil {
			return Value{}, err
		}
		out[key] = child
	}
	return Nested(out), nil
}

func mapKey(k reflect.Value) (string, error) {
	for k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if !k.IsValid() {
		return "", fmt.Errorf("nil property name")
	}
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	return cast.ToStringE(k.Interface())
}
