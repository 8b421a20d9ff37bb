// Package members resolves names against arbitrary Go values the way
// template expressions address data: map keys, struct fields and methods.
package members

import (
	"errors"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// ErrNotFound is returned when a value has no member with the requested name.
var ErrNotFound = errors.New("member not found")

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Exported returns name with its first rune upper-cased, which is how an
// expression name like "endloop" maps onto the Go method "Endloop".
func Exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// Get resolves name on v. Maps with string keys are indexed, struct fields are
// matched by name (exact or exported form) and niladic methods are called.
func Get(v any, name string) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s on null", ErrNotFound, name)
	}
	rv := reflect.ValueOf(v)
	if m, ok := method(rv, name); ok && m.Type().NumIn() == 0 {
		return call(m, nil)
	}

	iv := reflect.Indirect(rv)
	switch iv.Kind() {
	case reflect.Map:
		if iv.Type().Key().Kind() != reflect.String {
			break
		}
		mv := iv.MapIndex(reflect.ValueOf(name).Convert(iv.Type().Key()))
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: key %q", ErrNotFound, name)
		}
		return mv.Interface(), nil
	case reflect.Struct:
		for _, candidate := range []string{name, Exported(name)} {
			f, ok := iv.Type().FieldByName(candidate)
			if !ok || !f.IsExported() {
				continue
			}
			return iv.FieldByIndex(f.Index).Interface(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %T", ErrNotFound, name, v)
}

// Call invokes the method name on v with args. A map entry holding a func is
// callable as well.
func Call(v any, name string, args []any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s() on null", ErrNotFound, name)
	}
	rv := reflect.ValueOf(v)
	if m, ok := method(rv, name); ok {
		return Invoke(m, args)
	}
	if iv := reflect.Indirect(rv); iv.Kind() == reflect.Map && iv.Type().Key().Kind() == reflect.String {
		fv := iv.MapIndex(reflect.ValueOf(name).Convert(iv.Type().Key()))
		if fv.IsValid() {
			if fv.Kind() == reflect.Interface {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Func {
				return Invoke(fv, args)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s() on %T", ErrNotFound, name, v)
}

// Method returns the bound method of v for an expression member name.
func Method(v any, name string) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	return method(reflect.ValueOf(v), name)
}

func method(rv reflect.Value, name string) (reflect.Value, bool) {
	nilPointer := rv.Kind() == reflect.Pointer && rv.IsNil()
	for _, candidate := range []string{name, Exported(name)} {
		if nilPointer {
			// Value receivers would dereference nil.
			if _, ok := rv.Type().Elem().MethodByName(candidate); ok {
				continue
			}
		}
		if m := rv.MethodByName(candidate); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

// call runs fn and reports a panic inside it as an error.
func call(fn reflect.Value, in []reflect.Value) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%s panicked: %v", fn.Type(), r)
		}
	}()
	return results(fn.Call(in))
}

// Invoke calls fn with args converted to its parameter types. Results follow
// the usual Go shapes: nothing, a value, an error, or a value and an error.
func Invoke(fn reflect.Value, args []any) (any, error) {
	t := fn.Type()
	n := t.NumIn()
	if t.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("want at least %d arguments, got %d", n-1, len(args))
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= n-1 {
			pt = t.In(n - 1).Elem()
		} else {
			pt = t.In(i)
		}
		av, err := coerce(a, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in[i] = av
	}
	return call(fn, in)
}

func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return out[0].Interface(), nil
	case 2:
		if out[1].Type() != errorType {
			return nil, fmt.Errorf("second result must be an error, got %s", out[1].Type())
		}
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("unsupported number of results: %d", len(out))
}

func coerce(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use null as %s", t)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(t) {
		return av, nil
	}
	if IsNumber(av.Kind()) && IsNumber(t.Kind()) {
		return av.Convert(t), nil
	}
	if av.Kind() == reflect.String && t.Kind() == reflect.String {
		return av.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}

// Index returns v[key] for slices, arrays, strings and maps.
func Index(v any, key any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		kv := reflect.ValueOf(key)
		if key == nil || !IsNumber(kv.Kind()) {
			return nil, fmt.Errorf("index must be a number, got %T", key)
		}
		i := int(kv.Convert(reflect.TypeOf(0)).Int())
		if i < 0 || i >= rv.Len() {
			return nil, fmt.Errorf("index %d out of range [0:%d]", i, rv.Len())
		}
		return rv.Index(i).Interface(), nil
	case reflect.Map:
		kv, err := coerce(key, rv.Type().Key())
		if err != nil {
			return nil, err
		}
		mv := rv.MapIndex(kv)
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: key %v", ErrNotFound, key)
		}
		return mv.Interface(), nil
	}
	return nil, fmt.Errorf("cannot index %T", v)
}

// Iterate returns the elements of a slice or array. A nil value yields no
// elements.
func Iterate(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot iterate over %T", v)
}

// IsNumber reports whether k is an integer or floating point kind.
func IsNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
