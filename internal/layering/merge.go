package layering

import "reflect"

// IsArray reports whether value is an associative (map) or positional
// (slice/array) collection, the only shapes MergeArrays combines.
func IsArray(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// IsEmpty reports whether value is nil or a zero-length collection.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// MergeArrays combines a persisted collection with a static one, static
// winning. Maps merge shallowly (static keys replace persisted keys).
// Positional collections are appended (persisted first) since their indices
// carry no identity. Mixed shapes cannot be merged and report ok=false.
// Inputs are never mutated.
func MergeArrays(persisted, static any) (merged any, ok bool) {
	if !IsArray(persisted) || !IsArray(static) {
		return nil, false
	}
	weak := reflect.ValueOf(persisted)
	strong := reflect.ValueOf(static)

	switch {
	case weak.Kind() == reflect.Map && strong.Kind() == reflect.Map:
		return mergeMaps(weak, strong)
	case isPositional(weak) && isPositional(strong):
		return appendPositional(weak, strong), true
	default:
		return nil, false
	}
}

func isPositional(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func mergeMaps(weak, strong reflect.Value) (any, bool) {
	if !weak.Type().Key().AssignableTo(strong.Type().Key()) {
		return nil, false
	}
	resultType := strong.Type()
	if weak.Type() != strong.Type() {
		resultType = reflect.MapOf(strong.Type().Key(), reflect.TypeOf((*any)(nil)).Elem())
	}
	result := reflect.MakeMapWithSize(resultType, weak.Len()+strong.Len())
	iter := weak.MapRange()
	for iter.Next() {
		value := cloneValue(iter.Value())
		if !value.Type().AssignableTo(resultType.Elem()) {
			return nil, false
		}
		result.SetMapIndex(iter.Key().Convert(resultType.Key()), value)
	}
	iter = strong.MapRange()
	for iter.Next() {
		result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
	}
	return result.Interface(), true
}

func appendPositional(weak, strong reflect.Value) any {
	elem := reflect.TypeOf((*any)(nil)).Elem()
	if weak.Type() == strong.Type() && weak.Kind() == reflect.Slice {
		elem = strong.Type().Elem()
	}
	result := reflect.MakeSlice(reflect.SliceOf(elem), 0, weak.Len()+strong.Len())
	for _, src := range []reflect.Value{weak, strong} {
		for i := 0; i < src.Len(); i++ {
			result = reflect.Append(result, cloneValue(src.Index(i)))
		}
	}
	return result.Interface()
}

// Clone returns a deep copy of value so callers can hand out stored values
// without sharing maps or slices.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	out, ok := cloned.Interface().(T)
	if !ok {
		return value
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
