package shared

import (
	"fmt"
	"reflect"
)

// TypeMismatchError is raised when a binding's type does not match the
// value already stored under its key.
type TypeMismatchError struct {
	Key      string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("shared: key %q holds %v, binding expects %v", e.Key, e.Actual, e.Expected)
}

// valueAs converts a stored value to T. A nil value yields the zero T.
func valueAs[T any](key string, v any) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(&TypeMismatchError{
			Key:      key,
			Expected: reflect.TypeOf((*T)(nil)).Elem(),
			Actual:   reflect.TypeOf(v),
		})
	}
	return t
}
