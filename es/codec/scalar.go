package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ErrNonScalar indicates a payload property that is neither a scalar nor a time.
var ErrNonScalar = errors.New("property must be a scalar or a date/time value")

var timeType = reflect.TypeOf(time.Time{})

// ScalarCodec is a JSONCodec restricted to flat payloads: every property of
// a struct or map payload must be a bool, number, string or time.Time.
// Violations are reported before anything is written.
type ScalarCodec struct {
	*JSONCodec
}

// NewScalarCodec creates a restrictive codec backed by registry.
func NewScalarCodec(registry *Registry) *ScalarCodec {
	return &ScalarCodec{JSONCodec: NewJSONCodec(registry)}
}

// Serialize implements Codec.
func (c *ScalarCodec) Serialize(payload any) ([]byte, error) {
	if err := ValidateScalar(payload); err != nil {
		return nil, err
	}
	return c.JSONCodec.Serialize(payload)
}

// SerializeMetadata implements Codec.
func (c *ScalarCodec) SerializeMetadata(metadata map[string]any) ([]byte, error) {
	for k, v := range metadata {
		if !isScalar(reflect.ValueOf(v)) {
			return nil, &SerializationError{Op: "serialize", Field: "metadata." + k, Err: ErrNonScalar}
		}
	}
	return c.JSONCodec.SerializeMetadata(metadata)
}

// ValidateScalar checks that payload is a struct or string-keyed map whose
// properties are all scalars or time.Time values. A nil payload is valid.
func ValidateScalar(payload any) error {
	v := reflect.ValueOf(payload)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			break
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonName(f)
			if name == "-" {
				continue
			}
			if !isScalar(v.Field(i)) {
				return &SerializationError{Op: "serialize", Field: name, Err: ErrNonScalar}
			}
		}
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return &SerializationError{Op: "serialize", Err: fmt.Errorf("map keys must be strings, got %s", v.Type().Key())}
		}
		iter := v.MapRange()
		for iter.Next() {
			if !isScalar(iter.Value()) {
				return &SerializationError{Op: "serialize", Field: iter.Key().String(), Err: ErrNonScalar}
			}
		}
		return nil
	}

	return &SerializationError{Op: "serialize", Err: fmt.Errorf("payload must be a struct or map, got %s", v.Kind())}
}

func isScalar(v reflect.Value) bool {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return true
	}
	if v.Type() == timeType {
		return true
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

var _ Codec = (*ScalarCodec)(nil)
