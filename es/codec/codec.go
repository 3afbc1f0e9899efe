// Package codec converts event payloads and metadata to and from their
// stored representation and computes the content hashes used for indexing.
package codec

import (
	"bytes"
	"crypto/md5" //nolint:gosec // content addressing for indexes, not security
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Codec serializes event payloads and metadata.
type Codec interface {
	// Serialize encodes an event payload.
	Serialize(payload any) ([]byte, error)

	// Deserialize decodes a payload stored for the given event type name.
	Deserialize(data []byte, typeName string) (any, error)

	// SerializeMetadata encodes event metadata. Empty metadata encodes to nil.
	SerializeMetadata(metadata map[string]any) ([]byte, error)

	// DeserializeMetadata decodes event metadata. Empty input decodes to nil.
	DeserializeMetadata(data []byte) (map[string]any, error)
}

// SerializationError reports a payload that could not be encoded or decoded.
type SerializationError struct {
	Err error
	// Op is "serialize" or "deserialize"
	Op string
	// Type is the event type name, when known
	Type string
	// Field is the offending property, when known
	Field string
}

func (e *SerializationError) Error() string {
	msg := "codec: " + e.Op
	if e.Type != "" {
		msg += " " + e.Type
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// JSONCodec encodes payloads as JSON. Payloads of types registered in the
// registry decode back into their Go type; other payloads decode into
// map[string]any with numbers as json.Number.
type JSONCodec struct {
	registry *Registry
}

// NewJSONCodec creates a JSON codec. A nil registry decodes every payload
// into map[string]any.
func NewJSONCodec(registry *Registry) *JSONCodec {
	if registry == nil {
		registry = NewRegistry()
	}
	return &JSONCodec{registry: registry}
}

// Registry returns the type registry used for decoding.
func (c *JSONCodec) Registry() *Registry {
	return c.registry
}

// Serialize implements Codec. A nil payload is stored as an empty object.
func (c *JSONCodec) Serialize(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, &SerializationError{Op: "serialize", Err: err}
	}
	return b, nil
}

// Deserialize implements Codec.
func (c *JSONCodec) Deserialize(data []byte, typeName string) (any, error) {
	if ptr, ok := c.registry.New(typeName); ok {
		if err := unmarshal(data, ptr.Interface()); err != nil {
			return nil, &SerializationError{Op: "deserialize", Type: typeName, Err: err}
		}
		return ptr.Elem().Interface(), nil
	}

	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return nil, &SerializationError{Op: "deserialize", Type: typeName, Err: err}
	}
	return m, nil
}

// SerializeMetadata implements Codec.
func (c *JSONCodec) SerializeMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, &SerializationError{Op: "serialize", Field: "metadata", Err: err}
	}
	return b, nil
}

// DeserializeMetadata implements Codec.
func (c *JSONCodec) DeserializeMetadata(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return nil, &SerializationError{Op: "deserialize", Field: "metadata", Err: err}
	}
	return m, nil
}

// unmarshal decodes exactly one JSON value. Numbers in untyped values
// decode as json.Number so integers beyond 2^53 keep their precision.
func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// Hash returns the 32 character hex digest used by the *_hash columns.
func Hash(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// HashString is Hash for strings.
func HashString(s string) string {
	return Hash([]byte(s))
}

var _ Codec = (*JSONCodec)(nil)
