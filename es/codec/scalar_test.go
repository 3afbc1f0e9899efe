package codec

import (
	"errors"
	"testing"
	"time"
)

func TestValidateScalar(t *testing.T) {
	now := time.Now()
	name := "ada"

	tests := []struct {
		name      string
		payload   any
		wantErr   bool
		wantField string
	}{
		{"nil payload", nil, false, ""},
		{"flat struct", orderCreated{OrderID: "o-1", PlacedAt: now}, false, ""},
		{"pointer to flat struct", &orderCreated{OrderID: "o-1"}, false, ""},
		{"scalar map", map[string]any{"a": 1, "b": "x", "c": true, "d": now, "e": nil}, false, ""},
		{"pointer property", map[string]any{"name": &name}, false, ""},
		{"slice property", orderWithItems{Items: []string{"a"}}, true, "items"},
		{"nested map property", map[string]any{"address": map[string]any{"city": "x"}}, true, "address"},
		{"non string keys", map[int]string{1: "a"}, true, ""},
		{"top level scalar", "just a string", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScalar(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateScalar() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var serErr *SerializationError
			if !errors.As(err, &serErr) {
				t.Fatalf("error %v is not a *SerializationError", err)
			}
			if serErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", serErr.Field, tt.wantField)
			}
		})
	}
}

func TestScalarCodec_RejectsBeforeEncoding(t *testing.T) {
	c := NewScalarCodec(nil)

	_, err := c.Serialize(orderWithItems{OrderID: "o-1", Items: []string{"book"}})
	if !errors.Is(err, ErrNonScalar) {
		t.Errorf("Serialize error = %v, want ErrNonScalar", err)
	}

	_, err = c.SerializeMetadata(map[string]any{"tags": []string{"a"}})
	if !errors.Is(err, ErrNonScalar) {
		t.Errorf("SerializeMetadata error = %v, want ErrNonScalar", err)
	}

	data, err := c.Serialize(map[string]any{"order_id": "o-1"})
	if err != nil {
		t.Fatalf("Serialize(flat map) failed: %v", err)
	}
	if string(data) != `{"order_id":"o-1"}` {
		t.Errorf("Serialize() = %s", data)
	}
}

func TestCommitEncoding(t *testing.T) {
	events := []CommitEvent{
		{Identifier: "e-1", Type: "OrderCreated", Version: 1, Payload: []byte(`{"order_id":"o-1"}`), RecordedAt: "2024-03-01 12:00:00.000001"},
		{Identifier: "e-2", Type: "OrderShipped", Version: 2, Payload: []byte(`{}`), Metadata: []byte(`{"by":"ops"}`), RecordedAt: "2024-03-01 12:00:01.000000"},
	}

	data, err := EncodeCommit(events)
	if err != nil {
		t.Fatalf("EncodeCommit failed: %v", err)
	}
	got, err := DecodeCommit(data)
	if err != nil {
		t.Fatalf("DecodeCommit failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("decoded %d events, want 2", len(got))
	}
	if got[1].Type != "OrderShipped" || got[1].Version != 2 || string(got[1].Metadata) != `{"by":"ops"}` {
		t.Errorf("second event = %+v", got[1])
	}
	if got[0].Metadata != nil {
		t.Errorf("first event metadata = %s, want omitted", got[0].Metadata)
	}

	if _, err := DecodeCommit([]byte(`{`)); err == nil {
		t.Error("DecodeCommit(garbage) succeeded")
	}
}
