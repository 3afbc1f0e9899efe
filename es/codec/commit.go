package codec

import (
	"encoding/json"
)

// CommitEvent is one event inside an encoded commit blob.
type CommitEvent struct {
	Identifier string          `json:"identifier"`
	Type       string          `json:"type"`
	RecordedAt string          `json:"recorded_at"`
	Payload    json.RawMessage `json:"payload"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Version    int64           `json:"version"`
}

// EncodeCommit encodes a batch's events as the data of one commit row.
func EncodeCommit(events []CommitEvent) ([]byte, error) {
	b, err := json.Marshal(events)
	if err != nil {
		return nil, &SerializationError{Op: "serialize", Field: "commit", Err: err}
	}
	return b, nil
}

// DecodeCommit decodes the data of a commit row.
func DecodeCommit(data []byte) ([]CommitEvent, error) {
	var events []CommitEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, &SerializationError{Op: "deserialize", Field: "commit", Err: err}
	}
	return events, nil
}
