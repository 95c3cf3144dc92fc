package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AuthorRef is the author of a comment as sent by the server. The backend is
// inconsistent about its shape: it may be a full user object, a bare numeric id
// or a numeric string. All three decode into this type. Any other shape decodes
// to an empty reference, which matches no actor.
type AuthorRef struct {
	ID       *int64 `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Fullname string `json:"fullname,omitempty"`
}

// UnmarshalJSON accepts an object, a number or a numeric string. It never
// fails, so one odd comment does not abort decoding the whole list.
func (r *AuthorRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '{':
		var raw struct {
			ID       json.RawMessage `json:"id"`
			Username string          `json:"username"`
			Email    string          `json:"email"`
			Fullname string          `json:"fullname"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		r.Username = raw.Username
		r.Email = raw.Email
		r.Fullname = raw.Fullname
		if id, ok := parseID(raw.ID); ok {
			r.ID = &id
		}
		return nil
	default:
		if id, ok := parseID(data); ok {
			r.ID = &id
		}
		return nil
	}
}

// DisplayName returns fullname, then username, then a generic label
func (r *AuthorRef) DisplayName() string {
	if r == nil {
		return "anonymous"
	}
	if r.Fullname != "" {
		return r.Fullname
	}
	if r.Username != "" {
		return r.Username
	}
	return "user"
}

// parseID decodes a JSON number or numeric string into an id
func parseID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n = t
	case string:
		n = json.Number(strings.TrimSpace(t))
	default:
		return 0, false
	}

	if id, err := n.Int64(); err == nil {
		return id, true
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

// timestampLayouts lists the date formats the backend has been seen to emit
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a time that decodes from ISO strings (with or without zone)
// or epoch milliseconds. A missing value decodes to the zero time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON writes RFC 3339, or null for the zero time
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// MarshalYAML writes RFC 3339, or null for the zero time
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(time.RFC3339), nil
}
