package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RecordID is an opaque server identifier. Servers hand out either numeric
// or string ids; both decode into the same value and numeric ids encode back
// as JSON numbers.
type RecordID string

func (id RecordID) String() string { return string(id) }

// IsZero reports whether the id has not been assigned yet.
func (id RecordID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id RecordID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if s == "" {
		return []byte("null"), nil
	}
	if isCanonicalInt(s) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

func isCanonicalInt(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false
	}
	return strconv.FormatInt(n, 10) == s
}

// NewRecordID returns a pointer to id, or nil when id is empty.
func NewRecordID(id string) *RecordID {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	v := RecordID(id)
	return &v
}
