package accounts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Account is one broker account tracked by the dashboard.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	// Extra holds keys written by other tools. They survive every rewrite.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownKeys = []string{"id", "name", "enabled", "created_at", "updated_at"}

// UnmarshalJSON treats a record without an "enabled" key as enabled and
// accepts a numeric id.
func (a *Account) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := Account{Enabled: true}
	if v, ok := raw["id"]; ok {
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		rec.ID = id
	}

	fields := []struct {
		key string
		dst any
	}{
		{"name", &rec.Name},
		{"enabled", &rec.Enabled},
		{"created_at", &rec.CreatedAt},
		{"updated_at", &rec.UpdatedAt},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return fmt.Errorf("account %q: field %s: %w", rec.ID, f.key, err)
		}
	}

	for _, k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		rec.Extra = raw
	}
	*a = rec
	return nil
}

func decodeID(v json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", err
	}
	switch id := x.(type) {
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("account id must be a string or number, got %s", v)
}

// MarshalJSON writes the known fields followed by Extra in key order.
func (a Account) MarshalJSON() ([]byte, error) {
	type plain Account
	data, err := json.Marshal(plain(a))
	if err != nil || len(a.Extra) == 0 {
		return data, err
	}

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range slices.Sorted(maps.Keys(a.Extra)) {
		if slices.Contains(knownKeys, k) {
			continue
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(a.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AccountUpdate carries the fields Update may change. Nil fields are left
// alone.
type AccountUpdate struct {
	Name    *string
	Enabled *bool
}

// Empty reports whether the update would change nothing.
func (u AccountUpdate) Empty() bool {
	return u.Name == nil && u.Enabled == nil
}

// DefaultName is the name given to accounts added without one.
func DefaultName(id string) string {
	return fmt.Sprintf("Account %s", id)
}

// ValidateID reports whether id is a plausible broker account number:
// 1 to 20 decimal digits.
func ValidateID(id string) bool {
	if len(id) == 0 || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type fileFormat struct {
	Accounts []Account `json:"accounts"`
}
