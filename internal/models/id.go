// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is the canonical string form of a store-assigned identifier. Articles
// carry numeric database keys and users carry UUIDs; rows read back from the
// local cache may hold either a JSON number or a JSON string, and both
// decode to the same ID so that equality checks never depend on the
// encoding a row happened to travel through.
type ID string

// ParseID normalizes a raw identifier. Integral numbers lose leading zeros
// and any trailing ".0"; everything else is only trimmed.
func ParseID(raw string) ID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(s)
}

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id == "" }

// Equal compares two ids after normalization. Empty ids are never equal,
// not even to each other.
func (id ID) Equal(other ID) bool {
	a, b := ParseID(string(id)), ParseID(string(other))
	return a != "" && a == b
}

// Int64 returns the numeric form of the id, if it has one.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(ParseID(string(id))), 10, 64)
	return n, err == nil
}

// UnmarshalJSON accepts JSON strings, JSON numbers and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ParseID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("decode id: unexpected %s", b)
	}
	*id = ParseID(string(b))
	return nil
}
