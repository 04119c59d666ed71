// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// ScopeID identifies the organizational unit a category or fleet
// belongs to. Scopes partition the engine's data completely: every
// query and every policy lookup is scoped, and nothing crosses scope
// boundaries. The value is an opaque label from the policy document
// (e.g., an alliance or corporation identifier).
//
// ScopeID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ScopeID struct {
	id string
}

// ParseScopeID validates and wraps a raw scope identifier. Returns an
// error if the string is empty or contains whitespace.
func ParseScopeID(raw string) (ScopeID, error) {
	if raw == "" {
		return ScopeID{}, fmt.Errorf("empty scope")
	}
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			return ScopeID{}, fmt.Errorf("scope contains whitespace: %q", raw)
		}
	}
	return ScopeID{id: raw}, nil
}

// MustParseScopeID is like ParseScopeID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseScopeID(raw string) ScopeID {
	s, err := ParseScopeID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseScopeID(%q): %v", raw, err))
	}
	return s
}

// String returns the scope identifier as written in the policy document.
func (s ScopeID) String() string { return s.id }

// IsZero reports whether the ScopeID is the zero value (uninitialized).
func (s ScopeID) IsZero() bool { return s.id == "" }

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (s ScopeID) MarshalText() ([]byte, error) {
	if s.id == "" {
		return nil, nil
	}
	return []byte(s.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and other
// text-based serialization formats. Validates the scope format. An
// empty input produces the zero value (unset scope).
func (s *ScopeID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*s = ScopeID{}
		return nil
	}
	parsed, err := ParseScopeID(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
