// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// UserID is a validated Matrix user ID (e.g., "@muster:muster.local").
//
// A Matrix user ID always starts with '@' and contains a ':'
// separating the localpart from the server name. This type validates
// the structural format only; it accepts any valid Matrix user ID,
// including accounts on other homeservers.
//
// UserID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw Matrix user ID string.
// Returns an error if the string is empty, doesn't start with '@',
// has an empty localpart, or is missing the ':server' suffix.
func ParseUserID(raw string) (UserID, error) {
	if raw == "" {
		return UserID{}, fmt.Errorf("empty user ID")
	}
	if raw[0] != '@' {
		return UserID{}, fmt.Errorf("user ID must start with '@': %q", raw)
	}

	colonIndex := strings.IndexByte(raw[1:], ':')
	if colonIndex < 0 {
		return UserID{}, fmt.Errorf("user ID missing ':server' suffix: %q", raw)
	}
	if colonIndex == 0 {
		return UserID{}, fmt.Errorf("user ID has empty localpart: %q", raw)
	}
	if raw[1+colonIndex+1:] == "" {
		return UserID{}, fmt.Errorf("user ID has empty server name: %q", raw)
	}

	return UserID{id: raw}, nil
}

// MustParseUserID is like ParseUserID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseUserID(raw string) UserID {
	u, err := ParseUserID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseUserID(%q): %v", raw, err))
	}
	return u
}

// String returns the full user ID string (e.g., "@muster:muster.local").
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value (uninitialized).
func (u UserID) IsZero() bool { return u.id == "" }

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (u UserID) MarshalText() ([]byte, error) {
	if u.id == "" {
		return nil, nil
	}
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and other
// text-based serialization formats. Validates the user ID format.
// An empty input produces the zero value (unset user ID).
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
