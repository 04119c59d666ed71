// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// everyoneRole is the raw spelling of the broadcast role in policy
// documents. It maps to a room-wide @room mention rather than a list
// of individual user pings.
const everyoneRole = "@everyone"

// RoleID is a validated role identifier from a category policy
// (e.g., "fc", "capitals", or the broadcast role "@everyone").
//
// Roles name groups of people for two purposes: access control (who
// may view, create, or manage fleets in a category) and notification
// audience (who gets pinged when a fleet event fires). Muster treats
// role names as opaque labels defined by the policy document; the
// only structural rules are that a role is non-empty, contains no
// whitespace, and the '@' prefix is reserved for the broadcast role.
//
// RoleID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type RoleID struct {
	id string
}

// Everyone is the broadcast role. A policy that lists Everyone in its
// ping roles asks for a room-wide mention instead of per-role pings.
var Everyone = RoleID{id: everyoneRole}

// ParseRoleID validates and wraps a raw role name. Returns an error if
// the string is empty, contains whitespace, or starts with '@' without
// being the broadcast role "@everyone".
func ParseRoleID(raw string) (RoleID, error) {
	if raw == "" {
		return RoleID{}, fmt.Errorf("empty role")
	}
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			return RoleID{}, fmt.Errorf("role contains whitespace: %q", raw)
		}
	}
	if raw[0] == '@' && raw != everyoneRole {
		return RoleID{}, fmt.Errorf("'@' prefix is reserved for %q: %q", everyoneRole, raw)
	}
	return RoleID{id: raw}, nil
}

// MustParseRoleID is like ParseRoleID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseRoleID(raw string) RoleID {
	r, err := ParseRoleID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseRoleID(%q): %v", raw, err))
	}
	return r
}

// String returns the role name as written in the policy document.
func (r RoleID) String() string { return r.id }

// IsZero reports whether the RoleID is the zero value (uninitialized).
func (r RoleID) IsZero() bool { return r.id == "" }

// IsEveryone reports whether this is the broadcast role.
func (r RoleID) IsEveryone() bool { return r.id == everyoneRole }

// MarshalText implements encoding.TextMarshaler for JSON and other
// text-based serialization formats.
func (r RoleID) MarshalText() ([]byte, error) {
	if r.id == "" {
		return nil, nil
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON and other
// text-based serialization formats. Validates the role format. An
// empty input produces the zero value (unset role).
func (r *RoleID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = RoleID{}
		return nil
	}
	parsed, err := ParseRoleID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
