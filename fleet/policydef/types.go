// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policydef

import (
	"fmt"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/lib/ref"
)

// Document is the raw JSONC shape of a policy file, before durations
// and identifiers are validated. Field names follow the on-disk format.
type Document struct {
	// Scope is the organizational unit every category in this document
	// belongs to.
	Scope string `json:"scope"`

	// Formats maps ping-format names to their field lists.
	Formats map[string]Format `json:"formats"`

	// Destinations maps Matrix room IDs to per-room settings, most
	// importantly the audience roles used for summary visibility.
	Destinations map[string]Destination `json:"destinations"`

	// Categories is the ordered list of category definitions.
	Categories []Category `json:"categories"`
}

// Format is a named list of detail fields. The field order controls
// how a fleet's detail payload is rendered in notifications.
type Format struct {
	Fields []FormatField `json:"fields"`
}

// FormatField describes one detail field of a ping format.
type FormatField struct {
	// Name is the field key used in fleet detail payloads.
	Name string `json:"name"`
	// Label is the human-readable rendering label. Defaults to Name.
	Label string `json:"label,omitempty"`
	// Required fields must be present and non-empty in every fleet's
	// details at proposal and edit time.
	Required bool `json:"required,omitempty"`
}

// CheckDetails verifies a fleet's detail payload against the format:
// every required field present and non-empty, no fields outside the
// format's list.
func (f Format) CheckDetails(details fleet.Details) error {
	known := make(map[string]bool, len(f.Fields))
	for _, field := range f.Fields {
		known[field.Name] = true
	}
	present := make(map[string]bool, len(details.Fields))
	for _, value := range details.Fields {
		if !known[value.Name] {
			return fmt.Errorf("policydef: unknown detail field %q", value.Name)
		}
		if present[value.Name] {
			return fmt.Errorf("policydef: duplicate detail field %q", value.Name)
		}
		present[value.Name] = true
	}
	for _, field := range f.Fields {
		if field.Required {
			if !present[field.Name] {
				return fmt.Errorf("policydef: required detail field %q is missing", field.Name)
			}
			for _, value := range details.Fields {
				if value.Name == field.Name && value.Value == "" {
					return fmt.Errorf("policydef: required detail field %q is empty", field.Name)
				}
			}
		}
	}
	return nil
}

// Destination holds per-room settings.
type Destination struct {
	// AudienceRoles are the roles assumed to be present in the room,
	// intersected with category viewer roles when building summaries.
	AudienceRoles []string `json:"audience_roles,omitempty"`
}

// Category is the raw shape of one category definition. Durations are
// Go duration strings ("2h", "90m"); empty means zero.
type Category struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Format       string   `json:"format"`
	MinSpacing   string   `json:"min_spacing,omitempty"`
	MaxAdvance   string   `json:"max_advance"`
	ReminderLead string   `json:"reminder_lead,omitempty"`
	ViewerRoles  []string `json:"viewer_roles,omitempty"`
	CreatorRoles []string `json:"creator_roles,omitempty"`
	ManagerRoles []string `json:"manager_roles,omitempty"`
	PingRoles    []string `json:"ping_roles,omitempty"`
	Destinations []string `json:"destinations"`
}

// Policy is the compiled, validated form of a policy document. This is
// what the engine, dispatcher, and summary publisher consume.
type Policy struct {
	// Scope is the validated organizational unit.
	Scope ref.ScopeID

	// Formats maps format names to field lists.
	Formats map[string]Format

	// Audiences maps each destination room to its audience roles.
	Audiences map[ref.RoomID][]ref.RoleID

	// Categories maps category IDs to their compiled policies.
	Categories map[string]fleet.CategoryPolicy

	// Order preserves the document's category order for listings.
	Order []string
}

// Category returns the compiled policy for a category ID.
func (p *Policy) Category(id string) (fleet.CategoryPolicy, bool) {
	policy, ok := p.Categories[id]
	return policy, ok
}

// FormatFor returns the ping format for a category. A category always
// references an existing format (Parse rejects dangling references),
// so a missing entry here means the caller passed an unknown category.
func (p *Policy) FormatFor(category fleet.CategoryPolicy) (Format, bool) {
	format, ok := p.Formats[category.Format]
	return format, ok
}

// Rooms returns every destination room referenced by any category, in
// first-reference order. The service joins these at startup.
func (p *Policy) Rooms() []ref.RoomID {
	var rooms []ref.RoomID
	seen := make(map[ref.RoomID]bool)
	for _, id := range p.Order {
		for _, room := range p.Categories[id].Destinations {
			if !seen[room] {
				seen[room] = true
				rooms = append(rooms, room)
			}
		}
	}
	return rooms
}
