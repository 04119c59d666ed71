// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policydef

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/lib/ref"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals and compiles the result into a validated Policy.
func Parse(data []byte) (*Policy, error) {
	stripped := jsonc.ToJSON(data)

	var document Document
	if err := json.Unmarshal(stripped, &document); err != nil {
		return nil, fmt.Errorf("policydef: parsing document: %w", err)
	}

	return Compile(&document)
}

// ReadFile reads a JSONC policy file from disk and parses it.
func ReadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policydef: reading %s: %w", path, err)
	}

	policy, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return policy, nil
}

// Compile validates a raw document and resolves it into the typed
// Policy the engine consumes. All identifiers (scope, roles, rooms)
// are parsed through lib/ref; durations through time.ParseDuration;
// the resulting category policies pass fleet.CategoryPolicy.Validate.
func Compile(document *Document) (*Policy, error) {
	scope, err := ref.ParseScopeID(document.Scope)
	if err != nil {
		return nil, fmt.Errorf("policydef: scope: %w", err)
	}
	if len(document.Categories) == 0 {
		return nil, fmt.Errorf("policydef: document has no categories")
	}

	for name, format := range document.Formats {
		seen := make(map[string]bool, len(format.Fields))
		for _, field := range format.Fields {
			if field.Name == "" {
				return nil, fmt.Errorf("policydef: format %q has a field with no name", name)
			}
			if seen[field.Name] {
				return nil, fmt.Errorf("policydef: format %q: duplicate field %q", name, field.Name)
			}
			seen[field.Name] = true
		}
	}

	audiences := make(map[ref.RoomID][]ref.RoleID, len(document.Destinations))
	for rawRoom, destination := range document.Destinations {
		room, err := ref.ParseRoomID(rawRoom)
		if err != nil {
			return nil, fmt.Errorf("policydef: destination %q: %w", rawRoom, err)
		}
		roles, err := parseRoles(destination.AudienceRoles)
		if err != nil {
			return nil, fmt.Errorf("policydef: destination %q: %w", rawRoom, err)
		}
		audiences[room] = roles
	}

	policy := &Policy{
		Scope:      scope,
		Formats:    document.Formats,
		Audiences:  audiences,
		Categories: make(map[string]fleet.CategoryPolicy, len(document.Categories)),
	}

	for _, raw := range document.Categories {
		if _, exists := policy.Categories[raw.ID]; exists {
			return nil, fmt.Errorf("policydef: duplicate category %q", raw.ID)
		}
		compiled, err := compileCategory(scope, raw, document, audiences)
		if err != nil {
			return nil, err
		}
		policy.Categories[raw.ID] = compiled
		policy.Order = append(policy.Order, raw.ID)
	}

	return policy, nil
}

func compileCategory(scope ref.ScopeID, raw Category, document *Document, audiences map[ref.RoomID][]ref.RoleID) (fleet.CategoryPolicy, error) {
	fail := func(err error) (fleet.CategoryPolicy, error) {
		return fleet.CategoryPolicy{}, fmt.Errorf("policydef: category %q: %w", raw.ID, err)
	}

	if raw.Format == "" {
		return fail(fmt.Errorf("format is required"))
	}
	if _, ok := document.Formats[raw.Format]; !ok {
		return fail(fmt.Errorf("unknown format %q", raw.Format))
	}

	minSpacing, err := parseDuration(raw.MinSpacing)
	if err != nil {
		return fail(fmt.Errorf("min_spacing: %w", err))
	}
	maxAdvance, err := parseDuration(raw.MaxAdvance)
	if err != nil {
		return fail(fmt.Errorf("max_advance: %w", err))
	}
	reminderLead, err := parseDuration(raw.ReminderLead)
	if err != nil {
		return fail(fmt.Errorf("reminder_lead: %w", err))
	}

	viewerRoles, err := parseRoles(raw.ViewerRoles)
	if err != nil {
		return fail(fmt.Errorf("viewer_roles: %w", err))
	}
	creatorRoles, err := parseRoles(raw.CreatorRoles)
	if err != nil {
		return fail(fmt.Errorf("creator_roles: %w", err))
	}
	managerRoles, err := parseRoles(raw.ManagerRoles)
	if err != nil {
		return fail(fmt.Errorf("manager_roles: %w", err))
	}
	pingRoles, err := parseRoles(raw.PingRoles)
	if err != nil {
		return fail(fmt.Errorf("ping_roles: %w", err))
	}

	destinations := make([]ref.RoomID, 0, len(raw.Destinations))
	for _, rawRoom := range raw.Destinations {
		room, err := ref.ParseRoomID(rawRoom)
		if err != nil {
			return fail(fmt.Errorf("destinations: %w", err))
		}
		if _, known := audiences[room]; !known {
			return fail(fmt.Errorf("destination %s not declared in the destinations section", room))
		}
		destinations = append(destinations, room)
	}

	compiled := fleet.CategoryPolicy{
		ID:           raw.ID,
		Scope:        scope,
		Name:         raw.Name,
		Format:       raw.Format,
		MinSpacing:   minSpacing,
		MaxAdvance:   maxAdvance,
		ReminderLead: reminderLead,
		ViewerRoles:  viewerRoles,
		CreatorRoles: creatorRoles,
		ManagerRoles: managerRoles,
		PingRoles:    pingRoles,
		Destinations: destinations,
	}
	if err := compiled.Validate(); err != nil {
		return fleet.CategoryPolicy{}, err
	}
	return compiled, nil
}

// parseDuration handles the document's duration strings. Empty means
// zero (feature off).
func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return duration, nil
}

func parseRoles(raw []string) ([]ref.RoleID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	roles := make([]ref.RoleID, 0, len(raw))
	for _, entry := range raw {
		role, err := ref.ParseRoleID(entry)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}
