// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policydef

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/lib/ref"
)

const testDocument = `{
	// Alliance-wide fleet scheduling policy.
	"scope": "alliance-1",
	"formats": {
		"standard": {
			"fields": [
				{"name": "doctrine", "label": "Doctrine", "required": true},
				{"name": "fc", "label": "FC"},
				{"name": "comms", "label": "Comms"},
			],
		},
	},
	"destinations": {
		"!fleets:muster.local": {"audience_roles": ["line", "fc"]},
		"!caps:muster.local": {"audience_roles": ["capitals"]},
	},
	"categories": [
		{
			"id": "strategic",
			"name": "Strategic Ops",
			"format": "standard",
			"min_spacing": "2h",
			"max_advance": "24h",
			"reminder_lead": "1h",
			"ping_roles": ["@everyone"],
			"destinations": ["!fleets:muster.local"],
		},
		{
			"id": "capitals",
			"name": "Capital Escalations",
			"format": "standard",
			"max_advance": "72h",
			"viewer_roles": ["capitals"],
			"ping_roles": ["capitals"],
			"destinations": ["!caps:muster.local", "!fleets:muster.local"],
		},
	],
}`

func TestParse(t *testing.T) {
	policy, err := Parse([]byte(testDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if policy.Scope != ref.MustParseScopeID("alliance-1") {
		t.Errorf("scope = %v", policy.Scope)
	}
	if len(policy.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(policy.Categories))
	}

	strategic, ok := policy.Category("strategic")
	if !ok {
		t.Fatal("category strategic missing")
	}
	if strategic.MinSpacing != 2*time.Hour {
		t.Errorf("min_spacing = %s, want 2h", strategic.MinSpacing)
	}
	if strategic.MaxAdvance != 24*time.Hour {
		t.Errorf("max_advance = %s, want 24h", strategic.MaxAdvance)
	}
	if strategic.ReminderLead != time.Hour {
		t.Errorf("reminder_lead = %s, want 1h", strategic.ReminderLead)
	}
	if !strategic.PingsEveryone() {
		t.Error("strategic should ping everyone")
	}

	capitals, _ := policy.Category("capitals")
	if capitals.MinSpacing != 0 {
		t.Errorf("absent min_spacing = %s, want 0", capitals.MinSpacing)
	}
	if capitals.HasReminder() {
		t.Error("absent reminder_lead should disable the reminder")
	}
	if capitals.PingsEveryone() {
		t.Error("capitals should not ping everyone")
	}
	if len(capitals.Destinations) != 2 {
		t.Errorf("capitals destinations = %d, want 2", len(capitals.Destinations))
	}

	rooms := policy.Rooms()
	if len(rooms) != 2 {
		t.Errorf("Rooms() = %v, want 2 distinct rooms", rooms)
	}

	audience := policy.Audiences[ref.MustParseRoomID("!caps:muster.local")]
	if len(audience) != 1 || audience[0].String() != "capitals" {
		t.Errorf("caps audience = %v", audience)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantMsg string
	}{
		{
			"unknown format",
			func(s string) string { return strings.Replace(s, `"format": "standard"`, `"format": "missing"`, 1) },
			"unknown format",
		},
		{
			"duplicate category",
			func(s string) string { return strings.Replace(s, `"id": "capitals"`, `"id": "strategic"`, 1) },
			"duplicate category",
		},
		{
			"bad duration",
			func(s string) string { return strings.Replace(s, `"2h"`, `"2 hours"`, 1) },
			"min_spacing",
		},
		{
			"undeclared destination",
			func(s string) string {
				return strings.Replace(s, `"destinations": ["!fleets:muster.local"]`, `"destinations": ["!other:muster.local"]`, 1)
			},
			"not declared",
		},
		{
			"reserved role",
			func(s string) string { return strings.Replace(s, `["capitals"]`, `["@admins"]`, 1) },
			"reserved",
		},
		{
			"no scope",
			func(s string) string { return strings.Replace(s, `"scope": "alliance-1"`, `"scope": ""`, 1) },
			"scope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mangle(testDocument)))
			if err == nil {
				t.Fatal("mangled document accepted")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCheckDetails(t *testing.T) {
	policy, err := Parse([]byte(testDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	format := policy.Formats["standard"]

	valid := fleet.Details{
		Title: "Strategic Op",
		Fields: []fleet.FieldValue{
			{Name: "doctrine", Value: "Ferox"},
			{Name: "comms", Value: "Alliance 1"},
		},
	}
	if err := format.CheckDetails(valid); err != nil {
		t.Errorf("valid details rejected: %v", err)
	}

	missing := fleet.Details{Title: "Strategic Op"}
	if err := format.CheckDetails(missing); err == nil {
		t.Error("missing required field accepted")
	}

	empty := fleet.Details{
		Fields: []fleet.FieldValue{{Name: "doctrine", Value: ""}},
	}
	if err := format.CheckDetails(empty); err == nil {
		t.Error("empty required field accepted")
	}

	unknown := fleet.Details{
		Fields: []fleet.FieldValue{
			{Name: "doctrine", Value: "Ferox"},
			{Name: "srp", Value: "full"},
		},
	}
	if err := format.CheckDetails(unknown); err == nil {
		t.Error("unknown field accepted")
	}

	duplicate := fleet.Details{
		Fields: []fleet.FieldValue{
			{Name: "doctrine", Value: "Ferox"},
			{Name: "doctrine", Value: "Drake"},
		},
	}
	if err := format.CheckDetails(duplicate); err == nil {
		t.Error("duplicate field accepted")
	}
}
