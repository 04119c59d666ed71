// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/muster/lib/ref"
)

var testScope = ref.MustParseScopeID("alliance-1")

func testPolicy(minSpacing, maxAdvance time.Duration) CategoryPolicy {
	return CategoryPolicy{
		ID:           "strategic",
		Scope:        testScope,
		Name:         "Strategic Ops",
		MinSpacing:   minSpacing,
		MaxAdvance:   maxAdvance,
		Destinations: []ref.RoomID{ref.MustParseRoomID("!fleets:muster.local")},
	}
}

func scheduledFleet(id int64, formUp time.Time) Fleet {
	return Fleet{
		ID:         id,
		CategoryID: "strategic",
		Scope:      testScope,
		FormUp:     formUp,
		Status:     StatusScheduled,
	}
}

func TestCheckScheduleAdvanceWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy(0, 24*time.Hour)

	tests := []struct {
		name     string
		proposed time.Time
		wantErr  error
	}{
		{"well inside window", now.Add(6 * time.Hour), nil},
		{"exactly max advance", now.Add(24 * time.Hour), nil},
		{"one nanosecond past", now.Add(24*time.Hour + time.Nanosecond), ErrTooFarInAdvance},
		{"exactly now", now, ErrInPast},
		{"in the past", now.Add(-time.Minute), ErrInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchedule(policy, nil, tt.proposed, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckSchedule = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Category A from the scheduling rules: min_spacing 2h, max_advance 24h.
// A fleet at now+1h blocks a proposal at now+2h30m (gap 1h30m) but not
// one at now+3h (gap exactly 2h).
func TestCheckScheduleSpacing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy(2*time.Hour, 24*time.Hour)
	existing := []Fleet{scheduledFleet(1, now.Add(1*time.Hour))}

	if err := CheckSchedule(policy, nil, now.Add(1*time.Hour), now); err != nil {
		t.Fatalf("first fleet rejected: %v", err)
	}

	err := CheckSchedule(policy, existing, now.Add(2*time.Hour+30*time.Minute), now)
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("gap 1h30m: got %v, want *OverlapError", err)
	}
	if overlap.FleetID != 1 {
		t.Errorf("overlap fleet ID = %d, want 1", overlap.FleetID)
	}
	if overlap.Gap != 90*time.Minute {
		t.Errorf("overlap gap = %s, want 1h30m", overlap.Gap)
	}

	if err := CheckSchedule(policy, existing, now.Add(3*time.Hour), now); err != nil {
		t.Errorf("gap exactly 2h rejected: %v", err)
	}
}

func TestCheckScheduleZeroSpacingAllowsConcurrent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy(0, 24*time.Hour)
	formUp := now.Add(2 * time.Hour)
	existing := []Fleet{
		scheduledFleet(1, formUp),
		scheduledFleet(2, formUp),
		scheduledFleet(3, formUp.Add(time.Second)),
	}

	if err := CheckSchedule(policy, existing, formUp, now); err != nil {
		t.Errorf("zero spacing rejected concurrent fleet: %v", err)
	}
}

func TestCheckScheduleIgnoresInactiveFleets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy(2*time.Hour, 24*time.Hour)

	cancelled := scheduledFleet(1, now.Add(1*time.Hour))
	cancelled.Status = StatusCancelled
	expired := scheduledFleet(2, now.Add(-2*time.Hour))
	// Within the expiry grace window: still blocks.
	recent := scheduledFleet(3, now.Add(-30*time.Minute))

	if err := CheckSchedule(policy, []Fleet{cancelled, expired}, now.Add(1*time.Hour), now); err != nil {
		t.Errorf("cancelled/expired fleets blocked a proposal: %v", err)
	}

	err := CheckSchedule(policy, []Fleet{recent}, now.Add(1*time.Hour), now)
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Errorf("recently formed-up fleet did not block: %v", err)
	}
}

func TestCheckScheduleRuleOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := testPolicy(2*time.Hour, 24*time.Hour)
	existing := []Fleet{scheduledFleet(1, now.Add(25 * time.Hour))}

	// Beyond the advance window AND overlapping: the advance rule wins.
	err := CheckSchedule(policy, existing, now.Add(25*time.Hour), now)
	if !errors.Is(err, ErrTooFarInAdvance) {
		t.Errorf("got %v, want ErrTooFarInAdvance", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	valid := testPolicy(time.Hour, 24*time.Hour)
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid policy rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CategoryPolicy)
	}{
		{"no ID", func(p *CategoryPolicy) { p.ID = "" }},
		{"no scope", func(p *CategoryPolicy) { p.Scope = ref.ScopeID{} }},
		{"negative spacing", func(p *CategoryPolicy) { p.MinSpacing = -time.Hour }},
		{"negative advance", func(p *CategoryPolicy) { p.MaxAdvance = -time.Hour }},
		{"negative lead", func(p *CategoryPolicy) { p.ReminderLead = -time.Minute }},
		{"no destinations", func(p *CategoryPolicy) { p.Destinations = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := testPolicy(time.Hour, 24*time.Hour)
			tt.mutate(&policy)
			if err := policy.Validate(); err == nil {
				t.Error("invalid policy accepted")
			}
		})
	}
}

func TestVisibleTo(t *testing.T) {
	fc := ref.MustParseRoleID("fc")
	line := ref.MustParseRoleID("line")
	capitals := ref.MustParseRoleID("capitals")

	open := testPolicy(0, time.Hour)
	if !open.VisibleTo(nil) {
		t.Error("empty viewer roles should be unrestricted")
	}

	restricted := testPolicy(0, time.Hour)
	restricted.ViewerRoles = []ref.RoleID{fc, capitals}
	if !restricted.VisibleTo([]ref.RoleID{line, capitals}) {
		t.Error("intersecting audience denied")
	}
	if restricted.VisibleTo([]ref.RoleID{line}) {
		t.Error("disjoint audience allowed")
	}
}
