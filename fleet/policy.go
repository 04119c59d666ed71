// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/muster/lib/ref"
)

// CategoryPolicy is the per-category configuration bundle the engine
// evaluates fleets against. Policies are read-only from the engine's
// perspective: they are parsed from the policy document at startup
// (see fleet/policydef) and treated as immutable per evaluation.
type CategoryPolicy struct {
	// ID is the category identifier, unique within its scope.
	ID string

	// Scope is the organizational unit this category belongs to.
	Scope ref.ScopeID

	// Name is the human-readable category name used in renderings.
	Name string

	// Format names the ping format whose field list orders the detail
	// payload in notifications.
	Format string

	// MinSpacing is the minimum gap required between two fleets of
	// this category. Zero means concurrent fleets are intentional and
	// spacing is not checked.
	MinSpacing time.Duration

	// MaxAdvance is the furthest in the future a fleet may be
	// scheduled from "now" at proposal time.
	MaxAdvance time.Duration

	// ReminderLead is how long before form-up the reminder fires.
	// Zero means no reminder: the ReminderSent state is never entered.
	ReminderLead time.Duration

	// ViewerRoles controls who sees fleets of this category. Empty
	// means unrestricted.
	ViewerRoles []ref.RoleID

	// CreatorRoles and ManagerRoles control who may propose and who
	// may reschedule/edit/cancel fleets of this category.
	CreatorRoles []ref.RoleID
	ManagerRoles []ref.RoleID

	// PingRoles are mentioned on create, reminder, and form-up
	// notifications. The ref.Everyone sentinel broadcasts @room.
	PingRoles []ref.RoleID

	// Destinations is the ordered set of rooms receiving this
	// category's pings and summaries. Snapshotted into notification
	// records at fleet creation; later policy changes apply only to
	// fleets created thereafter.
	Destinations []ref.RoomID
}

// Validate checks the policy's structural invariants. Parsing
// (policydef) calls this before the policy reaches the engine.
func (p CategoryPolicy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("fleet: category has no ID")
	}
	if p.Scope.IsZero() {
		return fmt.Errorf("fleet: category %q has no scope", p.ID)
	}
	if p.MinSpacing < 0 {
		return fmt.Errorf("fleet: category %q: min_spacing is negative", p.ID)
	}
	if p.MaxAdvance < 0 {
		return fmt.Errorf("fleet: category %q: max_advance is negative", p.ID)
	}
	if p.ReminderLead < 0 {
		return fmt.Errorf("fleet: category %q: reminder_lead is negative", p.ID)
	}
	if len(p.Destinations) == 0 {
		return fmt.Errorf("fleet: category %q has no destinations", p.ID)
	}
	for _, room := range p.Destinations {
		if room.IsZero() {
			return fmt.Errorf("fleet: category %q has an empty destination", p.ID)
		}
	}
	return nil
}

// HasReminder reports whether the category configures a reminder at all.
func (p CategoryPolicy) HasReminder() bool {
	return p.ReminderLead > 0
}

// PingsEveryone reports whether PingRoles contains the broadcast
// sentinel, in which case notifications carry an @room mention instead
// of per-role pings.
func (p CategoryPolicy) PingsEveryone() bool {
	for _, role := range p.PingRoles {
		if role.IsEveryone() {
			return true
		}
	}
	return false
}

// VisibleTo reports whether an audience holding the given roles may see
// this category's fleets. Empty ViewerRoles means unrestricted.
func (p CategoryPolicy) VisibleTo(audience []ref.RoleID) bool {
	if len(p.ViewerRoles) == 0 {
		return true
	}
	return RolesIntersect(p.ViewerRoles, audience)
}

// RolesIntersect reports whether the two role sets share any member.
func RolesIntersect(a, b []ref.RoleID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
