// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/muster/lib/ref"
)

// ExpiryGrace is how long after its form-up time a fleet remains
// visible and eligible for overlap checks. Past that, the fleet is
// expired: hidden from listings, inert for the dispatcher, and ignored
// when validating new proposals.
const ExpiryGrace = time.Hour

// Status is a fleet's persisted lifecycle state. Expired is
// deliberately absent: expiry is computed from the form-up time, never
// stored (see [Fleet.Expired]).
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusReminderSent Status = "reminder_sent"
	StatusFormingUp    Status = "forming_up"
	StatusCancelled    Status = "cancelled"
)

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusReminderSent, StatusFormingUp, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// FieldValue is one entry of a fleet's detail payload: a field name
// from the category's ping format and the value the creator supplied.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Details is the free-form descriptive payload of a fleet. The engine
// treats it as opaque ordered content: it renders it into messages and
// fingerprints it for change detection, but never interprets it.
type Details struct {
	Title  string       `json:"title"`
	Fields []FieldValue `json:"fields,omitempty"`
}

// Fleet is a single scheduled group event.
type Fleet struct {
	// ID is assigned by the store at creation and never changes.
	ID int64

	// CategoryID names the policy bucket that owns this fleet.
	CategoryID string

	// Scope is the organizational unit. Copied from the category at
	// creation; nothing crosses scope boundaries.
	Scope ref.ScopeID

	// FormUp is when the fleet's activity begins. Mutable via
	// reschedule while the fleet is non-terminal.
	FormUp time.Time

	// CreatedAt is immutable.
	CreatedAt time.Time

	Status  Status
	Details Details

	// Hidden suppresses the creation announcement. The reminder (or
	// form-up ping, if reminders are off) doubles as the fleet's first
	// public message.
	Hidden bool

	// DisableReminder opts this fleet out of the category's reminder,
	// regardless of the configured lead.
	DisableReminder bool
}

// Expired reports whether the fleet's form-up time is more than
// ExpiryGrace in the past. Cancelled fleets are never reported as
// expired; cancellation is the stronger, explicit terminal state.
func (f Fleet) Expired(now time.Time) bool {
	return f.Status != StatusCancelled && now.Sub(f.FormUp) > ExpiryGrace
}

// Active reports whether the fleet still participates in scheduling:
// not cancelled and not expired. Only active fleets appear in listings,
// block overlapping proposals, and receive dispatcher attention.
func (f Fleet) Active(now time.Time) bool {
	return f.Status != StatusCancelled && !f.Expired(now)
}

func (f Fleet) String() string {
	return fmt.Sprintf("fleet %d (%s, %s, form-up %s)",
		f.ID, f.CategoryID, f.Status, f.FormUp.UTC().Format(time.RFC3339))
}
