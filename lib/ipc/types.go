// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"time"

	"github.com/bureau-foundation/muster/fleet"
)

// Actions accepted by the control socket.
const (
	ActionPropose    = "propose"
	ActionReschedule = "reschedule"
	ActionEdit       = "edit"
	ActionCancel     = "cancel"
	ActionList       = "list"
	ActionStatus     = "status"
)

// Rejection kinds for schedule validation failures, carried alongside
// the human-readable error so the CLI can react per kind.
const (
	RejectTooFarInAdvance = "too_far_in_advance"
	RejectInPast          = "in_past"
	RejectOverlap         = "overlap"
)

// Request is one control socket request. Action selects the operation;
// the other fields are populated per action:
//
//   - propose: CategoryID, FormUp, Details, Hidden, DisableReminder
//   - reschedule: FleetID, FormUp
//   - edit: FleetID, Details
//   - cancel: FleetID
//   - list: Categories (empty means all)
//   - status: no fields
type Request struct {
	Action string `json:"action"`

	CategoryID string `json:"category_id,omitempty"`
	FleetID    int64  `json:"fleet_id,omitempty"`

	// FormUp is the proposed or new form-up time (RFC 3339).
	FormUp *time.Time `json:"form_up,omitempty"`

	Details *fleet.Details `json:"details,omitempty"`

	Hidden          bool `json:"hidden,omitempty"`
	DisableReminder bool `json:"disable_reminder,omitempty"`

	// Categories filters the list action. Empty means every category.
	Categories []string `json:"categories,omitempty"`
}

// Response is the single reply to a Request.
type Response struct {
	// OK indicates whether the request succeeded.
	OK bool `json:"ok"`

	// Error contains the error message if OK is false.
	Error string `json:"error,omitempty"`

	// Reject classifies schedule validation failures (one of the
	// Reject* constants). Empty for other errors.
	Reject string `json:"reject,omitempty"`

	// OverlapFleetID names the colliding fleet for overlap rejections.
	OverlapFleetID int64 `json:"overlap_fleet_id,omitempty"`

	// Fleet is the created or affected fleet (propose, reschedule,
	// edit, cancel).
	Fleet *FleetView `json:"fleet,omitempty"`

	// Fleets is the list action's result, ordered by form-up time.
	Fleets []FleetView `json:"fleets,omitempty"`

	// Status is the status action's result.
	Status *ServiceStatus `json:"status,omitempty"`
}

// FleetView is the wire rendering of a fleet.
type FleetView struct {
	ID              int64         `json:"id"`
	CategoryID      string        `json:"category_id"`
	CategoryName    string        `json:"category_name,omitempty"`
	FormUp          time.Time     `json:"form_up"`
	Countdown       time.Duration `json:"countdown"`
	Status          fleet.Status  `json:"status"`
	Details         fleet.Details `json:"details"`
	Hidden          bool          `json:"hidden,omitempty"`
	DisableReminder bool          `json:"disable_reminder,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ServiceStatus is the status action's payload.
type ServiceStatus struct {
	UserID           string    `json:"user_id"`
	Scope            string    `json:"scope"`
	Categories       int       `json:"categories"`
	ActiveFleets     int       `json:"active_fleets"`
	DispatchInterval string    `json:"dispatch_interval"`
	SummarySchedule  string    `json:"summary_schedule"`
	StartedAt        time.Time `json:"started_at"`
}
