// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import "time"

// Transition is one legal forward step of the fleet state machine.
type Transition struct {
	From Status
	To   Status
}

// NextTransition computes the single due forward transition for a
// fleet, if any. The dispatcher calls this each tick and commits the
// returned transition before emitting the matching notification; a
// second call after commit returns the next step, so a fleet whose
// reminder threshold and form-up time both passed between ticks still
// walks ReminderSent before FormingUp.
//
// Cancelled fleets and expired fleets produce no transitions. The
// reminder step is skipped entirely when the category has no lead or
// the fleet opted out.
func NextTransition(policy CategoryPolicy, f Fleet, now time.Time) (Transition, bool) {
	if f.Status.Terminal() || f.Expired(now) {
		return Transition{}, false
	}

	switch f.Status {
	case StatusScheduled:
		if reminderDue(policy, f, now) {
			return Transition{From: StatusScheduled, To: StatusReminderSent}, true
		}
		if !now.Before(f.FormUp) {
			return Transition{From: StatusScheduled, To: StatusFormingUp}, true
		}
	case StatusReminderSent:
		if !now.Before(f.FormUp) {
			return Transition{From: StatusReminderSent, To: StatusFormingUp}, true
		}
	}
	return Transition{}, false
}

// reminderDue reports whether the reminder threshold has passed for a
// fleet that has not yet formed up.
func reminderDue(policy CategoryPolicy, f Fleet, now time.Time) bool {
	if !policy.HasReminder() || f.DisableReminder {
		return false
	}
	return !now.Before(f.FormUp.Add(-policy.ReminderLead))
}

// StatusForTime recomputes the status a non-terminal fleet should hold
// if its form-up time were newTime. Used on reschedule: moving the
// form-up later can rewind ReminderSent to Scheduled (the countdown
// view stays truthful; the reminder itself never repeats, because the
// notification record, not the status, guards re-sending), and moving
// it earlier can make the reminder threshold already-passed.
func StatusForTime(policy CategoryPolicy, f Fleet, newTime, now time.Time) Status {
	if f.Status.Terminal() {
		return f.Status
	}
	if !now.Before(newTime) {
		return StatusFormingUp
	}
	moved := f
	moved.FormUp = newTime
	if reminderDue(policy, moved, now) {
		return StatusReminderSent
	}
	return StatusScheduled
}
