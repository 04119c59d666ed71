// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleet is the pure domain core of the scheduling engine:
// category policies, the fleet lifecycle state machine, schedule
// validation, and content fingerprinting.
//
// Nothing in this package touches storage, the clock, or the network.
// Every function takes the current time as an argument and returns a
// decision; the service layer (cmd/muster-service) owns persistence
// and delivery. This keeps the temporal logic, the only part of the
// system with real invariants, trivially testable.
//
// A fleet moves Scheduled → ReminderSent → FormingUp, with Cancelled
// reachable from any non-terminal state. ReminderSent is skipped when
// the category has no reminder lead or the fleet opted out. Expired is
// not a stored status: a fleet whose form-up time is more than an hour
// in the past is expired by computation ([Fleet.Expired]) and produces
// no further transitions.
package fleet
