// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
)

// Engine operation errors, beyond the schedule rejections defined in
// the fleet package.
var (
	// ErrUnknownCategory reports a category ID absent from the policy
	// document.
	ErrUnknownCategory = errors.New("engine: unknown category")

	// ErrFleetFinished reports an operation on a cancelled or expired
	// fleet. Finished fleets accept no mutations.
	ErrFleetFinished = errors.New("engine: fleet is cancelled or expired")
)

// Engine implements the control operations: propose, reschedule, edit,
// cancel, list. It owns validation and two levels of serialization:
// per-fleet locks keep a socket operation from racing a dispatcher tick
// on the same fleet, and per-category locks make schedule validation
// and the following write atomic, so two concurrent proposals cannot
// both pass the spacing check and both persist. Lock order is category
// before fleet; the dispatcher takes only fleet locks.
type Engine struct {
	store  *Store
	policy *policydef.Policy
	clock  clock.Clock
	logger *slog.Logger

	fleets     keyedLocks[int64]
	categories keyedLocks[string]
}

// NewEngine wires an engine over the store and compiled policy.
func NewEngine(store *Store, policy *policydef.Policy, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		policy: policy,
		clock:  clk,
		logger: logger,
	}
}

// Propose validates and creates a new fleet. The category's destination
// set is snapshotted into the fleet's notification records at this
// moment; later policy changes do not retarget existing fleets.
//
// A proposal whose reminder threshold is already in the past (the
// form-up is closer than the category's reminder lead) is accepted with
// the reminder disabled rather than rejected: the creator picked the
// time on purpose, and a reminder fired immediately after the creation
// ping would be noise.
func (e *Engine) Propose(ctx context.Context, categoryID string, formUp time.Time, details fleet.Details, hidden, disableReminder bool) (fleet.Fleet, error) {
	policy, ok := e.policy.Category(categoryID)
	if !ok {
		return fleet.Fleet{}, fmt.Errorf("%w: %q", ErrUnknownCategory, categoryID)
	}
	format, ok := e.policy.FormatFor(policy)
	if !ok {
		return fleet.Fleet{}, fmt.Errorf("engine: category %q references unknown format %q", categoryID, policy.Format)
	}
	if err := format.CheckDetails(details); err != nil {
		return fleet.Fleet{}, err
	}

	// The category lock spans the sibling read, the spacing check, and
	// the insert: without it two concurrent proposals could both see
	// the gap as free.
	unlockCategory := e.categories.lock(categoryID)
	defer unlockCategory()

	now := e.clock.Now()
	existing, err := e.store.ListCategoryFleets(ctx, categoryID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	if err := fleet.CheckSchedule(policy, existing, formUp, now); err != nil {
		return fleet.Fleet{}, err
	}

	if !disableReminder && policy.HasReminder() && !now.Before(formUp.Add(-policy.ReminderLead)) {
		e.logger.Info("reminder threshold already past, disabling reminder",
			"category", categoryID, "form_up", formUp)
		disableReminder = true
	}

	f := fleet.Fleet{
		CategoryID:      categoryID,
		Scope:           policy.Scope,
		FormUp:          formUp.UTC(),
		CreatedAt:       now.UTC(),
		Status:          fleet.StatusScheduled,
		Details:         details,
		Hidden:          hidden,
		DisableReminder: disableReminder,
	}
	fingerprint, err := fleet.Fingerprint(f.FormUp, f.Details)
	if err != nil {
		return fleet.Fleet{}, err
	}

	created, err := e.store.CreateFleet(ctx, f, policy.Destinations, fingerprint)
	if err != nil {
		return fleet.Fleet{}, err
	}
	e.logger.Info("fleet proposed", "fleet", created.ID, "category", categoryID,
		"form_up", created.FormUp, "hidden", hidden)
	return created, nil
}

// Reschedule moves a fleet's form-up time. The new time passes the same
// schedule validation as a proposal, except the fleet never overlaps
// itself. The status is recomputed for the new time (a reminder already
// sent can rewind to Scheduled without repeating; the notification
// record guards the resend), and a reschedule notice is queued for
// every destination.
func (e *Engine) Reschedule(ctx context.Context, fleetID int64, formUp time.Time) (fleet.Fleet, error) {
	// A fleet's category is immutable, so this unlocked read only picks
	// which category lock to take. The fleet itself is reloaded under
	// the locks.
	f, err := e.store.GetFleet(ctx, fleetID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	unlockCategory := e.categories.lock(f.CategoryID)
	defer unlockCategory()
	unlock := e.fleets.lock(fleetID)
	defer unlock()

	f, err = e.store.GetFleet(ctx, fleetID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	now := e.clock.Now()
	if !f.Active(now) {
		return fleet.Fleet{}, fmt.Errorf("%w: %s", ErrFleetFinished, f)
	}
	policy, ok := e.policy.Category(f.CategoryID)
	if !ok {
		return fleet.Fleet{}, fmt.Errorf("%w: %q", ErrUnknownCategory, f.CategoryID)
	}

	existing, err := e.store.ListCategoryFleets(ctx, f.CategoryID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	others := existing[:0]
	for _, other := range existing {
		if other.ID != fleetID {
			others = append(others, other)
		}
	}
	if err := fleet.CheckSchedule(policy, others, formUp, now); err != nil {
		return fleet.Fleet{}, err
	}

	status := fleet.StatusForTime(policy, f, formUp, now)
	generation := strconv.FormatInt(formUp.UnixNano(), 10)
	if err := e.store.RescheduleFleet(ctx, fleetID, formUp, status, generation); err != nil {
		return fleet.Fleet{}, err
	}

	e.logger.Info("fleet rescheduled", "fleet", fleetID,
		"from", f.FormUp, "to", formUp, "status", status)
	f.FormUp = formUp.UTC()
	f.Status = status
	return f, nil
}

// EditDetails replaces a fleet's detail payload. The new payload must
// satisfy the category's ping format. No notice is sent: the dispatcher
// notices the changed fingerprint on its next tick and silently updates
// the announcement in place.
func (e *Engine) EditDetails(ctx context.Context, fleetID int64, details fleet.Details) (fleet.Fleet, error) {
	unlock := e.fleets.lock(fleetID)
	defer unlock()

	f, err := e.store.GetFleet(ctx, fleetID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	if !f.Active(e.clock.Now()) {
		return fleet.Fleet{}, fmt.Errorf("%w: %s", ErrFleetFinished, f)
	}
	policy, ok := e.policy.Category(f.CategoryID)
	if !ok {
		return fleet.Fleet{}, fmt.Errorf("%w: %q", ErrUnknownCategory, f.CategoryID)
	}
	format, ok := e.policy.FormatFor(policy)
	if !ok {
		return fleet.Fleet{}, fmt.Errorf("engine: category %q references unknown format %q", f.CategoryID, policy.Format)
	}
	if err := format.CheckDetails(details); err != nil {
		return fleet.Fleet{}, err
	}

	if err := e.store.EditFleetDetails(ctx, fleetID, details); err != nil {
		return fleet.Fleet{}, err
	}
	e.logger.Info("fleet details edited", "fleet", fleetID)
	f.Details = details
	return f, nil
}

// Cancel marks a fleet cancelled. The dispatcher rewrites the
// announcement and posts the cancellation notice on its next tick.
// Cancelling an already-cancelled fleet indicates a caller bug and is
// refused loudly.
func (e *Engine) Cancel(ctx context.Context, fleetID int64) (fleet.Fleet, error) {
	unlock := e.fleets.lock(fleetID)
	defer unlock()

	f, err := e.store.GetFleet(ctx, fleetID)
	if err != nil {
		return fleet.Fleet{}, err
	}
	if f.Status == fleet.StatusCancelled {
		e.logger.Error("cancel of an already-cancelled fleet refused", "fleet", fleetID)
		return fleet.Fleet{}, fmt.Errorf("%w: %s is already cancelled", ErrFleetFinished, f)
	}
	if f.Expired(e.clock.Now()) {
		return fleet.Fleet{}, fmt.Errorf("%w: %s", ErrFleetFinished, f)
	}

	if err := e.store.SetFleetStatus(ctx, fleetID, fleet.StatusCancelled); err != nil {
		return fleet.Fleet{}, err
	}
	e.logger.Info("fleet cancelled", "fleet", fleetID, "category", f.CategoryID)
	f.Status = fleet.StatusCancelled
	return f, nil
}

// ListActive returns the active fleets of the requested categories
// (every category when the filter is empty), ordered by form-up time.
// Cancelled and expired fleets are omitted.
func (e *Engine) ListActive(ctx context.Context, categories []string) ([]fleet.Fleet, error) {
	for _, id := range categories {
		if _, ok := e.policy.Category(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, id)
		}
	}
	wanted := make(map[string]bool, len(categories))
	for _, id := range categories {
		wanted[id] = true
	}

	fleets, err := e.store.ListFleets(ctx)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	var active []fleet.Fleet
	for _, f := range fleets {
		if !f.Active(now) {
			continue
		}
		if len(wanted) > 0 && !wanted[f.CategoryID] {
			continue
		}
		active = append(active, f)
	}
	return active, nil
}

// lockFleet serializes dispatcher work on one fleet against socket
// operations. The returned func releases the lock.
func (e *Engine) lockFleet(id int64) func() {
	return e.fleets.lock(id)
}

// keyedLocks is a lazily-populated mutex map. Entries are never
// removed; both key populations (fleet IDs, category IDs) are small
// and bounded.
type keyedLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

func (l *keyedLocks[K]) lock(key K) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[K]*sync.Mutex)
	}
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
