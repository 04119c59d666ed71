// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/ref"
	"github.com/bureau-foundation/muster/messaging"
)

// messenger is the slice of messaging.Session the dispatcher uses.
type messenger interface {
	SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content messaging.MessageContent) (ref.EventID, error)
	EditMessage(ctx context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, content messaging.MessageContent) (ref.EventID, error)
	RedactEvent(ctx context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, reason string) (ref.EventID, error)
}

// Dispatcher walks every fleet's lifecycle on a fixed tick and delivers
// the due notifications. Delivery is at-most-once per notification row:
// a state transition and its attempted rows are committed durably
// before any HTTP call, each send carries the row's persisted Matrix
// transaction ID, and retries after a crash or network failure replay
// the same transaction ID so the homeserver deduplicates.
type Dispatcher struct {
	store    *Store
	engine   *Engine
	policy   *policydef.Policy
	session  messenger
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(store *Store, engine *Engine, policy *policydef.Policy, session messenger, clk clock.Clock, logger *slog.Logger, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    store,
		engine:   engine,
		policy:   policy,
		session:  session,
		clock:    clk,
		logger:   logger,
		interval: interval,
	}
}

// Run ticks until the context is cancelled. An immediate first tick
// drains work left over from before a restart.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Tick(ctx)
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick processes every fleet once. A delivery failure stops work on
// that fleet for this tick (the next tick retries) but never blocks
// other fleets.
func (d *Dispatcher) Tick(ctx context.Context) {
	fleets, err := d.store.ListFleets(ctx)
	if err != nil {
		d.logger.Error("dispatch tick: listing fleets", "error", err)
		return
	}
	now := d.clock.Now()
	for _, f := range fleets {
		if f.Expired(now) {
			continue
		}
		if err := d.processFleet(ctx, f.ID); err != nil {
			d.logger.Error("dispatch: fleet deferred to next tick",
				"fleet", f.ID, "error", err,
				"retryable", messaging.IsRetryable(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// fleetWork is the per-tick working set for one fleet: its current
// rows indexed by kind and destination, and the destination snapshot
// taken from the create rows seeded at proposal time.
type fleetWork struct {
	rows         map[NotificationKind]map[ref.RoomID]Notification
	destinations []ref.RoomID
}

func (w *fleetWork) row(kind NotificationKind, destination ref.RoomID) (Notification, bool) {
	row, ok := w.rows[kind][destination]
	return row, ok
}

func (w *fleetWork) put(row Notification) {
	if w.rows[row.Kind] == nil {
		w.rows[row.Kind] = make(map[ref.RoomID]Notification)
	}
	w.rows[row.Kind][row.Destination] = row
}

// threadRoot returns the fleet's first public event in a destination:
// the announcement when it was delivered, otherwise the reminder or
// form-up ping (a hidden fleet's first public message). Zero when
// nothing has been delivered there.
func (w *fleetWork) threadRoot(destination ref.RoomID) ref.EventID {
	for _, kind := range []NotificationKind{KindCreate, KindReminder, KindFormup} {
		if row, ok := w.row(kind, destination); ok && row.State == StateConfirmed {
			return row.EventID
		}
	}
	return ref.EventID{}
}

func (d *Dispatcher) loadWork(ctx context.Context, fleetID int64) (*fleetWork, error) {
	rows, err := d.store.Notifications(ctx, fleetID)
	if err != nil {
		return nil, err
	}
	work := &fleetWork{rows: make(map[NotificationKind]map[ref.RoomID]Notification)}
	for _, row := range rows {
		work.put(row)
	}
	for destination := range work.rows[KindCreate] {
		work.destinations = append(work.destinations, destination)
	}
	sort.Slice(work.destinations, func(i, j int) bool {
		return work.destinations[i].String() < work.destinations[j].String()
	})
	return work, nil
}

// processFleet holds the fleet's lock for the whole pass so a socket
// operation never interleaves with delivery. The fleet is reloaded
// under the lock; the ListFleets snapshot may be stale.
func (d *Dispatcher) processFleet(ctx context.Context, fleetID int64) error {
	unlock := d.engine.lockFleet(fleetID)
	defer unlock()

	f, err := d.store.GetFleet(ctx, fleetID)
	if err != nil {
		return err
	}
	now := d.clock.Now()
	policy, ok := d.policy.Category(f.CategoryID)
	if !ok {
		// Category removed from the policy document. The fleet's rows
		// keep their snapshot, but without a policy there is nothing
		// to render. Logged once per tick; an operator has to resolve.
		d.logger.Warn("fleet references unknown category", "fleet", f.ID, "category", f.CategoryID)
		return nil
	}
	format, _ := d.policy.FormatFor(policy)

	work, err := d.loadWork(ctx, fleetID)
	if err != nil {
		return err
	}

	if f.Status == fleet.StatusCancelled {
		return d.processCancelled(ctx, policy, format, f, work)
	}
	if f.Expired(now) {
		return nil
	}

	// Walk the due transitions, committing each (status plus attempted
	// rows) before anything is sent. A fleet whose reminder threshold
	// and form-up time both passed between ticks walks both steps, one
	// commit and one delivery round each.
	transitioned := false
	for {
		transition, due := fleet.NextTransition(policy, f, now)
		if !due {
			break
		}
		var kind NotificationKind
		switch transition.To {
		case fleet.StatusReminderSent:
			kind = KindReminder
		case fleet.StatusFormingUp:
			kind = KindFormup
		default:
			return fmt.Errorf("dispatch: unexpected transition to %s", transition.To)
		}

		txns := make(map[ref.RoomID]string)
		for _, destination := range work.destinations {
			if _, exists := work.row(kind, destination); !exists {
				txns[destination] = newTransactionID()
			}
		}
		fingerprint, err := fleet.Fingerprint(f.FormUp, f.Details)
		if err != nil {
			return err
		}
		if err := d.store.CommitTransition(ctx, f.ID, transition.To, kind, txns, fingerprint); err != nil {
			return err
		}
		d.logger.Info("fleet transition", "fleet", f.ID,
			"from", transition.From, "to", transition.To)
		f.Status = transition.To
		transitioned = true
		for destination, txnID := range txns {
			work.put(Notification{
				FleetID:     f.ID,
				Destination: destination,
				Kind:        kind,
				State:       StateAttempted,
				TxnID:       txnID,
				Fingerprint: fingerprint,
			})
		}
	}

	if err := d.deliver(ctx, policy, format, f, work); err != nil {
		return err
	}

	// Silent update of the announcement when the rendered content
	// drifted from what was delivered. Skipped on a tick that already
	// pinged; the next tick picks it up.
	if !transitioned {
		if err := d.updateAnnouncements(ctx, policy, format, f, work); err != nil {
			return err
		}
	}
	return nil
}

// deliver sends every pending or attempted row of an active fleet, in
// kind order so thread roots exist before their replies.
func (d *Dispatcher) deliver(ctx context.Context, policy fleet.CategoryPolicy, format policydef.Format, f fleet.Fleet, work *fleetWork) error {
	now := d.clock.Now()
	for _, destination := range work.destinations {
		row, ok := work.row(KindCreate, destination)
		if !ok || row.State == StateConfirmed || row.State == StateSkipped {
			continue
		}
		if row.State == StatePending {
			// The fleet may have been edited between proposal and this
			// first delivery; record the fingerprint of the content
			// actually rendered.
			fingerprint, err := fleet.Fingerprint(f.FormUp, f.Details)
			if err != nil {
				return err
			}
			row.TxnID = newTransactionID()
			row.Fingerprint = fingerprint
			if err := d.store.MarkAttempted(ctx, row); err != nil {
				return err
			}
			row.State = StateAttempted
		}
		if err := d.sendRow(ctx, row, renderAnnouncement(policy, format, f, now)); err != nil {
			return err
		}
		row.State = StateConfirmed
		work.put(row)
	}
	for _, kind := range []NotificationKind{KindReminder, KindFormup} {
		for _, destination := range work.destinations {
			row, ok := work.row(kind, destination)
			if !ok || row.State != StateAttempted {
				continue
			}
			root := work.threadRoot(destination)
			var content messaging.MessageContent
			if kind == KindReminder {
				content = renderReminder(policy, f, root, now)
			} else {
				content = renderFormup(policy, f, root)
			}
			if err := d.sendRow(ctx, row, content); err != nil {
				return err
			}
			row.State = StateConfirmed
			work.put(row)
		}
	}
	for _, destination := range work.destinations {
		row, ok := work.row(KindReschedule, destination)
		if !ok || row.State == StateConfirmed || row.State == StateSkipped {
			continue
		}
		root := work.threadRoot(destination)
		if f.Hidden && root.IsZero() {
			// Nothing about this fleet is public here yet; a notice
			// would leak it.
			if err := d.store.MarkSkipped(ctx, f.ID, destination, KindReschedule); err != nil {
				return err
			}
			row.State = StateSkipped
			work.put(row)
			continue
		}
		if row.State == StatePending {
			row.TxnID = newTransactionID()
			if err := d.store.MarkAttempted(ctx, row); err != nil {
				return err
			}
			row.State = StateAttempted
		}
		if err := d.sendRow(ctx, row, renderRescheduleNotice(f, root, now)); err != nil {
			return err
		}
		row.State = StateConfirmed
		work.put(row)
	}
	return nil
}

// sendRow performs one idempotent send for an attempted row and
// confirms it. The row must already carry its transaction ID.
func (d *Dispatcher) sendRow(ctx context.Context, row Notification, content messaging.MessageContent) error {
	eventID, err := d.session.SendMessage(ctx, row.Destination, row.TxnID, content)
	if err != nil {
		return fmt.Errorf("sending %s for fleet %d to %s: %w", row.Kind, row.FleetID, row.Destination, err)
	}
	if err := d.store.MarkConfirmed(ctx, row.FleetID, row.Destination, row.Kind, eventID); err != nil {
		return err
	}
	d.logger.Info("notification delivered", "fleet", row.FleetID,
		"kind", row.Kind, "destination", row.Destination, "event", eventID)
	return nil
}

// updateAnnouncements edits delivered announcements whose content
// drifted from the current rendering (detail edits, reschedules). The
// update row is regenerated per content change; its fingerprint keys
// the generation.
func (d *Dispatcher) updateAnnouncements(ctx context.Context, policy fleet.CategoryPolicy, format policydef.Format, f fleet.Fleet, work *fleetWork) error {
	current, err := fleet.Fingerprint(f.FormUp, f.Details)
	if err != nil {
		return err
	}
	now := d.clock.Now()
	for _, destination := range work.destinations {
		createRow, ok := work.row(KindCreate, destination)
		if !ok || createRow.State != StateConfirmed {
			continue
		}
		delivered := createRow.Fingerprint
		updateRow, hasUpdate := work.row(KindUpdate, destination)
		if hasUpdate && updateRow.State == StateConfirmed {
			delivered = updateRow.Fingerprint
		}

		retry := hasUpdate && updateRow.State == StateAttempted
		if delivered == current && !retry {
			continue
		}
		row := Notification{
			FleetID:     f.ID,
			Destination: destination,
			Kind:        KindUpdate,
			TxnID:       newTransactionID(),
			Fingerprint: current,
		}
		if retry {
			// Keep the in-flight transaction ID so the homeserver
			// deduplicates a send that already landed.
			row.TxnID = updateRow.TxnID
			row.Fingerprint = updateRow.Fingerprint
		}
		if err := d.store.MarkAttempted(ctx, row); err != nil {
			return err
		}
		content := renderAnnouncement(policy, format, f, now)
		eventID, err := d.session.EditMessage(ctx, destination, row.TxnID, createRow.EventID, content)
		if err != nil {
			return fmt.Errorf("updating announcement for fleet %d in %s: %w", f.ID, destination, err)
		}
		if err := d.store.MarkConfirmed(ctx, f.ID, destination, KindUpdate, eventID); err != nil {
			return err
		}
		row.State = StateConfirmed
		work.put(row)
		d.logger.Info("announcement updated", "fleet", f.ID, "destination", destination)
	}
	return nil
}

// processCancelled finishes a cancelled fleet's messaging: retry any
// announcement that was already attempted (it may exist server-side),
// rewrite delivered announcements in place, and post one cancellation
// notice where the fleet was public. Announcements never attempted are
// skipped outright.
func (d *Dispatcher) processCancelled(ctx context.Context, policy fleet.CategoryPolicy, format policydef.Format, f fleet.Fleet, work *fleetWork) error {
	now := d.clock.Now()
	for _, destination := range work.destinations {
		createRow, ok := work.row(KindCreate, destination)
		if !ok {
			continue
		}
		switch createRow.State {
		case StatePending:
			if err := d.store.MarkSkipped(ctx, f.ID, destination, KindCreate); err != nil {
				return err
			}
			createRow.State = StateSkipped
			work.put(createRow)
		case StateAttempted:
			// The send may have landed before the failure; replaying
			// the transaction ID resolves it either way, and the edit
			// below rewrites it.
			if err := d.sendRow(ctx, createRow, renderAnnouncement(policy, format, f, now)); err != nil {
				return err
			}
			createRow.State = StateConfirmed
			work.put(createRow)
		}
	}

	// Same for an in-flight reminder or form-up ping.
	for _, kind := range []NotificationKind{KindReminder, KindFormup} {
		for _, destination := range work.destinations {
			row, ok := work.row(kind, destination)
			if !ok || row.State != StateAttempted {
				continue
			}
			root := work.threadRoot(destination)
			var content messaging.MessageContent
			if kind == KindReminder {
				content = renderReminder(policy, f, root, now)
			} else {
				content = renderFormup(policy, f, root)
			}
			if err := d.sendRow(ctx, row, content); err != nil {
				return err
			}
			row.State = StateConfirmed
			work.put(row)
		}
	}

	for _, destination := range work.destinations {
		createRow, hasCreate := work.row(KindCreate, destination)
		announced := hasCreate && createRow.State == StateConfirmed

		cancelRow, ok := work.row(KindCancel, destination)
		if !ok || (cancelRow.State != StateConfirmed && cancelRow.State != StateSkipped) {
			if !announced {
				if err := d.store.MarkSkipped(ctx, f.ID, destination, KindCancel); err != nil {
					return err
				}
			} else {
				if !ok || cancelRow.State == StatePending {
					cancelRow = Notification{
						FleetID:     f.ID,
						Destination: destination,
						Kind:        KindCancel,
						TxnID:       newTransactionID(),
					}
					if err := d.store.MarkAttempted(ctx, cancelRow); err != nil {
						return err
					}
				}
				eventID, err := d.session.EditMessage(ctx, destination, cancelRow.TxnID, createRow.EventID, renderCancelled(policy, format, f))
				if err != nil {
					return fmt.Errorf("cancel edit for fleet %d in %s: %w", f.ID, destination, err)
				}
				if err := d.store.MarkConfirmed(ctx, f.ID, destination, KindCancel, eventID); err != nil {
					return err
				}
				d.logger.Info("announcement marked cancelled", "fleet", f.ID, "destination", destination)
			}
		}

		root := work.threadRoot(destination)
		noticeRow, ok := work.row(KindCancelNotice, destination)
		if ok && (noticeRow.State == StateConfirmed || noticeRow.State == StateSkipped) {
			continue
		}
		if root.IsZero() {
			// Never public here; nothing to retract.
			if err := d.store.MarkSkipped(ctx, f.ID, destination, KindCancelNotice); err != nil {
				return err
			}
			continue
		}
		if !ok || noticeRow.State == StatePending {
			noticeRow = Notification{
				FleetID:     f.ID,
				Destination: destination,
				Kind:        KindCancelNotice,
				TxnID:       newTransactionID(),
			}
			if err := d.store.MarkAttempted(ctx, noticeRow); err != nil {
				return err
			}
		}
		if err := d.sendRow(ctx, noticeRow, renderCancelNotice(policy, f, root)); err != nil {
			return err
		}
	}
	return nil
}

// newTransactionID mints a Matrix transaction ID. Minted once per
// notification row and persisted before the first send; retries reuse
// the stored value.
func newTransactionID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("dispatch: reading randomness: %v", err))
	}
	return "muster-" + hex.EncodeToString(buf[:])
}
