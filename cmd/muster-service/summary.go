// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/cron"
	"github.com/bureau-foundation/muster/lib/ref"
)

// SummaryPublisher reposts the per-destination "upcoming fleets" view
// on a cron cadence. Each cycle posts a fresh summary message and
// redacts the previous one, so every destination carries exactly one
// live summary. A failed redaction is tolerated: a stale leftover is
// cosmetic, and the next cycle retries against the same pointer.
type SummaryPublisher struct {
	store    *Store
	policy   *policydef.Policy
	session  messenger
	clock    clock.Clock
	logger   *slog.Logger
	schedule cron.Schedule
}

// NewSummaryPublisher wires a publisher on the given cron schedule.
func NewSummaryPublisher(store *Store, policy *policydef.Policy, session messenger, clk clock.Clock, logger *slog.Logger, schedule cron.Schedule) *SummaryPublisher {
	return &SummaryPublisher{
		store:    store,
		policy:   policy,
		session:  session,
		clock:    clk,
		logger:   logger,
		schedule: schedule,
	}
}

// Run publishes at each scheduled instant until the context is
// cancelled.
func (p *SummaryPublisher) Run(ctx context.Context) error {
	for {
		now := p.clock.Now()
		next, err := p.schedule.Next(now)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(next.Sub(now)):
			p.Publish(ctx)
		}
	}
}

// Publish runs one summary cycle across every destination room.
func (p *SummaryPublisher) Publish(ctx context.Context) {
	fleets, err := p.store.ListFleets(ctx)
	if err != nil {
		p.logger.Error("summary: listing fleets", "error", err)
		return
	}
	pointers, err := p.store.SummaryPointers(ctx)
	if err != nil {
		p.logger.Error("summary: loading pointers", "error", err)
		return
	}

	now := p.clock.Now()
	for _, room := range p.policy.Rooms() {
		visible := p.visibleIn(room, fleets, now)
		content := renderSummary(p.policy, visible, now)

		eventID, err := p.session.SendMessage(ctx, room, newTransactionID(), content)
		if err != nil {
			p.logger.Error("summary: posting", "destination", room, "error", err)
			continue
		}
		if err := p.store.SetSummaryPointer(ctx, room, eventID); err != nil {
			p.logger.Error("summary: recording pointer", "destination", room, "error", err)
			continue
		}
		p.logger.Info("summary published", "destination", room,
			"fleets", len(visible), "event", eventID)

		previous, ok := pointers[room]
		if !ok {
			continue
		}
		if _, err := p.session.RedactEvent(ctx, room, newTransactionID(), previous.EventID, "superseded summary"); err != nil {
			p.logger.Warn("summary: retiring previous rendering failed",
				"destination", room, "event", previous.EventID, "error", err)
		}
	}
}

// visibleIn selects the active fleets a destination's audience may
// see: the category routes to this room, the room's audience roles
// pass the category's viewer check, and the fleet is not a hidden one
// that has yet to go public.
func (p *SummaryPublisher) visibleIn(room ref.RoomID, fleets []fleet.Fleet, now time.Time) []fleet.Fleet {
	audience := p.policy.Audiences[room]
	var visible []fleet.Fleet
	for _, f := range fleets {
		if !f.Active(now) {
			continue
		}
		if f.Hidden && f.Status == fleet.StatusScheduled {
			continue
		}
		category, ok := p.policy.Category(f.CategoryID)
		if !ok {
			continue
		}
		if !roomsContain(category.Destinations, room) {
			continue
		}
		if !category.VisibleTo(audience) {
			continue
		}
		visible = append(visible, f)
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].FormUp.Before(visible[j].FormUp)
	})
	return visible
}

func roomsContain(rooms []ref.RoomID, room ref.RoomID) bool {
	for _, candidate := range rooms {
		if candidate == room {
			return true
		}
	}
	return false
}
