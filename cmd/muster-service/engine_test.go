// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/muster/fleet"
)

func TestProposeAcceptsAndSnapshotsDestinations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.engine.Propose(ctx, "capitals", testEpoch.Add(3*time.Hour),
		testDetails("Structure defense"), false, false)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if f.Status != fleet.StatusScheduled {
		t.Errorf("status %s, want scheduled", f.Status)
	}
	if f.Scope != testScope {
		t.Errorf("scope %s, want %s", f.Scope, testScope)
	}

	rows := env.notificationMap(t, f.ID)
	if len(rows) != 2 {
		t.Fatalf("expected a create row per destination, got %d", len(rows))
	}
	for _, key := range []string{"create/" + roomStaging.String(), "create/" + roomCapitals.String()} {
		if _, ok := rows[key]; !ok {
			t.Errorf("missing row %s", key)
		}
	}
}

func TestProposeRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Propose(context.Background(), "mining", testEpoch.Add(time.Hour),
		testDetails("Moon pop"), false, false)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestProposeRejectsBadDetails(t *testing.T) {
	env := newTestEnv(t)
	details := fleet.Details{
		Title:  "No doctrine",
		Fields: []fleet.FieldValue{{Name: "fc", Value: "Aria"}},
	}
	_, err := env.engine.Propose(context.Background(), "strategic", testEpoch.Add(3*time.Hour),
		details, false, false)
	if err == nil {
		t.Fatal("expected a rejection for the missing required field")
	}
}

func TestProposeEnforcesSpacing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.propose(t, "strategic", testEpoch.Add(time.Hour), "First")

	_, err := env.engine.Propose(ctx, "strategic", testEpoch.Add(2*time.Hour+30*time.Minute),
		testDetails("Too close"), false, false)
	var overlap *fleet.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected an overlap rejection, got %v", err)
	}

	if _, err := env.engine.Propose(ctx, "strategic", testEpoch.Add(3*time.Hour),
		testDetails("Spaced out"), false, false); err != nil {
		t.Fatalf("proposal at exactly min spacing rejected: %v", err)
	}
}

func TestProposeRejectsBeyondAdvanceWindow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Propose(context.Background(), "strategic", testEpoch.Add(25*time.Hour),
		testDetails("Too far"), false, false)
	if !errors.Is(err, fleet.ErrTooFarInAdvance) {
		t.Fatalf("expected ErrTooFarInAdvance, got %v", err)
	}
}

func TestProposeDisablesUnfittableReminder(t *testing.T) {
	env := newTestEnv(t)

	// Strategic reminds one hour ahead; a fleet forming up in thirty
	// minutes has already passed its reminder threshold.
	f := env.propose(t, "strategic", testEpoch.Add(30*time.Minute), "Short notice")
	if !f.DisableReminder {
		t.Fatal("expected the reminder to be disabled for a short-notice fleet")
	}
}

func TestRescheduleExcludesSelfFromOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Movable")

	// Moving by less than min spacing relative to its own old slot
	// must not self-collide.
	moved, err := env.engine.Reschedule(ctx, f.ID, testEpoch.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.FormUp.Equal(testEpoch.Add(4 * time.Hour)) {
		t.Errorf("form-up %s, want +4h", moved.FormUp)
	}

	rows := env.notificationMap(t, f.ID)
	notice, ok := rows["reschedule/"+roomStaging.String()]
	if !ok || notice.State != StatePending {
		t.Fatalf("expected a pending reschedule notice, got %+v", rows)
	}
}

func TestRescheduleRejectsOverlapWithOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Anchor")
	f := env.propose(t, "strategic", testEpoch.Add(8*time.Hour), "Movable")

	_, err := env.engine.Reschedule(ctx, f.ID, testEpoch.Add(4*time.Hour))
	var overlap *fleet.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected an overlap rejection, got %v", err)
	}
}

func TestRescheduleRewindsReminderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(2*time.Hour), "Rewound")
	env.clock.Advance(90 * time.Minute)
	env.dispatcher.Tick(ctx) // delivers the announcement and the reminder

	loaded, err := env.store.GetFleet(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFleet: %v", err)
	}
	if loaded.Status != fleet.StatusReminderSent {
		t.Fatalf("status %s, want reminder_sent before reschedule", loaded.Status)
	}

	// Pushing the form-up out past the reminder threshold rewinds the
	// status; the reminder row keeps the message from repeating.
	moved, err := env.engine.Reschedule(ctx, f.ID, env.clock.Now().Add(5*time.Hour))
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != fleet.StatusScheduled {
		t.Errorf("status %s, want scheduled after pushing out", moved.Status)
	}
}

func TestRescheduleRejectsCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Doomed")
	if _, err := env.engine.Cancel(ctx, f.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, err := env.engine.Reschedule(ctx, f.ID, testEpoch.Add(5*time.Hour))
	if !errors.Is(err, ErrFleetFinished) {
		t.Fatalf("expected ErrFleetFinished, got %v", err)
	}
}

func TestEditDetailsValidatesFormat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Editable")

	_, err := env.engine.EditDetails(ctx, f.ID, fleet.Details{
		Title:  "Bad",
		Fields: []fleet.FieldValue{{Name: "ship", Value: "Ferox"}},
	})
	if err == nil {
		t.Fatal("expected a rejection for the unknown field")
	}

	edited, err := env.engine.EditDetails(ctx, f.ID, testDetails("Renamed"))
	if err != nil {
		t.Fatalf("EditDetails: %v", err)
	}
	if edited.Details.Title != "Renamed" {
		t.Errorf("title %q, want Renamed", edited.Details.Title)
	}
}

func TestCancelTwiceIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Once")
	if _, err := env.engine.Cancel(ctx, f.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := env.engine.Cancel(ctx, f.ID); !errors.Is(err, ErrFleetFinished) {
		t.Fatalf("expected ErrFleetFinished on a double cancel, got %v", err)
	}
}

func TestCancelRejectsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(time.Hour), "Ancient")
	env.clock.Advance(3 * time.Hour) // past form-up plus the expiry grace
	if _, err := env.engine.Cancel(ctx, f.ID); !errors.Is(err, ErrFleetFinished) {
		t.Fatalf("expected ErrFleetFinished for an expired fleet, got %v", err)
	}
}

func TestListActiveFiltersAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	early := env.propose(t, "strategic", testEpoch.Add(time.Hour), "Early")
	late := env.propose(t, "capitals", testEpoch.Add(10*time.Hour), "Late")
	cancelled := env.propose(t, "strategic", testEpoch.Add(5*time.Hour), "Cancelled")
	if _, err := env.engine.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	all, err := env.engine.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(all) != 2 || all[0].ID != early.ID || all[1].ID != late.ID {
		t.Fatalf("expected [early, late], got %+v", all)
	}

	capitals, err := env.engine.ListActive(ctx, []string{"capitals"})
	if err != nil {
		t.Fatalf("ListActive(capitals): %v", err)
	}
	if len(capitals) != 1 || capitals[0].ID != late.ID {
		t.Fatalf("expected only the capitals fleet, got %+v", capitals)
	}

	// The early fleet expires an hour past its form-up time.
	env.clock.Advance(2*time.Hour + time.Minute)
	all, err = env.engine.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive after expiry: %v", err)
	}
	if len(all) != 1 || all[0].ID != late.ID {
		t.Fatalf("expected only the late fleet after expiry, got %+v", all)
	}

	if _, err := env.engine.ListActive(ctx, []string{"mining"}); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

// Eight goroutines race proposals one minute apart in a category with
// two-hour spacing. Exactly one may win: the category lock makes the
// sibling read, the spacing check, and the insert atomic.
func TestProposeSerializesConcurrentProposals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const attempts = 8
	start := make(chan struct{})
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(offset time.Duration) {
			defer wg.Done()
			<-start
			_, err := env.engine.Propose(ctx, "strategic",
				testEpoch.Add(3*time.Hour+offset), testDetails("Contested slot"), false, false)
			results <- err
		}(time.Duration(i) * time.Minute)
	}
	close(start)
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		var overlap *fleet.OverlapError
		if !errors.As(err, &overlap) {
			t.Errorf("unexpected rejection: %v", err)
		}
		rejected++
	}
	if accepted != 1 || rejected != attempts-1 {
		t.Fatalf("%d accepted, %d rejected; want exactly one winner", accepted, rejected)
	}

	// The persisted population must satisfy the spacing policy.
	fleets, err := env.engine.ListActive(ctx, []string{"strategic"})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(fleets) != 1 {
		t.Fatalf("%d fleets persisted, want 1", len(fleets))
	}
}

// A reschedule racing a dispatcher tick on the same fleet must never
// double-send the reminder, whichever order the lock admits them in.
func TestRescheduleRacesDispatcherTick(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := env.propose(t, "strategic", testEpoch.Add(3*time.Hour), "Contested")
	env.dispatcher.Tick(ctx) // announcement

	// Reminder threshold (form-up minus 1h lead) is now in the past.
	env.clock.Advance(2*time.Hour + time.Minute)
	newFormUp := env.clock.Now().Add(5 * time.Hour)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		env.dispatcher.Tick(ctx)
	}()
	go func() {
		defer wg.Done()
		<-start
		if _, err := env.engine.Reschedule(ctx, f.ID, newFormUp); err != nil {
			t.Errorf("Reschedule: %v", err)
		}
	}()
	close(start)
	wg.Wait()

	countReminders := func() int {
		var reminders int
		for _, message := range env.messenger.sentTo(roomStaging) {
			if strings.Contains(message.Content.Body, "Reminder") {
				reminders++
			}
		}
		return reminders
	}
	raced := countReminders()
	if raced > 1 {
		t.Fatalf("race produced %d reminders", raced)
	}

	// Whichever side won, the rescheduled fleet sits at Scheduled and a
	// later tick adds nothing: either the reminder row is confirmed or
	// its threshold is hours away again.
	moved, err := env.store.GetFleet(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFleet: %v", err)
	}
	if moved.Status != fleet.StatusScheduled {
		t.Errorf("status %s, want scheduled after the move", moved.Status)
	}
	if !moved.FormUp.Equal(newFormUp.UTC()) {
		t.Errorf("form-up %s, want %s", moved.FormUp, newFormUp.UTC())
	}
	env.dispatcher.Tick(ctx)
	if after := countReminders(); after != raced {
		t.Errorf("post-race tick grew reminders from %d to %d", raced, after)
	}
}
