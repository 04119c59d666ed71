// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/muster/lib/cron"
)

func newTestPublisher(t *testing.T, env *testEnv) *SummaryPublisher {
	t.Helper()
	schedule, err := cron.Parse("*/30 * * * *")
	if err != nil {
		t.Fatalf("parsing schedule: %v", err)
	}
	return NewSummaryPublisher(env.store, env.policy, env.messenger, env.clock,
		slog.New(slog.DiscardHandler), schedule)
}

func TestSummaryPublishListsUpcomingFleets(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)
	ctx := context.Background()

	env.propose(t, "strategic", testEpoch.Add(5*time.Hour), "Later roam")
	env.propose(t, "strategic", testEpoch.Add(2*time.Hour), "Sooner roam")
	publisher.Publish(ctx)

	sent := env.messenger.sentTo(roomStaging)
	if len(sent) != 1 {
		t.Fatalf("expected one summary in staging, got %d messages", len(sent))
	}
	body := sent[0].Content.Body
	if !strings.HasPrefix(body, "Upcoming fleets:") {
		t.Errorf("summary body %q missing the header", body)
	}
	sooner := strings.Index(body, "Sooner roam")
	later := strings.Index(body, "Later roam")
	if sooner < 0 || later < 0 || sooner > later {
		t.Errorf("summary not ordered by form-up time: %q", body)
	}
	if sent[0].Content.Mentions != nil {
		t.Error("summaries must never ping")
	}
}

func TestSummaryReplacesPreviousRendering(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)
	ctx := context.Background()

	env.propose(t, "strategic", testEpoch.Add(5*time.Hour), "Standing fleet")
	publisher.Publish(ctx)
	env.clock.Advance(30 * time.Minute)
	publisher.Publish(ctx)

	var posts, redactions int
	var firstEvent, redacted string
	for _, message := range env.messenger.sentTo(roomStaging) {
		switch message.Kind {
		case "send":
			posts++
			if firstEvent == "" {
				firstEvent = env.messenger.eventForTxn(message.TxnID).String()
			}
		case "redact":
			redactions++
			redacted = message.Target.String()
		}
	}
	if posts != 2 {
		t.Errorf("expected two summary posts, got %d", posts)
	}
	if redactions != 1 {
		t.Fatalf("expected one redaction, got %d", redactions)
	}
	if redacted != firstEvent {
		t.Errorf("redacted %s, want the first summary %s", redacted, firstEvent)
	}
}

func TestSummaryToleratesFailedRedaction(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)
	ctx := context.Background()

	env.propose(t, "strategic", testEpoch.Add(5*time.Hour), "Standing fleet")
	publisher.Publish(ctx)
	env.messenger.setFailRedact(errors.New("event too old"))
	env.clock.Advance(30 * time.Minute)
	publisher.Publish(ctx)

	// The pointer still advanced to the second post: the next cycle
	// redacts the second rendering, not the unredactable first one.
	env.messenger.setFailRedact(nil)
	env.clock.Advance(30 * time.Minute)
	publisher.Publish(ctx)

	var posts int
	var secondTxn, redacted string
	for _, message := range env.messenger.sentTo(roomStaging) {
		switch message.Kind {
		case "send":
			posts++
			if posts == 2 {
				secondTxn = message.TxnID
			}
		case "redact":
			redacted = message.Target.String()
		}
	}
	if posts != 3 {
		t.Fatalf("expected three summary posts, got %d", posts)
	}
	if want := env.messenger.eventForTxn(secondTxn).String(); redacted != want {
		t.Errorf("redacted %s, want the second summary %s", redacted, want)
	}
}

func TestSummaryRespectsAudienceRoles(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)
	ctx := context.Background()

	// Capitals fleets route to both rooms, but the staging room's
	// audience holds no capital role, so its summary omits them.
	env.propose(t, "capitals", testEpoch.Add(5*time.Hour), "Dread drop")
	env.dispatcher.Tick(ctx) // announcement traffic, ignored below
	publisher.Publish(ctx)

	for _, message := range env.messenger.sentTo(roomStaging) {
		if message.Kind == "send" && strings.HasPrefix(message.Content.Body, "Upcoming fleets") {
			if strings.Contains(message.Content.Body, "Dread drop") {
				t.Errorf("staging summary leaks a role-gated fleet: %q", message.Content.Body)
			}
		}
	}

	var found bool
	for _, message := range env.messenger.sentTo(roomCapitals) {
		if strings.Contains(message.Content.Body, "Dread drop") && strings.HasPrefix(message.Content.Body, "Upcoming fleets") {
			found = true
		}
	}
	if !found {
		t.Error("capitals summary missing the fleet its audience may see")
	}
}

func TestSummaryOmitsHiddenScheduledFleets(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)
	ctx := context.Background()

	if _, err := env.engine.Propose(ctx, "strategic", testEpoch.Add(2*time.Hour),
		testDetails("Covert"), true, false); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	publisher.Publish(ctx)

	sent := env.messenger.sentTo(roomStaging)
	if len(sent) != 1 {
		t.Fatalf("expected one summary, got %d", len(sent))
	}
	if strings.Contains(sent[0].Content.Body, "Covert") {
		t.Errorf("summary leaks a hidden fleet: %q", sent[0].Content.Body)
	}

	// Once the reminder made the fleet public, the summary carries it.
	env.clock.Advance(61 * time.Minute)
	env.dispatcher.Tick(ctx)
	publisher.Publish(ctx)
	latest := env.messenger.sentTo(roomStaging)
	var carried bool
	for _, message := range latest {
		if strings.HasPrefix(message.Content.Body, "Upcoming fleets") && strings.Contains(message.Content.Body, "Covert") {
			carried = true
		}
	}
	if !carried {
		t.Error("summary omits a hidden fleet that already went public")
	}
}

func TestSummaryEmptyState(t *testing.T) {
	env := newTestEnv(t)
	publisher := newTestPublisher(t, env)

	publisher.Publish(context.Background())
	sent := env.messenger.sentTo(roomStaging)
	if len(sent) != 1 {
		t.Fatalf("expected one summary, got %d", len(sent))
	}
	if !strings.Contains(sent[0].Content.Body, "none scheduled") {
		t.Errorf("empty summary body %q", sent[0].Content.Body)
	}
}
