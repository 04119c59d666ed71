// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/ref"
	"github.com/bureau-foundation/muster/messaging"
)

var (
	roomStaging  = ref.MustParseRoomID("!staging:muster.local")
	roomCapitals = ref.MustParseRoomID("!capitals:muster.local")

	capitalRole = ref.MustParseRoleID("capital-pilot")

	testScope = ref.MustParseScopeID("alliance-1")

	// testEpoch is the fake clock's starting instant for every test.
	testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
)

// testPolicy builds the compiled policy the service tests run against:
// a broadcast category with spacing and a reminder, and a role-gated
// two-destination category without either.
func testPolicy() *policydef.Policy {
	strategic := fleet.CategoryPolicy{
		ID:           "strategic",
		Scope:        testScope,
		Name:         "Strategic Fleet",
		Format:       "standard",
		MinSpacing:   2 * time.Hour,
		MaxAdvance:   24 * time.Hour,
		ReminderLead: time.Hour,
		PingRoles:    []ref.RoleID{ref.Everyone},
		Destinations: []ref.RoomID{roomStaging},
	}
	capitals := fleet.CategoryPolicy{
		ID:           "capitals",
		Scope:        testScope,
		Name:         "Capital Ops",
		Format:       "standard",
		MaxAdvance:   72 * time.Hour,
		ViewerRoles:  []ref.RoleID{capitalRole},
		PingRoles:    []ref.RoleID{capitalRole},
		Destinations: []ref.RoomID{roomStaging, roomCapitals},
	}
	return &policydef.Policy{
		Scope: testScope,
		Formats: map[string]policydef.Format{
			"standard": {Fields: []policydef.FormatField{
				{Name: "doctrine", Label: "Doctrine", Required: true},
				{Name: "fc", Label: "FC"},
			}},
		},
		Audiences: map[ref.RoomID][]ref.RoleID{
			roomStaging:  nil,
			roomCapitals: {capitalRole},
		},
		Categories: map[string]fleet.CategoryPolicy{
			"strategic": strategic,
			"capitals":  capitals,
		},
		Order: []string{"strategic", "capitals"},
	}
}

func testDetails(title string) fleet.Details {
	return fleet.Details{
		Title: title,
		Fields: []fleet.FieldValue{
			{Name: "doctrine", Value: "Ferox"},
			{Name: "fc", Value: "Aria"},
		},
	}
}

func openTestStore(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path:   filepath.Join(t.TempDir(), "muster.db"),
		Clock:  clk,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// sentMessage records one call against the fake messenger.
type sentMessage struct {
	Room    ref.RoomID
	TxnID   string
	Target  ref.EventID // edits and redactions
	Content messaging.MessageContent
	Reason  string // redactions
	Kind    string // "send", "edit", "redact"
}

// fakeMessenger records outbound traffic and simulates the
// homeserver's transaction-ID deduplication: replaying a transaction
// ID returns the original event without recording a second message.
type fakeMessenger struct {
	mu       sync.Mutex
	messages []sentMessage
	byTxn    map[string]ref.EventID
	nextID   int

	// fail, when set, makes every call return this error without
	// recording anything. failRedact fails only RedactEvent.
	fail       error
	failRedact error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{byTxn: make(map[string]ref.EventID)}
}

func (m *fakeMessenger) record(message sentMessage) (ref.EventID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return ref.EventID{}, m.fail
	}
	if existing, ok := m.byTxn[message.TxnID]; ok {
		return existing, nil
	}
	m.nextID++
	eventID := ref.MustParseEventID(fmt.Sprintf("$event-%d", m.nextID))
	m.byTxn[message.TxnID] = eventID
	m.messages = append(m.messages, message)
	return eventID, nil
}

func (m *fakeMessenger) SendMessage(_ context.Context, roomID ref.RoomID, transactionID string, content messaging.MessageContent) (ref.EventID, error) {
	return m.record(sentMessage{Room: roomID, TxnID: transactionID, Content: content, Kind: "send"})
}

func (m *fakeMessenger) EditMessage(_ context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, content messaging.MessageContent) (ref.EventID, error) {
	return m.record(sentMessage{Room: roomID, TxnID: transactionID, Target: target, Content: messaging.NewEdit(target, content), Kind: "edit"})
}

func (m *fakeMessenger) RedactEvent(_ context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, reason string) (ref.EventID, error) {
	m.mu.Lock()
	failRedact := m.failRedact
	m.mu.Unlock()
	if failRedact != nil {
		return ref.EventID{}, failRedact
	}
	return m.record(sentMessage{Room: roomID, TxnID: transactionID, Target: target, Reason: reason, Kind: "redact"})
}

func (m *fakeMessenger) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *fakeMessenger) setFailRedact(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRedact = err
}

func (m *fakeMessenger) sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.messages...)
}

// eventForTxn returns the event ID the fake homeserver assigned to a
// transaction, or the zero EventID when the txn never landed.
func (m *fakeMessenger) eventForTxn(txnID string) ref.EventID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byTxn[txnID]
}

func (m *fakeMessenger) sentTo(room ref.RoomID) []sentMessage {
	var matching []sentMessage
	for _, message := range m.sent() {
		if message.Room == room {
			matching = append(matching, message)
		}
	}
	return matching
}

// testEnv bundles the service internals for dispatcher and summary
// tests, all driven by one fake clock.
type testEnv struct {
	clock      *clock.FakeClock
	store      *Store
	engine     *Engine
	dispatcher *Dispatcher
	messenger  *fakeMessenger
	policy     *policydef.Policy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.Fake(testEpoch)
	store := openTestStore(t, clk)
	policy := testPolicy()
	logger := slog.New(slog.DiscardHandler)
	engine := NewEngine(store, policy, clk, logger)
	messenger := newFakeMessenger()
	dispatcher := NewDispatcher(store, engine, policy, messenger, clk, logger, 30*time.Second)
	return &testEnv{
		clock:      clk,
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		messenger:  messenger,
		policy:     policy,
	}
}

func (e *testEnv) propose(t *testing.T, category string, formUp time.Time, title string) fleet.Fleet {
	t.Helper()
	f, err := e.engine.Propose(context.Background(), category, formUp, testDetails(title), false, false)
	if err != nil {
		t.Fatalf("proposing fleet: %v", err)
	}
	return f
}

func (e *testEnv) notificationMap(t *testing.T, fleetID int64) map[string]Notification {
	t.Helper()
	rows, err := e.store.Notifications(context.Background(), fleetID)
	if err != nil {
		t.Fatalf("loading notifications: %v", err)
	}
	byKey := make(map[string]Notification, len(rows))
	for _, row := range rows {
		byKey[string(row.Kind)+"/"+row.Destination.String()] = row
	}
	return byKey
}
