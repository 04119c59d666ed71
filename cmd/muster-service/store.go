// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/ref"
	"github.com/bureau-foundation/muster/lib/sqlitepool"
)

// NotificationKind is one category of outbound message. Each kind is
// delivered at most once per fleet per destination, except update and
// reschedule, whose rows are regenerated per content change (the
// fingerprint column keys the generation).
type NotificationKind string

const (
	KindCreate       NotificationKind = "create"
	KindReminder     NotificationKind = "reminder"
	KindFormup       NotificationKind = "formup"
	KindUpdate       NotificationKind = "update"
	KindReschedule   NotificationKind = "reschedule"
	KindCancel       NotificationKind = "cancel"
	KindCancelNotice NotificationKind = "cancel_notice"
)

// NotificationState is the delivery state of one notification row.
//
// pending → attempted → confirmed is the normal path. A row is marked
// attempted (with its transaction ID) in the same transaction that
// commits the triggering state change, BEFORE the send; confirmed
// (with the resulting event ID) after the homeserver acknowledges.
// An attempted-unconfirmed row found on a later tick is retried with
// the stored transaction ID, which the homeserver deduplicates.
// Skipped marks work that will never happen (the creation message of
// a hidden fleet).
type NotificationState string

const (
	StatePending   NotificationState = "pending"
	StateAttempted NotificationState = "attempted"
	StateConfirmed NotificationState = "confirmed"
	StateSkipped   NotificationState = "skipped"
)

// Notification is one per-fleet, per-destination, per-kind delivery
// record.
type Notification struct {
	FleetID     int64
	Destination ref.RoomID
	Kind        NotificationKind
	State       NotificationState

	// TxnID is the Matrix transaction ID minted at first attempt and
	// reused on every retry.
	TxnID string

	// EventID is the delivered message's event ID (confirmed rows).
	EventID ref.EventID

	// Fingerprint is the content fingerprint the message rendered
	// (create/reminder/update rows) or the generation key (reschedule
	// rows).
	Fingerprint string

	UpdatedAt time.Time
}

// ErrFleetNotFound reports a fleet ID with no row.
var ErrFleetNotFound = errors.New("store: fleet not found")

// SummaryPointer tracks the live summary message for one destination.
type SummaryPointer struct {
	Destination ref.RoomID
	EventID     ref.EventID
	PublishedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS fleets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	form_up INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	details TEXT NOT NULL,
	hidden INTEGER NOT NULL DEFAULT 0,
	disable_reminder INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS fleets_by_category ON fleets (category_id, form_up);

CREATE TABLE IF NOT EXISTS notifications (
	fleet_id INTEGER NOT NULL,
	destination TEXT NOT NULL,
	kind TEXT NOT NULL,
	state TEXT NOT NULL,
	txn_id TEXT NOT NULL DEFAULT '',
	event_id TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (fleet_id, destination, kind)
);

CREATE TABLE IF NOT EXISTS summaries (
	destination TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	published_at INTEGER NOT NULL
);
`

// Store is the engine's durable state: fleets, notification records,
// and summary pointers, in one SQLite database. All multi-statement
// writes run in IMMEDIATE transactions so a dispatcher tick and a
// control socket operation never interleave half-written state.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// StoreConfig holds the parameters for opening a store.
type StoreConfig struct {
	// Path is the SQLite database file. The parent directory must exist.
	Path string

	// PoolSize is the connection pool size. Defaults to 4.
	PoolSize int

	// Clock provides timestamps for rows.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// OpenStore opens (creating if needed) the muster database and applies
// the schema.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// CreateFleet inserts a new fleet and seeds its notification records:
// one create row per destination, snapshotting the category's
// destination set at this moment. Hidden fleets get skipped create
// rows: the row still records the destination snapshot, but no
// creation message will ever be sent for it. Returns the fleet with
// its assigned ID.
func (s *Store) CreateFleet(ctx context.Context, f fleet.Fleet, destinations []ref.RoomID, fingerprint string) (fleet.Fleet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: create fleet: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	detailsJSON, err := json.Marshal(f.Details)
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: marshal details: %w", err)
	}

	err = sqlitex.Execute(conn, `INSERT INTO fleets
		(category_id, scope, form_up, created_at, status, details, hidden, disable_reminder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			f.CategoryID,
			f.Scope.String(),
			f.FormUp.UnixNano(),
			f.CreatedAt.UnixNano(),
			string(f.Status),
			string(detailsJSON),
			boolInt(f.Hidden),
			boolInt(f.DisableReminder),
		},
	})
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: insert fleet: %w", err)
	}
	f.ID = conn.LastInsertRowID()

	createState := StatePending
	if f.Hidden {
		createState = StateSkipped
	}
	now := s.clock.Now().UnixNano()
	for _, destination := range destinations {
		err = sqlitex.Execute(conn, `INSERT INTO notifications
			(fleet_id, destination, kind, state, fingerprint, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{
				f.ID,
				destination.String(),
				string(KindCreate),
				string(createState),
				fingerprint,
				now,
			},
		})
		if err != nil {
			return fleet.Fleet{}, fmt.Errorf("store: seed notification: %w", err)
		}
	}

	return f, nil
}

// GetFleet loads one fleet by ID.
func (s *Store) GetFleet(ctx context.Context, id int64) (fleet.Fleet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: get fleet: %w", err)
	}
	defer s.pool.Put(conn)

	var found bool
	var result fleet.Fleet
	err = sqlitex.Execute(conn, `SELECT id, category_id, scope, form_up, created_at,
		status, details, hidden, disable_reminder FROM fleets WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			var scanErr error
			result, scanErr = scanFleet(stmt)
			return scanErr
		},
	})
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: get fleet %d: %w", id, err)
	}
	if !found {
		return fleet.Fleet{}, fmt.Errorf("fleet %d: %w", id, ErrFleetNotFound)
	}
	return result, nil
}

// ListFleets returns every fleet, ordered by form-up time ascending.
// The fleet table stays small (expired fleets age out of relevance but
// are few); callers filter by status, category, and expiry in Go.
func (s *Store) ListFleets(ctx context.Context) ([]fleet.Fleet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list fleets: %w", err)
	}
	defer s.pool.Put(conn)

	var fleets []fleet.Fleet
	err = sqlitex.Execute(conn, `SELECT id, category_id, scope, form_up, created_at,
		status, details, hidden, disable_reminder FROM fleets ORDER BY form_up ASC`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			f, scanErr := scanFleet(stmt)
			if scanErr != nil {
				return scanErr
			}
			fleets = append(fleets, f)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: list fleets: %w", err)
	}
	return fleets, nil
}

// ListCategoryFleets returns the fleets of one category, ordered by
// form-up time. Used by schedule validation.
func (s *Store) ListCategoryFleets(ctx context.Context, categoryID string) ([]fleet.Fleet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list category fleets: %w", err)
	}
	defer s.pool.Put(conn)

	var fleets []fleet.Fleet
	err = sqlitex.Execute(conn, `SELECT id, category_id, scope, form_up, created_at,
		status, details, hidden, disable_reminder FROM fleets
		WHERE category_id = ? ORDER BY form_up ASC`, &sqlitex.ExecOptions{
		Args: []any{categoryID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			f, scanErr := scanFleet(stmt)
			if scanErr != nil {
				return scanErr
			}
			fleets = append(fleets, f)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: list fleets for %q: %w", categoryID, err)
	}
	return fleets, nil
}

// RescheduleFleet moves a fleet's form-up time, sets its recomputed
// status, and regenerates the per-destination reschedule notice rows
// in one transaction. generation keys the notice rows: a second
// reschedule overwrites the first's rows with fresh pending ones, so
// exactly one notice is delivered per accepted reschedule.
func (s *Store) RescheduleFleet(ctx context.Context, id int64, formUp time.Time, status fleet.Status, generation string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: reschedule fleet: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `UPDATE fleets SET form_up = ?, status = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{formUp.UnixNano(), string(status), id}})
	if err != nil {
		return fmt.Errorf("store: reschedule fleet %d: %w", id, err)
	}

	// Regenerate the notice rows for the fleet's destination snapshot.
	now := s.clock.Now().UnixNano()
	err = sqlitex.Execute(conn, `INSERT INTO notifications
		(fleet_id, destination, kind, state, txn_id, event_id, fingerprint, updated_at)
		SELECT fleet_id, destination, ?, ?, '', '', ?, ?
		FROM notifications WHERE fleet_id = ? AND kind = ?
		ON CONFLICT (fleet_id, destination, kind) DO UPDATE SET
			state = excluded.state,
			txn_id = '',
			event_id = '',
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at`, &sqlitex.ExecOptions{
		Args: []any{
			string(KindReschedule), string(StatePending), generation, now,
			id, string(KindCreate),
		},
	})
	if err != nil {
		return fmt.Errorf("store: reschedule notices for fleet %d: %w", id, err)
	}
	return nil
}

// EditFleetDetails replaces a fleet's detail payload.
func (s *Store) EditFleetDetails(ctx context.Context, id int64, details fleet.Details) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: edit fleet: %w", err)
	}
	defer s.pool.Put(conn)

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("store: marshal details: %w", err)
	}
	err = sqlitex.Execute(conn, `UPDATE fleets SET details = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{string(detailsJSON), id}})
	if err != nil {
		return fmt.Errorf("store: edit fleet %d: %w", id, err)
	}
	return nil
}

// SetFleetStatus commits a status change.
func (s *Store) SetFleetStatus(ctx context.Context, id int64, status fleet.Status) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: set status: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE fleets SET status = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{string(status), id}})
	if err != nil {
		return fmt.Errorf("store: set fleet %d status: %w", id, err)
	}
	return nil
}

// CommitTransition durably records a state-machine transition together
// with the attempted notification rows that announce it, in one
// transaction. The dispatcher calls this BEFORE sending anything: a
// transition that is not durably recorded must not produce messages,
// and a message must never be sent without its attempt row (the
// at-most-once guarantee across restarts).
//
// txns maps each destination to the transaction ID minted for its
// send. Destinations with an existing row for this kind (a retry after
// a partial failure) keep their original transaction ID.
func (s *Store) CommitTransition(ctx context.Context, id int64, status fleet.Status, kind NotificationKind, txns map[ref.RoomID]string, fingerprint string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: commit transition: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `UPDATE fleets SET status = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{string(status), id}})
	if err != nil {
		return fmt.Errorf("store: commit transition for fleet %d: %w", id, err)
	}

	now := s.clock.Now().UnixNano()
	for destination, txnID := range txns {
		err = sqlitex.Execute(conn, `INSERT INTO notifications
			(fleet_id, destination, kind, state, txn_id, fingerprint, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fleet_id, destination, kind) DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{
				id, destination.String(), string(kind), string(StateAttempted),
				txnID, fingerprint, now,
			},
		})
		if err != nil {
			return fmt.Errorf("store: attempt row for fleet %d: %w", id, err)
		}
	}
	return nil
}

// Notifications returns every notification row of one fleet.
func (s *Store) Notifications(ctx context.Context, fleetID int64) ([]Notification, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: notifications: %w", err)
	}
	defer s.pool.Put(conn)

	var rows []Notification
	err = sqlitex.Execute(conn, `SELECT fleet_id, destination, kind, state,
		txn_id, event_id, fingerprint, updated_at
		FROM notifications WHERE fleet_id = ?`, &sqlitex.ExecOptions{
		Args: []any{fleetID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row, scanErr := scanNotification(stmt)
			if scanErr != nil {
				return scanErr
			}
			rows = append(rows, row)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: notifications for fleet %d: %w", fleetID, err)
	}
	return rows, nil
}

// MarkAttempted upserts a notification row into the attempted state
// with its transaction ID, before the send. If the row already exists
// in the attempted state its transaction ID is preserved (retry); a
// new fingerprint on an update row replaces the row's generation.
func (s *Store) MarkAttempted(ctx context.Context, row Notification) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: mark attempted: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO notifications
		(fleet_id, destination, kind, state, txn_id, fingerprint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fleet_id, destination, kind) DO UPDATE SET
			state = excluded.state,
			txn_id = excluded.txn_id,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at`, &sqlitex.ExecOptions{
		Args: []any{
			row.FleetID, row.Destination.String(), string(row.Kind),
			string(StateAttempted), row.TxnID, row.Fingerprint,
			s.clock.Now().UnixNano(),
		},
	})
	if err != nil {
		return fmt.Errorf("store: mark attempted (%d, %s, %s): %w",
			row.FleetID, row.Destination, row.Kind, err)
	}
	return nil
}

// MarkSkipped upserts a notification row into the skipped state: the
// message will never be sent (a hidden fleet's announcement, or a
// notice with nothing public to follow up on).
func (s *Store) MarkSkipped(ctx context.Context, fleetID int64, destination ref.RoomID, kind NotificationKind) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: mark skipped: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO notifications
		(fleet_id, destination, kind, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (fleet_id, destination, kind) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`, &sqlitex.ExecOptions{
		Args: []any{
			fleetID, destination.String(), string(kind), string(StateSkipped),
			s.clock.Now().UnixNano(),
		},
	})
	if err != nil {
		return fmt.Errorf("store: mark skipped (%d, %s, %s): %w",
			fleetID, destination, kind, err)
	}
	return nil
}

// MarkConfirmed records the delivered event ID after the homeserver
// acknowledged the send.
func (s *Store) MarkConfirmed(ctx context.Context, fleetID int64, destination ref.RoomID, kind NotificationKind, eventID ref.EventID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: mark confirmed: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE notifications
		SET state = ?, event_id = ?, updated_at = ?
		WHERE fleet_id = ? AND destination = ? AND kind = ?`, &sqlitex.ExecOptions{
		Args: []any{
			string(StateConfirmed), eventID.String(), s.clock.Now().UnixNano(),
			fleetID, destination.String(), string(kind),
		},
	})
	if err != nil {
		return fmt.Errorf("store: mark confirmed (%d, %s, %s): %w",
			fleetID, destination, kind, err)
	}
	return nil
}

// SummaryPointers returns the live summary pointer per destination.
func (s *Store) SummaryPointers(ctx context.Context) (map[ref.RoomID]SummaryPointer, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: summary pointers: %w", err)
	}
	defer s.pool.Put(conn)

	pointers := make(map[ref.RoomID]SummaryPointer)
	err = sqlitex.Execute(conn, `SELECT destination, event_id, published_at FROM summaries`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				destination, parseErr := ref.ParseRoomID(stmt.ColumnText(0))
				if parseErr != nil {
					return parseErr
				}
				eventID, parseErr := ref.ParseEventID(stmt.ColumnText(1))
				if parseErr != nil {
					return parseErr
				}
				pointers[destination] = SummaryPointer{
					Destination: destination,
					EventID:     eventID,
					PublishedAt: time.Unix(0, stmt.ColumnInt64(2)).UTC(),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: summary pointers: %w", err)
	}
	return pointers, nil
}

// SetSummaryPointer records the newly published summary message for a
// destination, replacing any previous pointer.
func (s *Store) SetSummaryPointer(ctx context.Context, destination ref.RoomID, eventID ref.EventID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: set summary pointer: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO summaries (destination, event_id, published_at)
		VALUES (?, ?, ?)
		ON CONFLICT (destination) DO UPDATE SET
			event_id = excluded.event_id,
			published_at = excluded.published_at`, &sqlitex.ExecOptions{
		Args: []any{destination.String(), eventID.String(), s.clock.Now().UnixNano()},
	})
	if err != nil {
		return fmt.Errorf("store: set summary pointer for %s: %w", destination, err)
	}
	return nil
}

func scanFleet(stmt *sqlite.Stmt) (fleet.Fleet, error) {
	scope, err := ref.ParseScopeID(stmt.ColumnText(2))
	if err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: fleet %d scope: %w", stmt.ColumnInt64(0), err)
	}
	var details fleet.Details
	if err := json.Unmarshal([]byte(stmt.ColumnText(6)), &details); err != nil {
		return fleet.Fleet{}, fmt.Errorf("store: fleet %d details: %w", stmt.ColumnInt64(0), err)
	}
	return fleet.Fleet{
		ID:              stmt.ColumnInt64(0),
		CategoryID:      stmt.ColumnText(1),
		Scope:           scope,
		FormUp:          time.Unix(0, stmt.ColumnInt64(3)).UTC(),
		CreatedAt:       time.Unix(0, stmt.ColumnInt64(4)).UTC(),
		Status:          fleet.Status(stmt.ColumnText(5)),
		Details:         details,
		Hidden:          stmt.ColumnInt64(7) != 0,
		DisableReminder: stmt.ColumnInt64(8) != 0,
	}, nil
}

func scanNotification(stmt *sqlite.Stmt) (Notification, error) {
	destination, err := ref.ParseRoomID(stmt.ColumnText(1))
	if err != nil {
		return Notification{}, fmt.Errorf("store: notification destination: %w", err)
	}
	row := Notification{
		FleetID:     stmt.ColumnInt64(0),
		Destination: destination,
		Kind:        NotificationKind(stmt.ColumnText(2)),
		State:       NotificationState(stmt.ColumnText(3)),
		TxnID:       stmt.ColumnText(4),
		Fingerprint: stmt.ColumnText(6),
		UpdatedAt:   time.Unix(0, stmt.ColumnInt64(7)).UTC(),
	}
	if raw := stmt.ColumnText(5); raw != "" {
		eventID, parseErr := ref.ParseEventID(raw)
		if parseErr != nil {
			return Notification{}, fmt.Errorf("store: notification event ID: %w", parseErr)
		}
		row.EventID = eventID
	}
	return row, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
