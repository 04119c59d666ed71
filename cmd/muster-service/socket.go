// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/ipc"
)

// SocketServer answers control requests on a local Unix socket, one
// NDJSON exchange per connection. Filesystem permissions on the socket
// are the access control; there is no in-band authentication.
type SocketServer struct {
	engine *Engine
	policy *policydef.Policy
	clock  clock.Clock
	logger *slog.Logger

	// status fields, fixed at startup.
	userID           string
	dispatchInterval time.Duration
	summarySchedule  string
	startedAt        time.Time

	listener net.Listener
}

// NewSocketServer binds the socket, replacing any stale file left by a
// previous run.
func NewSocketServer(path string, engine *Engine, policy *policydef.Policy, clk clock.Clock, logger *slog.Logger, userID string, dispatchInterval time.Duration, summarySchedule string) (*SocketServer, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("socket: removing stale %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("socket: listen on %s: %w", path, err)
	}
	return &SocketServer{
		engine:           engine,
		policy:           policy,
		clock:            clk,
		logger:           logger,
		userID:           userID,
		dispatchInterval: dispatchInterval,
		summarySchedule:  summarySchedule,
		startedAt:        clk.Now().UTC(),
		listener:         listener,
	}, nil
}

// Addr returns the socket's address.
func (s *SocketServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the context is cancelled.
func (s *SocketServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("socket: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *SocketServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	var request ipc.Request
	if err := json.NewDecoder(conn).Decode(&request); err != nil {
		s.logger.Warn("control socket: malformed request", "error", err)
		json.NewEncoder(conn).Encode(ipc.Response{OK: false, Error: "malformed request: " + err.Error()})
		return
	}

	response := s.handle(ctx, request)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Warn("control socket: writing response", "error", err)
	}
}

func (s *SocketServer) handle(ctx context.Context, request ipc.Request) ipc.Response {
	switch request.Action {
	case ipc.ActionPropose:
		if request.FormUp == nil || request.Details == nil {
			return errorResponse(errors.New("propose requires form_up and details"))
		}
		f, err := s.engine.Propose(ctx, request.CategoryID, *request.FormUp,
			*request.Details, request.Hidden, request.DisableReminder)
		if err != nil {
			return errorResponse(err)
		}
		return s.fleetResponse(f)

	case ipc.ActionReschedule:
		if request.FormUp == nil {
			return errorResponse(errors.New("reschedule requires form_up"))
		}
		f, err := s.engine.Reschedule(ctx, request.FleetID, *request.FormUp)
		if err != nil {
			return errorResponse(err)
		}
		return s.fleetResponse(f)

	case ipc.ActionEdit:
		if request.Details == nil {
			return errorResponse(errors.New("edit requires details"))
		}
		f, err := s.engine.EditDetails(ctx, request.FleetID, *request.Details)
		if err != nil {
			return errorResponse(err)
		}
		return s.fleetResponse(f)

	case ipc.ActionCancel:
		f, err := s.engine.Cancel(ctx, request.FleetID)
		if err != nil {
			return errorResponse(err)
		}
		return s.fleetResponse(f)

	case ipc.ActionList:
		fleets, err := s.engine.ListActive(ctx, request.Categories)
		if err != nil {
			return errorResponse(err)
		}
		now := s.clock.Now()
		views := make([]ipc.FleetView, len(fleets))
		for i, f := range fleets {
			views[i] = s.fleetView(f, now)
		}
		return ipc.Response{OK: true, Fleets: views}

	case ipc.ActionStatus:
		active, err := s.engine.ListActive(ctx, nil)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.Response{OK: true, Status: &ipc.ServiceStatus{
			UserID:           s.userID,
			Scope:            s.policy.Scope.String(),
			Categories:       len(s.policy.Categories),
			ActiveFleets:     len(active),
			DispatchInterval: s.dispatchInterval.String(),
			SummarySchedule:  s.summarySchedule,
			StartedAt:        s.startedAt,
		}}

	default:
		return errorResponse(fmt.Errorf("unknown action %q", request.Action))
	}
}

func (s *SocketServer) fleetResponse(f fleet.Fleet) ipc.Response {
	view := s.fleetView(f, s.clock.Now())
	return ipc.Response{OK: true, Fleet: &view}
}

func (s *SocketServer) fleetView(f fleet.Fleet, now time.Time) ipc.FleetView {
	view := ipc.FleetView{
		ID:              f.ID,
		CategoryID:      f.CategoryID,
		FormUp:          f.FormUp,
		Countdown:       f.FormUp.Sub(now),
		Status:          f.Status,
		Details:         f.Details,
		Hidden:          f.Hidden,
		DisableReminder: f.DisableReminder,
		CreatedAt:       f.CreatedAt,
	}
	if category, ok := s.policy.Category(f.CategoryID); ok {
		view.CategoryName = category.Name
	}
	return view
}

// errorResponse maps engine and validation errors onto the wire
// response, classifying schedule rejections so the CLI can react per
// kind.
func errorResponse(err error) ipc.Response {
	response := ipc.Response{OK: false, Error: err.Error()}
	var overlap *fleet.OverlapError
	switch {
	case errors.Is(err, fleet.ErrTooFarInAdvance):
		response.Reject = ipc.RejectTooFarInAdvance
	case errors.Is(err, fleet.ErrInPast):
		response.Reject = ipc.RejectInPast
	case errors.As(err, &overlap):
		response.Reject = ipc.RejectOverlap
		response.OverlapFleetID = overlap.FleetID
	}
	return response
}
