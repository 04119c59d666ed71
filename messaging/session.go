// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bureau-foundation/muster/lib/ref"
)

// Session is an authenticated Matrix session.
// It wraps a Client with an access token for making authenticated API calls.
// Sessions are lightweight and safe for concurrent use.
//
// Event-producing methods (SendMessage, EditMessage, RedactEvent) take a
// caller-supplied transaction ID rather than generating one. The dispatcher
// persists the transaction ID before the HTTP call and reuses it on retry,
// so a send that succeeded on the homeserver but failed on the response
// path is deduplicated server-side instead of producing a duplicate event.
type Session struct {
	client      *Client
	accessToken string
	userID      ref.UserID
	deviceID    string
}

// UserID returns the fully-qualified Matrix user ID (e.g., "@muster:muster.local").
func (s *Session) UserID() ref.UserID {
	return s.userID
}

// AccessToken returns the access token. Use only at boundaries that
// require the raw string (e.g., writing a token file).
func (s *Session) AccessToken() string {
	return s.accessToken
}

// DeviceID returns the device ID for this session. Empty for sessions
// created with SessionFromToken.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a request error to force
// the next request to establish a fresh TCP connection.
func (s *Session) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// WhoAmI validates the access token and returns the user ID.
// Useful for checking whether a stored token is still valid.
func (s *Session) WhoAmI(ctx context.Context) (ref.UserID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", s.accessToken, nil)
	if err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: whoami failed: %w", err)
	}

	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.UserID{}, fmt.Errorf("messaging: failed to parse whoami response: %w", err)
	}
	return response.UserID, nil
}

// JoinRoom joins a room by ID. Returns the room ID. Joining a room the
// session is already in succeeds. The service joins every destination
// room named in the policy document at startup.
func (s *Session) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID.String())
	body, err := s.client.doRequest(ctx, http.MethodPost, path, s.accessToken, struct{}{})
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: join room %s failed: %w", roomID, err)
	}

	var response struct {
		RoomID ref.RoomID `json:"room_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: failed to parse join response: %w", err)
	}
	return response.RoomID, nil
}

// JoinedRooms returns the list of room IDs the user has joined.
func (s *Session) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/joined_rooms", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: joined rooms failed: %w", err)
	}

	var response JoinedRoomsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse joined rooms response: %w", err)
	}
	return response.JoinedRooms, nil
}

// SendMessage sends a message to a room using Matrix's idempotent PUT.
// The transaction ID must be unique per logical send; retrying with the
// same transaction ID returns the original event instead of creating a
// duplicate. Returns the event ID.
func (s *Session) SendMessage(ctx context.Context, roomID ref.RoomID, transactionID string, content MessageContent) (ref.EventID, error) {
	if transactionID == "" {
		return ref.EventID{}, fmt.Errorf("messaging: transaction ID is required")
	}
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(transactionID),
	)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, content)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send message to %q failed: %w", roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// EditMessage replaces the content of a previously sent message using
// the m.replace relation. The target event keeps its event ID; clients
// render the new content in place. Returns the event ID of the edit
// event itself (needed only for audit; the target ID remains the handle
// for further edits).
func (s *Session) EditMessage(ctx context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, content MessageContent) (ref.EventID, error) {
	if target.IsZero() {
		return ref.EventID{}, fmt.Errorf("messaging: edit target event ID is required")
	}
	return s.SendMessage(ctx, roomID, transactionID, NewEdit(target, content))
}

// RedactEvent removes a previously sent event. Uses the idempotent PUT
// variant of the redaction endpoint with a caller-supplied transaction
// ID. Returns the event ID of the redaction event.
func (s *Session) RedactEvent(ctx context.Context, roomID ref.RoomID, transactionID string, target ref.EventID, reason string) (ref.EventID, error) {
	if transactionID == "" {
		return ref.EventID{}, fmt.Errorf("messaging: transaction ID is required")
	}
	if target.IsZero() {
		return ref.EventID{}, fmt.Errorf("messaging: redaction target event ID is required")
	}
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/redact/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(target.String()),
		url.PathEscape(transactionID),
	)

	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.accessToken, RedactRequest{Reason: reason})
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: redact %q in %q failed: %w", target, roomID, err)
	}

	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse redact response: %w", err)
	}
	return response.EventID, nil
}
