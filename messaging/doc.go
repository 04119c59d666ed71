// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the subset of the Matrix client-server API
// that muster uses to announce fleets.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client holding the homeserver URL and HTTP transport. [Session]
// wraps a Client with an access token for the authenticated operations
// the notification dispatcher needs: sending messages, editing them in
// place (m.replace), redacting them, joining destination rooms, and
// validating the token (WhoAmI).
//
// Every event-producing method takes a caller-supplied transaction ID
// and uses Matrix's idempotent PUT endpoints. The dispatcher persists
// the transaction ID before attempting a send and reuses it on retry,
// which makes "sent but crashed before recording the result" safe: the
// homeserver recognizes the repeated transaction ID and returns the
// original event instead of creating a duplicate. This is the transport
// half of muster's at-most-once delivery guarantee; the other half is
// the notification table in the store.
//
// All API errors are returned as [*MatrixError] with the standard Matrix
// error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status code.
// [IsMatrixError] tests for a specific error code; [IsRetryable]
// classifies failures for the dispatcher's retry loop. Request URLs are
// built by string concatenation rather than url.URL to avoid
// double-encoding of path segments.
package messaging
