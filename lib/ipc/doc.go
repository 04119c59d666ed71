// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the JSON message types for the muster control
// socket protocol. Both cmd/muster-service (server) and cmd/muster
// (CLI) import this package so the wire types are defined once rather
// than mirrored.
//
// The protocol is one NDJSON exchange per connection: the client
// writes a single Request line, the service writes a single Response
// line and closes. The socket is a local Unix socket with local-only
// trust: there is no authentication, and filesystem permissions on the
// socket are the access control.
package ipc
