// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// muster is the operator CLI for the fleet scheduling service. It
// talks to a running muster-service over its control socket, one JSON
// request per invocation: propose, reschedule, edit, and cancel
// fleets, list the upcoming schedule, and inspect service status.
//
// The socket path comes from --socket or the MUSTER_SOCKET environment
// variable.
package main
