// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/bureau-foundation/muster/lib/ipc"
)

// callService performs one request/response exchange with the control
// socket.
func callService(socketPath string, request ipc.Request) (ipc.Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("connecting to %s (is muster-service running?): %w", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(conn).Encode(request); err != nil {
		return ipc.Response{}, fmt.Errorf("sending request: %w", err)
	}
	var response ipc.Response
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return ipc.Response{}, fmt.Errorf("reading response: %w", err)
	}
	return response, nil
}

// responseError converts a failed response into a CLI error, with the
// rejection kind spelled out for schedule refusals.
func responseError(response ipc.Response) error {
	switch response.Reject {
	case ipc.RejectTooFarInAdvance:
		return fmt.Errorf("rejected: %s", response.Error)
	case ipc.RejectInPast:
		return fmt.Errorf("rejected: %s", response.Error)
	case ipc.RejectOverlap:
		return fmt.Errorf("rejected: %s (reschedule or cancel fleet %d first)",
			response.Error, response.OverlapFleetID)
	default:
		return fmt.Errorf("%s", response.Error)
	}
}
