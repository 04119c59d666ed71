// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// SocketDir creates a temporary directory in /tmp suitable for Unix
// domain sockets and removes it when the test completes.
//
// Unix domain sockets have a 108-byte path limit (sun_path in
// sockaddr_un). Test runners may set TMPDIR to deeply nested paths
// that exceed this limit, making t.TempDir() unsuitable for socket
// files. This helper always uses /tmp.
func SocketDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("/tmp", "muster-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
