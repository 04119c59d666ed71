// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/muster/lib/codec"
)

// Fingerprint produces a stable hash over a fleet's rendered content:
// the form-up time and the detail payload. The dispatcher compares the
// fingerprint recorded with the last delivered notification against
// the current one to detect edits that need a silent in-place update.
//
// The payload is encoded with deterministic CBOR before hashing, so
// the same logical content always produces the same fingerprint across
// process restarts.
func Fingerprint(formUp time.Time, details Details) (string, error) {
	payload := struct {
		FormUp int64   `json:"form_up"`
		Detail Details `json:"detail"`
	}{
		FormUp: formUp.UnixNano(),
		Detail: details,
	}
	encoded, err := codec.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fleet: encoding fingerprint payload: %w", err)
	}
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
