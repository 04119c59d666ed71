// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides muster's standard CBOR encoding configuration.
//
// Muster uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the Matrix Client-Server API, the
//     control socket protocol, and CLI output.
//   - CBOR for internal byte-stable encoding, most importantly the
//     canonical encoding under content fingerprints.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, the property the
// fleet change-detection fingerprint depends on. Encoding a fleet's
// rendered content twice must yield identical bytes, or every
// dispatcher tick would see phantom edits.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
