// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package policydef provides parsing and validation for muster policy
// documents: the categories, ping formats, and destination audiences
// that drive the scheduling engine.
//
// Policy documents are authored on disk as JSONC files (JSON extended
// with comments and trailing commas). The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → raw Document
//  2. Compile (called by Parse): durations, role and room identifiers
//     validated and resolved into fleet.CategoryPolicy values
//
// The engine never sees the raw document, only the compiled [Policy],
// whose categories have already passed fleet.CategoryPolicy.Validate.
// Policy is read-only after load; changing the document requires a
// service restart, and destination changes apply only to fleets
// created afterwards.
package policydef
