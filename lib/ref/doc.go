// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier types for the references
// muster passes between its packages: Matrix room IDs, Matrix event
// IDs, Matrix user IDs, and policy role names.
//
// Each type is an immutable value wrapper around a string, constructed
// only through a Parse function that validates the structural format.
// Code that holds a ref type can rely on it being well-formed; raw
// strings are parsed exactly once, at the boundary where they enter
// the system (policy documents, config files, homeserver responses,
// control socket requests).
//
// All types implement encoding.TextMarshaler and TextUnmarshaler, so
// they serialize as plain strings in JSON and CBOR.
package ref
