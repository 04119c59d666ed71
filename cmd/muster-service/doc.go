// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// muster-service is the fleet scheduling and notification daemon.
//
// It loads a JSONC policy document (categories, ping formats,
// destination rooms), opens a SQLite store for fleets and notification
// records, connects an authenticated Matrix session, and runs three
// loops until SIGINT/SIGTERM:
//
//   - the notification dispatcher, ticking every dispatch_interval,
//     which walks each fleet's lifecycle (create → reminder → form-up →
//     update/cancel) and delivers at most one message per notification
//     kind per destination, surviving restarts without double posts;
//   - the summary publisher, on a cron cadence, which reposts the
//     "upcoming fleets" view per destination and retires the previous
//     rendering;
//   - the control socket, a local Unix socket accepting one NDJSON
//     request per connection from the muster CLI (propose, reschedule,
//     edit, cancel, list, status).
//
// Configuration is a single YAML file passed via --config.
package main
