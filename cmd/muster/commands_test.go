// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"
)

func TestParseFormUp(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	relative, err := parseFormUp("+2h30m", now)
	if err != nil {
		t.Fatalf("parseFormUp(+2h30m): %v", err)
	}
	if !relative.Equal(now.Add(2*time.Hour + 30*time.Minute)) {
		t.Errorf("relative time %s", relative)
	}

	absolute, err := parseFormUp("2026-03-14T18:00:00Z", now)
	if err != nil {
		t.Fatalf("parseFormUp(RFC3339): %v", err)
	}
	if !absolute.Equal(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("absolute time %s", absolute)
	}

	for _, bad := range []string{"tomorrow", "+2 hours", "18:00", ""} {
		if _, err := parseFormUp(bad, now); err == nil {
			t.Errorf("parseFormUp(%q) accepted", bad)
		}
	}
}

func TestBuildDetails(t *testing.T) {
	details, err := buildDetails("Roam", []string{"doctrine=Ferox", "fc=Aria"})
	if err != nil {
		t.Fatalf("buildDetails: %v", err)
	}
	if details.Title != "Roam" || len(details.Fields) != 2 {
		t.Fatalf("details %+v", details)
	}
	if details.Fields[0].Name != "doctrine" || details.Fields[0].Value != "Ferox" {
		t.Errorf("first field %+v", details.Fields[0])
	}

	if _, err := buildDetails("Roam", []string{"doctrine"}); err == nil {
		t.Error("field without '=' accepted")
	}
	if _, err := buildDetails("Roam", []string{"=Ferox"}); err == nil {
		t.Error("field without a name accepted")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run([]string{"launch"}); err == nil {
		t.Fatal("unknown command accepted")
	}
	if err := run([]string{"lis"}); err == nil {
		t.Fatal("prefix of a command accepted as-is")
	}
}
