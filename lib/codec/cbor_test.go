// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	// Map iteration order is randomized in Go; deterministic
	// encoding must still produce identical bytes across calls.
	value := map[string]any{
		"zeta":  1,
		"alpha": "x",
		"mid":   []string{"a", "b"},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic:\n%x\n%x", first, again)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	type payload struct {
		Name   string   `json:"name"`
		Count  int64    `json:"count"`
		Labels []string `json:"labels,omitempty"`
	}

	in := payload{Name: "strategic", Count: 42, Labels: []string{"a", "b"}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out payload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || len(out.Labels) != 2 {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestUnmarshalAnyMapType(t *testing.T) {
	data, err := Marshal(map[string]any{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}

	var out any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(map[string]any); !ok {
		t.Errorf("decoded any-typed map is %T, want map[string]any", out)
	}
}
