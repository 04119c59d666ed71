// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"errors"
	"fmt"
	"time"
)

// Validation rejections. These are always recoverable: the proposal is
// refused with a specific reason and no state is created.
var (
	// ErrTooFarInAdvance rejects a form-up time beyond the category's
	// advance window.
	ErrTooFarInAdvance = errors.New("fleet: form-up time exceeds the category's advance window")

	// ErrInPast rejects a form-up time at or before the current instant.
	ErrInPast = errors.New("fleet: form-up time is not in the future")
)

// OverlapError rejects a proposal scheduled closer to an existing
// active fleet than the category's minimum spacing permits.
type OverlapError struct {
	// FleetID is the existing fleet the proposal collides with.
	FleetID int64
	// Gap is the absolute distance between the two form-up times.
	Gap time.Duration
	// MinSpacing is the category's required minimum.
	MinSpacing time.Duration
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("fleet: overlaps fleet %d (gap %s < min spacing %s)",
		e.FleetID, e.Gap, e.MinSpacing)
}

// CheckSchedule decides whether a proposed form-up time is acceptable
// under the category's policy, given the existing fleets of the same
// category. Rules are evaluated in order:
//
//  1. proposed more than MaxAdvance after now → ErrTooFarInAdvance.
//     Exactly MaxAdvance passes.
//  2. proposed at or before now → ErrInPast.
//  3. for every existing fleet that is still active (not cancelled,
//     not expired): a gap smaller than MinSpacing → *OverlapError.
//     A gap of exactly MinSpacing passes; MinSpacing zero skips the
//     rule entirely.
//
// For a reschedule, the caller excludes the fleet being moved from
// existing; a fleet never overlaps itself.
func CheckSchedule(policy CategoryPolicy, existing []Fleet, proposed, now time.Time) error {
	if proposed.Sub(now) > policy.MaxAdvance {
		return ErrTooFarInAdvance
	}
	if !proposed.After(now) {
		return ErrInPast
	}
	if policy.MinSpacing == 0 {
		return nil
	}
	for _, other := range existing {
		if !other.Active(now) {
			continue
		}
		gap := proposed.Sub(other.FormUp)
		if gap < 0 {
			gap = -gap
		}
		if gap < policy.MinSpacing {
			return &OverlapError{
				FleetID:    other.ID,
				Gap:        gap,
				MinSpacing: policy.MinSpacing,
			}
		}
	}
	return nil
}
