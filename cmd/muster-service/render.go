// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/muster/fleet"
	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/ref"
	"github.com/bureau-foundation/muster/messaging"
)

// timeLayout is how form-up times appear in message bodies. Everything
// is rendered in UTC; game time is UTC.
const timeLayout = "2006-01-02 15:04 UTC"

// renderAnnouncement builds the fleet's root announcement. The same
// rendering, re-run after an edit or reschedule, is sent as an
// in-place edit of the original event.
func renderAnnouncement(policy fleet.CategoryPolicy, format policydef.Format, f fleet.Fleet, now time.Time) messaging.MessageContent {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", policy.Name, f.Details.Title)
	fmt.Fprintf(&b, "Form-up: %s (%s)\n", f.FormUp.UTC().Format(timeLayout), formatCountdown(f.FormUp.Sub(now)))
	writeDetailFields(&b, format, f.Details)
	mentions, pingLine := mentionsFor(policy)
	if pingLine != "" {
		fmt.Fprintf(&b, "Ping: %s\n", pingLine)
	}

	content := messaging.NewTextMessage(strings.TrimRight(b.String(), "\n"))
	content.Mentions = mentions
	return content
}

// renderCancelled rewrites the announcement body for a cancelled
// fleet. Sent as an edit, so it must not re-ping anyone.
func renderCancelled(policy fleet.CategoryPolicy, format policydef.Format, f fleet.Fleet) messaging.MessageContent {
	var b strings.Builder
	fmt.Fprintf(&b, "[CANCELLED] %s: %s\n", policy.Name, f.Details.Title)
	fmt.Fprintf(&b, "Was forming up: %s\n", f.FormUp.UTC().Format(timeLayout))
	writeDetailFields(&b, format, f.Details)
	return messaging.NewTextMessage(strings.TrimRight(b.String(), "\n"))
}

// renderReminder builds the reminder ping. When the creation
// announcement was delivered, the reminder is a thread reply under it;
// for hidden fleets it stands alone and doubles as the first public
// message.
func renderReminder(policy fleet.CategoryPolicy, f fleet.Fleet, threadRoot ref.EventID, now time.Time) messaging.MessageContent {
	body := fmt.Sprintf("Reminder: %s forms up at %s (%s)",
		f.Details.Title, f.FormUp.UTC().Format(timeLayout), formatCountdown(f.FormUp.Sub(now)))
	mentions, pingLine := mentionsFor(policy)
	if pingLine != "" {
		body += "\nPing: " + pingLine
	}

	var content messaging.MessageContent
	if threadRoot.IsZero() {
		content = messaging.NewTextMessage(body)
	} else {
		content = messaging.NewThreadReply(threadRoot, body)
	}
	content.Mentions = mentions
	return content
}

// renderFormup builds the form-up ping.
func renderFormup(policy fleet.CategoryPolicy, f fleet.Fleet, threadRoot ref.EventID) messaging.MessageContent {
	body := fmt.Sprintf("Forming up now: %s", f.Details.Title)
	mentions, pingLine := mentionsFor(policy)
	if pingLine != "" {
		body += "\nPing: " + pingLine
	}

	var content messaging.MessageContent
	if threadRoot.IsZero() {
		content = messaging.NewTextMessage(body)
	} else {
		content = messaging.NewThreadReply(threadRoot, body)
	}
	content.Mentions = mentions
	return content
}

// renderRescheduleNotice announces a moved form-up time. Deliberately
// unpinged: the announcement edit carries the new time, and a
// reschedule should not cost a broadcast.
func renderRescheduleNotice(f fleet.Fleet, threadRoot ref.EventID, now time.Time) messaging.MessageContent {
	body := fmt.Sprintf("%s moved to %s (%s)",
		f.Details.Title, f.FormUp.UTC().Format(timeLayout), formatCountdown(f.FormUp.Sub(now)))
	if threadRoot.IsZero() {
		return messaging.NewTextMessage(body)
	}
	return messaging.NewThreadReply(threadRoot, body)
}

// renderCancelNotice announces a cancellation. Pinged: the people who
// were pinged about the fleet need to hear it is off.
func renderCancelNotice(policy fleet.CategoryPolicy, f fleet.Fleet, threadRoot ref.EventID) messaging.MessageContent {
	body := fmt.Sprintf("Cancelled: %s (was %s)",
		f.Details.Title, f.FormUp.UTC().Format(timeLayout))
	mentions, pingLine := mentionsFor(policy)
	if pingLine != "" {
		body += "\nPing: " + pingLine
	}

	var content messaging.MessageContent
	if threadRoot.IsZero() {
		content = messaging.NewTextMessage(body)
	} else {
		content = messaging.NewThreadReply(threadRoot, body)
	}
	content.Mentions = mentions
	return content
}

// renderSummary builds the per-destination summary message: the
// visible upcoming fleets ordered by form-up time. Never pinged.
func renderSummary(policy *policydef.Policy, fleets []fleet.Fleet, now time.Time) messaging.MessageContent {
	if len(fleets) == 0 {
		return messaging.NewTextMessage("Upcoming fleets: none scheduled.")
	}
	var b strings.Builder
	b.WriteString("Upcoming fleets:\n")
	for _, f := range fleets {
		name := f.CategoryID
		if category, ok := policy.Category(f.CategoryID); ok {
			name = category.Name
		}
		status := ""
		if f.Status == fleet.StatusFormingUp {
			status = " [forming up]"
		}
		fmt.Fprintf(&b, "%s (%s) %s: %s%s\n",
			f.FormUp.UTC().Format(timeLayout), formatCountdown(f.FormUp.Sub(now)),
			name, f.Details.Title, status)
	}
	return messaging.NewTextMessage(strings.TrimRight(b.String(), "\n"))
}

// writeDetailFields appends the fleet's detail fields in the ping
// format's declared order.
func writeDetailFields(b *strings.Builder, format policydef.Format, details fleet.Details) {
	values := make(map[string]string, len(details.Fields))
	for _, field := range details.Fields {
		values[field.Name] = field.Value
	}
	for _, field := range format.Fields {
		value, ok := values[field.Name]
		if !ok || value == "" {
			continue
		}
		label := field.Label
		if label == "" {
			label = field.Name
		}
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

// mentionsFor converts a category's ping roles into Matrix mentions
// plus a body-text ping line. The broadcast role becomes an @room
// mention; named roles are rendered as text only, since role-to-member
// resolution lives outside this service.
func mentionsFor(policy fleet.CategoryPolicy) (*messaging.Mentions, string) {
	if len(policy.PingRoles) == 0 {
		return nil, ""
	}
	if policy.PingsEveryone() {
		return &messaging.Mentions{Room: true}, "@room"
	}
	names := make([]string, len(policy.PingRoles))
	for i, role := range policy.PingRoles {
		names[i] = role.String()
	}
	return nil, strings.Join(names, ", ")
}

// formatCountdown renders a duration to minute precision for message
// bodies. Negative and sub-minute countdowns render as "now".
func formatCountdown(d time.Duration) string {
	if d < time.Minute {
		return "now"
	}
	d = d.Round(time.Minute)
	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	switch {
	case hours == 0:
		return fmt.Sprintf("in %dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("in %dh", hours)
	default:
		return fmt.Sprintf("in %dh%02dm", hours, minutes)
	}
}
