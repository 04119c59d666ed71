// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "github.com/bureau-foundation/muster/lib/ref"

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	DeviceID                 string `json:"device_id,omitempty"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// MessageContent is the content body of a Matrix message event
// (m.room.message). Threads are first-class: set RelatesTo to send a
// message within a thread. Edits set NewContent plus a RelatesTo with
// the m.replace relation; clients render NewContent in place of the
// target event, while Body carries the fallback for clients that don't
// understand edits.
type MessageContent struct {
	MsgType       string          `json:"msgtype"`
	Body          string          `json:"body"`
	Format        string          `json:"format,omitempty"`
	FormattedBody string          `json:"formatted_body,omitempty"`
	Mentions      *Mentions       `json:"m.mentions,omitempty"`
	RelatesTo     *RelatesTo      `json:"m.relates_to,omitempty"`
	NewContent    *MessageContent `json:"m.new_content,omitempty"`
}

// Mentions identifies who a message is addressed to, following the
// Matrix m.mentions format. UserIDs lists fully-qualified Matrix user
// IDs; Room true marks the message as an @room broadcast. A fleet
// announcement whose policy pings the broadcast role sets Room; one
// that pings named roles sets UserIDs to the roles' member lists.
type Mentions struct {
	UserIDs []string `json:"user_ids,omitempty"`
	Room    bool     `json:"room,omitempty"`
}

// RelatesTo expresses relationships between events.
// For threads, RelType is "m.thread" and EventID is the thread root.
// For edits, RelType is "m.replace" and EventID is the event being edited.
type RelatesTo struct {
	RelType       string      `json:"rel_type"`
	EventID       ref.EventID `json:"event_id"`
	IsFallingBack bool        `json:"is_falling_back,omitempty"`
	InReplyTo     *InReplyTo  `json:"m.in_reply_to,omitempty"`
}

// InReplyTo references a specific event being replied to within a thread.
type InReplyTo struct {
	EventID ref.EventID `json:"event_id"`
}

// NewTextMessage creates a plain text message with no thread context.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// NewThreadReply creates a message that replies within an existing thread.
// threadRootID is the event ID of the thread's root message. Reminder and
// form-up notifications are sent as thread replies to the fleet's creation
// announcement, keeping each fleet's traffic in one thread.
func NewThreadReply(threadRootID ref.EventID, body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
		RelatesTo: &RelatesTo{
			RelType:       "m.thread",
			EventID:       threadRootID,
			IsFallingBack: true,
			InReplyTo: &InReplyTo{
				EventID: threadRootID,
			},
		},
	}
}

// NewEdit wraps content as an m.replace edit of the target event. The
// fallback body is the conventional "* " prefix form. Mentions are kept
// only inside the new content so the edit does not re-ping anyone.
func NewEdit(target ref.EventID, content MessageContent) MessageContent {
	inner := content
	inner.RelatesTo = nil
	return MessageContent{
		MsgType: content.MsgType,
		Body:    "* " + content.Body,
		RelatesTo: &RelatesTo{
			RelType: "m.replace",
			EventID: target,
		},
		NewContent: &inner,
	}
}

// RedactRequest is the request body for event redaction.
type RedactRequest struct {
	Reason string `json:"reason,omitempty"`
}

// SendEventResponse is returned by SendMessage, EditMessage, and RedactEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// ServerVersionsResponse is returned by Client.ServerVersions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}
