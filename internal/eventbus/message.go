/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus carries events between dynbias instances over Redis or
// NATS. Every bus also delivers locally and keeps working in-process when
// the remote transport is unavailable.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/dynbias/internal/events"
)

const subjectPrefix = "dynbias.events."

// message is the envelope published to the remote transport.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"` // For identifying source node
	MessageID string           `json:"message_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalMessage(data []byte) (*message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event message: %w", err)
	}
	return &msg, nil
}

// NodeID returns an identifier unique to this process, used to drop our own
// messages when they come back from the transport.
func NodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "dynbias"
	}
	return host + "-" + uuid.NewString()[:8]
}

func subject(eventType events.EventType) string {
	return subjectPrefix + string(eventType)
}

// relay decodes a remote message and republishes it on local unless it
// originated from nodeID. It reports whether the message was delivered.
func relay(data []byte, nodeID string, local events.Broker) (bool, error) {
	msg, err := unmarshalMessage(data)
	if err != nil {
		return false, err
	}
	if msg.NodeID == nodeID {
		return false, nil
	}
	local.Publish(msg.EventType, msg.Payload)
	return true, nil
}
