// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/nats-io/nats.go"
)

// NatsMessage wraps a NATS message to implement the domain.Message interface.
type NatsMessage struct {
	Msg *nats.Msg
}

// NewNatsMessage wraps a NATS message for the domain handlers.
func NewNatsMessage(msg *nats.Msg) *NatsMessage {
	return &NatsMessage{Msg: msg}
}

func (m *NatsMessage) Subject() string {
	return m.Msg.Subject
}

func (m *NatsMessage) Data() []byte {
	return m.Msg.Data
}

func (m *NatsMessage) Header(name string) string {
	return m.Msg.Header.Get(name)
}

func (m *NatsMessage) Respond(data []byte) error {
	return m.Msg.Respond(data)
}

func (m *NatsMessage) HasReply() bool {
	return m.Msg.Reply != ""
}
