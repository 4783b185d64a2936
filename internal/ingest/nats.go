// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSBus is the production Bus. Each Subscribe call opens its own
// NATS connection, closed again with the Subscription. Subjects are scoped "flywatch.logs.<orgSlug>.<appName>"
// so multiple tenants and apps can share a bus without cross-talk.
type NATSBus struct {
	url   string
	token string
}

// NewNATSBus creates a NATSBus. Connection is lazy: Subscribe dials on
// first use and on every reconnect attempt, matching the Ingestor's
// own backoff loop rather than layering a second one inside the
// client.
func NewNATSBus(url, token string) *NATSBus {
	return &NATSBus{url: url, token: token}
}

func (b *NATSBus) Subscribe(ctx context.Context, appName, orgSlug string) (Subscription, error) {
	opts := []nats.Option{nats.Name("flywatch"), nats.NoReconnect()}
	if b.token != "" {
		opts = append(opts, nats.Token(b.token))
	}

	conn, err := nats.Connect(b.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("ingest: connect to bus: %w", err)
	}

	subject := fmt.Sprintf("flywatch.logs.%s.%s", orgSlug, appName)
	lines := make(chan string, 256)
	sub := &natsSubscription{lines: lines, conn: conn}

	handler := func(msg *nats.Msg) {
		select {
		case lines <- string(msg.Data):
		default:
			// Subscriber-side buffer full: drop rather than block the
			// NATS client's dispatch goroutine. The rolling buffer and
			// broadcaster downstream already tolerate loss; a stuck
			// dispatch goroutine would instead stall every subject on
			// this connection.
		}
	}

	natsSub, err := conn.Subscribe(subject, handler)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ingest: subscribe to %s: %w", subject, err)
	}
	sub.natsSub = natsSub

	conn.SetDisconnectErrHandler(func(_ *nats.Conn, disconnectErr error) {
		sub.setErr(disconnectErr)
	})
	conn.SetClosedHandler(func(_ *nats.Conn) {
		sub.setErr(conn.LastError())
		close(lines)
	})

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

type natsSubscription struct {
	lines   chan string
	conn    *nats.Conn
	natsSub *nats.Subscription
	err     error
}

func (s *natsSubscription) Lines() <-chan string { return s.lines }

func (s *natsSubscription) Err() error { return s.err }

func (s *natsSubscription) setErr(err error) {
	if err != nil {
		s.err = err
	}
}

func (s *natsSubscription) Close() {
	if s.natsSub != nil {
		_ = s.natsSub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
