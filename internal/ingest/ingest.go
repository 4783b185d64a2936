// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the Ingestor (C4): a reconnecting
// message-bus subscriber that parses line-oriented records and pushes
// them into the rolling buffer and the log broadcaster.
package ingest

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/flywatch/flywatch/internal/broadcast"
	"github.com/flywatch/flywatch/internal/buffer"
	"github.com/flywatch/flywatch/internal/clock"
	"github.com/flywatch/flywatch/internal/record"
)

// Backoff bounds for reconnect attempts (§4.3: base 1s, cap 30s, full
// jitter). Full jitter (as opposed to the unjittered doubling the
// buffer/shipper backoff in the retrieval pack uses) avoids every
// Flywatch instance retrying a flaky bus in lockstep.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Subscription is a live handle to a bus subscription: an ordered
// stream of UTF-8 lines. Close ends the subscription.
type Subscription interface {
	// Lines returns the channel of payloads as they arrive. The
	// channel is closed when the subscription ends, whether cleanly
	// or due to a transport error; the caller distinguishes the two
	// via Err (non-nil after the channel closes means the connection
	// dropped and the Ingestor should reconnect).
	Lines() <-chan string
	Err() error
	Close()
}

// Bus abstracts the message-bus platform so the Ingestor can be
// tested against a fake without a real NATS server, and so the
// connection/subject-filter/credential plumbing lives in one place.
type Bus interface {
	// Subscribe establishes a transport connection and subscribes to
	// the subject scoped by appName/orgSlug, returning a Subscription
	// that yields UTF-8 lines until it errors or ctx is cancelled.
	Subscribe(ctx context.Context, appName, orgSlug string) (Subscription, error)
}

// Counters tracks the ingest-path counters that SharedState exposes
// through MetricsSnapshot.
type Counters struct {
	MessagesForwarded  func()
	SubscriptionErrors func()
}

// ConnectionState is set by the Ingestor to reflect the last observed
// bus connectivity; SharedState surfaces it as bus_connected.
type ConnectionState interface {
	SetBusConnected(bool)
}

// Ingestor owns the reconnect loop. It pushes every successfully
// parsed Record into buf and publishes it to broadcaster; parse
// failures are logged and skipped without affecting the connection.
type Ingestor struct {
	bus         Bus
	appName     string
	orgSlug     string
	buf         *buffer.RollingBuffer
	broadcaster *broadcast.Broadcaster[record.Record]
	state       ConnectionState
	counters    Counters
	clk         clock.Clock
	logger      *slog.Logger
	rng         *rand.Rand
}

// New creates an Ingestor. appName/orgSlug scope the bus subscription
// subject (§6).
func New(bus Bus, appName, orgSlug string, buf *buffer.RollingBuffer, broadcaster *broadcast.Broadcaster[record.Record], state ConnectionState, counters Counters, clk clock.Clock, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		bus:         bus,
		appName:     appName,
		orgSlug:     orgSlug,
		buf:         buf,
		broadcaster: broadcaster,
		state:       state,
		counters:    counters,
		clk:         clk,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run connects, consumes, and reconnects with exponential backoff and
// full jitter until ctx is cancelled, at which point it returns
// cleanly (§4.3: "Shutdown is cooperative").
func (ing *Ingestor) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			ing.state.SetBusConnected(false)
			return
		}

		sub, err := ing.bus.Subscribe(ctx, ing.appName, ing.orgSlug)
		if err != nil {
			ing.state.SetBusConnected(false)
			ing.counters.SubscriptionErrors()
			ing.logger.Warn("ingest: subscribe failed, will retry", "error", err, "backoff", backoff)
			if !ing.sleepBackoff(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		ing.state.SetBusConnected(true)
		ing.logger.Info("ingest: bus connected")
		backoff = initialBackoff

		ing.consume(ctx, sub)
		sub.Close()

		ing.state.SetBusConnected(false)
		if ctx.Err() != nil {
			return
		}
		ing.counters.SubscriptionErrors()
		ing.logger.Warn("ingest: bus disconnected, reconnecting", "error", sub.Err())
		if !ing.sleepBackoff(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// consume drains sub until it closes or ctx is cancelled, parsing each
// line into a Record and publishing it. No record is ever silently
// dropped between parse and publish: a parse failure logs and
// continues without consuming a line that was never received.
func (ing *Ingestor) consume(ctx context.Context, sub Subscription) {
	lines := sub.Lines()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			rec, ok := record.Parse(line, ing.clk.Now())
			if !ok {
				ing.logger.Info("ingest: parse failure, skipping line", "line_length", len(line))
				continue
			}
			ing.buf.Push(rec)
			ing.counters.MessagesForwarded()
			ing.broadcaster.Publish(rec)

		case <-ctx.Done():
			return
		}
	}
}

// sleepBackoff waits for d, full-jittered to [0, d), or returns false
// early if ctx is cancelled.
func (ing *Ingestor) sleepBackoff(ctx context.Context, d time.Duration) bool {
	jittered := time.Duration(ing.rng.Int63n(int64(d)))
	select {
	case <-ing.clk.After(jittered):
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
