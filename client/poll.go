// Copyright 2024 The go-probeum Authors
// This file is part of the go-probeum library.
//
// The go-probeum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-probeum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-probeum library. If not, see <http://www.gnu.org/licenses/>.

// Package client holds helpers for programs submitting runtime transactions
// to a host and waiting for their outcome.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probeum/go-arch/common"
	"github.com/probeum/go-arch/core/outcome"
	"github.com/probeum/go-arch/core/types"
)

// ErrPollTimeout is returned when a transaction is still not final after the
// configured number of attempts.
var ErrPollTimeout = errors.New("timed out waiting for processed transaction")

// Reader is the part of a host the poller talks to.
type Reader interface {
	GetProcessedTransaction(txid common.Hash) (*types.ProcessedTransaction, error)
}

// PollConfig controls the backoff between polls.
type PollConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
}

// DefaultPollConfig polls for roughly a minute.
var DefaultPollConfig = PollConfig{
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	MaxRetries:      20,
}

func (c PollConfig) sanitize() PollConfig {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultPollConfig.InitialInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultPollConfig.MaxRetries
	}
	return c
}

// WaitForProcessed polls r until txid reaches a terminal status. Unknown ids
// keep being polled since the host may not have seen the transaction yet.
// The interval doubles after every attempt up to MaxInterval.
func WaitForProcessed(ctx context.Context, r Reader, txid common.Hash, cfg PollConfig) (*types.ProcessedTransaction, error) {
	cfg = cfg.sanitize()
	interval := cfg.InitialInterval

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		p, err := r.GetProcessedTransaction(txid)
		switch {
		case err == nil && p.Status.Terminal():
			return p, nil
		case err == nil:
			log.Trace("Transaction still processing", "txid", txid, "attempt", attempt)
		case errors.Is(err, outcome.ErrNotFound):
			log.Trace("Transaction not yet known", "txid", txid, "attempt", attempt)
		default:
			return nil, err
		}
		if attempt == cfg.MaxRetries-1 {
			break
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		if interval *= 2; interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrPollTimeout, txid, cfg.MaxRetries)
}
