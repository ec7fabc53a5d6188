// Package miner drives the search: it draws salt batches from the
// allocator, dispatches them to the derivation engine, and hands matches
// to the reporter, until stopped.
package miner

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Philogy/create3crunch/internal/config"
	"github.com/Philogy/create3crunch/internal/logger"
	"github.com/Philogy/create3crunch/pkg/engine"
	"github.com/Philogy/create3crunch/pkg/pattern"
	"github.com/Philogy/create3crunch/pkg/reporter"
	"github.com/Philogy/create3crunch/pkg/salt"
	"github.com/Philogy/create3crunch/pkg/types"
)

// State is the dispatch loop's position in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateDispatching
	StateCollecting
	StateReporting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateCollecting:
		return "collecting"
	case StateReporting:
		return "reporting"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Miner is the host-side orchestrator. The loop itself is single-threaded;
// parallelism lives inside the device.
type Miner struct {
	cfg      *config.Config
	log      *logger.Logger
	rep      reporter.Reporter
	device   engine.Device
	alloc    *salt.Allocator
	owner    [20]byte
	state    atomic.Int32
	counters types.RunCounters
	done     chan struct{}
	once     sync.Once
}

// NewMiner wires the allocator, engine and reporter for the given
// configuration. The configuration must already have passed Validate.
func NewMiner(cfg *config.Config, rep reporter.Reporter, log *logger.Logger) (*Miner, error) {
	factory, err := cfg.FactoryAddress()
	if err != nil {
		return nil, err
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return nil, err
	}
	initCodeHash, err := cfg.InitCodeHashBytes()
	if err != nil {
		return nil, err
	}

	var patterns *pattern.Set
	if len(cfg.Patterns) > 0 {
		patterns, err = cfg.CompilePatterns()
		if err != nil {
			return nil, err
		}
	}

	alloc, err := salt.New(salt.Config{Owner: owner, Lanes: cfg.BatchSize})
	if err != nil {
		return nil, err
	}

	device, err := engine.New(engine.Config{
		Factory:       factory,
		Owner:         owner,
		InitCodeHash:  initCodeHash,
		MaxNonce:      cfg.MaxNonce,
		Patterns:      patterns,
		MinZeroBytes:  cfg.TotalZeros,
		Workers:       cfg.Workers,
		MatchCapacity: cfg.MatchCapacity,
	})
	if err != nil {
		return nil, err
	}

	m := &Miner{
		cfg:    cfg,
		log:    log,
		rep:    rep,
		device: device,
		alloc:  alloc,
		owner:  owner,
		done:   make(chan struct{}),
	}
	m.state.Store(int32(StateIdle))
	return m, nil
}

// Mine runs the dispatch loop until the context is cancelled, Stop is
// called, or a device failure occurs. Device failures are fatal and not
// retried; reporter failures are logged and skipped. Cancellation is
// honored at batch granularity.
func (m *Miner) Mine(ctx context.Context) (types.RunCounters, error) {
	m.counters = types.RunCounters{Started: time.Now()}
	lastLog := time.Now()
	interval := time.Duration(m.cfg.LogInterval) * time.Second

	defer m.state.Store(int32(StateStopped))

	for {
		select {
		case <-ctx.Done():
			m.log.Info("stopping: context cancelled")
			return m.counters, nil
		case <-m.done:
			m.log.Info("stopping: stop requested")
			return m.counters, nil
		default:
		}

		m.state.Store(int32(StateDispatching))
		batch, err := m.alloc.Next()
		if err != nil {
			if errors.Is(err, salt.ErrExhausted) {
				m.log.Info("salt counter range exhausted")
				return m.counters, nil
			}
			return m.counters, err
		}

		res, err := m.device.Dispatch(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				m.log.Info("stopping: context cancelled")
				return m.counters, nil
			}
			// device state is not trusted after a hard failure
			return m.counters, fmt.Errorf("miner: batch dispatch failed: %w", err)
		}

		m.state.Store(int32(StateCollecting))
		m.counters.Batches++
		m.counters.Salts += batch.Lanes
		m.counters.Addresses += batch.Lanes * (m.cfg.MaxNonce + 1)
		m.counters.Truncated += res.Truncated
		if res.Truncated > 0 {
			m.log.Warnf("match buffer overflow: %d match(es) dropped this batch", res.Truncated)
		}

		if len(res.Matches) > 0 {
			m.state.Store(int32(StateReporting))
			for _, match := range res.Matches {
				m.counters.Matches++
				if err := m.rep.Deliver(match); err != nil {
					m.log.Warnf("delivering match: %v", err)
				}
			}
		}

		if interval > 0 && time.Since(lastLog) >= interval {
			lastLog = time.Now()
			m.logProgress(batch)
		}
	}
}

// logProgress emits one progress line. Called from the loop itself so the
// counters need no synchronization.
func (m *Miner) logProgress(batch types.SaltBatch) {
	m.log.Infof("progress: %d salts, %d addresses, %.2fm addr/s, %d found, space 0x%s%sxxxxxxxxxxxxxxxx",
		m.counters.Salts,
		m.counters.Addresses,
		m.counters.Rate()/1e6,
		m.counters.Matches,
		hex.EncodeToString(m.owner[:]),
		hex.EncodeToString(batch.Segment[:]),
	)
}

// Stop requests a cooperative stop; the in-flight batch completes first.
func (m *Miner) Stop() {
	m.once.Do(func() { close(m.done) })
}

// State returns the loop's current state.
func (m *Miner) State() State {
	return State(m.state.Load())
}

// Close releases the device and allocator resources.
func (m *Miner) Close() error {
	return m.device.Close()
}
