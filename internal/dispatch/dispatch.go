// Package dispatch installs computed fold ranges into the remote editor
// over an established session.
//
// A dispatch cycle always clears the remote fold state and recreates it
// from the given set, so a successful Apply leaves the remote with exactly
// the set's folds regardless of what was installed before. Four transmission
// strategies are supported; they are observably equivalent and differ only
// in round-trip count and wire volume. After any failure the remote fold
// state must be treated as indeterminate: the dispatcher forgets the
// buffer's applied signature so the next Apply re-runs the full
// clear-and-recreate cycle.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"foldsync/internal/fold"
	"foldsync/internal/jsonrpc"
)

// Strategy selects how a fold set is transmitted
type Strategy string

// The four transmission strategies
const (
	// StrategySequential issues one round-trip per command
	StrategySequential Strategy = "sequential"
	// StrategyAtomic wraps all commands in one atomic multi-call
	StrategyAtomic Strategy = "atomic"
	// StrategyDelegatedHosted sends the pairs to the pre-registered
	// hosted-interpreter delegate
	StrategyDelegatedHosted Strategy = "delegated-hosted"
	// StrategyDelegatedCommand sends the pairs to the pre-registered
	// delegate in the editor's primary scripting facility
	StrategyDelegatedCommand Strategy = "delegated-command"
)

// Strategies lists every valid strategy
func Strategies() []Strategy {
	return []Strategy{StrategySequential, StrategyAtomic, StrategyDelegatedHosted, StrategyDelegatedCommand}
}

// ParseStrategy validates a strategy name
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// Names of the delegate procedures provisioned on the editor out of band.
// Both accept one argument: an ordered list of 1-based [start, end] pairs,
// and perform clear-then-recreate remotely.
const (
	hostedDelegateSnippet   = "setFolds(args[0])"
	commandDelegateFunction = "setfolds"
)

// DefaultCacheSize is the default capacity of the applied-signature cache
const DefaultCacheSize = 128

// Conn is the session surface the dispatcher needs: one request/response
// round-trip, and one atomic multi-call round-trip.
type Conn interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	CallAtomic(ctx context.Context, calls []jsonrpc.AtomicCall) (jsonrpc.AtomicResult, error)
}

// Dispatcher pushes fold sets to the editor using a fixed strategy chosen
// at construction. It borrows the session; it never reconnects or owns it.
// Dispatch cycles on one Dispatcher must not run concurrently.
type Dispatcher struct {
	conn     Conn
	strategy Strategy
	applied  *lru.Cache[int, string]
	logger   zerolog.Logger
}

// New creates a Dispatcher. cacheSize bounds the per-buffer applied-signature
// cache used to skip re-dispatch of unchanged sets; 0 uses DefaultCacheSize.
func New(conn Conn, strategy Strategy, cacheSize int, logger zerolog.Logger) (*Dispatcher, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	applied, err := lru.New[int, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create signature cache: %w", err)
	}

	return &Dispatcher{
		conn:     conn,
		strategy: strategy,
		applied:  applied,
		logger:   logger.With().Str("component", "dispatch").Str("strategy", string(strategy)).Logger(),
	}, nil
}

// Strategy returns the configured strategy
func (d *Dispatcher) Strategy() Strategy {
	return d.strategy
}

// Invalidate forgets the applied signature for a buffer, forcing the next
// Apply to dispatch even if the set is unchanged
func (d *Dispatcher) Invalidate(buffer int) {
	d.applied.Remove(buffer)
}

// Apply clears the remote fold state for the buffer and installs exactly
// the folds in set. It blocks until every round-trip completes or one
// fails; there is no internal timeout, so a hung remote blocks until ctx
// is cancelled.
func (d *Dispatcher) Apply(ctx context.Context, buffer int, set *fold.Set) error {
	sig := set.Signature()
	if prev, ok := d.applied.Get(buffer); ok && prev == sig {
		d.logger.Debug().Int("buffer", buffer).Msg("fold set unchanged, skipping dispatch")
		return nil
	}

	// Any failure leaves the remote state unknown, so the cached signature
	// is dropped up front and only restored on success.
	d.applied.Remove(buffer)

	var err error
	switch d.strategy {
	case StrategySequential:
		err = d.applySequential(ctx, set)
	case StrategyAtomic:
		err = d.applyAtomic(ctx, set)
	case StrategyDelegatedHosted:
		err = d.applyDelegatedHosted(ctx, set)
	case StrategyDelegatedCommand:
		err = d.applyDelegatedCommand(ctx, set)
	default:
		err = fmt.Errorf("unknown strategy %q", d.strategy)
	}
	if err != nil {
		return err
	}

	d.applied.Add(buffer, sig)
	d.logger.Debug().Int("buffer", buffer).Int("folds", set.Len()).Msg("fold set installed")
	return nil
}

// applySequential issues the clear and each fold creation as its own
// round-trip, aborting on the first failure
func (d *Dispatcher) applySequential(ctx context.Context, set *fold.Set) error {
	if err := d.command(ctx, fold.ClearCommand); err != nil {
		return newCommandError(fold.ClearCommand, nil, err)
	}
	for _, r := range set.Ranges() {
		cmd := r.Command()
		if err := d.command(ctx, cmd); err != nil {
			r := r
			return newCommandError(cmd, &r, err)
		}
	}
	return nil
}

// applyAtomic wraps the clear and every fold creation in one atomic
// multi-call. The remote executes entries in order and reports the index of
// the first failure; the whole dispatch is then treated as failed.
func (d *Dispatcher) applyAtomic(ctx context.Context, set *fold.Set) error {
	ranges := set.Ranges()
	calls := make([]jsonrpc.AtomicCall, 0, len(ranges)+1)
	calls = append(calls, jsonrpc.AtomicCall{
		Method: jsonrpc.MethodCommand,
		Params: []string{fold.ClearCommand},
	})
	for _, r := range ranges {
		calls = append(calls, jsonrpc.AtomicCall{
			Method: jsonrpc.MethodCommand,
			Params: []string{r.Command()},
		})
	}

	result, err := d.conn.CallAtomic(ctx, calls)
	if err != nil {
		return fmt.Errorf("atomic dispatch of %d folds failed: %w", len(ranges), err)
	}
	if result.Err == nil {
		return nil
	}

	idx := result.Err.Index
	cause := fmt.Errorf("%s", result.Err.Message)
	if idx == 0 {
		return newBatchEntryError(fold.ClearCommand, 0, nil, cause)
	}
	if idx >= 1 && idx <= len(ranges) {
		r := ranges[idx-1]
		return newBatchEntryError(r.Command(), idx, &r, cause)
	}
	return newBatchEntryError("", idx, nil, cause)
}

// applyDelegatedHosted sends all pairs to the hosted-interpreter delegate
// in one round-trip; the remote loop clears and recreates
func (d *Dispatcher) applyDelegatedHosted(ctx context.Context, set *fold.Set) error {
	params := []interface{}{hostedDelegateSnippet, []interface{}{set.Pairs()}}
	if _, err := d.conn.Call(ctx, jsonrpc.MethodExecHosted, params); err != nil {
		return newCommandError(hostedDelegateSnippet, nil, fmt.Errorf("delegated dispatch of %d folds: %w", set.Len(), err))
	}
	return nil
}

// applyDelegatedCommand sends all pairs to the delegate registered in the
// editor's primary scripting facility in one round-trip
func (d *Dispatcher) applyDelegatedCommand(ctx context.Context, set *fold.Set) error {
	params := []interface{}{commandDelegateFunction, []interface{}{set.Pairs()}}
	if _, err := d.conn.Call(ctx, jsonrpc.MethodCallFunction, params); err != nil {
		return newCommandError(commandDelegateFunction, nil, fmt.Errorf("delegated dispatch of %d folds: %w", set.Len(), err))
	}
	return nil
}

// command runs one command string on the editor
func (d *Dispatcher) command(ctx context.Context, cmd string) error {
	_, err := d.conn.Call(ctx, jsonrpc.MethodCommand, []string{cmd})
	return err
}
