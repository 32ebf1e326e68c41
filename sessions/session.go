package sessions

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ModProg/budlang/asm"
	"github.com/ModProg/budlang/budconfigs"
	"github.com/ModProg/budlang/budvm"
	"github.com/ModProg/budlang/logs"
	"github.com/ModProg/budlang/snapshots"
	"github.com/ModProg/budlang/storages"
)

// Session runs programs under the configured limits and persists executions
// that pause.
type Session struct {
	logger    logs.Logger
	limits    budconfigs.StackLimits
	budget    budconfigs.Budget
	storePath budconfigs.StorePath
	newSpan   logs.NewSpan

	mu    sync.Mutex
	store *storages.Store
}

func New(
	logger logs.Logger,
	limits budconfigs.StackLimits,
	budget budconfigs.Budget,
	storePath budconfigs.StorePath,
	newSpan logs.NewSpan,
) *Session {
	return &Session{
		logger:    logger,
		limits:    limits,
		budget:    budget,
		storePath: storePath,
		newSpan:   newSpan,
	}
}

// Outcome is the result of running or resuming. A paused outcome carries the
// id of the stored continuation instead of a value.
type Outcome struct {
	Value  budvm.Value
	Paused bool
	ID     string
}

func (o Outcome) String() string {
	if o.Paused {
		return fmt.Sprintf("paused: %s", o.ID)
	}
	return o.Value.String()
}

func (s *Session) openStore(ctx context.Context) (*storages.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	store, err := storages.Open(ctx, string(s.storePath))
	if err != nil {
		return nil, err
	}
	s.store = store
	return store, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

func environment(ctx context.Context, balance int) budvm.Environment {
	var inner budvm.Environment = budvm.Unbounded{}
	if balance > 0 {
		inner = budvm.NewBudgeted(balance)
	}
	return budvm.WithContext(ctx, inner)
}

func (s *Session) options(ctx context.Context, span logs.Span, balance int) []budvm.Option {
	return []budvm.Option{
		budvm.WithStackCapacity(s.limits.Initial, s.limits.Maximum),
		budvm.WithEnvironment(environment(ctx, balance)),
		budvm.WithLogger(s.logger.With(slog.String("span", string(span)))),
	}
}

// Run installs program into a fresh VM and runs its entry point. The
// execution pauses when the budget runs out or ctx is done.
func (s *Session) Run(ctx context.Context, program *asm.Program, note string) (ret Outcome, err error) {
	ctx, span := s.newSpan(ctx, "run")
	defer func() {
		err = logs.WrapSpan(ctx, err)
	}()
	vm := budvm.New(s.options(ctx, span, int(s.budget))...)
	program.Install(vm)
	value, err := vm.Run(program.Main, program.Variables)
	return s.settle(ctx, vm, "", note, value, err)
}

// Resume continues a stored execution with grant added to its remaining
// budget. A zero grant uses the configured budget.
func (s *Session) Resume(ctx context.Context, id string, grant int) (ret Outcome, err error) {
	ctx, span := s.newSpan(ctx, "resume")
	defer func() {
		err = logs.WrapSpan(ctx, err)
	}()
	store, err := s.openStore(ctx)
	if err != nil {
		return ret, err
	}
	data, err := store.Load(ctx, id)
	if err != nil {
		return ret, err
	}
	snapshot, err := snapshots.Decode(data)
	if err != nil {
		return ret, err
	}
	balance := snapshot.Budget + cmp.Or(grant, int(s.budget))
	vm, cont, err := snapshot.Restore(s.options(ctx, span, balance)...)
	if err != nil {
		return ret, err
	}
	s.logger.InfoContext(ctx, "resuming",
		slog.String("id", id),
		slog.Int("frames", cont.Depth()),
		slog.Int("budget", balance),
	)
	value, err := cont.Resume()
	return s.settle(ctx, vm, id, "", value, err)
}

// settle stores a paused execution, or removes the stored entry once an
// execution has completed or faulted.
func (s *Session) settle(ctx context.Context, vm *budvm.VM, id string, note string, value budvm.Value, err error) (Outcome, error) {
	// the store must stay reachable after a cancellation pause
	storeCtx := context.WithoutCancel(ctx)

	if cont, ok := budvm.AsPaused(err); ok {
		defer cont.Discard()
		data, err := snapshots.Encode(snapshots.Take(vm, cont))
		if err != nil {
			return Outcome{}, err
		}
		store, err := s.openStore(storeCtx)
		if err != nil {
			return Outcome{}, err
		}
		if id == "" {
			id, err = store.Save(storeCtx, data, note)
		} else {
			err = store.Replace(storeCtx, id, data)
		}
		if err != nil {
			return Outcome{}, err
		}
		s.logger.InfoContext(ctx, "execution paused",
			slog.String("id", id),
			slog.Int("frames", cont.Depth()),
			slog.Int("bytes", len(data)),
		)
		return Outcome{
			Paused: true,
			ID:     id,
		}, nil
	}

	if id != "" {
		store, storeErr := s.openStore(storeCtx)
		if storeErr == nil {
			storeErr = store.Delete(storeCtx, id)
		}
		if storeErr != nil && !errors.Is(storeErr, storages.ErrNotFound) {
			err = errors.Join(err, storeErr)
		}
	}

	if err != nil {
		var fault *budvm.Fault
		if errors.As(err, &fault) {
			s.logger.DebugContext(ctx, "execution faulted",
				slog.String("trace", fault.Trace()),
			)
		}
		return Outcome{}, err
	}
	return Outcome{
		Value: value,
	}, nil
}

// List returns stored executions, oldest first.
func (s *Session) List(ctx context.Context) ([]storages.Entry, error) {
	store, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.List(ctx)
}

// Drop discards a stored execution.
func (s *Session) Drop(ctx context.Context, id string) error {
	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "execution dropped", slog.String("id", id))
	return nil
}

// Inspect decodes a stored execution without resuming it.
func (s *Session) Inspect(ctx context.Context, id string) (ret snapshots.Snapshot, err error) {
	store, err := s.openStore(ctx)
	if err != nil {
		return ret, err
	}
	data, err := store.Load(ctx, id)
	if err != nil {
		return ret, err
	}
	return snapshots.Decode(data)
}
