package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"noote/client/internal/logging"
)

// ErrNoHistory is returned by Back when there is nothing to go back to.
var ErrNoHistory = errors.New("router: no history")

// Location is the currently shown view.
type Location struct {
	Path   string
	Route  Route
	Params map[string]string
}

// Transition describes one change of location. Hard marks a full session
// reset, after which views are expected to rebuild from scratch.
type Transition struct {
	From    Location
	To      Location
	Outcome Outcome
	Hard    bool
}

// Navigator keeps the current location and history. Every in-app move goes
// through the guard.
type Navigator struct {
	table  *Table
	guard  *Guard
	logger *logging.Logger

	mu        sync.Mutex
	current   Location
	history   []Location
	listeners map[int]func(Transition)
	nextID    int
}

func NewNavigator(table *Table, guard *Guard, logger *logging.Logger) *Navigator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Navigator{
		table:     table,
		guard:     guard,
		logger:    logger,
		listeners: make(map[int]func(Transition)),
	}
}

// Current returns the shown location. Its Path is empty before the first
// navigation.
func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// OnTransition registers fn for every transition and returns a function that
// removes it. Listeners run outside the navigator lock.
func (n *Navigator) OnTransition(fn func(Transition)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Push navigates to path through the guard and records the previous
// location in history.
func (n *Navigator) Push(ctx context.Context, path string) (Transition, error) {
	to, outcome, err := n.resolve(ctx, path)
	if err != nil {
		return Transition{}, err
	}
	n.mu.Lock()
	from := n.current
	if from.Path != "" && from.Path != to.Path {
		n.history = append(n.history, from)
	}
	n.current = to
	n.mu.Unlock()
	return n.emit(Transition{From: from, To: to, Outcome: outcome}), nil
}

// Back returns to the previous location. The guard is applied again since
// the session may have changed in the meantime.
func (n *Navigator) Back(ctx context.Context) (Transition, error) {
	n.mu.Lock()
	if len(n.history) == 0 {
		n.mu.Unlock()
		return Transition{}, ErrNoHistory
	}
	prev := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	n.mu.Unlock()

	to, outcome, err := n.resolve(ctx, prev.Path)
	if err != nil {
		return Transition{}, err
	}
	n.mu.Lock()
	from := n.current
	n.current = to
	n.mu.Unlock()
	return n.emit(Transition{From: from, To: to, Outcome: outcome}), nil
}

// HardReset is the full navigation used when the session is reset: history
// is discarded and the transition is flagged Hard. Resetting to the path
// already shown re-renders it without adding history.
func (n *Navigator) HardReset(ctx context.Context, path string) (Transition, error) {
	to, outcome, err := n.resolve(ctx, path)
	if err != nil {
		return Transition{}, err
	}
	n.mu.Lock()
	from := n.current
	n.current = to
	n.history = nil
	n.mu.Unlock()
	n.logger.Infof("hard navigation to %s", to.Path)
	return n.emit(Transition{From: from, To: to, Outcome: outcome, Hard: true}), nil
}

// CanGoBack reports whether Back has somewhere to go.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.history) > 0
}

func (n *Navigator) resolve(ctx context.Context, path string) (Location, Outcome, error) {
	m, err := n.table.Match(path)
	if err != nil {
		return Location{}, Outcome{}, err
	}
	outcome := n.guard.Evaluate(ctx, m)
	if outcome.Decision == Redirected {
		m, err = n.table.Match(outcome.Resolved)
		if err != nil {
			return Location{}, Outcome{}, fmt.Errorf("resolve redirect: %w", err)
		}
	}
	return Location{Path: m.Path, Route: m.Route, Params: m.Params}, outcome, nil
}

func (n *Navigator) emit(t Transition) Transition {
	n.mu.Lock()
	listeners := make([]func(Transition), 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()
	n.logger.Debugf("navigate %q -> %q (%s, hard=%t)", t.From.Path, t.To.Path, t.Outcome.Decision, t.Hard)
	for _, fn := range listeners {
		fn(t)
	}
	return t
}
