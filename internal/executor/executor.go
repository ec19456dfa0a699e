// Package executor runs all network-client operations on a single
// long-lived worker goroutine and exposes a blocking call interface to
// the foreground. The worker exclusively owns the one active client
// instance, which makes the "at most one connected session" invariant
// enforceable in one place.
package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/telegram"
)

// ErrUnavailable is returned when the worker is no longer running, either
// after Stop or after an operation panicked. The connection layer must be
// re-initialized before further use.
var ErrUnavailable = errors.New("connection executor unavailable")

// ErrNotConnected is returned by Submit when no session is connected.
var ErrNotConnected = errors.New("no session connected")

// SessionActiveError is returned by Connect while a different session is
// still connected. The caller must Disconnect explicitly first.
type SessionActiveError struct {
	Active    string
	Requested string
}

func (e *SessionActiveError) Error() string {
	return fmt.Sprintf("session %q is still active, disconnect before connecting %q",
		e.Active, e.Requested)
}

// job is one unit of work handed to the worker. done is buffered so the
// worker can report a result and move on even when the submitting caller
// abandoned the await.
type job struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Executor owns the worker goroutine and the single active client.
type Executor struct {
	factory     telegram.Factory
	sessionsDir string
	log         *zap.Logger

	jobs chan *job
	quit chan struct{}
	dead chan struct{}

	mu      sync.Mutex
	started bool
	active  string

	// client is touched only from the worker goroutine.
	client telegram.Client
}

// New creates an executor that builds clients with factory, binding them
// to session artifacts under sessionsDir.
func New(factory telegram.Factory, sessionsDir string, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		factory:     factory,
		sessionsDir: sessionsDir,
		log:         log,
		jobs:        make(chan *job),
		quit:        make(chan struct{}),
		dead:        make(chan struct{}),
	}
}

// Start spawns the worker goroutine. Calling Start on a running or
// stopped executor is a no-op.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.loop()
}

// Stop shuts the worker down, disconnecting any active client.
// Submissions after Stop fail with ErrUnavailable.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
}

// Active returns the name of the currently connected session, or "".
func (e *Executor) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Executor) setActive(name string) {
	e.mu.Lock()
	e.active = name
	e.mu.Unlock()
}

// SessionPath returns the artifact path for a session name.
func (e *Executor) SessionPath(name string) string {
	return filepath.Join(e.sessionsDir, name+model.SessionSuffix)
}

func (e *Executor) loop() {
	defer close(e.dead)

	for {
		select {
		case j := <-e.jobs:
			if !e.runJob(j) {
				return
			}
		case <-e.quit:
			if e.client != nil {
				if err := e.client.Disconnect(context.Background()); err != nil {
					e.log.Warn("disconnect on shutdown failed", zap.Error(err))
				}
				e.client = nil
				e.setActive("")
			}
			return
		}
	}
}

// runJob executes one job, converting a panic into worker death so the
// client is never driven again from an unknown state. It reports whether
// the worker should keep running.
func (e *Executor) runJob(j *job) (alive bool) {
	alive = true
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("operation panicked, stopping worker", zap.Any("panic", r))
			// The client is in an unknown state and the worker is about
			// to die; drop the session so nobody tries to disconnect it.
			e.client = nil
			e.setActive("")
			j.done <- fmt.Errorf("%w: operation panicked: %v", ErrUnavailable, r)
			alive = false
		}
	}()
	j.done <- j.fn(context.Background())
	return alive
}

// submit hands fn to the worker and blocks until it completes, the
// executor dies, or ctx is cancelled. An abandoned result is simply never
// consumed; the buffered done channel keeps the worker from blocking.
func (e *Executor) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return ErrUnavailable
	}

	j := &job{fn: fn, done: make(chan error, 1)}

	select {
	case e.jobs <- j:
	case <-e.dead:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-e.dead:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect builds a client for the named session and establishes its
// transport connection on the worker. Connecting while a different
// session is active fails with SessionActiveError; reconnecting the same
// name replaces the client.
func (e *Executor) Connect(ctx context.Context, name string, apiID int, apiHash string) error {
	return e.submit(ctx, func(ctx context.Context) error {
		if e.client != nil && e.Active() != name {
			return &SessionActiveError{Active: e.Active(), Requested: name}
		}

		if e.client != nil {
			if err := e.client.Disconnect(ctx); err != nil {
				e.log.Warn("disconnect before reconnect failed",
					zap.String("session", name), zap.Error(err))
			}
			e.client = nil
			e.setActive("")
		}

		client, err := e.factory(e.SessionPath(name), apiID, apiHash)
		if err != nil {
			return &telegram.ConnectError{Session: name, Err: err}
		}
		if err := client.Connect(ctx); err != nil {
			return &telegram.ConnectError{Session: name, Err: err}
		}

		e.client = client
		e.setActive(name)
		e.log.Info("session connected", zap.String("session", name))
		return nil
	})
}

// Disconnect tears down the active client. Safe to call when none is
// connected.
func (e *Executor) Disconnect(ctx context.Context) error {
	return e.submit(ctx, func(ctx context.Context) error {
		if e.client == nil {
			return nil
		}
		name := e.Active()
		err := e.client.Disconnect(ctx)
		e.client = nil
		e.setActive("")
		if err != nil {
			return fmt.Errorf("disconnecting session %q: %w", name, err)
		}
		e.log.Info("session disconnected", zap.String("session", name))
		return nil
	})
}

// Submit runs fn on the worker with the active client.
func (e *Executor) Submit(ctx context.Context, fn func(ctx context.Context, c telegram.Client) error) error {
	return e.submit(ctx, func(ctx context.Context) error {
		if e.client == nil {
			return ErrNotConnected
		}
		return fn(ctx, e.client)
	})
}
