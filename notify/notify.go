/*
 *	nativebridge connects embedded web content to a native host.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package notify

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/internal/logging"
)

// Scheduler errors
var (
	ErrNegativeDelay = errors.New("notification delay is negative")
	ErrClosed        = errors.New("scheduler closed")
	ErrDuplicate     = errors.New("notification already scheduled")
)

// Handle identifies a scheduled notification
type Handle string

// Notification is a local notification waiting to be shown
type Notification struct {
	ID      Handle
	Title   string
	Body    string
	Delay   time.Duration
	Data    map[string]any
	FiresAt time.Time
}

// DeliverFunc shows a notification once it fires
type DeliverFunc func(Notification)

// Scheduler delivers notifications after a delay. Each scheduled
// notification fires exactly once unless it is cancelled first.
type Scheduler interface {
	Schedule(n Notification) (Handle, error)
	Cancel(h Handle) bool
	Pending() []Notification
	Close() error
}

// Option configures a scheduler
type Option func(*options)

type options struct {
	clock clock.Clock
	log   *zap.Logger
}

// WithClock sets the clock used for timers
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logging.OrNop(o.log)
	return o
}

// timers holds the armed timers shared by both schedulers
type timers struct {
	clock clock.Clock
	fire  func(Notification)

	mtx     sync.Mutex
	entries map[Handle]*entry
	closed  bool
}

type entry struct {
	n     Notification
	timer *clock.Timer
}

func newTimers(c clock.Clock, fire func(Notification)) *timers {
	return &timers{
		clock:   c,
		fire:    fire,
		entries: map[Handle]*entry{},
	}
}

// prepare fills in the handle and fire time of n
func (t *timers) prepare(n Notification) (Notification, error) {
	if n.Delay < 0 {
		return n, ErrNegativeDelay
	}
	if n.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return n, err
		}
		n.ID = Handle(id.String())
	}
	if n.FiresAt.IsZero() {
		n.FiresAt = t.clock.Now().Add(n.Delay)
	}
	return n, nil
}

func (t *timers) arm(n Notification) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.closed {
		return ErrClosed
	}
	if _, ok := t.entries[n.ID]; ok {
		return ErrDuplicate
	}

	e := &entry{n: n}
	t.entries[n.ID] = e
	e.timer = t.clock.AfterFunc(n.FiresAt.Sub(t.clock.Now()), func() {
		t.expire(n.ID)
	})
	return nil
}

// expire removes the entry before firing it, so a concurrent
// cancel and expiry can't both claim it
func (t *timers) expire(h Handle) {
	t.mtx.Lock()
	e, ok := t.entries[h]
	if !ok || t.closed {
		t.mtx.Unlock()
		return
	}
	delete(t.entries, h)
	t.mtx.Unlock()

	t.fire(e.n)
}

func (t *timers) has(h Handle) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	_, ok := t.entries[h]
	return ok
}

func (t *timers) disarm(h Handle) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	e, ok := t.entries[h]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, h)
	return true
}

func (t *timers) pending() []Notification {
	t.mtx.Lock()
	out := make([]Notification, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.n)
	}
	t.mtx.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FiresAt.Before(out[j].FiresAt)
	})
	return out
}

func (t *timers) close() {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.closed = true
	for h, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, h)
	}
}
