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

package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/internal/logging"
	"go.arsenm.dev/nativebridge/internal/payload"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/platform"
	"go.arsenm.dev/nativebridge/registry"
	"go.arsenm.dev/nativebridge/storage"
	"go.arsenm.dev/nativebridge/transport"
)

// DefaultTimeout is how long a call waits for the host to reply
const DefaultTimeout = 10 * time.Second

// Event is an unsolicited message from the host
type Event struct {
	Type string
	Data envelope.Payload
}

// EventSink receives every event from the host, in addition
// to any listeners registered with On or Once
type EventSink func(Event)

// Options configures a client
type Options struct {
	// Detector classifies the execution context.
	// platform.Default() is used if nil.
	Detector platform.Detector
	// Transport is the channel to the host, if there is one
	Transport transport.Transport
	// Browser is used when no host is reachable
	Browser Browser
	// Timeout bounds every round trip to the host.
	// DefaultTimeout is used if zero.
	Timeout   time.Duration
	Logger    *zap.Logger
	EventSink EventSink
	// Clock drives timeouts and standalone scheduling
	Clock clock.Clock
}

// Client is the web side of the bridge. Each capability call goes to
// the host when one is reachable and to the browser otherwise.
type Client struct {
	log     *zap.Logger
	tr      transport.Transport
	bridged bool
	kind    platform.Kind
	browser Browser
	timeout time.Duration
	clock   clock.Clock
	sink    EventSink

	// reg holds pending calls by correlation id
	// and event listeners by type
	reg *registry.Registry

	sched notify.Scheduler

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

// New creates and returns a new client. If a host is reachable, it
// starts reading replies and events from the transport.
func New(opts Options) *Client {
	c := &Client{
		log:     logging.OrNop(opts.Logger),
		tr:      opts.Transport,
		browser: opts.Browser,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		sink:    opts.EventSink,
		reg:     registry.New(),
		done:    make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.browser.Storage == nil {
		c.browser.Storage = storage.NewMemory()
	}

	det := opts.Detector
	if det == nil {
		det = platform.Default()
	}
	c.kind = det.Detect()

	switch {
	case c.kind.Bridged() && c.tr != nil:
		c.bridged = true
		go c.readLoop()
	case c.kind.Bridged():
		c.log.Warn("falling back to browser capabilities", zap.Stringer("context", c.kind), zap.Error(ErrTransportAbsent))
	}

	if !c.bridged {
		c.sched = notify.NewTimerScheduler(c.deliver, notify.WithClock(c.clock), notify.WithLogger(c.log))
	}

	c.log.Debug("client started", zap.Stringer("context", c.kind), zap.Bool("bridged", c.bridged))
	return c
}

// Context returns the execution context the client detected
func (c *Client) Context() platform.Kind {
	return c.kind
}

// Bridged reports whether calls go to the host
func (c *Client) Bridged() bool {
	return c.bridged
}

// On registers fn for every event of type typ.
// The returned id can be passed to Off.
func (c *Client) On(typ string, fn func(Event)) registry.ListenerID {
	return c.reg.On(typ, func(env envelope.Envelope) {
		fn(Event{Type: env.Type, Data: env.Payload})
	})
}

// Once registers fn for the next event of type typ
func (c *Client) Once(typ string, fn func(Event)) registry.ListenerID {
	return c.reg.Once(typ, func(env envelope.Envelope) {
		fn(Event{Type: env.Type, Data: env.Payload})
	})
}

// Off removes a listener registered with On or Once
func (c *Client) Off(typ string, id registry.ListenerID) bool {
	return c.reg.Off(typ, id)
}

// Close stops the client. Pending calls fail with ErrClosed and
// standalone scheduled notifications are dropped.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		if c.tr != nil {
			err = c.tr.Close()
		}
		if c.sched != nil {
			c.sched.Close()
		}
		c.reg.Clear()
	})
	return err
}

// send sends a request that expects no reply
func (c *Client) send(ctx context.Context, typ string, data any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	p, err := payload.From(data)
	if err != nil {
		return err
	}
	raw, err := envelope.Encode(typ, p)
	if err != nil {
		return err
	}
	if err := c.tr.Send(ctx, raw); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// call sends a request and waits for its reply. The reply is matched
// by correlation id, so concurrent calls of the same type each get
// their own answer.
func (c *Client) call(ctx context.Context, typ string, data any) (envelope.Envelope, error) {
	select {
	case <-c.done:
		return envelope.Envelope{}, ErrClosed
	default:
	}

	p, err := payload.From(data)
	if err != nil {
		return envelope.Envelope{}, err
	}

	// Create new v4 UUID
	id, err := uuid.NewV4()
	if err != nil {
		return envelope.Envelope{}, err
	}
	idStr := id.String()

	raw, err := envelope.Envelope{ID: idStr, Type: typ, Payload: p}.Encode()
	if err != nil {
		return envelope.Envelope{}, err
	}

	// Register before sending so a fast reply can't be missed
	replyCh := make(chan envelope.Envelope, 1)
	lid := c.reg.Once(idStr, func(env envelope.Envelope) {
		replyCh <- env
	})
	defer c.reg.Off(idStr, lid)

	if err := c.tr.Send(ctx, raw); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return envelope.Envelope{}, ErrClosed
		}
		return envelope.Envelope{}, err
	}

	timer := c.clock.Timer(c.timeout)
	defer timer.Stop()

	var reply envelope.Envelope
	select {
	case reply = <-replyCh:
	case <-ctx.Done():
		return envelope.Envelope{}, ctx.Err()
	case <-timer.C:
		c.log.Warn("no reply from host", zap.String("type", typ), zap.String("id", idStr))
		return envelope.Envelope{}, ErrTimeout
	case <-c.done:
		return envelope.Envelope{}, ErrClosed
	}

	spec, _ := envelope.Lookup(typ)
	switch reply.Type {
	case spec.Result:
		return reply, nil
	case envelope.BridgeError:
		return reply, &HostError{Request: typ, Message: reply.Payload.String("error")}
	case spec.Error:
		return reply, &CapabilityError{Capability: typ, Reason: reply.Payload.String("error")}
	default:
		return reply, ErrUnexpectedReply
	}
}

// readLoop routes everything the host sends until the
// transport closes
func (c *Client) readLoop() {
	defer c.Close()

	for {
		raw, err := c.tr.Receive(c.ctx)
		if c.ctx.Err() != nil {
			return
		} else if transport.Recoverable(err) {
			c.log.Warn("skipping bad frame", zap.Error(err))
			continue
		} else if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				c.log.Warn("connection to host failed", zap.Error(err))
			}
			return
		}

		env, err := envelope.Decode(raw)
		if err != nil {
			c.log.Debug("discarding message", zap.Error(err))
			continue
		}
		c.route(env)
	}
}

func (c *Client) route(env envelope.Envelope) {
	spec, _ := envelope.Lookup(env.Type)

	if env.ID != "" {
		if spec.Kind == envelope.KindRequest {
			c.log.Debug("discarding request from host", zap.String("type", env.Type))
			return
		}
		// Late replies, after a timeout or cancel, have no listener
		if c.reg.Emit(env.ID, env) == 0 {
			c.log.Debug("no pending call for reply", zap.String("type", env.Type), zap.String("id", env.ID))
		}
		return
	}

	if spec.Kind != envelope.KindEvent {
		c.log.Debug("discarding uncorrelated message", zap.String("type", env.Type))
		return
	}

	if env.Type == envelope.BridgeError {
		c.log.Warn("host failed request",
			zap.String("request", env.Payload.String("request")),
			zap.String("error", env.Payload.String("error")),
		)
	}

	c.reg.Emit(env.Type, env)
	if c.sink != nil {
		c.sink(Event{Type: env.Type, Data: env.Payload})
	}
}
