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

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/deeplink"
	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/internal/logging"
	"go.arsenm.dev/nativebridge/internal/payload"
	"go.arsenm.dev/nativebridge/transport"
)

// HandlerFunc performs a privileged operation for a request. The
// returned value is the result payload, either a typed struct or an
// envelope.Payload. It is ignored for fire-and-forget requests.
type HandlerFunc func(ctx context.Context, req envelope.Envelope) (any, error)

type handler struct {
	fn    HandlerFunc
	async bool
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger. Lines logged by web
// content go to a child named "webview".
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithTimeout bounds how long a handler may take to reply. A handler
// still running when it expires sees its context canceled, and the
// caller gets a failure result instead of waiting for its own timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithRouter sets the deep-link router used by OpenURL
func WithRouter(r deeplink.Router) Option {
	return func(d *Dispatcher) {
		d.router = r
	}
}

// Dispatcher receives envelopes from embedded web content, runs the
// matching capability and sends the result back. Every call goes
// Idle -> Dispatched -> Succeeded or Failed in one hop; there are no
// retries at this layer.
type Dispatcher struct {
	log     *zap.Logger
	webLog  *zap.Logger
	router  deeplink.Router
	timeout time.Duration

	handlersMtx sync.RWMutex
	handlers    map[string]handler

	connsMtx sync.Mutex
	conns    map[*conn]struct{}
}

// conn is one served transport
type conn struct {
	tr transport.Transport
	wg sync.WaitGroup
}

// New creates and returns a new dispatcher serving the
// capabilities of dev
func New(dev Device, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: map[string]handler{},
		conns:    map[*conn]struct{}{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrNop(d.log)
	d.webLog = d.log.Named("webview")

	d.registerDevice(dev)
	return d
}

// Register sets the handler for a request type, replacing any
// existing one. Requests are handled in arrival order on each
// connection.
func (d *Dispatcher) Register(typ string, fn HandlerFunc) error {
	return d.register(typ, fn, false)
}

// RegisterAsync is like Register, but the handler runs in its own
// goroutine so that slow capabilities, such as modals waiting on the
// user, don't hold up later requests on the connection.
func (d *Dispatcher) RegisterAsync(typ string, fn HandlerFunc) error {
	return d.register(typ, fn, true)
}

func (d *Dispatcher) register(typ string, fn HandlerFunc, async bool) error {
	spec, ok := envelope.Lookup(typ)
	if !ok || spec.Kind != envelope.KindRequest {
		return fmt.Errorf("register %q: not a request type", typ)
	}
	if fn == nil {
		return fmt.Errorf("register %q: nil handler", typ)
	}

	d.handlersMtx.Lock()
	d.handlers[typ] = handler{fn: fn, async: async}
	d.handlersMtx.Unlock()
	return nil
}

// Handle decodes a raw message and dispatches it. It returns the
// encoded reply, if any. Messages that aren't valid envelopes are
// discarded; nothing here panics or closes the channel.
func (d *Dispatcher) Handle(ctx context.Context, raw string) (string, bool) {
	env, h, ok := d.route(raw)
	if !ok {
		return "", false
	}
	return d.execute(ctx, env, h)
}

// route decodes raw and finds its handler
func (d *Dispatcher) route(raw string) (envelope.Envelope, handler, bool) {
	env, err := envelope.Decode(raw)
	if err != nil {
		d.log.Debug("discarding message", zap.Error(err))
		return env, handler{}, false
	}

	spec, _ := envelope.Lookup(env.Type)
	if spec.Kind != envelope.KindRequest {
		d.log.Warn("discarding non-request envelope", zap.String("type", env.Type))
		return env, handler{}, false
	}

	d.handlersMtx.RLock()
	h, ok := d.handlers[env.Type]
	d.handlersMtx.RUnlock()
	if !ok {
		// Answered with a failure so callers don't hang
		h = handler{fn: func(context.Context, envelope.Envelope) (any, error) {
			return nil, ErrUnsupported
		}}
	}
	return env, h, true
}

// execute runs the handler and builds the reply
func (d *Dispatcher) execute(ctx context.Context, env envelope.Envelope, h handler) (string, bool) {
	log := d.log.With(zap.String("type", env.Type), zap.String("id", env.ID))
	log.Debug("dispatched")

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res, err := d.call(ctx, h.fn, env)
	if err != nil {
		log.Warn("failed", zap.Error(err))
	} else {
		log.Debug("succeeded")
	}

	spec, _ := envelope.Lookup(env.Type)
	reply, ok := d.reply(spec, env, res, err)
	if !ok {
		return "", false
	}

	out, encErr := reply.Encode()
	if encErr != nil && spec.Expects() {
		// The result couldn't be sent, send the failure instead
		log.Error("failed to encode result", zap.Error(encErr))
		reply, _ = d.reply(spec, env, nil, encErr)
		out, encErr = reply.Encode()
	}
	if encErr != nil {
		log.Error("failed to encode reply", zap.Error(encErr))
		return "", false
	}
	return out, true
}

// reply builds the envelope sent back for a finished call
func (d *Dispatcher) reply(spec envelope.Spec, req envelope.Envelope, res any, err error) (envelope.Envelope, bool) {
	if !spec.Expects() {
		if err == nil {
			return envelope.Envelope{}, false
		}
		// Nobody is waiting, report the fault as an event
		return envelope.Envelope{
			Type: envelope.BridgeError,
			Payload: envelope.Payload{
				"error":   err.Error(),
				"request": req.Type,
			},
		}, true
	}

	if err != nil {
		return envelope.Envelope{
			ID:      req.ID,
			Type:    spec.Error,
			Payload: envelope.Payload{"error": err.Error()},
		}, true
	}

	p, perr := payload.From(res)
	if perr != nil {
		return envelope.Envelope{
			ID:      req.ID,
			Type:    spec.Error,
			Payload: envelope.Payload{"error": perr.Error()},
		}, true
	}
	return envelope.Envelope{ID: req.ID, Type: spec.Result, Payload: p}, true
}

// call runs fn, turning a panic into an error
func (d *Dispatcher) call(ctx context.Context, fn HandlerFunc, env envelope.Envelope) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler fault: %v", r)
		}
	}()
	return fn(ctx, env)
}

// Serve reads messages from tr and dispatches them until the
// transport is closed or ctx is canceled. A receive error other than
// a bad frame ends the connection and is returned. Serve waits for
// in-flight async handlers before returning.
func (d *Dispatcher) Serve(ctx context.Context, tr transport.Transport) error {
	c := &conn{tr: tr}

	d.connsMtx.Lock()
	d.conns[c] = struct{}{}
	d.connsMtx.Unlock()

	defer func() {
		d.connsMtx.Lock()
		delete(d.conns, c)
		d.connsMtx.Unlock()
		c.wg.Wait()
	}()

	for {
		raw, err := tr.Receive(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		} else if transport.Recoverable(err) {
			d.log.Warn("skipping bad frame", zap.Error(err))
			continue
		} else if errors.Is(err, transport.ErrClosed) {
			return nil
		} else if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		env, h, ok := d.route(raw)
		if !ok {
			continue
		}

		if h.async {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				d.send(ctx, c, env, h)
			}()
		} else {
			d.send(ctx, c, env, h)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, c *conn, env envelope.Envelope, h handler) {
	out, ok := d.execute(ctx, env, h)
	if !ok {
		return
	}
	if err := c.tr.Send(ctx, out); err != nil {
		d.log.Warn("failed to send reply", zap.String("type", env.Type), zap.Error(err))
	}
}

// Push sends an unsolicited event to every connection being served
func (d *Dispatcher) Push(ctx context.Context, typ string, data any) error {
	if spec, ok := envelope.Lookup(typ); !ok || spec.Kind != envelope.KindEvent {
		return fmt.Errorf("push %q: not an event type", typ)
	}

	p, err := payload.From(data)
	if err != nil {
		return err
	}
	out, err := envelope.Encode(typ, p)
	if err != nil {
		return err
	}

	d.connsMtx.Lock()
	conns := make([]*conn, 0, len(d.conns))
	for c := range d.conns {
		conns = append(conns, c)
	}
	d.connsMtx.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.tr.Send(ctx, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connections returns the number of transports being served
func (d *Dispatcher) Connections() int {
	d.connsMtx.Lock()
	defer d.connsMtx.Unlock()
	return len(d.conns)
}

// OpenURL pushes a DEEP_LINK event if uri uses the app's scheme.
// It reports whether the URI was a deep link.
func (d *Dispatcher) OpenURL(ctx context.Context, uri string) (bool, error) {
	route, ok := d.router.Parse(uri)
	if !ok {
		return false, nil
	}
	return true, d.Push(ctx, envelope.DeepLink, envelope.DeepLinkData{URL: uri, Route: route})
}
