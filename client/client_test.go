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

package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.arsenm.dev/nativebridge/client"
	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/host"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/platform"
	"go.arsenm.dev/nativebridge/storage"
	"go.arsenm.dev/nativebridge/transport"
)

type locator struct {
	loc envelope.Location
	err error
}

func (l locator) Location(context.Context) (envelope.Location, error) {
	return l.loc, l.err
}

func (l locator) CurrentPosition(ctx context.Context) (envelope.Location, error) {
	return l.Location(ctx)
}

type dialogs struct {
	confirm bool
}

func (dialogs) Alert(context.Context, envelope.Alert) error { return nil }

func (d dialogs) Confirm(context.Context, envelope.Confirm) (bool, error) {
	return d.confirm, nil
}

type clipboard struct {
	text string
}

func (c *clipboard) WriteText(_ context.Context, text string) error {
	c.text = text
	return nil
}

type notifications struct {
	mtx       sync.Mutex
	perm      client.Permission
	grant     client.Permission
	requested int
	shown     []string
}

func (n *notifications) Permission() client.Permission {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.perm
}

func (n *notifications) RequestPermission(context.Context) (client.Permission, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.requested++
	n.perm = n.grant
	return n.perm, nil
}

func (n *notifications) Show(title, _ string, _ map[string]any) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.shown = append(n.shown, title)
	return nil
}

func (n *notifications) count() int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return len(n.shown)
}

type alerts struct {
	mtx  sync.Mutex
	msgs []string
}

func (a *alerts) alert(msg string) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.msgs = append(a.msgs, msg)
}

func standalone(t *testing.T, b client.Browser, opts ...func(*client.Options)) *client.Client {
	t.Helper()
	o := client.Options{Detector: platform.Static(platform.StandaloneWeb), Browser: b}
	for _, opt := range opts {
		opt(&o)
	}
	c := client.New(o)
	t.Cleanup(func() { c.Close() })
	return c
}

// bridged connects a client to a dispatcher over an in-memory pipe
func bridged(t *testing.T, dev host.Device, opts ...func(*client.Options)) (*client.Client, *host.Dispatcher) {
	t.Helper()
	web, native := transport.Pipe(16)

	d := host.New(dev)
	go d.Serve(context.Background(), native)

	o := client.Options{Detector: platform.Static(platform.EmbeddedWeb), Transport: web}
	for _, opt := range opts {
		opt(&o)
	}
	c := client.New(o)
	t.Cleanup(func() { c.Close() })
	return c, d
}

// rawHost connects a client to a pipe the test answers by hand
func rawHost(t *testing.T, opts ...func(*client.Options)) (*client.Client, transport.Transport) {
	t.Helper()
	web, native := transport.Pipe(16)

	o := client.Options{Detector: platform.Static(platform.EmbeddedWeb), Transport: web}
	for _, opt := range opts {
		opt(&o)
	}
	c := client.New(o)
	t.Cleanup(func() { c.Close() })
	return c, native
}

func nextRequest(t *testing.T, tr transport.Transport) envelope.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := tr.Receive(ctx)
	require.NoError(t, err)
	env, err := envelope.Decode(raw)
	require.NoError(t, err)
	return env
}

func reply(t *testing.T, tr transport.Transport, env envelope.Envelope) {
	t.Helper()
	raw, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, tr.Send(context.Background(), raw))
}

func TestTransportAbsentFallsBack(t *testing.T) {
	c := client.New(client.Options{Detector: platform.Static(platform.EmbeddedWeb)})
	defer c.Close()

	assert.False(t, c.Bridged())
	assert.Equal(t, platform.EmbeddedWeb, c.Context())

	ctx := context.Background()
	require.NoError(t, c.SaveToken(ctx, "abc"))
	tok, err := c.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestTokenStandalone(t *testing.T) {
	store := storage.NewMemory()
	c := standalone(t, client.Browser{Storage: store})
	ctx := context.Background()

	tok, err := c.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, c.SaveToken(ctx, "abc"))
	require.NoError(t, c.SaveToken(ctx, "abc"))

	tok, err = c.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	stored, ok, _ := store.Get(ctx, storage.TokenKey)
	assert.True(t, ok)
	assert.Equal(t, "abc", stored)
}

func TestTokenBridged(t *testing.T) {
	store := storage.NewMemory()
	c, _ := bridged(t, host.Device{Storage: store})
	ctx := context.Background()

	require.True(t, c.Bridged())
	require.NoError(t, c.SaveToken(ctx, "xyz"))

	tok, err := c.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	stored, _, _ := store.Get(ctx, storage.TokenKey)
	assert.Equal(t, "xyz", stored)
}

func TestGetLocationBridged(t *testing.T) {
	c, _ := bridged(t, host.Device{Locator: locator{loc: envelope.Location{Latitude: 40.7, Longitude: -74}}})

	loc, err := c.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, envelope.Location{Latitude: 40.7, Longitude: -74}, loc)
}

func TestGetLocationDenied(t *testing.T) {
	c, _ := bridged(t, host.Device{Locator: locator{err: host.ErrPermissionDenied}})

	_, err := c.GetLocation(context.Background())
	var capErr *client.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, envelope.GetLocation, capErr.Capability)
	assert.Contains(t, capErr.Reason, "permission denied")
}

func TestGetLocationStandalone(t *testing.T) {
	c := standalone(t, client.Browser{Geolocation: locator{loc: envelope.Location{Latitude: 1, Longitude: 2}}})
	loc, err := c.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, loc.Latitude)

	c = standalone(t, client.Browser{})
	_, err = c.GetLocation(context.Background())
	var capErr *client.CapabilityError
	assert.ErrorAs(t, err, &capErr)
}

// Replies are matched by correlation id. Two GET_LOCATION calls in
// flight at once must each get their own answer, even when the host
// answers them out of order.
func TestConcurrentSameTypeCallsDoNotCrossResolve(t *testing.T) {
	c, native := rawHost(t)

	type result struct {
		loc envelope.Location
		err error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		loc, err := c.GetLocation(context.Background())
		first <- result{loc, err}
	}()
	reqA := nextRequest(t, native)

	go func() {
		loc, err := c.GetLocation(context.Background())
		second <- result{loc, err}
	}()
	reqB := nextRequest(t, native)

	require.NotEmpty(t, reqA.ID)
	require.NotEqual(t, reqA.ID, reqB.ID)

	reply(t, native, envelope.Envelope{ID: reqB.ID, Type: envelope.LocationResult, Payload: envelope.Payload{"latitude": 2.0, "longitude": 2.0}})
	reply(t, native, envelope.Envelope{ID: reqA.ID, Type: envelope.LocationResult, Payload: envelope.Payload{"latitude": 1.0, "longitude": 1.0}})

	a, b := <-first, <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, 1.0, a.loc.Latitude)
	assert.Equal(t, 2.0, b.loc.Latitude)
}

func TestIgnoresNoiseOnChannel(t *testing.T) {
	c, native := rawHost(t)
	ctx := context.Background()

	done := make(chan string, 1)
	go func() {
		tok, _ := c.GetToken(ctx)
		done <- tok
	}()
	req := nextRequest(t, native)

	require.NoError(t, native.Send(ctx, "console.log: rendering"))
	require.NoError(t, native.Send(ctx, `{"type":"NOT_A_TYPE","id":"`+req.ID+`"}`))
	reply(t, native, envelope.Envelope{ID: "someone-else", Type: envelope.TokenResult, Payload: envelope.Payload{"token": "wrong"}})
	reply(t, native, envelope.Envelope{ID: req.ID, Type: envelope.TokenResult, Payload: envelope.Payload{"token": "right"}})

	assert.Equal(t, "right", <-done)
}

func TestTimeout(t *testing.T) {
	c, native := rawHost(t, func(o *client.Options) { o.Timeout = 20 * time.Millisecond })

	_, err := c.GetToken(context.Background())
	assert.ErrorIs(t, err, client.ErrTimeout)

	// A late reply is dropped without disturbing later calls
	req := nextRequest(t, native)
	reply(t, native, envelope.Envelope{ID: req.ID, Type: envelope.TokenResult, Payload: envelope.Payload{"token": "late"}})

	go func() {
		req := nextRequest(t, native)
		reply(t, native, envelope.Envelope{ID: req.ID, Type: envelope.TokenResult, Payload: envelope.Payload{"token": "on time"}})
	}()
	tok, err := c.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "on time", tok)
}

func TestContextCanceled(t *testing.T) {
	c, _ := rawHost(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.GetLocation(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseFailsPendingCalls(t *testing.T) {
	c, native := rawHost(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetToken(context.Background())
		errCh <- err
	}()
	nextRequest(t, native)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, <-errCh, client.ErrClosed)

	_, err := c.GetToken(context.Background())
	assert.ErrorIs(t, err, client.ErrClosed)
}

func TestHostError(t *testing.T) {
	c, native := rawHost(t)

	go func() {
		req := nextRequest(t, native)
		reply(t, native, envelope.Envelope{ID: req.ID, Type: envelope.BridgeError, Payload: envelope.Payload{"error": "keychain locked"}})
	}()

	_, err := c.GetToken(context.Background())
	var hostErr *client.HostError
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, envelope.GetToken, hostErr.Request)
	assert.Equal(t, "keychain locked", hostErr.Message)
}

func TestUnexpectedReply(t *testing.T) {
	c, native := rawHost(t)

	go func() {
		req := nextRequest(t, native)
		reply(t, native, envelope.Envelope{ID: req.ID, Type: envelope.LocationResult, Payload: envelope.Payload{"latitude": 1.0, "longitude": 1.0}})
	}()

	_, err := c.GetToken(context.Background())
	assert.ErrorIs(t, err, client.ErrUnexpectedReply)
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[bool]string{true: envelope.ButtonConfirm, false: envelope.ButtonCancel} {
		c, _ := bridged(t, host.Device{Dialogs: dialogs{confirm: answer}})

		got, err := c.ShowConfirm(context.Background(), "Leave?", "Leave this meetup?", "Leave", "Stay")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestConfirmStandalone(t *testing.T) {
	c := standalone(t, client.Browser{Confirm: func(string) bool { return false }})
	got, err := c.ShowConfirm(context.Background(), "t", "m", "y", "n")
	require.NoError(t, err)
	assert.Equal(t, envelope.ButtonCancel, got)
}

func TestShowAlert(t *testing.T) {
	c, _ := bridged(t, host.Device{Dialogs: dialogs{}})
	require.NoError(t, c.ShowAlert(context.Background(), "Saved", "Your RSVP was saved", "OK"))

	var a alerts
	c = standalone(t, client.Browser{Alert: a.alert})
	require.NoError(t, c.ShowAlert(context.Background(), "Saved", "Your RSVP was saved", "OK"))
	assert.Equal(t, []string{"Saved\nYour RSVP was saved"}, a.msgs)
}

func TestShareFallsBackToClipboard(t *testing.T) {
	var cb clipboard
	var a alerts
	c := standalone(t, client.Browser{Clipboard: &cb, Alert: a.alert})

	require.NoError(t, c.Share(context.Background(), "Go meetup", "Join us", "https://example.com/m/7"))
	assert.Equal(t, "Go meetup\nJoin us\nhttps://example.com/m/7", cb.text)
	assert.Len(t, a.msgs, 1)
}

func TestShareWithoutCapability(t *testing.T) {
	c := standalone(t, client.Browser{})
	err := c.Share(context.Background(), "t", "x", "u")
	var capErr *client.CapabilityError
	assert.ErrorAs(t, err, &capErr)
}

func TestHapticStandaloneIsNoop(t *testing.T) {
	c := standalone(t, client.Browser{})
	assert.NoError(t, c.Haptic(context.Background()))
}

func TestShowNotificationPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("granted", func(t *testing.T) {
		n := &notifications{perm: client.PermissionGranted}
		c := standalone(t, client.Browser{Notifications: n})
		require.NoError(t, c.ShowNotification(ctx, "Hi", "b", nil))
		assert.Equal(t, 1, n.count())
		assert.Equal(t, 0, n.requested)
	})

	t.Run("requested", func(t *testing.T) {
		n := &notifications{perm: client.PermissionDefault, grant: client.PermissionGranted}
		c := standalone(t, client.Browser{Notifications: n})
		require.NoError(t, c.ShowNotification(ctx, "Hi", "b", nil))
		assert.Equal(t, 1, n.count())
		assert.Equal(t, 1, n.requested)
	})

	t.Run("denied", func(t *testing.T) {
		var a alerts
		n := &notifications{perm: client.PermissionDefault, grant: client.PermissionDenied}
		c := standalone(t, client.Browser{Notifications: n, Alert: a.alert})
		require.NoError(t, c.ShowNotification(ctx, "Hi", "body", nil))
		assert.Equal(t, 0, n.count())
		assert.Equal(t, []string{"Hi\nbody"}, a.msgs)
	})
}

func TestScheduleNotificationStandalone(t *testing.T) {
	mock := clock.NewMock()
	n := &notifications{perm: client.PermissionGranted}
	c := standalone(t, client.Browser{Notifications: n}, func(o *client.Options) { o.Clock = mock })

	require.NoError(t, c.ScheduleNotification(context.Background(), "Starting", "in 5 minutes", 5*time.Minute, nil))

	mock.Add(4 * time.Minute)
	assert.Never(t, func() bool { return n.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	mock.Add(time.Minute)
	assert.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 5*time.Millisecond)

	mock.Add(time.Hour)
	assert.Never(t, func() bool { return n.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	assert.ErrorIs(t, c.ScheduleNotification(context.Background(), "t", "b", -time.Second, nil), notify.ErrNegativeDelay)
}

func TestScheduleNotificationBridged(t *testing.T) {
	var mtx sync.Mutex
	var fired []notify.Notification
	sched := notify.NewTimerScheduler(func(n notify.Notification) {
		mtx.Lock()
		defer mtx.Unlock()
		fired = append(fired, n)
	})
	defer sched.Close()

	c, _ := bridged(t, host.Device{Alarms: sched})
	require.NoError(t, c.ScheduleNotification(context.Background(), "Starting", "soon", 10*time.Millisecond, map[string]any{"meetupId": "7"}))

	assert.Eventually(t, func() bool {
		mtx.Lock()
		defer mtx.Unlock()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)

	mtx.Lock()
	defer mtx.Unlock()
	assert.Equal(t, "Starting", fired[0].Title)
	assert.Equal(t, "7", fired[0].Data["meetupId"])
}

func TestEvents(t *testing.T) {
	sunk := make(chan client.Event, 4)
	c, d := bridged(t, host.Device{}, func(o *client.Options) {
		o.EventSink = func(ev client.Event) { sunk <- ev }
	})

	onCh := make(chan client.Event, 4)
	c.On(envelope.DeepLink, func(ev client.Event) { onCh <- ev })
	var onceCalls int
	var mtx sync.Mutex
	c.Once(envelope.DeepLink, func(client.Event) {
		mtx.Lock()
		defer mtx.Unlock()
		onceCalls++
	})

	require.Eventually(t, func() bool { return d.Connections() == 1 }, time.Second, time.Millisecond)

	ctx := context.Background()
	for _, uri := range []string{"appscheme://meetup/1", "appscheme://meetup/2"} {
		ok, err := d.OpenURL(ctx, uri)
		require.NoError(t, err)
		require.True(t, ok)
	}

	for _, route := range []string{"/meetup/1", "/meetup/2"} {
		select {
		case ev := <-onCh:
			assert.Equal(t, envelope.DeepLink, ev.Type)
			assert.Equal(t, route, ev.Data.String("route"))
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
		ev := <-sunk
		assert.Equal(t, route, ev.Data.String("route"))
	}

	mtx.Lock()
	defer mtx.Unlock()
	assert.Equal(t, 1, onceCalls)
}

func TestHostFaultEvent(t *testing.T) {
	c, native := rawHost(t)

	got := make(chan client.Event, 1)
	c.On(envelope.BridgeError, func(ev client.Event) { got <- ev })

	reply(t, native, envelope.Envelope{Type: envelope.BridgeError, Payload: envelope.Payload{"request": envelope.Haptic, "error": "no motor"}})

	select {
	case ev := <-got:
		assert.Equal(t, envelope.Haptic, ev.Data.String("request"))
	case <-time.After(time.Second):
		t.Fatal("fault not delivered")
	}
}

func TestLog(t *testing.T) {
	c, native := rawHost(t)
	require.NoError(t, c.Log(context.Background(), "warn", "slow render"))

	env := nextRequest(t, native)
	assert.Equal(t, envelope.Log, env.Type)
	assert.Empty(t, env.ID)
	assert.Equal(t, "slow render", env.Payload.String("message"))
	assert.Equal(t, "warn", env.Payload.String("level"))
}

func TestHostClosing(t *testing.T) {
	c, native := rawHost(t)
	require.NoError(t, native.Close())

	_, err := c.GetToken(context.Background())
	assert.True(t, errors.Is(err, client.ErrClosed))

	// Fire-and-forget calls report the same error
	assert.ErrorIs(t, c.SaveToken(context.Background(), "abc"), client.ErrClosed)
	assert.ErrorIs(t, c.Haptic(context.Background()), client.ErrClosed)
}

// A host that breaks the WebSocket protocol closes the client
// instead of taking the process down with it
func TestHostProtocolError(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Wait for the request, then answer with a frame
		// that has every reserved bit set
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.UnderlyingConn().Write([]byte{0xF1, 0x00})
		conn.ReadMessage()
	}))
	defer srv.Close()

	ws, err := transport.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	c := client.New(client.Options{
		Detector:  platform.Static(platform.EmbeddedWeb),
		Transport: ws,
	})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = c.GetToken(ctx)
	assert.ErrorIs(t, err, client.ErrClosed)

	_, err = c.GetLocation(ctx)
	assert.ErrorIs(t, err, client.ErrClosed)
}
