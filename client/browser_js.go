//go:build js && wasm

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
	"syscall/js"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/storage"
)

// DefaultBrowser returns the capabilities of the browser
// the module is running in
func DefaultBrowser() Browser {
	nav := js.Global().Get("navigator")

	b := Browser{
		Storage: storage.NewLocalStorage(),
		Alert: func(msg string) {
			js.Global().Call("alert", msg)
		},
		Confirm: func(msg string) bool {
			return js.Global().Call("confirm", msg).Truthy()
		},
	}
	if nav.Get("geolocation").Truthy() {
		b.Geolocation = jsGeolocation{nav.Get("geolocation")}
	}
	if nav.Get("share").Truthy() {
		b.Share = jsSharer{nav}
	}
	if nav.Get("clipboard").Truthy() {
		b.Clipboard = jsClipboard{nav.Get("clipboard")}
	}
	if n := js.Global().Get("Notification"); n.Truthy() {
		b.Notifications = jsNotifications{n}
	}
	return b
}

// DOMEventSink dispatches host events on window as a
// CustomEvent named "nativebridge" with {type, data} as detail
func DOMEventSink(ev Event) {
	js.Global().Call("dispatchEvent",
		js.Global().Get("CustomEvent").New("nativebridge", map[string]any{
			"detail": map[string]any{
				"type": ev.Type,
				"data": map[string]any(ev.Data),
			},
		}),
	)
}

type jsResult struct {
	val js.Value
	err error
}

// await waits for a callback pair to be invoked. start is given the
// resolve and reject functions.
func await(ctx context.Context, start func(resolve, reject js.Func)) (js.Value, error) {
	ch := make(chan jsResult, 1)
	resolve := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- jsResult{val: arg(args)}
		return nil
	})
	reject := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- jsResult{err: jsError(arg(args))}
		return nil
	})
	release := func() {
		resolve.Release()
		reject.Release()
	}

	start(resolve, reject)

	select {
	case res := <-ch:
		release()
		return res.val, res.err
	case <-ctx.Done():
		// The callbacks may still be invoked, release them once they are
		go func() {
			<-ch
			release()
		}()
		return js.Undefined(), ctx.Err()
	}
}

func awaitPromise(ctx context.Context, p js.Value) (js.Value, error) {
	return await(ctx, func(resolve, reject js.Func) {
		p.Call("then", resolve, reject)
	})
}

func arg(args []js.Value) js.Value {
	if len(args) == 0 {
		return js.Undefined()
	}
	return args[0]
}

func jsError(v js.Value) error {
	if v.Type() == js.TypeObject && v.Get("message").Truthy() {
		return errors.New(v.Get("message").String())
	}
	return errors.New(v.String())
}

type jsGeolocation struct {
	geo js.Value
}

func (g jsGeolocation) CurrentPosition(ctx context.Context) (envelope.Location, error) {
	pos, err := await(ctx, func(resolve, reject js.Func) {
		g.geo.Call("getCurrentPosition", resolve, reject)
	})
	if err != nil {
		if ctx.Err() != nil {
			return envelope.Location{}, err
		}
		return envelope.Location{}, &CapabilityError{Capability: envelope.GetLocation, Reason: err.Error()}
	}
	coords := pos.Get("coords")
	return envelope.Location{
		Latitude:  coords.Get("latitude").Float(),
		Longitude: coords.Get("longitude").Float(),
	}, nil
}

type jsSharer struct {
	nav js.Value
}

func (s jsSharer) Share(ctx context.Context, data envelope.ShareData) error {
	_, err := awaitPromise(ctx, s.nav.Call("share", map[string]any{
		"title": data.Title,
		"text":  data.Text,
		"url":   data.URL,
	}))
	return err
}

type jsClipboard struct {
	cb js.Value
}

func (c jsClipboard) WriteText(ctx context.Context, text string) error {
	_, err := awaitPromise(ctx, c.cb.Call("writeText", text))
	return err
}

type jsNotifications struct {
	n js.Value
}

func (n jsNotifications) Permission() Permission {
	return Permission(n.n.Get("permission").String())
}

func (n jsNotifications) RequestPermission(ctx context.Context) (Permission, error) {
	v, err := awaitPromise(ctx, n.n.Call("requestPermission"))
	if err != nil {
		return PermissionDefault, err
	}
	return Permission(v.String()), nil
}

func (n jsNotifications) Show(title, body string, data map[string]any) error {
	opts := map[string]any{"body": body}
	if data != nil {
		opts["data"] = data
	}
	n.n.New(title, opts)
	return nil
}
