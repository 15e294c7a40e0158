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

package transport

import (
	"context"
	"sync"
	"syscall/js"
)

// WebView is the channel between embedded web content and the host
// embedding it. Messages are sent with postMessage on the object the
// host injects and arrive as message events on window.
type WebView struct {
	target js.Value
	onMsg  js.Func

	// Event callbacks must not block, so inbound
	// messages are queued without a bound
	mtx    sync.Mutex
	queue  []string
	notify chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebView binds to the host object named global, such as
// "NativeBridge". It returns ErrClosed if the host didn't inject it.
func NewWebView(global string) (*WebView, error) {
	target := js.Global().Get(global)
	if target.IsUndefined() || target.IsNull() {
		return nil, ErrClosed
	}

	wv := &WebView{
		target: target,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	wv.onMsg = js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		data := args[0].Get("data")
		if data.Type() != js.TypeString {
			return nil
		}
		wv.mtx.Lock()
		wv.queue = append(wv.queue, data.String())
		wv.mtx.Unlock()

		select {
		case wv.notify <- struct{}{}:
		default:
		}
		return nil
	})
	js.Global().Call("addEventListener", "message", wv.onMsg)
	return wv, nil
}

func (wv *WebView) Send(ctx context.Context, msg string) error {
	select {
	case <-wv.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	wv.target.Call("postMessage", msg)
	return nil
}

func (wv *WebView) Receive(ctx context.Context) (string, error) {
	for {
		wv.mtx.Lock()
		if len(wv.queue) > 0 {
			msg := wv.queue[0]
			wv.queue = wv.queue[1:]
			wv.mtx.Unlock()
			return msg, nil
		}
		wv.mtx.Unlock()

		select {
		case <-wv.notify:
		case <-wv.done:
			return "", ErrClosed
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (wv *WebView) Close() error {
	wv.closeOnce.Do(func() {
		close(wv.done)
		js.Global().Call("removeEventListener", "message", wv.onMsg)
		wv.onMsg.Release()
	})
	return nil
}
