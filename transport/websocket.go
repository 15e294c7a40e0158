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
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	xwebsocket "golang.org/x/net/websocket"
)

// WebSocket is a Transport over a gorilla/websocket connection.
// Each message is a single text frame. It is used on the web side,
// which dials the host.
type WebSocket struct {
	conn     *websocket.Conn
	writeMtx sync.Mutex
}

// NewWebSocket wraps an established connection
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// Dial connects to a host bridge endpoint such as ws://127.0.0.1:8088/bridge
func Dial(ctx context.Context, url string, header http.Header) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

func (ws *WebSocket) Send(ctx context.Context, msg string) error {
	ws.writeMtx.Lock()
	defer ws.writeMtx.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		ws.conn.SetWriteDeadline(deadline)
		defer ws.conn.SetWriteDeadline(time.Time{})
	}

	err := ws.conn.WriteMessage(websocket.TextMessage, []byte(msg))
	if errors.Is(err, websocket.ErrCloseSent) {
		return ErrClosed
	}
	return closedOr(err)
}

func (ws *WebSocket) Receive(ctx context.Context) (string, error) {
	for {
		typ, data, err := ws.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return "", ErrClosed
			}
			// gorilla connections are unusable after any read error
			return "", fmt.Errorf("%w: %v", ErrClosed, err)
		}

		// Binary frames aren't part of the protocol
		if typ != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

func (ws *WebSocket) Close() error {
	ws.writeMtx.Lock()
	ws.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	ws.writeMtx.Unlock()
	return ws.conn.Close()
}

// XWebSocket is a Transport over a golang.org/x/net/websocket
// connection. It is used on the host side, which serves the bridge.
type XWebSocket struct {
	conn     *xwebsocket.Conn
	writeMtx sync.Mutex
}

// NewXWebSocket wraps a connection accepted by an x/net websocket server
func NewXWebSocket(conn *xwebsocket.Conn) *XWebSocket {
	return &XWebSocket{conn: conn}
}

func (ws *XWebSocket) Send(ctx context.Context, msg string) error {
	ws.writeMtx.Lock()
	defer ws.writeMtx.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		ws.conn.SetWriteDeadline(deadline)
		defer ws.conn.SetWriteDeadline(time.Time{})
	}

	return closedOr(xwebsocket.Message.Send(ws.conn, msg))
}

func (ws *XWebSocket) Receive(ctx context.Context) (string, error) {
	var msg string
	if err := xwebsocket.Message.Receive(ws.conn, &msg); err != nil {
		if err = closedOr(err); errors.Is(err, ErrClosed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return msg, nil
}

func (ws *XWebSocket) Close() error {
	return ws.conn.Close()
}
