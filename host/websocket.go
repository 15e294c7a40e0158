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
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"go.arsenm.dev/nativebridge/transport"
)

// WebSocketHandler serves the bridge over WebSocket, one text frame
// per envelope. This lets web content reach a host that isn't
// embedding it, such as a development host on the same machine.
func (d *Dispatcher) WebSocketHandler() http.Handler {
	// Create new WebSocket server
	return websocket.Server{
		Config: websocket.Config{
			Version: websocket.ProtocolVersionHybi13,
		},
		Handler: func(c *websocket.Conn) {
			d.log.Info("web content connected", zap.String("remote", c.Request().RemoteAddr))
			err := d.Serve(c.Request().Context(), transport.NewXWebSocket(c))
			if err != nil {
				d.log.Debug("connection ended", zap.Error(err))
			}
		},
	}
}
