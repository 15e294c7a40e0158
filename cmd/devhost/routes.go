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

package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/host"
	"go.arsenm.dev/nativebridge/notify"
)

func routes(r *gin.Engine, d *host.Dispatcher, alarms notify.Scheduler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"connections": d.Connections()})
	})

	r.GET("/bridge", gin.WrapH(d.WebSocketHandler()))

	// Simulates the OS handing the app a URL
	r.GET("/open", func(c *gin.Context) {
		uri := c.Query("uri")
		ok, err := d.OpenURL(c.Request.Context(), uri)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not a deep link", "uri": uri})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.GET("/notifications", func(c *gin.Context) {
		pending := alarms.Pending()
		out := make([]gin.H, 0, len(pending))
		for _, n := range pending {
			out = append(out, gin.H{
				"id":      n.ID,
				"title":   n.Title,
				"body":    n.Body,
				"data":    n.Data,
				"firesAt": n.FiresAt,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	r.DELETE("/notifications/:id", func(c *gin.Context) {
		if !alarms.Cancel(notify.Handle(c.Param("id"))) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such notification"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	// Simulates the user tapping a delivered notification
	r.POST("/notifications/tap", func(c *gin.Context) {
		var data map[string]any
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		push(c, d, envelope.NotificationTapped, envelope.Payload{"data": data})
	})

	r.POST("/state/:state", func(c *gin.Context) {
		state := c.Param("state")
		switch state {
		case "active", "background", "inactive":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
			return
		}
		push(c, d, envelope.AppState, envelope.State{State: state})
	})
}

func push(c *gin.Context, d *host.Dispatcher, typ string, data any) {
	if err := d.Push(c.Request.Context(), typ, data); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
