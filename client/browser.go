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
	"strings"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/storage"
)

// Geolocation reads the position from the browser
type Geolocation interface {
	CurrentPosition(ctx context.Context) (envelope.Location, error)
}

// Sharer is the browser's native share capability
type Sharer interface {
	Share(ctx context.Context, data envelope.ShareData) error
}

// Clipboard writes text to the system clipboard
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Permission is a browser notification permission state
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifications is the browser notification capability
type Notifications interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(title, body string, data map[string]any) error
}

// AlertFunc shows a blocking alert and returns once it's dismissed
type AlertFunc func(message string)

// ConfirmFunc shows a blocking confirm dialog and reports
// whether it was accepted
type ConfirmFunc func(message string) bool

// Browser holds what standalone web content can use when no host
// is present. Nil fields are capabilities the browser lacks.
type Browser struct {
	Geolocation   Geolocation
	Storage       storage.Store
	Share         Sharer
	Clipboard     Clipboard
	Notifications Notifications
	Alert         AlertFunc
	Confirm       ConfirmFunc
}

func (b Browser) alert(msg string) {
	if b.Alert != nil {
		b.Alert(msg)
	}
}

// shareText composes the text copied when sharing falls back
// to the clipboard
func shareText(data envelope.ShareData) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{data.Title, data.Text, data.URL} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}
