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

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/storage"
)

// Capability errors. Device implementations wrap these
// so callers can tell a refusal from a fault.
var (
	ErrUnsupported      = errors.New("capability not supported by this host")
	ErrPermissionDenied = errors.New("permission denied")
)

// Locator reads the device position
type Locator interface {
	Location(ctx context.Context) (envelope.Location, error)
}

// Sharer opens the native share sheet
type Sharer interface {
	Share(ctx context.Context, data envelope.ShareData) error
}

// Haptics triggers haptic feedback
type Haptics interface {
	Impact(ctx context.Context) error
}

// Dialogs shows native modals. Both methods block until
// the user dismisses the modal.
type Dialogs interface {
	Alert(ctx context.Context, a envelope.Alert) error
	// Confirm reports true if the confirm button was pressed
	Confirm(ctx context.Context, c envelope.Confirm) (bool, error)
}

// Notifier shows a local notification immediately
type Notifier interface {
	Show(ctx context.Context, title, body string, data map[string]any) error
}

// Device is the set of privileged capabilities the host owns.
// A nil field means the capability is unsupported.
type Device struct {
	Locator  Locator
	Storage  storage.Store
	Sharer   Sharer
	Haptics  Haptics
	Dialogs  Dialogs
	Notifier Notifier
	// Alarms must be durable, such as a notify.AlarmScheduler
	Alarms notify.Scheduler
}
