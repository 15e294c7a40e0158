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
	"errors"
	"fmt"
)

// Client error values
var (
	// ErrTransportAbsent means there is no channel to the host. It
	// triggers the standalone fallback and is never returned by calls.
	ErrTransportAbsent = errors.New("no transport to host")
	ErrTimeout         = errors.New("timed out waiting for host reply")
	ErrClosed          = errors.New("client closed")
	ErrUnexpectedReply = errors.New("unexpected reply type")
)

// CapabilityError is returned when a capability refuses a call,
// such as when the user denies a permission. It carries the
// capability's own error result.
type CapabilityError struct {
	Capability string
	Reason     string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Capability, e.Reason)
}

// HostError is returned when the host failed to carry out a call
type HostError struct {
	Request string
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host failed %s: %s", e.Request, e.Message)
}
