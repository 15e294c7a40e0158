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

package envelope

// Version is the version of the message table below. It changes
// whenever a type is added or a payload schema changes.
const Version = 1

// Request types, sent by web content to the host
const (
	GetLocation          = "GET_LOCATION"
	SaveToken            = "SAVE_TOKEN"
	GetToken             = "GET_TOKEN"
	Share                = "SHARE"
	Haptic               = "HAPTIC"
	ShowAlert            = "SHOW_ALERT"
	ShowConfirm          = "SHOW_CONFIRM"
	ShowNotification     = "SHOW_NOTIFICATION"
	ScheduleNotification = "SCHEDULE_NOTIFICATION"
	Log                  = "LOG"
)

// Result types, sent by the host in reply to a request
const (
	LocationResult = "LOCATION_RESULT"
	LocationError  = "LOCATION_ERROR"
	TokenResult    = "TOKEN_RESULT"
	AlertResult    = "ALERT_RESULT"
	ConfirmResult  = "CONFIRM_RESULT"
	BridgeError    = "BRIDGE_ERROR"
)

// Event types, pushed by the host without being asked
const (
	DeepLink           = "DEEP_LINK"
	NotificationTapped = "NOTIFICATION_TAPPED"
	AppState           = "APP_STATE"
)

// Button values carried by ALERT_RESULT and CONFIRM_RESULT
const (
	ButtonOK      = "ok"
	ButtonConfirm = "confirm"
	ButtonCancel  = "cancel"
)

// Kind classifies a message type
type Kind uint8

const (
	KindRequest Kind = iota + 1
	KindResult
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResult:
		return "result"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Spec describes a message type. For requests, Result is the
// success type and Error the failure type. Both are empty for
// fire-and-forget requests.
type Spec struct {
	Kind   Kind
	Result string
	Error  string
}

// Expects reports whether the request is a round-trip call
func (s Spec) Expects() bool {
	return s.Result != ""
}

var specs = map[string]Spec{
	GetLocation:          {Kind: KindRequest, Result: LocationResult, Error: LocationError},
	SaveToken:            {Kind: KindRequest},
	GetToken:             {Kind: KindRequest, Result: TokenResult, Error: BridgeError},
	Share:                {Kind: KindRequest},
	Haptic:               {Kind: KindRequest},
	ShowAlert:            {Kind: KindRequest, Result: AlertResult, Error: BridgeError},
	ShowConfirm:          {Kind: KindRequest, Result: ConfirmResult, Error: BridgeError},
	ShowNotification:     {Kind: KindRequest},
	ScheduleNotification: {Kind: KindRequest},
	Log:                  {Kind: KindRequest},

	LocationResult: {Kind: KindResult},
	LocationError:  {Kind: KindResult},
	TokenResult:    {Kind: KindResult},
	AlertResult:    {Kind: KindResult},
	ConfirmResult:  {Kind: KindResult},

	// BRIDGE_ERROR is a reply when it carries an id
	// and a fault report event when it does not
	BridgeError: {Kind: KindEvent},

	DeepLink:           {Kind: KindEvent},
	NotificationTapped: {Kind: KindEvent},
	AppState:           {Kind: KindEvent},
}

// Lookup returns the spec for the given message type
func Lookup(typ string) (Spec, bool) {
	s, ok := specs[typ]
	return s, ok
}

// Known reports whether typ is part of the message table
func Known(typ string) bool {
	_, ok := specs[typ]
	return ok
}

// Answers reports whether a reply of type res is a valid
// answer to a request of type req
func Answers(req, res string) bool {
	s, ok := specs[req]
	if !ok || s.Kind != KindRequest || !s.Expects() {
		return false
	}
	return res == s.Result || res == s.Error
}

// Requests returns every request type in the table
func Requests() []string {
	out := make([]string, 0, 10)
	for typ, s := range specs {
		if s.Kind == KindRequest {
			out = append(out, typ)
		}
	}
	return out
}
