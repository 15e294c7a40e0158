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

// Typed payloads. Field names match the wire keys.

// Location is the payload of LOCATION_RESULT
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Failure is the payload of LOCATION_ERROR and BRIDGE_ERROR.
// Request is only set on fault reports for fire-and-forget requests.
type Failure struct {
	Error   string `json:"error"`
	Request string `json:"request,omitempty"`
}

// Token is the payload of SAVE_TOKEN and TOKEN_RESULT
type Token struct {
	Token string `json:"token"`
}

// ShareData is what gets shared
type ShareData struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// ShareRequest is the payload of SHARE
type ShareRequest struct {
	Data ShareData `json:"data"`
}

// Alert is the payload of SHOW_ALERT
type Alert struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	ButtonText string `json:"buttonText"`
}

// Confirm is the payload of SHOW_CONFIRM
type Confirm struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	ConfirmText string `json:"confirmText"`
	CancelText  string `json:"cancelText"`
}

// Button is the payload of ALERT_RESULT and CONFIRM_RESULT
type Button struct {
	Result string `json:"result"`
}

// Notification is the payload of SHOW_NOTIFICATION and
// SCHEDULE_NOTIFICATION. Delay is in seconds and only
// used when scheduling.
type Notification struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Delay float64        `json:"delay,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// LogLine is the payload of LOG
type LogLine struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// DeepLinkData is the payload of DEEP_LINK
type DeepLinkData struct {
	URL   string `json:"url"`
	Route string `json:"route"`
}

// State is the payload of APP_STATE
type State struct {
	State string `json:"state"`
}
