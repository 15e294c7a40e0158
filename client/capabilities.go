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
	"time"

	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/internal/payload"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/storage"
)

// GetLocation returns the device position
func (c *Client) GetLocation(ctx context.Context) (envelope.Location, error) {
	var loc envelope.Location
	if !c.bridged {
		if c.browser.Geolocation == nil {
			return loc, &CapabilityError{Capability: envelope.GetLocation, Reason: "geolocation unavailable"}
		}
		return c.browser.Geolocation.CurrentPosition(ctx)
	}

	reply, err := c.call(ctx, envelope.GetLocation, nil)
	if err != nil {
		return loc, err
	}
	err = payload.Decode(reply.Payload, &loc)
	return loc, err
}

// SaveToken persists the auth token
func (c *Client) SaveToken(ctx context.Context, token string) error {
	if !c.bridged {
		return c.browser.Storage.Set(ctx, storage.TokenKey, token)
	}
	return c.send(ctx, envelope.SaveToken, envelope.Token{Token: token})
}

// GetToken returns the saved auth token, or an empty
// string if none was saved
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if !c.bridged {
		tok, _, err := c.browser.Storage.Get(ctx, storage.TokenKey)
		return tok, err
	}

	reply, err := c.call(ctx, envelope.GetToken, nil)
	if err != nil {
		return "", err
	}
	return reply.Payload.String("token"), nil
}

// Share shares a link. Without a host or a browser share capability,
// the composed text is copied to the clipboard and the user is told.
func (c *Client) Share(ctx context.Context, title, text, url string) error {
	data := envelope.ShareData{Title: title, Text: text, URL: url}
	if c.bridged {
		return c.send(ctx, envelope.Share, envelope.ShareRequest{Data: data})
	}

	if c.browser.Share != nil {
		return c.browser.Share.Share(ctx, data)
	}
	if c.browser.Clipboard == nil {
		return &CapabilityError{Capability: envelope.Share, Reason: "no share or clipboard capability"}
	}
	if err := c.browser.Clipboard.WriteText(ctx, shareText(data)); err != nil {
		return err
	}
	c.browser.alert("Link copied to clipboard")
	return nil
}

// Haptic triggers haptic feedback. It does nothing without a host.
func (c *Client) Haptic(ctx context.Context) error {
	if !c.bridged {
		return nil
	}
	return c.send(ctx, envelope.Haptic, nil)
}

// ShowAlert shows a modal with a single button and returns
// once it's dismissed
func (c *Client) ShowAlert(ctx context.Context, title, message, buttonText string) error {
	if !c.bridged {
		c.browser.alert(joinLines(title, message))
		return nil
	}

	_, err := c.call(ctx, envelope.ShowAlert, envelope.Alert{
		Title:      title,
		Message:    message,
		ButtonText: buttonText,
	})
	return err
}

// ShowConfirm shows a modal with confirm and cancel buttons. It
// returns envelope.ButtonConfirm or envelope.ButtonCancel.
func (c *Client) ShowConfirm(ctx context.Context, title, message, confirmText, cancelText string) (string, error) {
	if !c.bridged {
		if c.browser.Confirm == nil {
			return "", &CapabilityError{Capability: envelope.ShowConfirm, Reason: "confirm dialog unavailable"}
		}
		if c.browser.Confirm(joinLines(title, message)) {
			return envelope.ButtonConfirm, nil
		}
		return envelope.ButtonCancel, nil
	}

	reply, err := c.call(ctx, envelope.ShowConfirm, envelope.Confirm{
		Title:       title,
		Message:     message,
		ConfirmText: confirmText,
		CancelText:  cancelText,
	})
	if err != nil {
		return "", err
	}

	var btn envelope.Button
	if err := payload.Decode(reply.Payload, &btn); err != nil {
		return "", err
	}
	switch btn.Result {
	case envelope.ButtonConfirm, envelope.ButtonCancel:
		return btn.Result, nil
	default:
		return "", ErrUnexpectedReply
	}
}

// ShowNotification shows a local notification immediately.
//
// Without a host, the browser's notification capability is used if
// permission is granted, after asking for it if it hasn't been
// decided. A blocking alert is the last resort.
func (c *Client) ShowNotification(ctx context.Context, title, body string, data map[string]any) error {
	if c.bridged {
		return c.send(ctx, envelope.ShowNotification, envelope.Notification{Title: title, Body: body, Data: data})
	}

	n := c.browser.Notifications
	if n == nil {
		c.browser.alert(joinLines(title, body))
		return nil
	}

	perm := n.Permission()
	if perm == PermissionDefault {
		var err error
		perm, err = n.RequestPermission(ctx)
		if err != nil {
			c.log.Warn("notification permission request failed", zap.Error(err))
		}
	}
	if perm == PermissionGranted {
		return n.Show(title, body, data)
	}

	c.browser.alert(joinLines(title, body))
	return nil
}

// ScheduleNotification shows a local notification after delay.
//
// Scheduled by the host, it survives the web content reloading.
// Without a host it is kept on an in-process timer and is lost
// if the page is closed or reloaded before it fires.
func (c *Client) ScheduleNotification(ctx context.Context, title, body string, delay time.Duration, data map[string]any) error {
	if delay < 0 {
		return notify.ErrNegativeDelay
	}
	if c.bridged {
		return c.send(ctx, envelope.ScheduleNotification, envelope.Notification{
			Title: title,
			Body:  body,
			Delay: delay.Seconds(),
			Data:  data,
		})
	}

	_, err := c.sched.Schedule(notify.Notification{Title: title, Body: body, Delay: delay, Data: data})
	if errors.Is(err, notify.ErrClosed) {
		return ErrClosed
	}
	return err
}

// deliver shows a notification fired by the standalone scheduler
func (c *Client) deliver(n notify.Notification) {
	if err := c.ShowNotification(c.ctx, n.Title, n.Body, n.Data); err != nil {
		c.log.Warn("failed to show scheduled notification", zap.String("id", string(n.ID)), zap.Error(err))
	}
}

// Log writes a line to the host log. Without a host,
// it goes to the client's logger.
func (c *Client) Log(ctx context.Context, level, message string) error {
	if !c.bridged {
		c.log.Named("webview").Info(message, zap.String("level", level))
		return nil
	}
	return c.send(ctx, envelope.Log, envelope.LogLine{Message: message, Level: level})
}

func joinLines(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
