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
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/internal/payload"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/storage"
)

// capabilities adapts a Device to bridge handlers
type capabilities struct {
	dev    Device
	webLog *zap.Logger
}

func (d *Dispatcher) registerDevice(dev Device) {
	c := capabilities{dev: dev, webLog: d.webLog}

	// Modals and location wait on the user or on hardware,
	// so they don't hold up the rest of the connection
	d.RegisterAsync(envelope.GetLocation, c.getLocation)
	d.RegisterAsync(envelope.ShowAlert, c.showAlert)
	d.RegisterAsync(envelope.ShowConfirm, c.showConfirm)

	d.Register(envelope.SaveToken, c.saveToken)
	d.Register(envelope.GetToken, c.getToken)
	d.Register(envelope.Share, c.share)
	d.Register(envelope.Haptic, c.haptic)
	d.Register(envelope.ShowNotification, c.showNotification)
	d.Register(envelope.ScheduleNotification, c.scheduleNotification)
	d.Register(envelope.Log, c.log)
}

func (c capabilities) getLocation(ctx context.Context, _ envelope.Envelope) (any, error) {
	if c.dev.Locator == nil {
		return nil, ErrUnsupported
	}
	loc, err := c.dev.Locator.Location(ctx)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (c capabilities) saveToken(ctx context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Storage == nil {
		return nil, ErrUnsupported
	}
	var tok envelope.Token
	if err := payload.Decode(req.Payload, &tok); err != nil {
		return nil, err
	}
	return nil, c.dev.Storage.Set(ctx, storage.TokenKey, tok.Token)
}

func (c capabilities) getToken(ctx context.Context, _ envelope.Envelope) (any, error) {
	if c.dev.Storage == nil {
		return nil, ErrUnsupported
	}
	// A missing token is an empty token, not a failure
	tok, _, err := c.dev.Storage.Get(ctx, storage.TokenKey)
	if err != nil {
		return nil, err
	}
	return envelope.Token{Token: tok}, nil
}

func (c capabilities) share(ctx context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Sharer == nil {
		return nil, ErrUnsupported
	}
	var sr envelope.ShareRequest
	if err := payload.Decode(req.Payload, &sr); err != nil {
		return nil, err
	}
	return nil, c.dev.Sharer.Share(ctx, sr.Data)
}

func (c capabilities) haptic(ctx context.Context, _ envelope.Envelope) (any, error) {
	if c.dev.Haptics == nil {
		return nil, ErrUnsupported
	}
	return nil, c.dev.Haptics.Impact(ctx)
}

func (c capabilities) showAlert(ctx context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Dialogs == nil {
		return nil, ErrUnsupported
	}
	var a envelope.Alert
	if err := payload.Decode(req.Payload, &a); err != nil {
		return nil, err
	}
	if err := c.dev.Dialogs.Alert(ctx, a); err != nil {
		return nil, err
	}
	return envelope.Button{Result: envelope.ButtonOK}, nil
}

func (c capabilities) showConfirm(ctx context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Dialogs == nil {
		return nil, ErrUnsupported
	}
	var cf envelope.Confirm
	if err := payload.Decode(req.Payload, &cf); err != nil {
		return nil, err
	}
	ok, err := c.dev.Dialogs.Confirm(ctx, cf)
	if err != nil {
		return nil, err
	}
	if ok {
		return envelope.Button{Result: envelope.ButtonConfirm}, nil
	}
	return envelope.Button{Result: envelope.ButtonCancel}, nil
}

func (c capabilities) showNotification(ctx context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Notifier == nil {
		return nil, ErrUnsupported
	}
	var n envelope.Notification
	if err := payload.Decode(req.Payload, &n); err != nil {
		return nil, err
	}
	return nil, c.dev.Notifier.Show(ctx, n.Title, n.Body, n.Data)
}

func (c capabilities) scheduleNotification(_ context.Context, req envelope.Envelope) (any, error) {
	if c.dev.Alarms == nil {
		return nil, ErrUnsupported
	}
	var n envelope.Notification
	if err := payload.Decode(req.Payload, &n); err != nil {
		return nil, err
	}
	_, err := c.dev.Alarms.Schedule(notify.Notification{
		Title: n.Title,
		Body:  n.Body,
		Delay: time.Duration(n.Delay * float64(time.Second)),
		Data:  n.Data,
	})
	return nil, err
}

// log writes a line from web content to the host log sink
func (c capabilities) log(_ context.Context, req envelope.Envelope) (any, error) {
	var line envelope.LogLine
	if err := payload.Decode(req.Payload, &line); err != nil {
		return nil, err
	}

	lvl := zapcore.InfoLevel
	if line.Level != "" {
		if parsed, err := zapcore.ParseLevel(line.Level); err == nil {
			lvl = parsed
		}
	}
	// Web content may not bring the host down by logging at fatal
	if lvl > zapcore.ErrorLevel {
		lvl = zapcore.ErrorLevel
	}

	if ce := c.webLog.Check(lvl, line.Message); ce != nil {
		ce.Write()
	}
	return nil, nil
}
