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
	"context"

	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/envelope"
)

// devDevice stands in for the native capabilities of a phone.
// Everything it does is logged.
type devDevice struct {
	log     *zap.Logger
	loc     envelope.Location
	confirm bool
}

func (d devDevice) Location(context.Context) (envelope.Location, error) {
	return d.loc, nil
}

func (d devDevice) Share(_ context.Context, data envelope.ShareData) error {
	d.log.Info("share", zap.String("title", data.Title), zap.String("text", data.Text), zap.String("url", data.URL))
	return nil
}

func (d devDevice) Impact(context.Context) error {
	d.log.Info("haptic impact")
	return nil
}

func (d devDevice) Alert(_ context.Context, a envelope.Alert) error {
	d.log.Info("alert", zap.String("title", a.Title), zap.String("message", a.Message))
	return nil
}

func (d devDevice) Confirm(_ context.Context, c envelope.Confirm) (bool, error) {
	d.log.Info("confirm", zap.String("title", c.Title), zap.String("message", c.Message), zap.Bool("answer", d.confirm))
	return d.confirm, nil
}

func (d devDevice) Show(_ context.Context, title, body string, data map[string]any) error {
	d.log.Info("notification", zap.String("title", title), zap.String("body", body), zap.Any("data", data))
	return nil
}
