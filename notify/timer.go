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

package notify

import "go.uber.org/zap"

// TimerScheduler keeps notifications on in-process timers.
//
// Entries live only as long as the scheduler: they do not survive
// the process exiting, or in a browser, navigation or reload.
// Use AlarmScheduler where that matters.
type TimerScheduler struct {
	t   *timers
	log *zap.Logger
}

// NewTimerScheduler creates a scheduler that calls deliver
// when a notification fires
func NewTimerScheduler(deliver DeliverFunc, opts ...Option) *TimerScheduler {
	o := buildOptions(opts)
	s := &TimerScheduler{log: o.log}
	s.t = newTimers(o.clock, func(n Notification) {
		s.log.Debug("notification fired", zap.String("id", string(n.ID)))
		deliver(n)
	})
	return s
}

// Schedule arms a timer for n and returns its handle
func (s *TimerScheduler) Schedule(n Notification) (Handle, error) {
	n, err := s.t.prepare(n)
	if err != nil {
		return "", err
	}
	if err := s.t.arm(n); err != nil {
		return "", err
	}
	return n.ID, nil
}

// Cancel removes a notification that hasn't fired yet
func (s *TimerScheduler) Cancel(h Handle) bool {
	return s.t.disarm(h)
}

// Pending returns the notifications that haven't fired, soonest first
func (s *TimerScheduler) Pending() []Notification {
	return s.t.pending()
}

// Close drops every pending notification
func (s *TimerScheduler) Close() error {
	s.t.close()
	return nil
}
