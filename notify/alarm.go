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

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/codec"
)

// AlarmScheduler is the host's durable scheduler. Every entry is
// persisted before its timer is armed, and entries left over from a
// previous run are re-armed when the scheduler is created, so
// notifications survive the host process being suspended or
// restarted. Entries whose time passed while the host was down
// fire immediately.
type AlarmScheduler struct {
	db      *sql.DB
	t       *timers
	deliver DeliverFunc
	log     *zap.Logger
}

// NewAlarmScheduler creates the alarm table if needed, re-arms
// persisted entries and returns the scheduler
func NewAlarmScheduler(db *sql.DB, deliver DeliverFunc, opts ...Option) (*AlarmScheduler, error) {
	o := buildOptions(opts)
	s := &AlarmScheduler{
		db:      db,
		deliver: deliver,
		log:     o.log,
	}
	s.t = newTimers(o.clock, s.fire)

	if err := s.init(); err != nil {
		return nil, err
	}
	if err := s.restore(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AlarmScheduler) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS alarms(
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		delay_ns INTEGER NOT NULL,
		data BLOB,
		fires_at INTEGER NOT NULL
	);`)
	return err
}

func (s *AlarmScheduler) restore() error {
	rows, err := s.db.Query(`SELECT id, title, body, delay_ns, data, fires_at FROM alarms;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var restored []Notification
	for rows.Next() {
		var (
			n       Notification
			id      string
			delay   int64
			data    []byte
			firesAt int64
		)
		if err := rows.Scan(&id, &n.Title, &n.Body, &delay, &data, &firesAt); err != nil {
			return err
		}
		n.ID = Handle(id)
		n.Delay = time.Duration(delay)
		n.FiresAt = time.Unix(0, firesAt)
		if len(data) > 0 {
			if err := codec.Msgpack.Unmarshal(data, &n.Data); err != nil {
				return fmt.Errorf("alarm %s: %w", id, err)
			}
		}
		restored = append(restored, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, n := range restored {
		if err := s.t.arm(n); err != nil {
			return err
		}
	}
	if len(restored) > 0 {
		s.log.Info("restored alarms", zap.Int("count", len(restored)))
	}
	return nil
}

// Schedule persists n and arms its timer
func (s *AlarmScheduler) Schedule(n Notification) (Handle, error) {
	n, err := s.t.prepare(n)
	if err != nil {
		return "", err
	}
	if s.t.has(n.ID) {
		return "", ErrDuplicate
	}

	var data []byte
	if n.Data != nil {
		data, err = codec.Msgpack.Marshal(n.Data)
		if err != nil {
			return "", err
		}
	}

	_, err = s.db.Exec(`INSERT INTO alarms(id, title, body, delay_ns, data, fires_at) VALUES(?, ?, ?, ?, ?, ?);`,
		string(n.ID), n.Title, n.Body, int64(n.Delay), data, n.FiresAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("persist alarm: %w", err)
	}

	if err := s.t.arm(n); err != nil {
		if !errors.Is(err, ErrDuplicate) {
			s.remove(n.ID)
		}
		return "", err
	}
	return n.ID, nil
}

// Cancel removes a pending alarm. It reports whether
// the alarm was still pending.
func (s *AlarmScheduler) Cancel(h Handle) bool {
	if !s.t.disarm(h) {
		return false
	}
	s.remove(h)
	return true
}

// Pending returns the alarms that haven't fired, soonest first
func (s *AlarmScheduler) Pending() []Notification {
	return s.t.pending()
}

// Close stops every timer. Persisted alarms are kept and will be
// re-armed by the next scheduler opened on the same database.
func (s *AlarmScheduler) Close() error {
	s.t.close()
	return nil
}

// fire deletes the row before delivering, so a crash
// mid-delivery can't show the notification twice
func (s *AlarmScheduler) fire(n Notification) {
	s.remove(n.ID)
	s.log.Debug("alarm fired", zap.String("id", string(n.ID)))
	s.deliver(n)
}

func (s *AlarmScheduler) remove(h Handle) {
	if _, err := s.db.Exec(`DELETE FROM alarms WHERE id=?;`, string(h)); err != nil {
		s.log.Error("failed to delete alarm", zap.String("id", string(h)), zap.Error(err))
	}
}
