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

package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once a transport has been closed,
// by either side
var ErrClosed = errors.New("transport closed")

// Recoverable reports whether a Receive error leaves the transport
// usable. Any other error ends the connection.
func Recoverable(err error) bool {
	return errors.Is(err, ErrEmptyFrame) || errors.Is(err, ErrFrameTooLarge)
}

// Transport is a pair of one-way string channels. Messages sent in
// one direction arrive in send order; nothing orders the two
// directions relative to each other.
type Transport interface {
	// Send delivers a single message to the other side
	Send(ctx context.Context, msg string) error
	// Receive blocks until the next message from the other side arrives
	Receive(ctx context.Context) (string, error)
	// Close closes the transport
	Close() error
}

// PipeEnd is one end of an in-memory Transport
type PipeEnd struct {
	in  <-chan string
	out chan<- string

	closeOnce *sync.Once
	done      chan struct{}
}

// Pipe creates an in-memory pair of connected transports.
// Each direction buffers up to size messages.
// Closing either end closes both.
func Pipe(size int) (*PipeEnd, *PipeEnd) {
	ab := make(chan string, size)
	ba := make(chan string, size)
	done := make(chan struct{})
	once := &sync.Once{}

	a := &PipeEnd{in: ba, out: ab, closeOnce: once, done: done}
	b := &PipeEnd{in: ab, out: ba, closeOnce: once, done: done}
	return a, b
}

func (p *PipeEnd) Send(ctx context.Context, msg string) error {
	// Check closed first so a send never races a close
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PipeEnd) Receive(ctx context.Context) (string, error) {
	// Drain anything already buffered before reporting closure
	select {
	case msg := <-p.in:
		return msg, nil
	default:
	}

	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *PipeEnd) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	return nil
}
