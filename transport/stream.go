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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxFrameSize is the largest frame a Stream will accept (1MB)
const MaxFrameSize = 1024 * 1024

// Frame errors. Neither is fatal, the stream stays in sync.
var (
	ErrFrameTooLarge = errors.New("frame too large")
	ErrEmptyFrame    = errors.New("empty frame")
)

// Stream is a Transport over a byte stream such as a child process'
// stdio. Each message is framed with a 4-byte little-endian length,
// the same framing browsers use for native messaging hosts.
//
// Receive can't be interrupted by ctx while blocked on the reader;
// closing the stream is what unblocks it.
type Stream struct {
	r io.Reader
	w io.Writer
	c io.Closer

	writeMtx sync.Mutex
	readMtx  sync.Mutex
}

// NewStream creates a Stream reading from r and writing to w.
// c may be nil if nothing needs closing.
func NewStream(r io.Reader, w io.Writer, c io.Closer) *Stream {
	return &Stream{r: r, w: w, c: c}
}

// NewStreamConn creates a Stream over a single read/write connection
func NewStreamConn(rwc io.ReadWriteCloser) *Stream {
	return NewStream(rwc, rwc, rwc)
}

func (s *Stream) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg) > MaxFrameSize {
		return fmt.Errorf("send: %w: %d bytes (max %d)", ErrFrameTooLarge, len(msg), MaxFrameSize)
	}

	// Length prefix and payload go out in one write so
	// frames from concurrent senders never interleave
	buf := make([]byte, 4+len(msg))
	binary.LittleEndian.PutUint32(buf, uint32(len(msg)))
	copy(buf[4:], msg)

	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()

	if _, err := s.w.Write(buf); err != nil {
		return closedOr(err)
	}
	return nil
}

func (s *Stream) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.readMtx.Lock()
	defer s.readMtx.Unlock()

	var length uint32
	if err := binary.Read(s.r, binary.LittleEndian, &length); err != nil {
		return "", closedOr(err)
	}

	if length == 0 {
		return "", ErrEmptyFrame
	}
	if length > MaxFrameSize {
		// Skip the payload to stay aligned with the next frame
		if _, err := io.CopyN(io.Discard, s.r, int64(length)); err != nil {
			return "", closedOr(err)
		}
		return "", fmt.Errorf("receive: %w: %d bytes (max %d)", ErrFrameTooLarge, length, MaxFrameSize)
	}

	msg := make([]byte, length)
	if _, err := io.ReadFull(s.r, msg); err != nil {
		return "", closedOr(err)
	}
	return string(msg), nil
}

func (s *Stream) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// closedOr maps end-of-stream errors to ErrClosed
func closedOr(err error) error {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return err
}
