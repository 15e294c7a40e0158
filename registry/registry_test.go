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

package registry_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/registry"
)

func TestOnceFiresOnce(t *testing.T) {
	r := registry.New()

	var calls int
	r.Once(envelope.LocationResult, func(envelope.Envelope) { calls++ })

	assert.Equal(t, 1, r.Emit(envelope.LocationResult, envelope.Envelope{Type: envelope.LocationResult}))
	assert.Equal(t, 0, r.Emit(envelope.LocationResult, envelope.Envelope{Type: envelope.LocationResult}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len(envelope.LocationResult))
}

func TestOnKeepsListening(t *testing.T) {
	r := registry.New()

	var got []string
	r.On(envelope.DeepLink, func(env envelope.Envelope) {
		got = append(got, env.Payload.String("route"))
	})

	r.Emit(envelope.DeepLink, envelope.Envelope{Payload: envelope.Payload{"route": "/a"}})
	r.Emit(envelope.DeepLink, envelope.Envelope{Payload: envelope.Payload{"route": "/b"}})
	assert.Equal(t, []string{"/a", "/b"}, got)
	assert.Equal(t, 1, r.Len(envelope.DeepLink))
}

func TestEmitInvokesAllListeners(t *testing.T) {
	r := registry.New()

	var on, once int
	r.On(envelope.AppState, func(envelope.Envelope) { on++ })
	r.Once(envelope.AppState, func(envelope.Envelope) { once++ })

	assert.Equal(t, 2, r.Emit(envelope.AppState, envelope.Envelope{}))
	assert.Equal(t, 1, r.Emit(envelope.AppState, envelope.Envelope{}))
	assert.Equal(t, 2, on)
	assert.Equal(t, 1, once)
}

func TestEmitWithoutListeners(t *testing.T) {
	r := registry.New()
	assert.Equal(t, 0, r.Emit(envelope.NotificationTapped, envelope.Envelope{}))
}

func TestOff(t *testing.T) {
	r := registry.New()

	var a, b int
	idA := r.On(envelope.AppState, func(envelope.Envelope) { a++ })
	r.On(envelope.AppState, func(envelope.Envelope) { b++ })

	assert.True(t, r.Off(envelope.AppState, idA))
	assert.False(t, r.Off(envelope.AppState, idA))

	r.Emit(envelope.AppState, envelope.Envelope{})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestOffWrongKey(t *testing.T) {
	r := registry.New()
	id := r.On(envelope.AppState, func(envelope.Envelope) {})
	assert.False(t, r.Off(envelope.DeepLink, id))
	assert.Equal(t, 1, r.Len(envelope.AppState))
}

func TestCallbackMayRegister(t *testing.T) {
	r := registry.New()

	var second bool
	r.Once("k", func(envelope.Envelope) {
		r.Once("k", func(envelope.Envelope) { second = true })
	})

	r.Emit("k", envelope.Envelope{})
	assert.False(t, second)
	r.Emit("k", envelope.Envelope{})
	assert.True(t, second)
}

func TestOnceConcurrentEmit(t *testing.T) {
	r := registry.New()

	var calls atomic.Int32
	r.Once("id-1", func(envelope.Envelope) { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit("id-1", envelope.Envelope{})
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func TestClear(t *testing.T) {
	r := registry.New()
	r.On("a", func(envelope.Envelope) {})
	r.Once("b", func(envelope.Envelope) {})

	assert.ElementsMatch(t, []string{"a", "b"}, r.Clear())
	assert.Equal(t, 0, r.Len("a"))
	assert.Equal(t, 0, r.Len("b"))
}
