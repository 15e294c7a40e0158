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

package registry

import (
	"sync"

	"go.arsenm.dev/nativebridge/envelope"
)

// Callback is invoked with an envelope emitted for its key
type Callback func(envelope.Envelope)

// ListenerID identifies a registered callback so it can be removed
type ListenerID uint64

type listener struct {
	id   ListenerID
	once bool
	fn   Callback
}

// Registry maps keys to callbacks. Keys are message types for
// event listeners and correlation ids for pending calls. A single
// registry must be shared by everything in one execution context,
// since replies arrive regardless of which component sent the call.
type Registry struct {
	mtx       sync.Mutex
	nextID    ListenerID
	listeners map[string][]listener
}

// New creates and returns a new registry
func New() *Registry {
	return &Registry{listeners: map[string][]listener{}}
}

// On registers a callback that fires on every emit for key
func (r *Registry) On(key string, fn Callback) ListenerID {
	return r.add(key, fn, false)
}

// Once registers a callback that fires at most once, removing
// itself after the first matching emit
func (r *Registry) Once(key string, fn Callback) ListenerID {
	return r.add(key, fn, true)
}

func (r *Registry) add(key string, fn Callback, once bool) ListenerID {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners[key] = append(r.listeners[key], listener{id: id, once: once, fn: fn})
	return id
}

// Off removes a callback. It reports whether the callback
// was still registered.
func (r *Registry) Off(key string, id ListenerID) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ls := r.listeners[key]
	for i, l := range ls {
		if l.id != id {
			continue
		}
		r.set(key, append(ls[:i:i], ls[i+1:]...))
		return true
	}
	return false
}

// Emit invokes every callback registered for key with env and
// returns how many were invoked. Once callbacks are removed before
// any callback runs, so a concurrent emit can't fire them again.
// Emitting a key with no callbacks is a no-op.
func (r *Registry) Emit(key string, env envelope.Envelope) int {
	r.mtx.Lock()
	ls := r.listeners[key]
	if len(ls) == 0 {
		r.mtx.Unlock()
		return 0
	}

	// Copy so callbacks may call On/Off without racing the slice
	fire := make([]Callback, 0, len(ls))
	kept := make([]listener, 0, len(ls))
	for _, l := range ls {
		fire = append(fire, l.fn)
		if !l.once {
			kept = append(kept, l)
		}
	}
	r.set(key, kept)
	r.mtx.Unlock()

	for _, fn := range fire {
		fn(env)
	}
	return len(fire)
}

// Len returns the number of callbacks registered for key
func (r *Registry) Len(key string) int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.listeners[key])
}

// Clear removes every callback and returns the keys that had any
func (r *Registry) Clear() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	keys := make([]string, 0, len(r.listeners))
	for k := range r.listeners {
		keys = append(keys, k)
	}
	r.listeners = map[string][]listener{}
	return keys
}

// set must be called with mtx held
func (r *Registry) set(key string, ls []listener) {
	if len(ls) == 0 {
		delete(r.listeners, key)
		return
	}
	r.listeners[key] = ls
}
