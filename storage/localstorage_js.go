//go:build js && wasm

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

package storage

import (
	"context"
	"syscall/js"
)

// LocalStorage is a Store backed by the browser's window.localStorage
type LocalStorage struct {
	ls js.Value
}

// NewLocalStorage returns a LocalStorage bound to window.localStorage
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{ls: js.Global().Get("localStorage")}
}

func (l *LocalStorage) Get(_ context.Context, key string) (string, bool, error) {
	v := l.ls.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (l *LocalStorage) Set(_ context.Context, key, value string) error {
	l.ls.Call("setItem", key, value)
	return nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	l.ls.Call("removeItem", key)
	return nil
}
