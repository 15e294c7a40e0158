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

package deeplink

import (
	"strings"
)

// DefaultScheme is the custom URI scheme of the app
const DefaultScheme = "appscheme"

// Router turns custom-scheme URIs into in-app routes
type Router struct {
	Scheme string
}

// Parse strips the scheme prefix from uri and returns the rest as
// an in-app path. URIs that don't use the scheme return ok == false,
// so callers can ignore them silently.
func (r Router) Parse(uri string) (route string, ok bool) {
	scheme := r.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), scheme+"://")
	if !ok {
		return "", false
	}
	return "/" + strings.TrimLeft(rest, "/"), true
}

// URI builds a deep link for an in-app route
func (r Router) URI(route string) string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	return scheme + "://" + strings.TrimLeft(route, "/")
}

// Parse parses uri using DefaultScheme
func Parse(uri string) (string, bool) {
	return Router{}.Parse(uri)
}
