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

package platform

import (
	"runtime"
	"sync"
)

// Kind is the execution context the code runs in
type Kind uint8

const (
	// StandaloneWeb is web content in an ordinary browser, with no host
	StandaloneWeb Kind = iota
	// EmbeddedWeb is web content inside the host's web view
	EmbeddedWeb
	// HostNative is the native host itself
	HostNative
)

func (k Kind) String() string {
	switch k {
	case HostNative:
		return "host-native"
	case EmbeddedWeb:
		return "embedded-web"
	default:
		return "standalone-web"
	}
}

// Bridged reports whether a privileged host is reachable from this context
func (k Kind) Bridged() bool {
	return k != StandaloneWeb
}

// Detector classifies the current execution context
type Detector interface {
	Detect() Kind
}

// Probe holds the raw facts classification is based on
type Probe struct {
	// OS is the operating system identity reported by the runtime
	OS string
	// Marker reports whether the host injected its marker
	// object before application code started
	Marker func() bool
}

// DefaultProbe inspects the running process
func DefaultProbe() Probe {
	return Probe{OS: runtime.GOOS, Marker: hasMarker}
}

// Classify applies the detection rules to a probe, in priority
// order: a native OS identity, then the host marker, then standalone.
func Classify(p Probe) Kind {
	switch p.OS {
	case "ios", "android":
		return HostNative
	}
	if p.Marker != nil && p.Marker() {
		return EmbeddedWeb
	}
	return StandaloneWeb
}

type detector struct {
	probe Probe
	once  sync.Once
	kind  Kind
}

// New returns a Detector that classifies p once and caches the
// result, since the context can't change while the process runs
func New(p Probe) Detector {
	return &detector{probe: p}
}

// Default returns a caching Detector backed by DefaultProbe
func Default() Detector {
	return New(DefaultProbe())
}

func (d *detector) Detect() Kind {
	d.once.Do(func() {
		d.kind = Classify(d.probe)
	})
	return d.kind
}

// Static is a Detector that always reports the same Kind
type Static Kind

func (s Static) Detect() Kind {
	return Kind(s)
}
