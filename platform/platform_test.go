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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }

	assert.Equal(t, HostNative, Classify(Probe{OS: "ios", Marker: yes}))
	assert.Equal(t, HostNative, Classify(Probe{OS: "android", Marker: no}))
	assert.Equal(t, EmbeddedWeb, Classify(Probe{OS: "js", Marker: yes}))
	assert.Equal(t, StandaloneWeb, Classify(Probe{OS: "js", Marker: no}))
	assert.Equal(t, StandaloneWeb, Classify(Probe{OS: "linux"}))
}

func TestDetectIsStable(t *testing.T) {
	present := true
	d := New(Probe{OS: "js", Marker: func() bool { return present }})

	first := d.Detect()
	present = false
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Detect())
	}
	assert.Equal(t, EmbeddedWeb, first)
}

func TestDetectProbesOnce(t *testing.T) {
	var probes int
	d := New(Probe{Marker: func() bool { probes++; return false }})
	d.Detect()
	d.Detect()
	assert.Equal(t, 1, probes)
}

func TestStatic(t *testing.T) {
	assert.Equal(t, HostNative, Static(HostNative).Detect())
	assert.True(t, EmbeddedWeb.Bridged())
	assert.False(t, StandaloneWeb.Bridged())
	assert.Equal(t, "embedded-web", EmbeddedWeb.String())
}
