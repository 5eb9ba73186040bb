/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package buildid generates the identifier that keys a launcher's per-build
// extraction cache directory: two builds of the same app get distinct
// BUILD_IDs, so a stale extraction from an older build is never mistaken
// for a matching one.
package buildid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// New returns a fresh random build identifier, hex-encoded and safe to use
// as a path segment and as a Go string literal.
func New() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating build id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
