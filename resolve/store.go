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
package resolve

import "strings"

// StoreDirName returns the content-addressable store directory name for a
// package name and version, e.g. "lit@3.1.0" or, for a scoped package,
// "@lit+reactive-element@1.6.0".
func StoreDirName(name, version string) string {
	return strings.Replace(name, "/", "+", 1) + "@" + version
}

// ParseStoreDirName parses a content store directory name back into a
// package name and version, following the rule: for an entry starting
// with "@", the name is the substring before the LAST "@" (with "+"
// rewritten back to "/"); otherwise, the name is the substring before the
// FIRST "@". Reports ok=false for an entry with no "@" separator at all.
func ParseStoreDirName(entry string) (name, version string, ok bool) {
	if strings.HasPrefix(entry, "@") {
		plusIdx := strings.Index(entry, "+")
		if plusIdx < 0 {
			return "", "", false
		}
		rest := entry[plusIdx+1:]
		atIdx := strings.LastIndex(rest, "@")
		if atIdx <= 0 {
			return "", "", false
		}
		name = entry[:plusIdx] + "/" + rest[:atIdx]
		version = rest[atIdx+1:]
		return name, version, true
	}

	atIdx := strings.Index(entry, "@")
	if atIdx <= 0 {
		return "", "", false
	}
	return entry[:atIdx], entry[atIdx+1:], true
}
