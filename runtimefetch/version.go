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
package runtimefetch

import (
	"path/filepath"
	"strings"

	"stowaway.dev/stowaway/fs"
)

// DefaultVersion is used when a project names no Node version of its own.
const DefaultVersion = "22.17.1"

// versionFiles lists, in priority order, the files DetectVersion checks for
// a pinned Node version.
var versionFiles = []string{".nvmrc", ".node-version"}

// DetectVersion reads projectDir's .nvmrc or .node-version, in that order,
// and returns the version string it names. It reports false if neither file
// is present or readable.
func DetectVersion(fsys fs.FileSystem, projectDir string) (string, bool) {
	for _, name := range versionFiles {
		data, err := fsys.ReadFile(filepath.Join(projectDir, name))
		if err != nil {
			continue
		}
		version := normalizeVersion(string(data))
		if version != "" {
			return version, true
		}
	}
	return "", false
}

func normalizeVersion(raw string) string {
	version := strings.TrimSpace(raw)
	version = strings.TrimPrefix(version, "v")
	if idx := strings.IndexAny(version, "\r\n"); idx >= 0 {
		version = version[:idx]
	}
	return strings.TrimSpace(version)
}
