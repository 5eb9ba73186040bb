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
// Package resolve walks a resolved node_modules installation and computes
// the transitive closure of packages an application needs at runtime.
package resolve

import (
	"path/filepath"

	"stowaway.dev/stowaway/fs"
	"stowaway.dev/stowaway/packagejson"
)

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Success(format string, args ...any)
}

// FindWorkspaceRoot walks up the directory tree starting at startDir looking
// for an ancestor whose node_modules directory, or whose package.json
// workspaces field, makes it the authoritative installation root. Returns
// startDir unchanged if no such ancestor is found.
func FindWorkspaceRoot(fsys fs.FileSystem, startDir string) string {
	dir := startDir
	for {
		nodeModulesPath := filepath.Join(dir, "node_modules")
		if stat, err := fsys.Stat(nodeModulesPath); err == nil && stat.IsDir() {
			return dir
		}

		pkgPath := filepath.Join(dir, "package.json")
		if pkg, err := packagejson.ParseFile(fsys, pkgPath); err == nil && pkg.HasWorkspaces() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}
