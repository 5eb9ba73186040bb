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

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"stowaway.dev/stowaway/packagejson"
)

// WorkspaceContains reports whether rootPkg's workspaces field declares a
// pattern matching projectDir (given relative to rootDir). A root whose
// node_modules merely happens to be an ancestor, but that does not list the
// project among its workspace packages, is not a genuine workspace root for
// that project.
func WorkspaceContains(rootPkg *packagejson.PackageJSON, rootDir, projectDir string) bool {
	if rootDir == projectDir {
		return true
	}

	rel, err := filepath.Rel(rootDir, projectDir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range rootPkg.WorkspacePatterns() {
		pattern = filepath.ToSlash(pattern)
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		// A pattern may also name a parent directory without a glob (e.g.
		// "packages"); its direct child directories match as well.
		if matched, _ := doublestar.Match(pattern+"/*", rel); matched {
			return true
		}
	}
	return false
}
