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
// Package archive builds the zip-format Bundle a generated launcher embeds:
// an "app/" tree (the application's source and resolved node_modules) and a
// "runtime/" tree (the portable JavaScript runtime), with POSIX permissions
// and a symlink policy preserved across the write.
package archive

import (
	"errors"
	"path"
	"strings"
)

// EntryKind distinguishes the three shapes of thing an ArchiveEntry can be.
type EntryKind int

const (
	EntryDir EntryKind = iota
	EntryFile
	EntrySymlink
)

// ArchiveEntry describes one entry that was (or will be) written to a
// Bundle, rooted under "app/" or "runtime/".
type ArchiveEntry struct {
	Path       string // archive-relative, forward-slash, e.g. "app/node_modules/lit/package.json"
	Kind       EntryKind
	Mode       uint32 // POSIX permission bits
	LinkTarget string // set when Kind == EntrySymlink
}

// Bundle is the manifest of everything written to an archive, returned by
// Writer.Close for callers that want to report on or verify its contents.
type Bundle struct {
	Entries []ArchiveEntry
}

// ErrPathEscape is returned when an entry would be written outside the
// archive root it was supposed to be confined to.
var ErrPathEscape = errors.New("archive: entry path escapes its root")

// ErrSymlinkCycle is returned when following symlinks during a tree walk
// would revisit a directory already on the current path, which would
// otherwise recurse forever.
var ErrSymlinkCycle = errors.New("archive: symlink cycle detected")

// CompressionMode selects how file entries are stored in the zip container.
type CompressionMode uint16

const (
	// Stored writes file contents uncompressed, trading size for the
	// ability to memory-map or randomly seek the embedded archive.
	Stored CompressionMode = 0
	// Deflated compresses file contents.
	Deflated CompressionMode = 8
)

// checkContainment verifies that archivePath, once cleaned, still lives
// under root. This is a defense-in-depth check: callers build archivePath
// themselves by joining sanitized directory-listing names, but a
// maliciously crafted symlink target or directory entry name containing
// ".." should never be able to smuggle an entry outside its root.
func checkContainment(root, archivePath string) error {
	cleaned := path.Clean(archivePath)
	if cleaned != root && !strings.HasPrefix(cleaned, root+"/") {
		return ErrPathEscape
	}
	if strings.Contains(archivePath, "..") {
		return ErrPathEscape
	}
	return nil
}
