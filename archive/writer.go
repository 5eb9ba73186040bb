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
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"runtime"

	"golang.org/x/sync/errgroup"

	stowfs "stowaway.dev/stowaway/fs"
)

// Writer builds a Bundle by wrapping a zip.Writer. Entries must be added in
// a deterministic order for a given input tree; concurrency is used only to
// overlap filesystem reads, never to interleave writes to the underlying
// zip.Writer, which is not safe for concurrent use.
type Writer struct {
	zw          *zip.Writer
	bundle      Bundle
	written     map[string]bool
	compression CompressionMode
}

// NewWriter creates a Writer that writes a zip-format Bundle to w, using
// Deflated compression for file entries.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), written: make(map[string]bool), compression: Deflated}
}

// SetCompression overrides the compression mode used for file entries added
// after this call. `stowaway bundle --no-compression` uses this to select
// Stored mode.
func (w *Writer) SetCompression(mode CompressionMode) {
	w.compression = mode
}

// Close finishes the zip container and returns the manifest of what was
// written.
func (w *Writer) Close() (Bundle, error) {
	if err := w.zw.Close(); err != nil {
		return Bundle{}, fmt.Errorf("closing archive: %w", err)
	}
	return w.bundle, nil
}

// AddFile writes a single in-memory file entry at archivePath, rooted under
// itself for containment purposes. Used for entries synthesized rather than
// copied from a filesystem tree, such as a rewritten package.json.
func (w *Writer) AddFile(archivePath string, data []byte, mode uint32) error {
	return w.writeRaw(archivePath, rawEntry{
		entry: ArchiveEntry{Path: archivePath, Kind: EntryFile, Mode: mode},
		data:  data,
	})
}

// rawEntry is a fully-read, not-yet-written archive entry: tree walking
// (which may touch disk concurrently) is decoupled from writing to the
// zip.Writer (which must happen sequentially).
type rawEntry struct {
	entry ArchiveEntry
	data  []byte
}

func (w *Writer) writeRaw(root string, r rawEntry) error {
	if err := checkContainment(root, r.entry.Path); err != nil {
		return fmt.Errorf("%s: %w", r.entry.Path, err)
	}
	if w.written[r.entry.Path] {
		return nil
	}
	w.written[r.entry.Path] = true

	hdr := &zip.FileHeader{Name: r.entry.Path}
	switch r.entry.Kind {
	case EntryDir:
		hdr.Name += "/"
		hdr.SetMode(fs.ModeDir | fs.FileMode(r.entry.Mode))
		if _, err := w.zw.CreateHeader(hdr); err != nil {
			return fmt.Errorf("writing directory entry %s: %w", r.entry.Path, err)
		}
	case EntrySymlink:
		hdr.SetMode(fs.ModeSymlink | fs.FileMode(r.entry.Mode))
		hdr.Method = zip.Store
		fw, err := w.zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("writing symlink entry %s: %w", r.entry.Path, err)
		}
		if _, err := fw.Write([]byte(r.entry.LinkTarget)); err != nil {
			return fmt.Errorf("writing symlink target for %s: %w", r.entry.Path, err)
		}
	case EntryFile:
		hdr.SetMode(fs.FileMode(r.entry.Mode))
		hdr.Method = uint16(w.compression)
		fw, err := w.zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("writing file entry %s: %w", r.entry.Path, err)
		}
		if _, err := fw.Write(r.data); err != nil {
			return fmt.Errorf("writing file data for %s: %w", r.entry.Path, err)
		}
	}

	w.bundle.Entries = append(w.bundle.Entries, r.entry)
	return nil
}

// AddTree recursively adds everything under sourceDir to the archive under
// archiveRoot, except any directory named in excludeDirNames, which is
// pruned wherever it occurs (used to keep app/'s on-disk node_modules out
// of the walk; AddPackages repopulates it from the resolved closure
// instead). When followSymlinks is true (the app/runtime source trees),
// every symlink is resolved and its target traversed as if it were a plain
// directory or file, guarding against cycles. When false (package trees
// reached through a node_modules hop that has already been followed
// once), symlinks encountered deeper in the tree are preserved as
// EntrySymlink entries instead of being followed, avoiding duplicated or
// cyclical content.
func (w *Writer) AddTree(fsys stowfs.FileSystem, sourceDir, archiveRoot string, followSymlinks bool, excludeDirNames ...string) error {
	entries, err := collectTree(context.Background(), fsys, sourceDir, archiveRoot, followSymlinks, excludeDirNames)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.writeRaw(archiveRoot, e); err != nil {
			return err
		}
	}
	return nil
}

// AddPackageTree adds a single node_modules package's tree to the archive.
// nodeModulesEntry is the package's direct child of node_modules, e.g.
// ".../node_modules/lit" — this may itself be a symlink into a content
// store, which is followed exactly once before the tree beneath it is
// walked with symlinks preserved rather than followed.
func (w *Writer) AddPackageTree(fsys stowfs.FileSystem, nodeModulesEntry, archiveRoot string) error {
	dir := nodeModulesEntry
	if info, err := fsys.Lstat(nodeModulesEntry); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := resolveSymlink(fsys, nodeModulesEntry)
		if err != nil {
			return fmt.Errorf("resolving top-level symlink %s: %w", nodeModulesEntry, err)
		}
		dir = resolved
	}
	return w.AddTree(fsys, dir, archiveRoot, false)
}

// PackageSource supplies the set of packages and their on-disk directories
// to AddPackages. resolve.ResolutionSet satisfies this interface.
type PackageSource interface {
	Names() []string
	Dir(name string) (string, bool)
}

// AddPackages concurrently walks each package's tree (bounded by
// concurrency, or runtime.NumCPU() when concurrency <= 0) and
// then writes every discovered entry to the zip sequentially, in package
// order, so output entry ordering stays deterministic for a given input.
// The first walk to fail cancels the others via the shared context.
func (w *Writer) AddPackages(fsys stowfs.FileSystem, packages PackageSource, nodeModulesArchiveRoot string, concurrency int) error {
	names := packages.Names()
	collected := make([][]rawEntry, len(names))

	group, ctx := errgroup.WithContext(context.Background())
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	group.SetLimit(concurrency)

	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			dir, ok := packages.Dir(name)
			if !ok {
				return fmt.Errorf("package %q has no known directory", name)
			}
			entries, err := collectTree(ctx, fsys, dir, path.Join(nodeModulesArchiveRoot, name), false, nil)
			if err != nil {
				return fmt.Errorf("package %q: %w", name, err)
			}
			collected[i] = entries
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for i, entries := range collected {
		for _, e := range entries {
			if err := w.writeRaw(path.Join(nodeModulesArchiveRoot, names[i]), e); err != nil {
				return err
			}
		}
	}
	return nil
}
