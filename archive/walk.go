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
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	stowfs "stowaway.dev/stowaway/fs"
)

// collectTree walks dir and returns every entry beneath it (including dir
// itself) as rawEntry values rooted at archiveRoot, without touching a
// zip.Writer. Keeping the walk pure lets callers fan it out across
// goroutines and write the results sequentially afterward.
//
// excludeDirNames lists directory names pruned entirely wherever they
// occur in the walk (e.g. "node_modules" when archiving app/, which must
// exclude that subtree and let AddPackages repopulate it from the
// resolved dependency closure instead).
//
// When followSymlinks is true, a set of already-visited resolved
// directories is carried through the recursion so a symlink that loops
// back on its own ancestry is rejected with ErrSymlinkCycle instead of
// recursing forever.
func collectTree(ctx context.Context, fsys stowfs.FileSystem, dir, archiveRoot string, followSymlinks bool, excludeDirNames []string) ([]rawEntry, error) {
	return collectTreeVisited(ctx, fsys, dir, archiveRoot, followSymlinks, excludeDirNames, make(map[string]bool))
}

func collectTreeVisited(ctx context.Context, fsys stowfs.FileSystem, dir, archiveRoot string, followSymlinks bool, excludeDirNames []string, visited map[string]bool) ([]rawEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	result := []rawEntry{{entry: ArchiveEntry{Path: archiveRoot, Kind: EntryDir, Mode: uint32(info.Mode().Perm())}}}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.Contains(e.Name(), "..") || strings.ContainsAny(e.Name(), "/\\") {
			return nil, fmt.Errorf("%s: %w", e.Name(), ErrPathEscape)
		}

		if e.IsDir() && slices.Contains(excludeDirNames, e.Name()) {
			continue
		}

		childPath := filepath.Join(dir, e.Name())
		archiveChild := path.Join(archiveRoot, e.Name())

		if e.Type()&fs.ModeSymlink != 0 {
			sub, err := collectSymlink(ctx, fsys, childPath, archiveChild, followSymlinks, excludeDirNames, visited)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}

		if e.IsDir() {
			sub, err := collectTreeVisited(ctx, fsys, childPath, archiveChild, followSymlinks, excludeDirNames, visited)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}

		childInfo, err := fsys.Stat(childPath)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", childPath, err)
		}
		data, err := fsys.ReadFile(childPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", childPath, err)
		}
		result = append(result, rawEntry{
			entry: ArchiveEntry{Path: archiveChild, Kind: EntryFile, Mode: uint32(childInfo.Mode().Perm())},
			data:  data,
		})
	}

	return result, nil
}

func collectSymlink(ctx context.Context, fsys stowfs.FileSystem, childPath, archiveChild string, followSymlinks bool, excludeDirNames []string, visited map[string]bool) ([]rawEntry, error) {
	if !followSymlinks {
		target, err := fsys.Readlink(childPath)
		if err != nil {
			return nil, fmt.Errorf("readlink %s: %w", childPath, err)
		}
		return []rawEntry{{entry: ArchiveEntry{Path: archiveChild, Kind: EntrySymlink, Mode: 0777, LinkTarget: target}}}, nil
	}

	resolved, err := resolveSymlink(fsys, childPath)
	if err != nil {
		return nil, fmt.Errorf("resolving symlink %s: %w", childPath, err)
	}
	stat, err := fsys.Stat(childPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", childPath, err)
	}
	if stat.IsDir() {
		real := filepath.Clean(resolved)
		if visited[real] {
			return nil, fmt.Errorf("%s -> %s: %w", childPath, real, ErrSymlinkCycle)
		}
		visited[real] = true
		defer delete(visited, real)
		return collectTreeVisited(ctx, fsys, resolved, archiveChild, true, excludeDirNames, visited)
	}
	data, err := fsys.ReadFile(childPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", childPath, err)
	}
	return []rawEntry{{
		entry: ArchiveEntry{Path: archiveChild, Kind: EntryFile, Mode: uint32(stat.Mode().Perm())},
		data:  data,
	}}, nil
}

// resolveSymlink returns the absolute path a symlink at p points at,
// resolving a relative target against p's parent directory.
func resolveSymlink(fsys stowfs.FileSystem, p string) (string, error) {
	target, err := fsys.Readlink(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}
	return filepath.Join(filepath.Dir(p), target), nil
}
