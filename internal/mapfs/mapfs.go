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
// Package mapfs provides an in-memory filesystem implementation for testing.
package mapfs

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// MapFileSystem implements FileSystem using an in-memory fstest.MapFS.
// This is useful for testing without touching the real filesystem.
type MapFileSystem struct {
	mu       sync.RWMutex
	mapFS    fstest.MapFS
	symlinks map[string]string
	tempDir  string
	modTime  time.Time
}

// New creates a new in-memory filesystem for testing.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:    make(fstest.MapFS),
		symlinks: make(map[string]string),
		tempDir:  "/tmp",
		modTime:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddSymlink records path as a symbolic link pointing at target. target may
// be relative (resolved against path's parent directory, the same way a real
// filesystem resolves a relative symlink) or absolute.
func (mfs *MapFileSystem) AddSymlink(path, target string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.symlinks[mfs.cleanPath(path)] = target
}

// resolveSymlink follows a single level of symlink indirection, if name is
// a recorded symlink. Returns the resolved path and whether a link was
// followed.
func (mfs *MapFileSystem) resolveSymlink(name string) (string, bool) {
	target, ok := mfs.symlinks[name]
	if !ok {
		return name, false
	}
	if path.IsAbs(target) {
		return mfs.cleanPath(target), true
	}
	return mfs.cleanPath(path.Join(path.Dir(name), target)), true
}

// AddFile adds a file to the in-memory filesystem.
func (mfs *MapFileSystem) AddFile(path string, content string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	mfs.mapFS[path] = &fstest.MapFile{
		Data:    []byte(content),
		Mode:    mode,
		ModTime: mfs.modTime,
	}
}

// AddDir adds a directory to the in-memory filesystem.
func (mfs *MapFileSystem) AddDir(path string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	keepFile := path + "/.keep"
	mfs.mapFS[keepFile] = &fstest.MapFile{
		Data:    []byte(""),
		Mode:    mode.Perm(),
		ModTime: mfs.modTime,
	}
}

// WriteFile implements FileSystem.
func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name = mfs.cleanPath(name)

	if err := mfs.ensureParentDirLocked(name); err != nil {
		return err
	}

	mfs.mapFS[name] = &fstest.MapFile{
		Data:    append([]byte(nil), data...),
		Mode:    perm,
		ModTime: mfs.modTime,
	}

	return nil
}

// ReadFile implements FileSystem.
func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if target, ok := mfs.resolveSymlink(clean); ok {
		clean = target
	}
	return fs.ReadFile(mfs.mapFS, clean)
}

// Remove implements FileSystem.
func (mfs *MapFileSystem) Remove(name string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name = mfs.cleanPath(name)

	if _, exists := mfs.mapFS[name]; !exists {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}

	delete(mfs.mapFS, name)
	return nil
}

// MkdirAll implements FileSystem.
func (mfs *MapFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	keepFile := path + "/.keep"

	if file, exists := mfs.mapFS[path]; exists && !file.Mode.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fmt.Errorf("not a directory")}
	}

	mfs.mapFS[keepFile] = &fstest.MapFile{
		Data:    []byte(""),
		Mode:    perm.Perm(),
		ModTime: mfs.modTime,
	}

	return nil
}

// TempDir implements FileSystem.
func (mfs *MapFileSystem) TempDir() string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.tempDir
}

// SetTempDir sets the temp directory path.
func (mfs *MapFileSystem) SetTempDir(dir string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.tempDir = dir
}

// Stat implements FileSystem. It follows a recorded symlink, if any.
func (mfs *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if target, ok := mfs.resolveSymlink(clean); ok {
		clean = target
	}
	return fs.Stat(mfs.mapFS, clean)
}

// Lstat implements FileSystem. Unlike Stat, it does not follow a recorded
// symlink at name itself, reporting it as a symlink.
func (mfs *MapFileSystem) Lstat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if _, ok := mfs.symlinks[clean]; ok {
		return &symlinkInfo{name: path.Base(clean)}, nil
	}
	return fs.Stat(mfs.mapFS, clean)
}

// Readlink implements FileSystem.
func (mfs *MapFileSystem) Readlink(name string) (string, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	target, ok := mfs.symlinks[clean]
	if !ok {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
	}
	return target, nil
}

// Symlink implements FileSystem.
func (mfs *MapFileSystem) Symlink(oldname, newname string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.symlinks[mfs.cleanPath(newname)] = oldname
	return nil
}

// symlinkInfo is a minimal fs.FileInfo for a recorded MapFileSystem symlink.
type symlinkInfo struct{ name string }

func (s *symlinkInfo) Name() string       { return s.name }
func (s *symlinkInfo) Size() int64        { return 0 }
func (s *symlinkInfo) Mode() fs.FileMode  { return fs.ModeSymlink | 0777 }
func (s *symlinkInfo) ModTime() time.Time { return time.Time{} }
func (s *symlinkInfo) IsDir() bool        { return false }
func (s *symlinkInfo) Sys() any           { return nil }

// Exists implements FileSystem.
func (mfs *MapFileSystem) Exists(path string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(path)
	if target, ok := mfs.resolveSymlink(clean); ok {
		clean = target
	}

	if _, exists := mfs.mapFS[clean]; exists {
		return true
	}

	prefix := clean + "/"
	for filePath := range mfs.mapFS {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}

	return false
}

// ReadDir implements FileSystem. Direct-child symlinks recorded via
// AddSymlink/Symlink are merged into the listing as synthetic entries, the
// way a real directory listing surfaces symlinks without following them.
func (mfs *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if target, ok := mfs.resolveSymlink(clean); ok {
		clean = target
	}
	entries, err := fs.ReadDir(mfs.mapFS, clean)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
	}
	for linkPath := range mfs.symlinks {
		if path.Dir(linkPath) != clean {
			continue
		}
		linkName := path.Base(linkPath)
		if seen[linkName] {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(&symlinkInfo{name: linkName}))
		seen[linkName] = true
	}
	return entries, nil
}

// Open implements FileSystem.
func (mfs *MapFileSystem) Open(name string) (fs.File, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	clean := mfs.cleanPath(name)
	if target, ok := mfs.resolveSymlink(clean); ok {
		clean = target
	}
	return mfs.mapFS.Open(clean)
}

// ListFiles returns all files in the MapFS for debugging.
func (mfs *MapFileSystem) ListFiles() map[string]string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	result := make(map[string]string)
	for p, file := range mfs.mapFS {
		// Directories are stored as .keep files
		if strings.HasSuffix(p, "/.keep") || p == ".keep" {
			dirPath := path.Dir(p)
			if dirPath == "." {
				dirPath = "/"
			}
			result[dirPath] = "directory"
		} else {
			result[p] = fmt.Sprintf("file (%d bytes)", len(file.Data))
		}
	}
	return result
}

func (mfs *MapFileSystem) cleanPath(p string) string {
	cleaned := path.Clean(p)
	if !path.IsAbs(cleaned) {
		cleaned = "/" + cleaned
	}
	return strings.TrimPrefix(cleaned, "/")
}

func (mfs *MapFileSystem) ensureParentDirLocked(filePath string) error {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}

	if file, exists := mfs.mapFS[dir]; exists && !file.Mode.IsDir() {
		return &fs.PathError{Op: "open", Path: filePath, Err: fmt.Errorf("not a directory")}
	}

	return nil
}
