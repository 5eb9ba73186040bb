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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"stowaway.dev/stowaway/internal/platform"
)

// Manager downloads, extracts and caches portable Node.js runtimes. Its
// on-disk cache lives under its own xdg.CacheHome subdirectory, separate
// from the generated launcher's own per-build extraction cache: one caches
// build-time downloads shared across every bundle stowaway produces, the
// other caches a single launcher's own first-run extraction.
type Manager struct {
	fetcher  Fetcher
	cache    *VersionCache
	cacheDir string
}

// NewManager creates a Manager backed by fetcher, using xdg.CacheHome (or
// cacheDirOverride, if non-empty, for tests) as the root of its persistent
// disk cache.
func NewManager(fetcher Fetcher, cacheDirOverride string) *Manager {
	cacheDir := cacheDirOverride
	if cacheDir == "" {
		cacheDir = filepath.Join(xdg.CacheHome, "stowaway", "runtimes")
	}
	return &Manager{
		fetcher:  fetcher,
		cache:    NewVersionCache(16),
		cacheDir: cacheDir,
	}
}

// Ensure returns the root directory of an extracted runtime for version and
// target, downloading and extracting it first if the on-disk cache doesn't
// already have it. Concurrent calls for the same version/target share a
// single download, unless ignoreCache is set, which bypasses the in-memory
// VersionCache index (but not the on-disk extraction cache) — the effect of
// `stowaway bundle --ignore-cached-versions`.
func (m *Manager) Ensure(ctx context.Context, version string, target platform.Target, ignoreCache bool) (string, error) {
	load := func() (string, error) {
		runtimeDir := filepath.Join(m.cacheDir, version, target.String())
		nodeExecutable := filepath.Join(runtimeDir, target.NodeExecutablePath())

		if _, err := os.Stat(nodeExecutable); err == nil {
			return runtimeDir, nil
		}

		url := target.DownloadURL(version)
		archive, err := m.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", fmt.Errorf("downloading Node.js %s for %s: %w", version, target, err)
		}

		if err := os.RemoveAll(runtimeDir); err != nil {
			return "", fmt.Errorf("clearing stale runtime cache: %w", err)
		}
		if err := os.MkdirAll(runtimeDir, 0755); err != nil {
			return "", fmt.Errorf("creating runtime cache directory: %w", err)
		}
		if err := extractTarGz(bytes.NewReader(archive), runtimeDir); err != nil {
			return "", fmt.Errorf("extracting Node.js %s for %s: %w", version, target, err)
		}

		if target.OS != "windows" {
			if err := os.Chmod(nodeExecutable, 0755); err != nil {
				return "", fmt.Errorf("making node executable: %w", err)
			}
		}
		if _, err := os.Stat(nodeExecutable); err != nil {
			return "", fmt.Errorf("node executable missing after extraction: %w", err)
		}

		return runtimeDir, nil
	}

	if ignoreCache {
		return load()
	}
	return m.cache.GetOrLoad(version, target, load)
}
