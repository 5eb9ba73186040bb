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
package runtimefetch_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"stowaway.dev/stowaway/internal/platform"
	"stowaway.dev/stowaway/runtimefetch"
)

// fakeFetcher serves a canned tar.gz archive for any URL and counts fetches,
// so tests can assert the VersionCache dedupes concurrent/repeated requests.
type fakeFetcher struct {
	archive  []byte
	fetchErr error
	calls    atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.archive, nil
}

func buildFakeRuntimeArchive(t *testing.T, topLevelDir string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	files := []struct {
		name string
		mode int64
		body string
	}{
		{topLevelDir + "/", 0755, ""},
		{topLevelDir + "/bin/", 0755, ""},
		{topLevelDir + "/bin/node", 0755, "fake node binary"},
		{topLevelDir + "/README.md", 0644, "hello"},
	}
	for _, f := range files {
		typ := byte(tar.TypeReg)
		if f.body == "" {
			typ = tar.TypeDir
		}
		hdr := &tar.Header{Name: f.name, Mode: f.mode, Size: int64(len(f.body)), Typeflag: typ}
		require.NoError(t, tw.WriteHeader(hdr))
		if f.body != "" {
			_, err := tw.Write([]byte(f.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func TestManagerEnsureExtractsAndCaches(t *testing.T) {
	target := platform.Target{OS: "linux", Arch: "x64"}
	fetcher := &fakeFetcher{archive: buildFakeRuntimeArchive(t, "node-v22.17.1-linux-x64")}
	mgr := runtimefetch.NewManager(fetcher, t.TempDir())

	dir, err := mgr.Ensure(context.Background(), "22.17.1", target, false)
	require.NoError(t, err)

	nodeBin := filepath.Join(dir, "bin", "node")
	data, err := os.ReadFile(nodeBin)
	require.NoError(t, err)
	require.Equal(t, "fake node binary", string(data))

	info, err := os.Stat(nodeBin)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0755), info.Mode().Perm())

	// Second call must hit the cache, not the fetcher again.
	dir2, err := mgr.Ensure(context.Background(), "22.17.1", target, false)
	require.NoError(t, err)
	require.Equal(t, dir, dir2)
	require.Equal(t, int32(1), fetcher.calls.Load())
}

func TestManagerEnsureIgnoreCacheBypassesVersionIndexButNotDisk(t *testing.T) {
	target := platform.Target{OS: "linux", Arch: "x64"}
	fetcher := &fakeFetcher{archive: buildFakeRuntimeArchive(t, "node-v22.17.1-linux-x64")}
	mgr := runtimefetch.NewManager(fetcher, t.TempDir())

	dir, err := mgr.Ensure(context.Background(), "22.17.1", target, true)
	require.NoError(t, err)

	// ignoreCache still finds the on-disk extraction and skips downloading,
	// it only bypasses the in-memory index that would have short-circuited
	// without even checking disk.
	dir2, err := mgr.Ensure(context.Background(), "22.17.1", target, true)
	require.NoError(t, err)
	require.Equal(t, dir, dir2)
	require.Equal(t, int32(1), fetcher.calls.Load())
}

func TestManagerEnsureReusesOnDiskCacheAcrossInstances(t *testing.T) {
	target := platform.Target{OS: "linux", Arch: "x64"}
	cacheDir := t.TempDir()
	fetcher := &fakeFetcher{archive: buildFakeRuntimeArchive(t, "node-v22.17.1-linux-x64")}

	mgr1 := runtimefetch.NewManager(fetcher, cacheDir)
	_, err := mgr1.Ensure(context.Background(), "22.17.1", target, false)
	require.NoError(t, err)
	require.Equal(t, int32(1), fetcher.calls.Load())

	// A fresh Manager (in-memory VersionCache is empty) sharing the same
	// on-disk cacheDir should find the existing extraction without fetching.
	mgr2 := runtimefetch.NewManager(fetcher, cacheDir)
	_, err = mgr2.Ensure(context.Background(), "22.17.1", target, false)
	require.NoError(t, err)
	require.Equal(t, int32(1), fetcher.calls.Load())
}

func TestManagerEnsurePropagatesFetchError(t *testing.T) {
	target := platform.Target{OS: "linux", Arch: "x64"}
	fetcher := &fakeFetcher{fetchErr: fmt.Errorf("boom")}
	mgr := runtimefetch.NewManager(fetcher, t.TempDir())

	_, err := mgr.Ensure(context.Background(), "22.17.1", target, false)
	require.Error(t, err)
}
