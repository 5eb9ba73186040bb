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
	"sync"
	"sync/atomic"
	"testing"

	"stowaway.dev/stowaway/internal/platform"
	"stowaway.dev/stowaway/runtimefetch"
)

func TestVersionCacheGetOrLoadDedupesConcurrentCallers(t *testing.T) {
	cache := runtimefetch.NewVersionCache(4)
	target := platform.Target{OS: "linux", Arch: "x64"}

	var loads atomic.Int32
	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := cache.GetOrLoad("22.17.1", target, func() (string, error) {
				loads.Add(1)
				return "/cache/22.17.1/linux-x64", nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = dir
		}(i)
	}
	wg.Wait()

	if loads.Load() != 1 {
		t.Errorf("loader called %d times, want 1", loads.Load())
	}
	for _, r := range results {
		if r != "/cache/22.17.1/linux-x64" {
			t.Errorf("result = %q, want %q", r, "/cache/22.17.1/linux-x64")
		}
	}
}

func TestVersionCacheEvictsOldest(t *testing.T) {
	cache := runtimefetch.NewVersionCache(2)
	target := platform.Target{OS: "linux", Arch: "x64"}

	for _, v := range []string{"18.0.0", "20.0.0", "22.0.0"} {
		_, err := cache.GetOrLoad(v, target, func() (string, error) { return "/cache/" + v, nil })
		if err != nil {
			t.Fatalf("GetOrLoad(%s): %v", v, err)
		}
	}

	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}
	if _, ok := cache.Get("18.0.0", target); ok {
		t.Error("expected oldest entry to have been evicted")
	}
	if _, ok := cache.Get("22.0.0", target); !ok {
		t.Error("expected most recent entry to still be cached")
	}
}
