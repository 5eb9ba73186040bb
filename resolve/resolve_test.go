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
package resolve_test

import (
	"testing"

	"stowaway.dev/stowaway/internal/mapfs"
	"stowaway.dev/stowaway/packagejson"
	"stowaway.dev/stowaway/resolve"
)

type nullLogger struct{}

func (nullLogger) Warning(format string, args ...any) {}
func (nullLogger) Debug(format string, args ...any)   {}
func (nullLogger) Info(format string, args ...any)    {}
func (nullLogger) Success(format string, args ...any) {}

func TestFindWorkspaceRoot(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(mfs *mapfs.MapFileSystem)
		startDir string
		expected string
	}{
		{
			name: "root with node_modules",
			setup: func(mfs *mapfs.MapFileSystem) {
				mfs.AddDir("/root/node_modules", 0755)
				mfs.AddDir("/root/packages/pkg1", 0755)
			},
			startDir: "/root/packages/pkg1",
			expected: "/root",
		},
		{
			name: "root with package.json workspaces",
			setup: func(mfs *mapfs.MapFileSystem) {
				mfs.AddFile("/root/package.json", `{"workspaces": ["packages/*"]}`, 0644)
				mfs.AddDir("/root/packages/pkg1", 0755)
			},
			startDir: "/root/packages/pkg1",
			expected: "/root",
		},
		{
			name: "nested node_modules",
			setup: func(mfs *mapfs.MapFileSystem) {
				mfs.AddDir("/root/node_modules", 0755)
				mfs.AddDir("/root/packages/pkg1/node_modules", 0755)
			},
			startDir: "/root/packages/pkg1",
			expected: "/root/packages/pkg1",
		},
		{
			name: "no root found",
			setup: func(mfs *mapfs.MapFileSystem) {
				mfs.AddDir("/root/packages/pkg1", 0755)
			},
			startDir: "/root/packages/pkg1",
			expected: "/root/packages/pkg1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := mapfs.New()
			if tt.setup != nil {
				tt.setup(mfs)
			}

			result := resolve.FindWorkspaceRoot(mfs, tt.startDir)
			if result != tt.expected {
				t.Errorf("FindWorkspaceRoot() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestWorkspaceContains(t *testing.T) {
	rootPkg, err := packagejson.Parse([]byte(`{"workspaces": ["packages/*"]}`))
	if err != nil {
		t.Fatal(err)
	}

	if !resolve.WorkspaceContains(rootPkg, "/root", "/root/packages/app") {
		t.Error("expected /root/packages/app to match packages/* pattern")
	}
	if resolve.WorkspaceContains(rootPkg, "/root", "/root/other/app") {
		t.Error("expected /root/other/app not to match packages/* pattern")
	}
}

func TestDetectLayoutFlat(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/package.json", `{"name":"app"}`, 0644)
	mfs.AddFile("/app/node_modules/lit/package.json", `{"name":"lit","version":"1.0.0"}`, 0644)

	layout, err := resolve.DetectLayout(mfs, nullLogger{}, "/app")
	if err != nil {
		t.Fatal(err)
	}
	if layout.Kind != resolve.LayoutFlat {
		t.Errorf("Kind = %v, want LayoutFlat", layout.Kind)
	}
}

func TestDetectLayoutContentStore(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/package.json", `{"name":"app"}`, 0644)
	mfs.AddDir("/app/node_modules/.store", 0755)
	mfs.AddFile("/app/node_modules/.store/lit@1.0.0/package.json", `{"name":"lit","version":"1.0.0"}`, 0644)
	mfs.AddSymlink("/app/node_modules/lit", "../node_modules/.store/lit@1.0.0")

	layout, err := resolve.DetectLayout(mfs, nullLogger{}, "/app")
	if err != nil {
		t.Fatal(err)
	}
	if layout.Kind != resolve.LayoutContentStore {
		t.Errorf("Kind = %v, want LayoutContentStore", layout.Kind)
	}
}

func TestDetectLayoutWorkspace(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/root/package.json", `{"workspaces":["packages/*"]}`, 0644)
	mfs.AddFile("/root/node_modules/lit/package.json", `{"name":"lit","version":"1.0.0"}`, 0644)
	mfs.AddFile("/root/packages/app/package.json", `{"name":"app"}`, 0644)

	layout, err := resolve.DetectLayout(mfs, nullLogger{}, "/root/packages/app")
	if err != nil {
		t.Fatal(err)
	}
	if layout.Kind != resolve.LayoutWorkspace {
		t.Errorf("Kind = %v, want LayoutWorkspace", layout.Kind)
	}
	if layout.Root != "/root" {
		t.Errorf("Root = %q, want /root", layout.Root)
	}
}

func TestResolveClosure(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/app/node_modules/a/package.json", `{"name":"a","version":"1.0.0","dependencies":{"b":"^1.0.0"}}`, 0644)
	mfs.AddFile("/app/node_modules/b/package.json", `{"name":"b","version":"1.0.0"}`, 0644)

	rootPkg, err := packagejson.Parse([]byte(`{"name":"app","dependencies":{"a":"^1.0.0"}}`))
	if err != nil {
		t.Fatal(err)
	}

	set, layout, err := resolve.Resolve(mfs, nullLogger{}, "/app", rootPkg)
	if err != nil {
		t.Fatal(err)
	}
	if layout.Kind != resolve.LayoutFlat {
		t.Errorf("Kind = %v, want LayoutFlat", layout.Kind)
	}
	names := set.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	dependents := set.Dependents("b")
	if len(dependents) != 1 || dependents[0] != "a" {
		t.Errorf("Dependents(b) = %v, want [a]", dependents)
	}
}

func TestResolveMissingRequiredDependency(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddDir("/app/node_modules", 0755)

	rootPkg, err := packagejson.Parse([]byte(`{"name":"app","dependencies":{"missing":"^1.0.0"}}`))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = resolve.Resolve(mfs, nullLogger{}, "/app", rootPkg)
	if err == nil {
		t.Fatal("expected error for missing required dependency")
	}
}

func TestResolveSkipsMissingOptionalDependency(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddDir("/app/node_modules", 0755)

	rootPkg, err := packagejson.Parse([]byte(`{"name":"app","optionalDependencies":{"missing":"^1.0.0"}}`))
	if err != nil {
		t.Fatal(err)
	}

	set, _, err := resolve.Resolve(mfs, nullLogger{}, "/app", rootPkg)
	if err != nil {
		t.Fatalf("expected optional dependency to be skipped, got error: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0", set.Len())
	}
}

func TestResolveClosureContentStoreTransitiveDependency(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddDir("/app/node_modules/.store", 0755)
	// "uuid" is a direct dependency, hoisted at the top level.
	mfs.AddFile("/app/node_modules/.store/uuid@9.1.2/node_modules/uuid/package.json", `{"name":"uuid","version":"9.1.2","dependencies":{"internal-dep":"^2.0.0"}}`, 0644)
	mfs.AddSymlink("/app/node_modules/uuid", ".store/uuid@9.1.2/node_modules/uuid")
	// "internal-dep" is a transitive dependency, reachable only through the
	// store — uuid's own version range ("^2.0.0") never appears verbatim in
	// the store entry's resolved name ("internal-dep@2.3.4").
	mfs.AddFile("/app/node_modules/.store/internal-dep@2.3.4/node_modules/internal-dep/package.json", `{"name":"internal-dep","version":"2.3.4"}`, 0644)

	rootPkg, err := packagejson.Parse([]byte(`{"name":"app","dependencies":{"uuid":"^9.0.0"}}`))
	if err != nil {
		t.Fatal(err)
	}

	set, layout, err := resolve.Resolve(mfs, nullLogger{}, "/app", rootPkg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if layout.Kind != resolve.LayoutContentStore {
		t.Errorf("Kind = %v, want LayoutContentStore", layout.Kind)
	}
	names := set.Names()
	if len(names) != 2 || names[0] != "internal-dep" || names[1] != "uuid" {
		t.Errorf("Names() = %v, want [internal-dep uuid]", names)
	}
}

func TestStoreDirNameRoundTrip(t *testing.T) {
	cases := []struct{ name, version string }{
		{"lit", "3.1.0"},
		{"@lit/reactive-element", "1.6.0"},
	}
	for _, c := range cases {
		dirName := resolve.StoreDirName(c.name, c.version)
		name, version, ok := resolve.ParseStoreDirName(dirName)
		if !ok {
			t.Fatalf("ParseStoreDirName(%q) failed to parse", dirName)
		}
		if name != c.name || version != c.version {
			t.Errorf("ParseStoreDirName(%q) = (%q, %q), want (%q, %q)", dirName, name, version, c.name, c.version)
		}
	}
}
