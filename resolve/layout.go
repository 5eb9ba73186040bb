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
	"fmt"
	"path/filepath"

	"stowaway.dev/stowaway/fs"
	"stowaway.dev/stowaway/packagejson"
)

// LayoutKind identifies one of the three node_modules installation shapes
// the resolver knows how to read.
type LayoutKind int

const (
	// LayoutFlat is a conventional node_modules/NAME installation, where
	// NAME may itself be a symlink (npm/yarn classic "hoisted" layout).
	LayoutFlat LayoutKind = iota
	// LayoutContentStore addresses packages by content under
	// node_modules/.store/NAME@VERSION, symlinked into node_modules for
	// packages the root manifest depends on directly (pnpm-style).
	LayoutContentStore
	// LayoutWorkspace means the project directory itself has no
	// node_modules; an ancestor directory holds the authoritative
	// installation for the whole workspace.
	LayoutWorkspace
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutFlat:
		return "flat"
	case LayoutContentStore:
		return "content-store"
	case LayoutWorkspace:
		return "workspace"
	default:
		return "unknown"
	}
}

// storeDirName is the conventional directory holding a content-addressable
// store inside node_modules.
const storeDirName = ".store"

// InstallationLayout describes where an application's dependency closure
// can be read from.
type InstallationLayout struct {
	Kind LayoutKind
	// NodeModules is the absolute path to the node_modules directory that
	// holds (or, for LayoutWorkspace, is reached via) the installation.
	NodeModules string
	// Root is the directory node_modules belongs to. For LayoutWorkspace
	// this is an ancestor of the project directory; otherwise it equals
	// the project directory.
	Root string
}

// DetectLayout inspects projectDir and, when necessary, its ancestors, to
// determine how its dependencies are installed.
func DetectLayout(fsys fs.FileSystem, logger Logger, projectDir string) (InstallationLayout, error) {
	nodeModules := filepath.Join(projectDir, "node_modules")
	if stat, err := fsys.Stat(nodeModules); err == nil && stat.IsDir() {
		if storeStat, err := fsys.Stat(filepath.Join(nodeModules, storeDirName)); err == nil && storeStat.IsDir() {
			logger.Debug("detected content-store layout at %s", nodeModules)
			return InstallationLayout{Kind: LayoutContentStore, NodeModules: nodeModules, Root: projectDir}, nil
		}
		logger.Debug("detected flat layout at %s", nodeModules)
		return InstallationLayout{Kind: LayoutFlat, NodeModules: nodeModules, Root: projectDir}, nil
	}

	root := FindWorkspaceRoot(fsys, filepath.Dir(projectDir))
	if root == filepath.Dir(projectDir) && !fsys.Exists(filepath.Join(root, "node_modules")) {
		return InstallationLayout{}, fmt.Errorf("no node_modules found at %s and no workspace root found in any ancestor", projectDir)
	}

	rootPkg, err := packagejson.ParseFile(fsys, filepath.Join(root, "package.json"))
	if err == nil && !WorkspaceContains(rootPkg, root, projectDir) {
		logger.Warning("workspace root %s does not list %s among its workspace patterns; using it anyway", root, projectDir)
	}

	rootNodeModules := filepath.Join(root, "node_modules")
	stat, err := fsys.Stat(rootNodeModules)
	if err != nil || !stat.IsDir() {
		return InstallationLayout{}, fmt.Errorf("workspace root %s has no node_modules directory", root)
	}

	if storeStat, err := fsys.Stat(filepath.Join(rootNodeModules, storeDirName)); err == nil && storeStat.IsDir() {
		logger.Debug("detected workspace content-store layout rooted at %s", root)
		return InstallationLayout{Kind: LayoutContentStore, NodeModules: rootNodeModules, Root: root}, nil
	}

	logger.Debug("detected workspace layout rooted at %s", root)
	return InstallationLayout{Kind: LayoutWorkspace, NodeModules: rootNodeModules, Root: root}, nil
}

// ManifestPath returns the path to a package's package.json under this
// layout, or an error if it cannot be located (e.g. a broken symlink or a
// content-store entry that no longer exists).
func (l InstallationLayout) ManifestPath(fsys fs.FileSystem, name, versionHint string) (string, error) {
	switch l.Kind {
	case LayoutContentStore:
		if candidate, ok := l.findInStore(fsys, name); ok {
			return candidate, nil
		}
		// Fall back to the hoisted symlink in node_modules, which resolves
		// into the store and exists for packages the root manifest depends
		// on directly even when no matching store entry is found (e.g. an
		// npm overrides rewrite).
		fallthrough
	case LayoutFlat, LayoutWorkspace:
		candidate := filepath.Join(l.NodeModules, filepath.FromSlash(name), "package.json")
		if fsys.Exists(candidate) {
			return candidate, nil
		}
		return "", fmt.Errorf("package %q not found under %s", name, l.NodeModules)
	default:
		return "", fmt.Errorf("unknown layout kind %v", l.Kind)
	}
}

// findInStore scans node_modules/.store for the first entry whose
// name-parsed package name matches name, per spec's ContentStore lookup
// rule: "first match within .store/*/node_modules/NAME/package.json where
// the store directory's name has the package's name component". The
// version hint is not used for matching — store directory names are
// resolved, not requested, versions, so a dependent's semver range (e.g.
// "^9") never appears verbatim in a store entry's name.
func (l InstallationLayout) findInStore(fsys fs.FileSystem, name string) (string, bool) {
	storeDir := filepath.Join(l.NodeModules, storeDirName)
	entries, err := fsys.ReadDir(storeDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		entryName, _, ok := ParseStoreDirName(e.Name())
		if !ok || entryName != name {
			continue
		}
		candidate := filepath.Join(storeDir, e.Name(), "node_modules", filepath.FromSlash(name), "package.json")
		if fsys.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// PackageDir returns the directory a package's files live in under this
// layout (the parent of its package.json).
func (l InstallationLayout) PackageDir(fsys fs.FileSystem, name, versionHint string) (string, error) {
	manifest, err := l.ManifestPath(fsys, name, versionHint)
	if err != nil {
		return "", err
	}
	return filepath.Dir(manifest), nil
}
