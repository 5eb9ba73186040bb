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
	"maps"
	"slices"
	"sync"

	"stowaway.dev/stowaway/fs"
	"stowaway.dev/stowaway/packagejson"
)

// maxClosureDepth bounds dependency closure traversal. It is a soft limit:
// a path that exceeds it is abandoned with a warning rather than aborting
// the whole resolution, since cyclic or unusually deep graphs are valid in
// real installations.
const maxClosureDepth = 20

// resolvedPackage is one package discovered while walking the dependency
// closure.
type resolvedPackage struct {
	Name         string
	Version      string
	Dir          string
	ManifestPath string
}

// ResolutionSet is the transitive closure of packages an application needs
// at runtime, together with the edges that brought each one in.
type ResolutionSet struct {
	mu         sync.RWMutex
	packages   map[string]resolvedPackage
	dependsOn  map[string]map[string]bool
	dependents map[string]map[string]bool
}

func newResolutionSet() *ResolutionSet {
	return &ResolutionSet{
		packages:   make(map[string]resolvedPackage),
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

func (s *ResolutionSet) addPackage(pkg resolvedPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[pkg.Name] = pkg
}

func (s *ResolutionSet) addEdge(parent, child string) {
	if parent == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dependsOn[parent] == nil {
		s.dependsOn[parent] = make(map[string]bool)
	}
	s.dependsOn[parent][child] = true
	if s.dependents[child] == nil {
		s.dependents[child] = make(map[string]bool)
	}
	s.dependents[child][parent] = true
}

// Names returns the sorted names of every package in the closure.
func (s *ResolutionSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.packages))
	for name := range s.packages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of packages in the closure.
func (s *ResolutionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.packages)
}

// Dir returns the filesystem directory a package in the closure lives in.
func (s *ResolutionSet) Dir(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[name]
	return pkg.Dir, ok
}

// Version returns the resolved version of a package in the closure.
func (s *ResolutionSet) Version(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[name]
	return pkg.Version, ok
}

// Dependents returns the packages that directly depend on pkg.
func (s *ResolutionSet) Dependents(pkg string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.dependents[pkg]))
	for dep := range s.dependents[pkg] {
		result = append(result, dep)
	}
	slices.Sort(result)
	return result
}

// TransitiveDependents returns every package that directly or indirectly
// depends on pkg, useful when explaining why a package was pulled in.
func (s *ResolutionSet) TransitiveDependents(pkg string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{pkg}
	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for dep := range s.dependents[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}
	slices.Sort(result)
	return result
}

// Clone returns a deep copy of the resolution set.
func (s *ResolutionSet) Clone() *ResolutionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := newResolutionSet()
	maps.Copy(clone.packages, s.packages)
	for pkg, deps := range s.dependsOn {
		clone.dependsOn[pkg] = make(map[string]bool, len(deps))
		maps.Copy(clone.dependsOn[pkg], deps)
	}
	for pkg, deps := range s.dependents {
		clone.dependents[pkg] = make(map[string]bool, len(deps))
		maps.Copy(clone.dependents[pkg], deps)
	}
	return clone
}

// closureItem is one unit of BFS work: a dependency named by a parent
// package (or the application root, when parent is empty).
type closureItem struct {
	name        string
	versionHint string
	depth       int
	parent      string
	optional    bool
}

// Resolve detects the application's installation layout and walks its
// dependency closure breadth-first, starting from rootPkg's production,
// peer, and optional dependencies. Missing required dependencies are a
// hard error; missing optional dependencies are skipped with a warning.
// A path deeper than maxClosureDepth is abandoned with a warning rather
// than failing the whole resolution. When no installation is found for the
// project or any ancestor, the result is an empty set.
func Resolve(fsys fs.FileSystem, logger Logger, projectDir string, rootPkg *packagejson.PackageJSON) (*ResolutionSet, InstallationLayout, error) {
	layout, err := DetectLayout(fsys, logger, projectDir)
	if err != nil {
		logger.Warning("no dependency installation found (%v); bundling no dependencies", err)
		return newResolutionSet(), layout, nil
	}

	set := newResolutionSet()
	visited := make(map[string]bool)
	manifests := packagejson.NewMemoryCache()

	var queue []closureItem
	for name, ver := range rootPkg.Dependencies {
		queue = append(queue, closureItem{name: name, versionHint: ver, depth: 1})
	}
	for name, ver := range rootPkg.PeerDependencies {
		if _, ok := rootPkg.Dependencies[name]; !ok {
			queue = append(queue, closureItem{name: name, versionHint: ver, depth: 1})
		}
	}
	for name, ver := range rootPkg.OptionalDependencies {
		if _, ok := rootPkg.Dependencies[name]; !ok {
			queue = append(queue, closureItem{name: name, versionHint: ver, depth: 1, optional: true})
		}
	}
	sortClosureItems(queue)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.name] {
			set.addEdge(item.parent, item.name)
			continue
		}

		if item.depth > maxClosureDepth {
			logger.Warning("dependency closure depth exceeded %d resolving %q; abandoning this path", maxClosureDepth, item.name)
			continue
		}

		dir, err := layout.PackageDir(fsys, item.name, item.versionHint)
		if err != nil {
			if item.optional {
				logger.Warning("optional dependency %q not found, skipping: %v", item.name, err)
				continue
			}
			return nil, layout, fmt.Errorf("dependency %q required by %q not found: %w", item.name, orRoot(item.parent), err)
		}

		manifestPath, err := layout.ManifestPath(fsys, item.name, item.versionHint)
		if err != nil {
			return nil, layout, fmt.Errorf("locating manifest for %q: %w", item.name, err)
		}

		// Content-store layouts often hoist several names at the same
		// version to the same physical manifest path; caching by path
		// avoids re-parsing it once per hoisted alias.
		pkg, err := manifests.GetOrLoad(manifestPath, func() (*packagejson.PackageJSON, error) {
			return packagejson.ParseFile(fsys, manifestPath)
		})
		if err != nil {
			return nil, layout, fmt.Errorf("parsing package.json for %q: %w", item.name, err)
		}

		visited[item.name] = true
		set.addPackage(resolvedPackage{Name: item.name, Version: pkg.Version, Dir: dir, ManifestPath: manifestPath})
		set.addEdge(item.parent, item.name)

		var children []closureItem
		for depName, depVer := range pkg.Dependencies {
			children = append(children, closureItem{name: depName, versionHint: depVer, depth: item.depth + 1, parent: item.name})
		}
		for depName, depVer := range pkg.PeerDependencies {
			if _, ok := pkg.Dependencies[depName]; !ok {
				children = append(children, closureItem{name: depName, versionHint: depVer, depth: item.depth + 1, parent: item.name})
			}
		}
		for depName, depVer := range pkg.OptionalDependencies {
			if _, ok := pkg.Dependencies[depName]; !ok {
				children = append(children, closureItem{name: depName, versionHint: depVer, depth: item.depth + 1, parent: item.name, optional: true})
			}
		}
		sortClosureItems(children)
		queue = append(queue, children...)
	}

	return set, layout, nil
}

func sortClosureItems(items []closureItem) {
	slices.SortFunc(items, func(a, b closureItem) int {
		if a.name < b.name {
			return -1
		}
		if a.name > b.name {
			return 1
		}
		return 0
	})
}

func orRoot(parent string) string {
	if parent == "" {
		return "<application root>"
	}
	return parent
}
