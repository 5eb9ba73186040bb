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
// Package sourcedir selects the directory within a project that should be
// treated as the application's runtime source, distinguishing a compiled
// output directory (TypeScript's outDir, a conventional dist/build/lib/out)
// from the project root.
package sourcedir

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"stowaway.dev/stowaway/fs"
	"stowaway.dev/stowaway/packagejson"
)

// ConventionalOutputDirs lists the directory names checked, in order, when
// no tsconfig outDir is found. Callers may prepend project-specific names
// ahead of this list (see cmd/bundle's --output-dir-name flag).
var ConventionalOutputDirs = []string{"dist", "build", "lib", "out"}

type tsconfig struct {
	Extends         string `json:"extends,omitempty"`
	CompilerOptions struct {
		OutDir string `json:"outDir,omitempty"`
	} `json:"compilerOptions,omitempty"`
}

// Select returns the absolute path to the directory that should be treated
// as the application's source root. It tries, in order: the parent
// directory of the manifest's main entry point when that parent is one of
// outputDirs; the tsconfig.json compilerOptions.outDir, if present and
// existing; the first of outputDirs that exists and contains JS files or a
// nested package.json; and finally root itself.
func Select(fsys fs.FileSystem, root string, pkg *packagejson.PackageJSON, outputDirs []string) (string, error) {
	if len(outputDirs) == 0 {
		outputDirs = ConventionalOutputDirs
	}

	if pkg.Main != "" {
		mainPath := filepath.Join(root, filepath.FromSlash(pkg.Main))
		parent := filepath.Dir(mainPath)
		parentName := filepath.Base(parent)
		if contains(outputDirs, parentName) && fsys.Exists(parent) {
			return parent, nil
		}
	}

	tsconfigPath := filepath.Join(root, "tsconfig.json")
	if fsys.Exists(tsconfigPath) {
		cfg, err := readTsconfig(fsys, tsconfigPath, 0)
		if err == nil && cfg.CompilerOptions.OutDir != "" {
			outPath := filepath.Join(root, filepath.FromSlash(cfg.CompilerOptions.OutDir))
			if fsys.Exists(outPath) {
				return outPath, nil
			}
		}
	}

	for _, name := range outputDirs {
		dirPath := filepath.Join(root, name)
		stat, err := fsys.Stat(dirPath)
		if err != nil || !stat.IsDir() {
			continue
		}
		if containsJSFiles(fsys, dirPath) || fsys.Exists(filepath.Join(dirPath, "package.json")) {
			return dirPath, nil
		}
	}

	return root, nil
}

// maxExtendsDepth bounds tsconfig extends chasing to one level, matching
// the original tool's "simple merge" behavior.
const maxExtendsDepth = 1

// readTsconfig parses a tsconfig.json, tolerant of // comments, and merges
// in a single level of a relative "extends" reference.
func readTsconfig(fsys fs.FileSystem, path string, depth int) (tsconfig, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return tsconfig{}, err
	}

	var cfg tsconfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return tsconfig{}, err
	}

	if cfg.Extends == "" || depth >= maxExtendsDepth || !strings.HasPrefix(cfg.Extends, ".") {
		return cfg, nil
	}

	basePath := filepath.Join(filepath.Dir(path), filepath.FromSlash(cfg.Extends))
	if filepath.Ext(basePath) == "" {
		basePath += ".json"
	}
	if !fsys.Exists(basePath) {
		return cfg, nil
	}

	baseCfg, err := readTsconfig(fsys, basePath, depth+1)
	if err != nil {
		return cfg, nil
	}
	if cfg.CompilerOptions.OutDir == "" {
		cfg.CompilerOptions.OutDir = baseCfg.CompilerOptions.OutDir
	}
	return cfg, nil
}

func containsJSFiles(fsys fs.FileSystem, dir string) bool {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".js") || strings.HasSuffix(name, ".mjs") || strings.HasSuffix(name, ".cjs") {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// RewriteManifest adjusts a root package.json's main field to be relative
// to sourceDir instead of root, for use when sourceDir != root and both
// the rewritten root manifest and the source tree are packaged under app/.
func RewriteManifest(pkg *packagejson.PackageJSON, root, sourceDir string) (*packagejson.PackageJSON, error) {
	if root == sourceDir || pkg.Main == "" {
		return pkg, nil
	}

	mainAbs := filepath.Join(root, filepath.FromSlash(pkg.Main))
	rel, err := filepath.Rel(sourceDir, mainAbs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return pkg, nil
	}

	rewritten := *pkg
	rewritten.Main = filepath.ToSlash(rel)
	return &rewritten, nil
}
