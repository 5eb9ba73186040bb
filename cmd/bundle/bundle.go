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

// Package bundle implements `stowaway bundle`, the build-time command that
// packages a JavaScript application and a portable runtime into a single
// native launcher executable.
package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stowaway.dev/stowaway/archive"
	"stowaway.dev/stowaway/fs"
	"stowaway.dev/stowaway/internal/buildid"
	"stowaway.dev/stowaway/internal/output"
	"stowaway.dev/stowaway/internal/platform"
	"stowaway.dev/stowaway/launcher"
	"stowaway.dev/stowaway/packagejson"
	"stowaway.dev/stowaway/resolve"
	"stowaway.dev/stowaway/runtimefetch"
	"stowaway.dev/stowaway/sourcedir"
)

// Cmd is the `bundle` command.
var Cmd = &cobra.Command{
	Use:   "bundle <project-dir>",
	Short: "Package a JavaScript application into a native executable",
	Long:  `bundle packages a JavaScript application, its resolved dependencies, and a portable runtime into a single native launcher executable.`,
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().String("output", "", "Path of the produced launcher file")
	Cmd.Flags().String("name", "", "Override the derived base name")
	Cmd.Flags().Bool("no-compression", false, "Use stored mode in the archive instead of compressing")
	Cmd.Flags().Bool("ignore-cached-versions", false, "Bypass the in-memory runtime-version index cache")
	Cmd.Flags().BoolP("verbose", "v", false, "Raise log verbosity")
	Cmd.Flags().StringSlice("output-dir-name", nil, "Additional conventional build-output directory name to check, ahead of the built-in list (repeatable)")

	_ = viper.BindPFlag("bundle.output", Cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("bundle.name", Cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("bundle.no-compression", Cmd.Flags().Lookup("no-compression"))
	_ = viper.BindPFlag("bundle.ignore-cached-versions", Cmd.Flags().Lookup("ignore-cached-versions"))
	_ = viper.BindPFlag("bundle.verbose", Cmd.Flags().Lookup("verbose"))
}

func run(cmd *cobra.Command, args []string) error {
	projectDir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}

	outputDirNames, _ := cmd.Flags().GetStringSlice("output-dir-name")

	opts := Options{
		ProjectDir:           projectDir,
		Output:               viper.GetString("bundle.output"),
		Name:                 viper.GetString("bundle.name"),
		NoCompression:        viper.GetBool("bundle.no-compression"),
		IgnoreCachedVersions: viper.GetBool("bundle.ignore-cached-versions"),
		Verbose:              viper.GetBool("bundle.verbose"),
		ExtraOutputDirNames:  outputDirNames,
	}

	logger := output.NewLogger()
	logger.SetVerbose(opts.Verbose)

	osfs := fs.NewOSFileSystem()
	manager := runtimefetch.NewManager(runtimefetch.NewHTTPFetcher(), "")
	compiler := launcher.GoToolchainCompiler{}

	return Run(cmd.Context(), osfs, logger, opts, manager, compiler)
}

// Options configures a single `stowaway bundle` invocation.
type Options struct {
	ProjectDir           string
	Output               string
	Name                 string
	NoCompression        bool
	IgnoreCachedVersions bool
	Verbose              bool
	ExtraOutputDirNames  []string
}

// Run executes the full bundling pipeline: resolve dependencies, select the
// source directory, fetch the runtime, write the archive, generate and
// compile the launcher. It is factored out of the cobra RunE so tests can
// substitute a fake runtime manager and compiler.
func Run(ctx context.Context, fsys fs.FileSystem, logger *output.Logger, opts Options, manager *runtimefetch.Manager, compiler launcher.Compiler) error {
	pkgPath := filepath.Join(opts.ProjectDir, "package.json")
	rootPkg, err := packagejson.ParseFile(fsys, pkgPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pkgPath, err)
	}

	appName := opts.Name
	if appName == "" {
		appName = rootPkg.Name
	}
	if appName == "" {
		appName = "app"
	}
	appVersion := rootPkg.Version
	if appVersion == "" {
		appVersion = "0.0.0"
	}

	outputDirs := append(append([]string{}, opts.ExtraOutputDirNames...), sourcedir.ConventionalOutputDirs...)
	srcDir, err := sourcedir.Select(fsys, opts.ProjectDir, rootPkg, outputDirs)
	if err != nil {
		return fmt.Errorf("selecting source directory: %w", err)
	}

	set, _, err := resolve.Resolve(fsys, logger, opts.ProjectDir, rootPkg)
	if err != nil {
		return fmt.Errorf("resolving dependencies: %w", err)
	}

	nodeVersion, ok := runtimefetch.DetectVersion(fsys, opts.ProjectDir)
	if !ok {
		nodeVersion = runtimefetch.DefaultVersion
	}
	target := platform.Current()

	logger.Debug("fetching Node.js %s for %s", nodeVersion, target)
	runtimeDir, err := manager.Ensure(ctx, nodeVersion, target, opts.IgnoreCachedVersions)
	if err != nil {
		return fmt.Errorf("fetching Node.js runtime: %w", err)
	}

	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	if opts.NoCompression {
		w.SetCompression(archive.Stored)
	}

	if err := w.AddTree(fsys, srcDir, "app", true, "node_modules"); err != nil {
		return fmt.Errorf("adding application source: %w", err)
	}
	if srcDir != opts.ProjectDir {
		rewritten, err := sourcedir.RewriteManifest(rootPkg, opts.ProjectDir, srcDir)
		if err != nil {
			return fmt.Errorf("rewriting package.json for source directory %s: %w", srcDir, err)
		}
		data, err := json.MarshalIndent(rewritten, "", "  ")
		if err != nil {
			return fmt.Errorf("serializing rewritten package.json: %w", err)
		}
		if err := w.AddFile("app/package.json", data, 0644); err != nil {
			return fmt.Errorf("writing rewritten package.json: %w", err)
		}
	}
	if err := w.AddPackages(fsys, set, "app/node_modules", 0); err != nil {
		return fmt.Errorf("adding resolved dependencies: %w", err)
	}

	osfs := fs.NewOSFileSystem()
	if err := w.AddTree(osfs, runtimeDir, "runtime", true); err != nil {
		return fmt.Errorf("adding runtime: %w", err)
	}

	if _, err := w.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	outputPath, err := resolveOutputPath(opts.Output, appName)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}

	id, err := buildid.New()
	if err != nil {
		return err
	}

	sourceDir, err := launcher.Generate(&buf, id, appName)
	if err != nil {
		return fmt.Errorf("generating launcher source: %w", err)
	}
	defer os.RemoveAll(sourceDir)

	if err := compiler.Compile(sourceDir, outputPath); err != nil {
		return fmt.Errorf("compiling launcher: %w", err)
	}

	summary := output.Summary{
		AppName:        appName,
		AppVersion:     appVersion,
		NodeVersion:    nodeVersion,
		Platform:       target.String(),
		SourceDir:      srcDir,
		ProjectDir:     opts.ProjectDir,
		PackageCount:   set.Len(),
		OutputPath:     outputPath,
		CompressedSize: int64(buf.Len()),
	}
	summary.Print(logger)

	return nil
}

// resolveOutputPath derives the launcher's output path from explicit
// (falling back to appName) with the host-appropriate extension, then finds
// a non-colliding path by appending "-bundle", then "-bundle-N" for
// increasing N, should a file or directory already occupy that name.
func resolveOutputPath(explicit, appName string) (string, error) {
	base := explicit
	if base == "" {
		base = appName
		if runtime.GOOS == "windows" {
			base += ".exe"
		}
	}

	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base, nil
	}

	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	candidate := stem + "-bundle" + ext
	for n := 2; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-bundle-%d%s", stem, n, ext)
	}
}
