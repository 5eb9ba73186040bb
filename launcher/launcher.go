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

// Package launcher materializes a standalone Go source module that embeds a
// Bundle and, when compiled, becomes the native executable a packaged
// application ships as: on first run it extracts itself to a per-build cache
// directory and execs the portable runtime against the app's entry script.
package launcher

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed template/main.go.tmpl
var mainTemplateSource string

//go:embed template/go.mod.tmpl
var goModTemplateSource string

var mainTemplate = template.Must(template.New("main.go.tmpl").Parse(mainTemplateSource))
var goModTemplate = template.Must(template.New("go.mod.tmpl").Parse(goModTemplateSource))

// templateData is substituted into template/main.go.tmpl.
type templateData struct {
	BuildID     string
	AppName     string
	BundlePath  string
	GoModModule string
}

// Compiler turns a generated launcher source directory into a native
// executable. Invoking the Go toolchain is the one operation this package
// never performs directly, so tests can swap in a fake.
type Compiler interface {
	Compile(sourceDir, outputPath string) error
}

// GoToolchainCompiler shells out to the Go toolchain installed on the host.
type GoToolchainCompiler struct {
	// GoBin overrides the "go" binary looked up on PATH, mainly for tests.
	GoBin string

	// Run executes bin with args in dir; tests can substitute a fake
	// without touching os/exec themselves.
	Run func(dir, bin string, args ...string) error
}

// Compile builds the launcher source in sourceDir into a single executable
// at outputPath by shelling out to `go build`.
func (c GoToolchainCompiler) Compile(sourceDir, outputPath string) error {
	bin := c.GoBin
	if bin == "" {
		bin = "go"
	}
	run := c.Run
	if run == nil {
		run = runCommand
	}
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	if err := run(sourceDir, bin, "build", "-trimpath", "-o", absOutput, "."); err != nil {
		return fmt.Errorf("compiling launcher: %w", err)
	}
	return nil
}

// FakeCompiler records compile requests instead of invoking a toolchain,
// for tests that can't shell out to `go build`.
type FakeCompiler struct {
	Compiled []FakeCompilation
}

// FakeCompilation is one recorded call to FakeCompiler.Compile.
type FakeCompilation struct {
	SourceDir  string
	OutputPath string
}

// Compile records the request and writes a placeholder file to outputPath so
// callers that assert on the output path's existence still pass.
func (f *FakeCompiler) Compile(sourceDir, outputPath string) error {
	f.Compiled = append(f.Compiled, FakeCompilation{SourceDir: sourceDir, OutputPath: outputPath})
	return os.WriteFile(outputPath, []byte("fake launcher binary\n"), 0755)
}

// Generate materializes a standalone Go module under a fresh temporary
// directory: a main.go generated from template/main.go.tmpl with buildID and
// appName substituted in, a go.mod requiring only github.com/gofrs/flock,
// and the archive bytes read from bundle copied in as bundle.bin, which
// main.go.tmpl embeds via go:embed. It returns the source directory's path;
// the caller is responsible for removing it once compilation (or inspection,
// in tests) is done.
func Generate(bundle io.Reader, buildID, appName string) (sourceDir string, err error) {
	sourceDir, err = os.MkdirTemp("", "stowaway-launcher-*")
	if err != nil {
		return "", fmt.Errorf("creating launcher source directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(sourceDir)
		}
	}()

	bundlePath := filepath.Join(sourceDir, "bundle.bin")
	bundleFile, err := os.Create(bundlePath)
	if err != nil {
		return "", fmt.Errorf("creating embedded bundle file: %w", err)
	}
	if _, err = io.Copy(bundleFile, bundle); err != nil {
		bundleFile.Close()
		return "", fmt.Errorf("writing embedded bundle file: %w", err)
	}
	if err = bundleFile.Close(); err != nil {
		return "", fmt.Errorf("closing embedded bundle file: %w", err)
	}

	data := templateData{
		BuildID:     buildID,
		AppName:     appName,
		BundlePath:  "bundle.bin",
		GoModModule: "stowaway.dev/launcher/" + SanitizeName(appName),
	}

	if err = renderTemplate(mainTemplate, filepath.Join(sourceDir, "main.go"), data); err != nil {
		return "", err
	}
	if err = renderTemplate(goModTemplate, filepath.Join(sourceDir, "go.mod"), data); err != nil {
		return "", err
	}

	return sourceDir, nil
}

func renderTemplate(tmpl *template.Template, outputPath string, data templateData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %s: %w", filepath.Base(outputPath), err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(outputPath), err)
	}
	return nil
}

// SanitizeName reduces name to a string safe to use as a Go module path
// segment: letters, digits, underscores and hyphens survive, every other
// character becomes a hyphen, leading digits and hyphens and trailing
// hyphens are stripped, and an empty result falls back to "-".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	sanitized := strings.TrimRight(b.String(), "-")
	sanitized = strings.TrimLeft(sanitized, "0123456789-")
	if sanitized == "" {
		return "-"
	}
	return sanitized
}

func runCommand(dir, bin string, args ...string) error {
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
