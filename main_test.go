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
package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var binaryPath string

func TestMain(m *testing.M) {
	wd := mustGetwd()
	binaryPath = filepath.Join(wd, "stowaway_test")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(binaryPath)
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func TestHelpListsBundleAndVersion(t *testing.T) {
	out, err := exec.Command(binaryPath, "--help").CombinedOutput()
	if err != nil {
		t.Fatalf("--help failed: %v\n%s", err, out)
	}
	text := string(out)
	if !strings.Contains(text, "stowaway") {
		t.Errorf("expected help output to mention stowaway, got:\n%s", text)
	}
	if !strings.Contains(text, "bundle") {
		t.Errorf("expected help output to list the bundle command, got:\n%s", text)
	}
	if !strings.Contains(text, "version") {
		t.Errorf("expected help output to list the version command, got:\n%s", text)
	}
}

func TestVersionTextFormat(t *testing.T) {
	out, err := exec.Command(binaryPath, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v\n%s", err, out)
	}
	text := strings.TrimSpace(string(out))
	if !strings.HasPrefix(text, "stowaway ") {
		t.Errorf("expected version output to start with %q, got %q", "stowaway ", text)
	}
}

func TestVersionJSONFormat(t *testing.T) {
	out, err := exec.Command(binaryPath, "version", "--format", "json").CombinedOutput()
	if err != nil {
		t.Fatalf("version --format json failed: %v\n%s", err, out)
	}

	var info map[string]any
	if err := json.Unmarshal(out, &info); err != nil {
		t.Fatalf("expected valid JSON output, got %q: %v", out, err)
	}
	if _, ok := info["Version"]; !ok {
		if _, ok := info["version"]; !ok {
			t.Errorf("expected a version field in JSON output, got %v", info)
		}
	}
}

func TestBundleRequiresProjectDirArgument(t *testing.T) {
	out, err := exec.Command(binaryPath, "bundle").CombinedOutput()
	if err == nil {
		t.Fatalf("expected bundle with no arguments to fail, got output: %s", out)
	}
}

func TestBundleFailsOnMissingPackageJSON(t *testing.T) {
	dir := t.TempDir()
	out, err := exec.Command(binaryPath, "bundle", dir).CombinedOutput()
	if err == nil {
		t.Fatalf("expected bundle to fail for a directory without package.json, got output: %s", out)
	}
}
