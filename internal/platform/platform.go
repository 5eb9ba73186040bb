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

// Package platform centralizes the per-OS/arch conventions shared by the
// runtime fetcher and the generated launcher: the archive name nodejs.org
// publishes a version under, and where the node executable lives inside an
// extracted runtime tree.
package platform

import (
	"fmt"
	"path"
	"runtime"
)

// Target identifies the OS/architecture pair a portable runtime is fetched
// for. It defaults to the host stowaway itself is running on, but bundling
// for a different target is a matter of constructing one explicitly.
type Target struct {
	OS   string // "linux", "darwin", "windows"
	Arch string // "x64", "arm64"
}

// Current returns the Target matching the host stowaway is running on.
func Current() Target {
	return Target{OS: normalizeOS(runtime.GOOS), Arch: normalizeArch(runtime.GOARCH)}
}

func normalizeOS(goos string) string {
	if goos == "darwin" {
		return "darwin"
	}
	return goos
}

func normalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "arm64":
		return "arm64"
	default:
		return goarch
	}
}

// String renders the target the way nodejs.org's dist index does, e.g.
// "linux-x64" or "win32-arm64".
func (t Target) String() string {
	osName := t.OS
	if osName == "windows" {
		osName = "win32"
	}
	return fmt.Sprintf("%s-%s", osName, t.Arch)
}

// ArchiveName returns the filename nodejs.org publishes a given version's
// portable runtime under for this target.
func (t Target) ArchiveName(version string) string {
	osName := t.OS
	ext := "tar.gz"
	if osName == "windows" {
		osName = "win"
		ext = "zip"
	}
	return fmt.Sprintf("node-v%s-%s-%s.%s", version, osName, t.Arch, ext)
}

// DownloadURL returns the nodejs.org distribution URL for version under this
// target.
func (t Target) DownloadURL(version string) string {
	return fmt.Sprintf("https://nodejs.org/dist/v%s/%s", version, t.ArchiveName(version))
}

// NodeExecutablePath returns the path, relative to an extracted runtime
// tree's root, of the node executable for this target.
func (t Target) NodeExecutablePath() string {
	if t.OS == "windows" {
		return "node.exe"
	}
	return path.Join("bin", "node")
}
