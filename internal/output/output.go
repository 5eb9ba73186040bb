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

// Package output provides stowaway's pterm-backed build logger, satisfying
// resolve.Logger, plus the bundle-summary printer shown after a successful
// build.
package output

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

func init() {
	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Success = *pterm.Success.WithPrefix(pterm.Prefix{
		Text:  "DONE",
		Style: pterm.NewStyle(pterm.FgGreen),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARN",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// Logger is stowaway's pterm-backed implementation of resolve.Logger. Debug
// messages are suppressed unless Verbose is enabled, mirroring the --verbose
// flag on `stowaway bundle`.
type Logger struct {
	mu      sync.RWMutex
	Verbose bool
}

// NewLogger creates a Logger with debug output disabled.
func NewLogger() *Logger {
	return &Logger{}
}

// SetVerbose toggles whether Debug messages are printed.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Verbose = verbose
}

func (l *Logger) isVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.Verbose
}

// Warning prints a warning-level message.
func (l *Logger) Warning(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
}

// Debug prints a debug-level message, if verbose output is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if l.isVerbose() {
		pterm.Debug.Printfln(format, args...)
	}
}

// Info prints an informational message.
func (l *Logger) Info(format string, args ...any) {
	pterm.Info.Printfln(format, args...)
}

// Success prints a success-level message.
func (l *Logger) Success(format string, args ...any) {
	pterm.Success.Printfln(format, args...)
}

// Summary is the information printed once a bundle has been produced.
type Summary struct {
	AppName        string
	AppVersion     string
	NodeVersion    string
	Platform       string
	SourceDir      string
	ProjectDir     string
	PackageCount   int
	OutputPath     string
	CompressedSize int64
}

// Print renders a Summary the way `stowaway bundle` reports a finished build.
func (s Summary) Print(logger *Logger) {
	logger.Info("Bundling %s v%s using Node.js v%s for %s", s.AppName, s.AppVersion, s.NodeVersion, s.Platform)
	if s.SourceDir != "" && s.SourceDir != s.ProjectDir {
		logger.Info("Using source directory: %s", s.SourceDir)
	}
	logger.Debug("Resolved %d package(s) into the bundle", s.PackageCount)
	logger.Success("Bundle created at %s (%s)", s.OutputPath, formatSize(s.CompressedSize))
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
