package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	goruntime "runtime"
	"strings"
	"time"

	"video-uploader/internal/domain"
)

const installCommandTimeout = 45 * time.Minute

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed
// diagnostic item, then reruns environment checks against current settings.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	var fixErr error
	switch id {
	case "tool_ffmpeg":
		install := a.installFFmpeg
		if install == nil {
			install = installFFmpegForCurrentOS
		}
		fixErr = install()
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

func installFFmpegForCurrentOS() error {
	if err := runFirstSuccessfulInstall(ffmpegInstallOptions(goruntime.GOOS)); err != nil {
		return err
	}
	return requireToolsOnPath("ffmpeg")
}

func ffmpegInstallOptions(goos string) []installOption {
	switch goos {
	case "windows":
		return []installOption{
			{manager: "winget", commands: [][]string{{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"}}},
			{manager: "choco", commands: [][]string{{"choco", "install", "ffmpeg", "-y"}}},
			{manager: "scoop", commands: [][]string{{"scoop", "install", "ffmpeg"}}},
		}
	case "darwin":
		return []installOption{
			{manager: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
		}
	default:
		return []installOption{
			{manager: "apt-get", commands: [][]string{{"apt-get", "update"}, {"apt-get", "install", "-y", "ffmpeg"}}},
			{manager: "dnf", commands: [][]string{{"dnf", "install", "-y", "ffmpeg"}}},
			{manager: "pacman", commands: [][]string{{"pacman", "-Sy", "--noconfirm", "ffmpeg"}}},
			{manager: "zypper", commands: [][]string{{"zypper", "install", "-y", "ffmpeg"}}},
			{manager: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
		}
	}
}

func runFirstSuccessfulInstall(options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	attempted := false
	var failures []string
	for _, option := range options {
		if !commandAvailable(option.manager) {
			continue
		}
		attempted = true
		if err := runInstallCommands(option.commands); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", option.manager, err))
			continue
		}
		return nil
	}

	if !attempted {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return fmt.Errorf("all install attempts failed: %s", strings.Join(failures, "; "))
}

func runInstallCommands(commands [][]string) error {
	for _, command := range commands {
		if len(command) == 0 {
			continue
		}
		if err := runCommandWithPossibleElevation(command); err != nil {
			return err
		}
	}
	return nil
}

// runCommandWithPossibleElevation retries linux system package managers via
// pkexec and non-interactive sudo when the plain invocation fails.
func runCommandWithPossibleElevation(command []string) error {
	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command[0]) {
		candidates = append(candidates,
			append([]string{"pkexec"}, command...),
			append([]string{"sudo", "-n"}, command...),
		)
	}

	var attempts []string
	for _, candidate := range candidates {
		if !commandAvailable(candidate[0]) {
			continue
		}
		err := runCommand(candidate[0], candidate[1:]...)
		if err == nil {
			return nil
		}
		attempts = append(attempts, err.Error())
	}

	if len(attempts) == 0 {
		return fmt.Errorf("command not available: %s", command[0])
	}
	return fmt.Errorf("%s", strings.Join(attempts, "; "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
		}
		excerpt := strings.TrimSpace(string(output))
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}
		return fmt.Errorf("%s failed: %v (%s)", formatCommand(name, args), err, excerpt)
	}
	return nil
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
