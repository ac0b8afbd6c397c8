// Package deps inspects the external tools the daemon shells out to.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency.
type Status struct {
	Name      string
	Installed bool
	Required  bool
	Path      string
	Version   string
	Note      string
}

// Tool describes a probe for one external tool.
type Tool struct {
	Name        string
	VersionArgs []string
	Required    bool
	Note        string
}

// Tools is every external tool the daemon may use, in report order.
var Tools = []Tool{
	{Name: "pw-record", VersionArgs: []string{"--version"}, Required: true, Note: "microphone capture (PipeWire)"},
	{Name: "wl-copy", VersionArgs: []string{"--version"}, Required: true, Note: "clipboard injection"},
	{Name: "wl-paste", VersionArgs: []string{"--version"}, Required: true, Note: "clipboard snapshot/restore"},
	{Name: "wtype", Required: false, Note: "keystroke injection"},
	{Name: "ydotool", VersionArgs: []string{"--version"}, Required: false, Note: "keystroke injection fallback"},
	{Name: "hyprctl", VersionArgs: []string{"version"}, Required: false, Note: "active window detection"},
	{Name: "notify-send", VersionArgs: []string{"--version"}, Required: false, Note: "desktop notifications"},
	{Name: "whisper-cli", VersionArgs: []string{"--version"}, Required: false, Note: "local transcription"},
}

// Check probes a single tool.
func Check(tool Tool) Status {
	status := Status{Name: tool.Name, Required: tool.Required, Note: tool.Note}

	path, err := exec.LookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if len(tool.VersionArgs) > 0 {
		// Best effort. Some tools print the version on stderr or exit
		// non-zero; a missing version is not a failure.
		output, err := exec.Command(path, tool.VersionArgs...).CombinedOutput()
		if err == nil {
			if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
				status.Version = strings.TrimSpace(lines[0])
			}
		}
	}

	return status
}

// CheckAll probes every known tool.
func CheckAll() []Status {
	statuses := make([]Status, 0, len(Tools))
	for _, tool := range Tools {
		statuses = append(statuses, Check(tool))
	}
	return statuses
}

// MissingRequired returns the names of required tools that are absent.
func MissingRequired() []string {
	var missing []string
	for _, s := range CheckAll() {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
