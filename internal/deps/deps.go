package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"updatenotifier/internal/config"
)

// Requirement defines an external helper the daemon drives.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a helper.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Absolute commands must exist and be executable; bare names are resolved on
// PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// HelperRequirements lists the configured helpers. Only the update checker is
// required; the daemon degrades without the others.
func HelperRequirements(h config.Helpers) []Requirement {
	return []Requirement{
		{Name: "apt-check", Command: h.AptCheck, Description: "Counts available and security updates"},
		{Name: "package-system-locked", Command: h.PackageSystemLocked, Description: "Detects a held dpkg lock before auto-launch", Optional: true},
		{Name: "apport-checkreports", Command: h.ApportCheckReports, Description: "Finds pending crash reports", Optional: true},
		{Name: "apport-gtk", Command: h.ApportGTK, Description: "Shows crash reports", Optional: true},
		{Name: "update-manager", Command: h.UpdateManager, Description: "Installs updates", Optional: true},
		{Name: "pkexec", Command: h.Pkexec, Description: "Runs privileged helpers", Optional: true},
		{Name: "nice", Command: h.Nice, Description: "Lowers checker CPU priority", Optional: true},
		{Name: "ionice", Command: h.Ionice, Description: "Lowers checker IO priority", Optional: true},
		{Name: "unattended-upgrades", Command: h.UnattendedUpgrades, Description: "Installs security updates unattended", Optional: true},
		{Name: "release-checker", Command: h.ReleaseChecker, Description: "Offers distribution upgrades", Optional: true},
		{Name: "printer-applet", Command: h.PrinterApplet, Description: "Configures new printers", Optional: true},
		{Name: "backend-helper", Command: h.BackendHelper, Description: "Runs update menu actions", Optional: true},
		{Name: "software-properties", Command: h.SoftwareProperties, Description: "Opens update preferences", Optional: true},
		{Name: "shell", Command: h.Shell, Description: "Runs hook commands and conditions"},
	}
}

// MissingRequired returns the unavailable non-optional helpers.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
