package updates

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMalformedOutput is returned when the checker output has fewer than two
// fields.
var ErrMalformedOutput = errors.New("malformed checker output")

// CheckerError is an error line ("E: <message>") written by the checker.
type CheckerError struct {
	Message string
}

func (e *CheckerError) Error() string {
	if e.Message == "" {
		return "checker reported an error"
	}
	return fmt.Sprintf("checker reported an error: %s", e.Message)
}

// CheckResult is the outcome of one checker run.
type CheckResult struct {
	NumUpgrades   uint `json:"num_upgrades"`
	NumSecurity   uint `json:"num_security"`
	RebootPending bool `json:"reboot_pending"`
}

// ParseCheckerOutput parses "<upgrades>;<security>" or an "E: <message>"
// error line. Counts are read like atoi: leading digits, anything else is 0.
func ParseCheckerOutput(out string) (CheckResult, error) {
	if strings.HasPrefix(out, "E") {
		msg := ""
		if len(out) > 3 {
			msg = strings.TrimSpace(out[2:])
		}
		return CheckResult{}, &CheckerError{Message: msg}
	}
	fields := strings.SplitN(out, ";", 2)
	if len(fields) < 2 {
		return CheckResult{}, ErrMalformedOutput
	}
	return CheckResult{
		NumUpgrades: leadingUint(fields[0]),
		NumSecurity: leadingUint(fields[1]),
	}, nil
}

// leadingUint parses the leading decimal digits of s, saturating at
// math.MaxUint.
func leadingUint(s string) uint {
	s = strings.TrimLeft(s, " \t\n")
	var n uint
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		d := uint(r - '0')
		if n > (math.MaxUint-d)/10 {
			return math.MaxUint
		}
		n = n*10 + d
	}
	return n
}
