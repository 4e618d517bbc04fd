package hooks

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Hook is one parsed hook file.
type Hook struct {
	Filename            string
	Name                string
	Description         string
	Command             string
	Terminal            bool
	OnlyAdminUsers      bool
	DisplayIf           string
	DontShowAfterReboot bool
}

// Parse reads a hook file. Fields are "Key: value" lines; a Description
// continues on lines starting with a space, where a lone "." is an empty
// line. Unknown and localized fields are ignored.
func Parse(r io.Reader) (Hook, error) {
	hook := Hook{OnlyAdminUsers: true}
	var description []string
	inDescription := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if inDescription {
				text := line[1:]
				if strings.TrimSpace(text) == "." {
					text = ""
				}
				description = append(description, text)
			}
			continue
		}
		inDescription = false
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Name":
			hook.Name = value
		case "Description":
			description = []string{value}
			inDescription = true
		case "Command":
			hook.Command = value
		case "Terminal":
			hook.Terminal = parseBool(value, false)
		case "OnlyAdminUsers":
			hook.OnlyAdminUsers = parseBool(value, true)
		case "DisplayIf":
			hook.DisplayIf = value
		case "DontShowAfterReboot":
			hook.DontShowAfterReboot = parseBool(value, false)
		}
	}
	if err := scanner.Err(); err != nil {
		return Hook{}, fmt.Errorf("read hook: %w", err)
	}
	hook.Description = strings.TrimRight(strings.Join(description, "\n"), "\n")
	return hook, nil
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	default:
		return fallback
	}
}
