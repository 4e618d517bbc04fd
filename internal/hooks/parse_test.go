package hooks

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `Name: System restart required
Name-de: Neustart erforderlich
Priority: High
Terminal: True
Command: /usr/share/update-notifier/notify-reboot-required
DontShowAfterReboot: true
DisplayIf: test -f /var/run/reboot-required
Description: The system needs a restart.
 .
 Save your work first.
OnlyAdminUsers: False
`
	hook, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if hook.Name != "System restart required" {
		t.Fatalf("unexpected name %q", hook.Name)
	}
	if hook.Description != "The system needs a restart.\n\nSave your work first." {
		t.Fatalf("unexpected description %q", hook.Description)
	}
	if !hook.Terminal || !hook.DontShowAfterReboot || hook.OnlyAdminUsers {
		t.Fatalf("unexpected flags %+v", hook)
	}
	if hook.Command != "/usr/share/update-notifier/notify-reboot-required" || hook.DisplayIf != "test -f /var/run/reboot-required" {
		t.Fatalf("unexpected commands %+v", hook)
	}
}

func TestParseDefaults(t *testing.T) {
	hook, err := Parse(strings.NewReader("Name: Note\nDescription: one line\nTerminal: maybe\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !hook.OnlyAdminUsers {
		t.Fatal("OnlyAdminUsers defaults to true")
	}
	if hook.Terminal {
		t.Fatal("unrecognised boolean keeps the default")
	}
	if hook.Description != "one line" {
		t.Fatalf("unexpected description %q", hook.Description)
	}
}
