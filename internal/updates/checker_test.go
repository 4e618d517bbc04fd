package updates

import (
	"errors"
	"math"
	"testing"
)

func TestParseCheckerOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    CheckResult
		wantErr error
		message string
	}{
		{name: "counts", out: "15;2", want: CheckResult{NumUpgrades: 15, NumSecurity: 2}},
		{name: "trailing newline", out: "0;0\n", want: CheckResult{}},
		{name: "non numeric reads as zero", out: "x;3", want: CheckResult{NumSecurity: 3}},
		{name: "extra fields stay in second", out: "4;1;9", want: CheckResult{NumUpgrades: 4, NumSecurity: 1}},
		{name: "huge count saturates", out: "99999999999999999999999999;1", want: CheckResult{NumUpgrades: math.MaxUint, NumSecurity: 1}},
		{name: "single field", out: "5", wantErr: ErrMalformedOutput},
		{name: "empty", out: "", wantErr: ErrMalformedOutput},
		{name: "error line", out: "E: Broken packages", message: "Broken packages"},
		{name: "bare error", out: "E:", message: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCheckerOutput(tt.out)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.out != "" && tt.out[0] == 'E' {
				var checkerErr *CheckerError
				if !errors.As(err, &checkerErr) {
					t.Fatalf("expected CheckerError, got %v", err)
				}
				if checkerErr.Message != tt.message {
					t.Fatalf("expected message %q, got %q", tt.message, checkerErr.Message)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPluralText(t *testing.T) {
	cases := map[uint]string{
		0: "There are 0 updates available",
		1: "There is 1 update available",
		7: "There are 7 updates available",
	}
	for n, want := range cases {
		if got := TooltipText(n); got != want {
			t.Fatalf("TooltipText(%d) = %q, want %q", n, got, want)
		}
	}
	if got := NotificationText(1); got != "There is 1 update available. Click on the notification icon to show the available update." {
		t.Fatalf("unexpected singular notification %q", got)
	}
}
