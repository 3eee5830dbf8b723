package app

import (
	"testing"
)

func TestParseCommand_DefaultsToServe(t *testing.T) {
	cmd := ParseCommand([]string{})
	if cmd != CommandServe {
		t.Errorf("ParseCommand([]) = %q, want %q", cmd, CommandServe)
	}
}

func TestParseCommand_KnownCommands(t *testing.T) {
	tests := []struct {
		arg  string
		want Command
	}{
		{"serve", CommandServe},
		{"monitor", CommandMonitor},
		{"status", CommandStatus},
		{"healthcheck", CommandHealthcheck},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			if got := ParseCommand([]string{tt.arg}); got != tt.want {
				t.Errorf("ParseCommand([%s]) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownDefaultsToServe(t *testing.T) {
	cmd := ParseCommand([]string{"worker"})
	if cmd != CommandServe {
		t.Errorf("ParseCommand([worker]) = %q, want %q", cmd, CommandServe)
	}
}

func TestParseCommand_IgnoresExtraArgs(t *testing.T) {
	cmd := ParseCommand([]string{"monitor", "--flag", "value"})
	if cmd != CommandMonitor {
		t.Errorf("ParseCommand([monitor --flag value]) = %q, want %q", cmd, CommandMonitor)
	}
}
