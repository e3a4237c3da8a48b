package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestPickFlagOrEnv(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		envValue string
		fallback string
		want     string
	}{
		{"flag wins", "from-flag", "from-env", "fallback", "from-flag"},
		{"env when flag empty", "", "from-env", "fallback", "from-env"},
		{"fallback when both empty", "", "", "fallback", "fallback"},
		{"whitespace flag ignored", "   ", "from-env", "fallback", "from-env"},
		{"whitespace env ignored", "", "   ", "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BIOME_TEST_PICK", tt.envValue)

			if got := pickFlagOrEnv(tt.flag, "BIOME_TEST_PICK", tt.fallback); got != tt.want {
				t.Errorf("pickFlagOrEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPickBoolFlagOrEnv(t *testing.T) {
	tests := []struct {
		name     string
		flag     bool
		envValue string
		want     bool
	}{
		{"flag set", true, "", true},
		{"env 1", false, "1", true},
		{"env true", false, "true", true},
		{"env yes", false, "yes", true},
		{"env TRUE mixed case", false, "TRUE", true},
		{"env 0", false, "0", false},
		{"env false", false, "false", false},
		{"unset", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BIOME_TEST_BOOL", tt.envValue)

			if got := pickBoolFlagOrEnv(tt.flag, "BIOME_TEST_BOOL"); got != tt.want {
				t.Errorf("pickBoolFlagOrEnv(%v, %q) = %v, want %v", tt.flag, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestIsInteractiveCommand(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"biomectl session start", true},
		{"biomectl engine start", true},
		{"biomectl engine stop", false},
		{"biomectl doctor", false},
		{"biomectl", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isInteractiveCommand(tt.path); got != tt.want {
				t.Errorf("isInteractiveCommand(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldBackgroundCheck(t *testing.T) {
	updateCmd := &cobra.Command{Use: "update"}
	engineCmd := &cobra.Command{Use: "engine"}

	tests := []struct {
		name    string
		cmd     *cobra.Command
		version string
		quiet   bool
		jsonOut bool
		want    bool
	}{
		{"normal command", engineCmd, "1.0.0", false, false, true},
		{"dev build", engineCmd, "dev", false, false, false},
		{"quiet mode", engineCmd, "1.0.0", true, false, false},
		{"json mode", engineCmd, "1.0.0", false, true, false},
		{"update command skipped", updateCmd, "1.0.0", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BIOME_UPDATE_DISABLED", "")

			if got := shouldBackgroundCheck(tt.cmd, tt.version, tt.quiet, tt.jsonOut); got != tt.want {
				t.Errorf("shouldBackgroundCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}
