package update

import "testing"

func TestIsDisabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"no", false},
		{"1", true},
		{"true", true},
		{"TRUE", true},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			t.Setenv("BIOME_UPDATE_DISABLED", tt.value)

			if got := IsDisabled(); got != tt.want {
				t.Errorf("IsDisabled() with %q = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestVersionIsNewer(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		want      bool
	}{
		{"upgrade", "0.4.1", "0.4.2", true},
		{"same version", "0.4.2", "0.4.2", false},
		{"downgrade", "0.5.0", "0.4.2", false},
		{"dev build always updates", "dev", "0.4.2", true},
		{"unparseable candidate never wins", "0.4.2", "nightly", false},
		{"v prefix tolerated", "v0.4.1", "v0.5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := versionIsNewer(tt.current, tt.candidate); got != tt.want {
				t.Errorf("versionIsNewer(%q, %q) = %v, want %v", tt.current, tt.candidate, got, tt.want)
			}
		})
	}
}
