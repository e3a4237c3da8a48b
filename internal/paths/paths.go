package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "biomectl"

func configRoot() (string, error) {
	return rootWithFallback("XDG_CONFIG_HOME", os.UserConfigDir, ".config")
}

func stateRoot() (string, error) {
	noOSDefault := func() (string, error) {
		return "", fmt.Errorf("no OS state directory function")
	}

	return rootWithFallback("XDG_STATE_HOME", noOSDefault, filepath.Join(".local", "state"))
}

func dataRoot() (string, error) {
	noOSDefault := func() (string, error) {
		return "", fmt.Errorf("no OS data directory function")
	}

	return rootWithFallback("XDG_DATA_HOME", noOSDefault, filepath.Join(".local", "share"))
}

func cacheRoot() (string, error) {
	return rootWithFallback("XDG_CACHE_HOME", os.UserCacheDir, ".cache")
}

func rootWithFallback(xdgEnv string, osFn func() (string, error), fallbackDir string) (string, error) {
	// Priority 1: Explicit XDG env var (cross-platform).
	if xdg := os.Getenv(xdgEnv); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}

	// Priority 2: OS-specific default (macOS ~/Library/..., Windows %AppData%, Linux ~/.config).
	root, err := osFn()
	if err == nil && root != "" {
		return filepath.Join(root, appName), nil
	}

	// Priority 3: Home-dir fallback.
	home, homeErr := os.UserHomeDir()
	if homeErr == nil && home != "" {
		return filepath.Join(home, fallbackDir, appName), nil
	}

	if err != nil {
		return "", err
	}

	return "", fmt.Errorf("resolve user home directory")
}

// ConfigRoot returns the user config root directory.
func ConfigRoot() (string, error) {
	return configRoot()
}

// StateRoot returns the user state root directory.
func StateRoot() (string, error) {
	return stateRoot()
}

// DataRoot returns the user data root directory.
func DataRoot() (string, error) {
	return dataRoot()
}

// CacheRoot returns the user cache root directory.
func CacheRoot() (string, error) {
	return cacheRoot()
}

// LogsDir returns the default log directory.
func LogsDir() (string, error) {
	root, err := stateRoot()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, "logs"), nil
}

// DefaultLogFile returns the default structured log file path for the CLI itself.
func DefaultLogFile() (string, error) {
	logsDir, err := LogsDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(logsDir, "biomectl.log"), nil
}

// ServerLogFile returns the persisted engine subprocess log path.
func ServerLogFile() (string, error) {
	logsDir, err := LogsDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(logsDir, "server.log"), nil
}

// EngineDir returns the working directory the engine source files are installed into.
func EngineDir() (string, error) {
	root, err := dataRoot()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, "engine"), nil
}

// ToolchainDir returns the isolated toolchain root (caches, managed interpreters, tools).
func ToolchainDir() (string, error) {
	root, err := dataRoot()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, "toolchain"), nil
}

// ToolchainBinary returns the path of the uv executable inside the toolchain root.
func ToolchainBinary() (string, error) {
	root, err := ToolchainDir()
	if err != nil {
		return "", err
	}

	name := "uv"
	if runtime.GOOS == "windows" {
		name = "uv.exe"
	}

	return filepath.Join(root, "bin", name), nil
}

// UpdateStateFile returns the update state file path.
func UpdateStateFile() (string, error) {
	root, err := stateRoot()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, "update-check.json"), nil
}

// CredentialsFile returns the credential fallback file path.
func CredentialsFile() (string, error) {
	root, err := configRoot()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, "credential-token"), nil
}
