// Package auth handles credential-token storage and retrieval.
//
// The credential token is forwarded to the engine subprocess (and to hosted
// GPU servers) for seed generation and prompt sanitization. It is sourced in
// the following priority order:
//  1. Environment variable: BIOME_CREDENTIAL_TOKEN
//  2. OS Keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service)
//  3. Saved configuration (api_keys.credential_token)
//  4. Config file fallback: <user config dir>/biomectl/credential-token
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/paths"
)

const (
	// keyringService is the service name used in OS keyring storage.
	keyringService = "biomectl"
	// keyringUser is the user/account name used in OS keyring storage.
	keyringUser = "credential-token"
	// envVarName is the environment variable for the credential token.
	envVarName = "BIOME_CREDENTIAL_TOKEN"
)

// CredentialSource indicates where the token was found.
type CredentialSource string

// Credential source constants identify where the token was loaded from.
const (
	SourceEnv     CredentialSource = "environment variable"
	SourceKeyring CredentialSource = "keyring"
	SourceConfig  CredentialSource = "config file"
	SourceFile    CredentialSource = "credential file"
	SourceNone    CredentialSource = ""
)

// GetToken returns the credential token and its source.
// Returns empty strings if no token is found.
func GetToken() (source CredentialSource, token string) {
	if key := os.Getenv(envVarName); key != "" {
		return SourceEnv, key
	}

	if key, err := keyring.Get(keyringService, keyringUser); err == nil && key != "" {
		return SourceKeyring, key
	}

	if key := config.Load().CredentialToken(); key != "" {
		return SourceConfig, key
	}

	if key := readCredentialsFile(); key != "" {
		return SourceFile, key
	}

	return SourceNone, ""
}

// StoreToken stores the credential token in the OS keyring.
// Falls back to file storage if keyring is unavailable.
func StoreToken(token string) error {
	err := keyring.Set(keyringService, keyringUser, token)
	if err == nil {
		return nil
	}

	return writeCredentialsFile(token)
}

// DeleteToken removes the stored credential token.
func DeleteToken() error {
	keyringErr := keyring.Delete(keyringService, keyringUser)
	fileErr := deleteCredentialsFile()

	// Return error only if both failed and nothing was deleted.
	if keyringErr != nil && fileErr != nil {
		return fmt.Errorf("no stored credentials found")
	}

	return nil
}

func credentialsFilePath() string {
	path, err := paths.CredentialsFile()
	if err != nil {
		return ""
	}

	return filepath.Clean(path)
}

func readCredentialsFile() string {
	path := credentialsFilePath()
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func writeCredentialsFile(token string) error {
	path := credentialsFilePath()
	if path == "" {
		return fmt.Errorf("could not determine config directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func deleteCredentialsFile() error {
	path := credentialsFilePath()
	if path == "" {
		return fmt.Errorf("could not determine config directory")
	}

	return os.Remove(path)
}
