package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biomelabs/biomectl/internal/auth"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/output"
	"github.com/biomelabs/biomectl/internal/prompt"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the credential token",
		Long: `Manage the credential token used for seed generation and prompt
sanitization against Biome services.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var tokenFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store your credential token",
		Long: `Store the Biome credential token.

The token is stored securely in your system's keyring (macOS Keychain,
Windows Credential Manager, or Linux Secret Service), with a file fallback
when no keyring is available.

You can also set the BIOME_CREDENTIAL_TOKEN environment variable.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			prompter := prompt.New(out)

			if key := os.Getenv("BIOME_CREDENTIAL_TOKEN"); key != "" {
				out.Info("BIOME_CREDENTIAL_TOKEN environment variable is set")
				out.Muted("Environment variable takes precedence over stored credentials")
				out.Println()
			}

			token := tokenFlag
			if token == "" {
				if !prompter.CanPrompt() {
					return clierrors.CannotPrompt("BIOME_CREDENTIAL_TOKEN")
				}

				var err error

				token, err = prompter.Password("Enter your Biome credential token")
				if err != nil {
					return fmt.Errorf("read token prompt: %w", err)
				}
			}

			if token == "" {
				return clierrors.TokenEmpty()
			}

			if err := auth.StoreToken(token); err != nil {
				return clierrors.ConfigFailed("store credentials", err)
			}

			out.Success("Credential token stored")

			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", "Token for non-interactive login (prefer BIOME_CREDENTIAL_TOKEN env var to avoid shell history exposure)")

	return cmd
}

// AuthStatus represents authentication status for JSON output.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Source        string `json:"source,omitempty"`
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show credential status",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			source, token := auth.GetToken()

			if out.JSON {
				return out.PrintJSON(AuthStatus{
					Authenticated: token != "",
					Source:        string(source),
				})
			}

			if token == "" {
				return clierrors.NotAuthenticated()
			}

			out.Success("Credential token present (%s)", source)

			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential token",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if err := auth.DeleteToken(); err != nil {
				return clierrors.ConfigFailed("remove credentials", err)
			}

			out.Success("Credential token removed")

			if os.Getenv("BIOME_CREDENTIAL_TOKEN") != "" {
				out.Warning("BIOME_CREDENTIAL_TOKEN is still set in your environment")
			}

			return nil
		},
	}
}
