package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thunfischtoast/gitlab-visualizer/config"
	"github.com/thunfischtoast/gitlab-visualizer/internal/api"
	"github.com/thunfischtoast/gitlab-visualizer/internal/state"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file if it doesn't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfig(a.configPath); err != nil {
				return fmt.Errorf("failed to create default configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration at %s\n", a.configPath)
			return nil
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var (
		url          string
		token        string
		authMethod   string
		refreshToken string
		clientID     string
		skipVerify   bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Store the GitLab instance and token to use",
		Long: `Store the GitLab instance and token to use.

The token needs the read_api scope. Unless --skip-verify is given the token is
checked against the instance first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = a.cfg.GitLabURL
			}
			if url == "" || token == "" {
				return fmt.Errorf("both --url and --token are required")
			}
			method := api.AuthMethod(authMethod)
			if method != api.AuthPAT && method != api.AuthOAuth {
				return fmt.Errorf("invalid --auth %q (want pat or oauth)", authMethod)
			}

			// verify against a scratch store so a bad token leaves the stored
			// connection alone
			candidate := state.NewConnectionStore(state.NewMemoryStorage(), state.NewMemoryStorage())
			candidate.SetConnection(
				state.Connection{GitLabURL: url, AuthMethod: method, ClientID: clientID},
				state.Credentials{Token: token, RefreshToken: refreshToken},
			)
			conn := candidate.Connection()

			if skipVerify {
				fmt.Fprintf(cmd.OutOrStdout(), "Stored connection to %s\n", conn.GitLabURL)
			} else {
				client := api.NewGitLabClient(candidate.ClientConfig())
				username, err := client.ValidateConnection(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to verify connection: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s as %s\n", conn.GitLabURL, username)
			}

			if err := a.open(); err != nil {
				return err
			}
			previous := a.connections.Connection()
			// credentials may have been rotated during verification
			a.connections.SetConnection(conn, candidate.Credentials())

			// group ids of another instance mean nothing here
			if previous.GitLabURL != conn.GitLabURL {
				a.aggregation.Clear()
				a.selection.Clear()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base URL of the GitLab instance (default: gitlab_url from the config)")
	cmd.Flags().StringVar(&token, "token", "", "Personal access token or OAuth access token")
	cmd.Flags().StringVar(&authMethod, "auth", string(api.AuthPAT), "Token kind: pat or oauth")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token used when the access token expires")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth application id")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Store the connection without checking it")
	return cmd
}

func newDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the stored connection and cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			a.connections.Disconnect()
			a.aggregation.Clear()
			a.selection.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Disconnected")
			return nil
		},
	}
}
