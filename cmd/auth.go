package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kernel/lecturecap/internal/bridge"
	"github.com/kernel/lecturecap/internal/config"
	"github.com/kernel/lecturecap/pkg/table"
	"github.com/kernel/lecturecap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// TokenStore persists the background service token.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

type keyringStore struct{}

func (keyringStore) Save(token string) error { return config.SaveToken(token) }
func (keyringStore) Load() (string, error)   { return config.LoadToken() }
func (keyringStore) Delete() error           { return config.DeleteToken() }

// AuthCmd manages the background service token.
type AuthCmd struct {
	store TokenStore
	// ping checks a token against the background; nil skips the check.
	ping func(ctx context.Context, token string) (bridge.PingResponse, error)
	now  func() time.Time
}

// AuthLoginInput holds input for storing a token.
type AuthLoginInput struct {
	Token string
}

// AuthStatusInput holds input for showing token status.
type AuthStatusInput struct {
	// EnvToken is a token supplied through the environment, which takes
	// precedence over the keyring.
	EnvToken string
	Output   string
}

type authStatus struct {
	Source            string     `json:"source"`
	Subject           string     `json:"subject,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	Expired           bool       `json:"expired"`
	BackgroundVersion string     `json:"backgroundVersion,omitempty"`
	BackgroundError   string     `json:"backgroundError,omitempty"`
}

func (a AuthCmd) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Login validates and stores a token.
func (a AuthCmd) Login(ctx context.Context, in AuthLoginInput) error {
	token := strings.TrimSpace(in.Token)
	if token == "" {
		return fmt.Errorf("token is required")
	}

	if looksLikeJWT(token) {
		info, err := config.InspectToken(token)
		if err != nil {
			return err
		}
		if info.Expired(a.clock()) {
			return fmt.Errorf("token expired at %s", info.ExpiresAt.Local().Format(time.RFC3339))
		}
	}

	if a.ping != nil {
		resp, err := a.ping(ctx, token)
		if err != nil {
			return fmt.Errorf("background rejected token: %w", err)
		}
		pterm.Debug.Printf("Background version %s\n", resp.Version)
	}

	if err := a.store.Save(token); err != nil {
		return err
	}
	pterm.Success.Println("Token saved to the system keyring")
	return nil
}

// Status shows where the token comes from and when it expires.
func (a AuthCmd) Status(ctx context.Context, in AuthStatusInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	token, source := in.EnvToken, "environment ("+config.EnvToken+")"
	if token == "" {
		stored, err := a.store.Load()
		if errors.Is(err, config.ErrNoToken) {
			if in.Output == "json" {
				return util.PrintPrettyJSON(authStatus{Source: "none"})
			}
			pterm.Warning.Println("Not logged in. Run 'lecturecap auth login'.")
			return nil
		}
		if err != nil {
			return err
		}
		token, source = stored, "keyring"
	}

	status := authStatus{Source: source}
	if looksLikeJWT(token) {
		if info, err := config.InspectToken(token); err == nil {
			status.Subject = info.Subject
			status.ExpiresAt = info.ExpiresAt
			status.Expired = info.Expired(a.clock())
		}
	}
	if a.ping != nil {
		if resp, err := a.ping(ctx, token); err != nil {
			status.BackgroundError = err.Error()
		} else {
			status.BackgroundVersion = resp.Version
		}
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(status)
	}

	expires := "-"
	if status.ExpiresAt != nil {
		expires = status.ExpiresAt.Local().Format(time.RFC3339)
	}
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Source", status.Source})
	rows = append(rows, []string{"Subject", util.OrDash(status.Subject)})
	rows = append(rows, []string{"Expires", expires})
	if a.ping != nil {
		rows = append(rows, []string{"Background", util.OrDash(status.BackgroundVersion)})
	}
	table.PrintTableNoPad(rows, true)

	switch {
	case status.Expired:
		pterm.Warning.Println("Token has expired")
	case status.BackgroundError != "":
		pterm.Warning.Printf("Background check failed: %s\n", status.BackgroundError)
	}
	return nil
}

// Logout removes the stored token.
func (a AuthCmd) Logout(ctx context.Context) error {
	if err := a.store.Delete(); err != nil {
		return err
	}
	pterm.Success.Println("Logged out")
	return nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the background service token",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a background service token",
	Long:  "Validate a background service token and store it in the system keyring",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show token status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)

	authLoginCmd.Flags().String("token", "", "Token to store (prompted for when omitted)")
	authStatusCmd.Flags().StringP("output", "o", "", "Output format: json")
}

// newAuthCmd wires the keyring and, when a background URL is configured, a
// ping through the HTTP port.
func newAuthCmd(cfg *config.Config) AuthCmd {
	a := AuthCmd{store: keyringStore{}}
	if cfg.BackgroundURL != "" {
		a.ping = func(ctx context.Context, token string) (bridge.PingResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
			return bridge.PingBackground(ctx, bridge.NewHTTPPort(ctx, cfg.BackgroundURL, token))
		}
	}
	return a
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Token")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	return newAuthCmd(cfg).Login(cmd.Context(), AuthLoginInput{Token: token})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return newAuthCmd(cfg).Status(cmd.Context(), AuthStatusInput{EnvToken: cfg.Token, Output: output})
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	return AuthCmd{store: keyringStore{}}.Logout(cmd.Context())
}
