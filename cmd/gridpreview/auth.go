package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gridpreview/pkg/auth"
	"gridpreview/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the RapidAPI key",
	Long: `Manage the RapidAPI key used to look up posts.

The key is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables RAPIDAPI_KEY and RAPIDAPI_HOST (read only)

A key in the config file or the environment takes precedence over the stored one.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the RapidAPI key securely",
	Long: `Store the RapidAPI key in the system keychain or an encrypted file.

You will be prompted for the key (hidden as you type) and, optionally, the
API host.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored RapidAPI key",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which RapidAPI key would be used",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	auth.ShowAPIKeyGuide(os.Stdout)
	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(auth.DefaultProfile); existing != nil {
		fmt.Print("\nA key is already stored. Replace it? (y/N): ")
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("\nX-RapidAPI-Key: ")
	key, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) < 20 {
		return errors.New("that does not look like a RapidAPI key")
	}

	fmt.Print("X-RapidAPI-Host (press Enter for the default): ")
	host, _ := reader.ReadString('\n')

	creds := &auth.Credentials{
		Profile: auth.DefaultProfile,
		APIKey:  key,
		APIHost: strings.TrimSpace(host),
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	ui.PrintSuccess("API key stored in the " + manager.Source(auth.DefaultProfile))
	fmt.Println("\nStart the service with:")
	fmt.Println("  $ gridpreview serve")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(auth.DefaultProfile); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored API key")
			return nil
		}
		return err
	}
	ui.PrintSuccess("API key removed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	if cfg.RapidAPI.Key != "" {
		ui.PrintInfo("API key", auth.Sanitize(&auth.Credentials{APIKey: cfg.RapidAPI.Key}).APIKey+" (config or environment)")
		ui.PrintInfo("API host", cfg.RapidAPI.Host)
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.Resolve()
	if err != nil {
		ui.PrintWarning("No API key configured. Requests will be rejected upstream.")
		fmt.Println("Run 'gridpreview auth login' or export RAPIDAPI_KEY.")
		return nil
	}

	host := creds.APIHost
	if host == "" {
		host = cfg.RapidAPI.Host
	}
	ui.PrintInfo("API key", auth.Sanitize(creds).APIKey+" ("+manager.Source(auth.DefaultProfile)+")")
	ui.PrintInfo("API host", host)
	ui.PrintInfo("Last modified", creds.LastModified.Format("2006-01-02 15:04:05"))
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
