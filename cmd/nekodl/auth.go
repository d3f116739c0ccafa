package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"nekodl/pkg/auth"
	"nekodl/pkg/ui"
)

// authCmd groups the credential commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
	Long: `Manage stored API credentials for providers that need a login.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Credentials in an extras file take precedence over stored ones.`,
}

var loginCmd = &cobra.Command{
	Use:     "login <provider>",
	Short:   "Store an API key for a provider",
	Example: `  nekodl auth login danbooru`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <provider>",
	Short: "Remove stored credentials for a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials with keys masked",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, ok := registry.Lookup(name); !ok {
		return fmt.Errorf("unknown provider %q", name)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	w := ui.Output()
	if auth.ShowAPIKeyGuide(w, name) {
		fmt.Fprintln(w)
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(w, "Credentials for '%s' already exist. Replace them? (y/N): ", name)
		answer, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	fmt.Fprint(w, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || username == "") {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Fprint(w, "API key (hidden): ")
	apiKey, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	account := &auth.Account{Provider: name, Username: username, APIKey: apiKey}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials stored for %s (%s)", name, username))
	if auth.IsKeyringAvailable() {
		ui.PrintDim("  stored in the system keychain")
	} else {
		ui.PrintDim("  stored in the encrypted credentials file")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Credentials removed for " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored credentials", "Use 'nekodl auth login <provider>' to add some")
		return nil
	}

	ui.PrintHighlight("Stored Credentials")
	w := ui.Output()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(w, "%d. Provider: %s\n", i+1, sanitized.Provider)
		fmt.Fprintf(w, "   Username: %s\n", sanitized.Username)
		fmt.Fprintf(w, "   API Key: %s\n", sanitized.APIKey)
		fmt.Fprintf(w, "   Last Modified: %s\n\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(fallback *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output())
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := fallback.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
