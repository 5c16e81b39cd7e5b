package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xscraper/pkg/config"
	"xscraper/pkg/session"
	"xscraper/pkg/ui"
)

var askPassphrase bool

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the browser session",
	Long: `Manage the cookie export that authenticates the browser.

Sessions are stored using the configured backend:
  - file       a plain cookie export (session.path)
  - keyring    the system keychain
  - encrypted  an AES-GCM file with PBKDF2 key derivation

The cookies grant full access to the account. Never share them.`,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <cookies.json>",
	Short: "Import a browser cookie export",
	Example: `  # Into the system keychain
  xscraper session import cookies.json --session-backend keyring

  # Into the encrypted store with your own passphrase
  xscraper session import cookies.json --session-backend encrypted --passphrase`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionImport,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session with masked values",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runSessionDelete,
}

var sessionGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to export the session cookies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		session.WriteExportGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionImportCmd, sessionShowCmd, sessionDeleteCmd, sessionGuideCmd)

	sessionCmd.PersistentFlags().String("session-backend", "", "session backend (file, keyring, encrypted)")
	sessionCmd.PersistentFlags().String("session-name", "", "session name in the keyring or encrypted backend")
	sessionCmd.PersistentFlags().String("cookies", "", "cookie export used by the file session backend")
	sessionCmd.PersistentFlags().BoolVar(&askPassphrase, "passphrase", false, "prompt for the encrypted store passphrase")
}

// openSessionStore loads configuration and opens the configured backend
func openSessionStore(cmd *cobra.Command) (*config.Config, session.Store, error) {
	cfg, _, err := loadConfig(flagMap(cmd))
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Session.Backend {
	case "keyring":
		if err := session.KeyringAvailable(); err != nil {
			ui.PrintWarning("System keychain not available", "use --session-backend encrypted instead")
			return nil, nil, err
		}
	case "encrypted":
		if askPassphrase {
			fmt.Print("Passphrase: ")
			pass, err := readPassword()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read passphrase: %w", err)
			}
			if pass == "" {
				return nil, nil, errors.New("passphrase cannot be empty")
			}
			store, err := session.NewStoreWithPassphrase(cfg.Session, pass)
			return cfg, store, err
		}
	}

	store, err := session.NewStore(cfg.Session)
	return cfg, store, err
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read cookie export: %w", err)
	}
	cookies, err := session.ParseExport(data)
	if err != nil {
		return err
	}

	cfg, store, err := openSessionStore(cmd)
	if err != nil {
		return err
	}

	a := &session.Artifact{Name: cfg.Session.Name, Cookies: cookies, ImportedAt: time.Now()}
	if missing := session.Missing(a); len(missing) > 0 {
		ui.PrintWarning("Export is missing required cookies", strings.Join(missing, ", "))
	}

	if store.Exists(a.Name) && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Printf("Session '%s' already exists. Replace it? (y/N): ", a.Name)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			ui.PrintInfo("Import cancelled", a.Name)
			return nil
		}
	}

	if err := store.Save(a); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Imported %d cookies into the %s backend as '%s'", len(cookies), cfg.Session.Backend, a.Name))
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	cfg, store, err := openSessionStore(cmd)
	if err != nil {
		return err
	}
	a, err := store.Load(cfg.Session.Name)
	if err != nil {
		return fmt.Errorf("no session '%s' in the %s backend: %w", cfg.Session.Name, cfg.Session.Backend, err)
	}
	a = session.Sanitize(a)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s • %s backend", a.Name, cfg.Session.Backend))
	t.AppendHeader(table.Row{"Name", "Domain", "Value", "SameSite", "Expires"})
	for _, c := range a.Cookies {
		expires := "session"
		if at := c.ExpiresAt(); !at.IsZero() {
			expires = at.Format("2006-01-02")
		}
		t.AppendRow(table.Row{c.Name, c.Domain, c.Value, c.SameSite, expires})
	}
	t.Render()

	if missing := session.Missing(a); len(missing) > 0 {
		ui.PrintWarning("Missing required cookies", strings.Join(missing, ", "))
	}
	if !a.ImportedAt.IsZero() {
		ui.PrintInfo("Imported", a.ImportedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	cfg, store, err := openSessionStore(cmd)
	if err != nil {
		return err
	}
	if err := store.Delete(cfg.Session.Name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	ui.PrintSuccess("Session removed: " + cfg.Session.Name)
	return nil
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
