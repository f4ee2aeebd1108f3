// Package authcmder provides the auth command for storing wiki logins.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/wikifetch/pkg/cliui"
	"github.com/papercomputeco/wikifetch/pkg/config"
	"github.com/papercomputeco/wikifetch/pkg/credentials"
)

type authCommander struct {
	list     bool
	remove   bool
	username string
}

const authLongDesc string = `Store a login for a wiki.

Logins are stored in credentials.toml in the .wikifetch/ directory, keyed by
the wiki's api.php URL, and used whenever wikifetch talks to that wiki. Bot
passwords (Special:BotPasswords) are recommended over main account passwords.

The WIKIFETCH_WIKI_USERNAME and WIKIFETCH_WIKI_PASSWORD environment variables
take precedence over stored logins.

When no URL is given the configured wiki.api_url is used.

Examples:
  wikifetch auth --username MyBot@fetch                 Prompt for the password
  wikifetch auth https://wiki.example.org/w/api.php -u MyBot@fetch
  wikifetch auth --list                                 List stored logins
  wikifetch auth --remove                               Remove the login for wiki.api_url
  echo $PASS | wikifetch auth -u MyBot@fetch            Pipe the password from stdin`

const authShortDesc string = "Store a login for a wiki"

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [api-url]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			if cmder.list {
				return cmder.runList(cmd.OutOrStdout(), configDir)
			}

			apiURL, err := targetURL(cmd, args)
			if err != nil {
				return err
			}

			if cmder.remove {
				return cmder.runRemove(cmd.OutOrStdout(), apiURL, configDir)
			}
			return cmder.runAuth(cmd, apiURL, configDir)
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored logins")
	cmd.Flags().BoolVar(&cmder.remove, "remove", false, "Remove the stored login for the wiki")
	cmd.Flags().StringVarP(&cmder.username, "username", "u", "", "Wiki username (prompted when omitted on a terminal)")

	return cmd
}

// targetURL is the positional api-url, or the configured wiki.api_url.
func targetURL(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	cfg, err := config.LoadForCommand(cmd)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.Wiki.APIURL, nil
}

func (c *authCommander) runAuth(cmd *cobra.Command, apiURL, configDir string) error {
	if _, err := credentials.SiteKey(apiURL); err != nil {
		return err
	}

	username, password, err := c.readLogin(cmd.InOrStdin(), cmd.OutOrStdout(), apiURL)
	if err != nil {
		return err
	}

	if username == "" {
		return errors.New("username cannot be empty")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetLogin(apiURL, username, password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Stored login %s for %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(username),
		cliui.DimStyle.Render(apiURL),
	)
	return nil
}

func (c *authCommander) runList(w io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	sites, err := mgr.ListSites()
	if err != nil {
		return err
	}

	if len(sites) == 0 {
		fmt.Fprintf(w, "\n  %s No stored logins.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(w, "  Use 'wikifetch auth --username <name>' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored logins"))
	for _, site := range sites {
		login, _, err := mgr.GetLogin(site)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(site),
			cliui.DimStyle.Render("as "+login.Username),
		)
	}
	fmt.Fprintln(w)

	return nil
}

func (c *authCommander) runRemove(w io.Writer, apiURL, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveLogin(apiURL); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Removed login for %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(apiURL))

	return nil
}

// readLogin reads the password from in. If in is a pipe, the first line is
// the password and --username is required. Otherwise it prompts, with hidden
// input for the password.
func (c *authCommander) readLogin(in io.Reader, out io.Writer, apiURL string) (string, string, error) {
	username := strings.TrimSpace(c.username)

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		if username == "" {
			return "", "", errors.New("--username is required when the password is piped")
		}
		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			return username, strings.TrimSpace(scanner.Text()), nil
		}
		if err := scanner.Err(); err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", "", errors.New("no input received on stdin")
	}

	reader := bufio.NewReader(f)
	if username == "" {
		fmt.Fprintf(out, "Username for %s: ", apiURL)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("reading username: %w", err)
		}
		username = strings.TrimSpace(line)
	}

	fmt.Fprintf(out, "Password for %s: ", username)
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out) // newline after hidden input
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}

	return username, strings.TrimSpace(string(pw)), nil
}
