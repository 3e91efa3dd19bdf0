package cli

import (
	"bufio"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/spf13/cobra"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// NewClientFunc builds the API client once flags and config are resolved.
type NewClientFunc func(cfg *config.Config) client.Client

// App carries state shared by the subcommands.
type App struct {
	newClient NewClientFunc
	api       client.Client
	reader    *bufio.Reader

	configFile string
	serverURL  string
	timeout    time.Duration
}

func defaultClient(cfg *config.Config) client.Client {
	return client.NewHTTPClient(cfg.ServerURL, cfg.Timeout)
}

// NewRootCmd builds the authctl command tree. A nil newClient talks HTTP to
// the configured server.
func NewRootCmd(newClient NewClientFunc) *cobra.Command {
	if newClient == nil {
		newClient = defaultClient
	}
	a := &App{newClient: newClient}

	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Command-line client for the gophauth API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().StringVarP(&a.serverURL, "server", "a", "", "server base URL")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "request timeout")

	cmd.AddCommand(
		a.newSignupCmd(),
		a.newSigninCmd(),
		a.newSendConfirmationCmd(),
		a.newConfirmCmd(),
		a.newRefreshCmd(),
		a.newMeCmd(),
	)
	return cmd
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") {
		cfg.ServerURL = a.serverURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	a.api = a.newClient(cfg)
	a.reader = bufio.NewReader(cmd.InOrStdin())
	return nil
}

// password returns flagValue, or prompts for it when empty.
func (a *App) password(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	pw, err := getPassword(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	s := string(pw)
	wipe(pw)
	return s, nil
}

// text returns flagValue, or prompts for it when empty.
func (a *App) text(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return getSimpleText(a.reader, prompt, cmd.ErrOrStderr())
}
