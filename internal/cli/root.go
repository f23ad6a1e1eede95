package cli

import (
	"fmt"
	"os"

	"chat-client/internal/api"
	"chat-client/internal/config"
	"chat-client/internal/models"
	"chat-client/internal/session"
	"chat-client/internal/store"
	"chat-client/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatc",
	Short: "Terminal client for the chat backend",
	Long: `chatc is a terminal chat client: sign up, manage rooms and chat over
the backend's REST and websocket interfaces.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default is $HOME/.chatc.yaml)")
}

// App bundles the state containers every command needs: config, the local
// store, the session and the REST client. No globals; commands build one and
// close it when done.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Session *session.Session
	API     *api.Client
}

func newApp(cmd *cobra.Command) (*App, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetVerbose()
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Client.DataDir)
	if err != nil {
		return nil, err
	}

	sess, err := session.Load(st)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   st,
		Session: sess,
		API:     api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, sess),
	}, nil
}

func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		logger.Debug("failed to close local store: %v", err)
	}
}

// RequireUser returns the authenticated user or an actionable error.
func (a *App) RequireUser() (*models.User, error) {
	if !a.Session.Authenticated() {
		return nil, fmt.Errorf("not logged in; run 'chatc login' first")
	}
	return a.Session.User(), nil
}
