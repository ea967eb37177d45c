package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/target/media-console/config"
	"github.com/target/media-console/internal/adapters/apiclient"
	"github.com/target/media-console/internal/adapters/filestore"
	"github.com/target/media-console/internal/ports"
	"github.com/target/media-console/internal/service"
	"golang.org/x/net/publicsuffix"
)

// cliConfig is the subset of the server configuration the CLI honours.
type cliConfig struct {
	API         config.APIConfig
	QuickSearch config.QuickSearchConfig
}

// app carries flags and lazily built services shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer

	apiURL      string
	credentials string
	verbose     bool
	jsonOut     bool

	// transport overrides the HTTP round tripper (tests).
	transport http.RoundTripper

	logger      *slog.Logger
	cfg         cliConfig
	tokens      *filestore.TokenStore
	session     *service.SessionStore
	resources   *service.ResourceService
	accounts    *service.AccountService
	quickSearch *service.QuickSearchService
	overview    *service.OverviewService

	initOnce sync.Once
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mediaconsole-cli",
		Short: "Terminal client for the media-monitoring console",
		Long: `mediaconsole-cli signs in to the media-monitoring API and works with tenant data.

Example usage:
  mediaconsole-cli login --email me@example.com
  mediaconsole-cli whoami
  mediaconsole-cli list jobs --limit 50
  mediaconsole-cli quick-search --query '{"keywords":["acme"]}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "API base URL (default: $API_BASE_URL)")
	root.PersistentFlags().StringVar(&a.credentials, "credentials", "", "credentials file (default: <user config dir>/mediaconsole/credentials.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print raw JSON")

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newPasswordCmd(a),
		newImpersonateCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newQuickSearchCmd(a),
		newOverviewCmd(a),
	)
	return root
}

func loadCLIConfig(apiFlag string) (cliConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return cliConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	environ := env.ToMap(os.Environ())
	if apiFlag != "" {
		environ["API_BASE_URL"] = apiFlag
	}
	var cfg cliConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse config (set --api or API_BASE_URL): %w", err)
	}
	cfg.API.Sanitize()
	cfg.QuickSearch.Sanitize()
	return cfg, nil
}

// setup builds the API client and services. The session itself is verified lazily.
func (a *app) setup() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	cfg, err := loadCLIConfig(a.apiURL)
	if err != nil {
		return err
	}
	a.cfg = cfg

	path := a.credentials
	if path == "" {
		if path, err = filestore.DefaultPath(); err != nil {
			return err
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	api, err := apiclient.New(apiclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		ErrorMessagePaths: cfg.API.ErrorMessagePaths,
		Transport:         a.transport,
		Jar:               jar,
		Logger:            a.logger,
	})
	if err != nil {
		return err
	}

	a.tokens = filestore.NewTokenStore(path, api.BaseURL())
	// Reloading re-verifies from the credentials file, exactly as the next invocation would.
	a.session = service.NewSessionStore(service.SessionStoreOptions{
		Tokens:   a.tokens,
		API:      api,
		Reloader: ports.ReloadFunc(func(ctx context.Context) { a.session.Init(ctx) }),
		Logger:   a.logger,
	})
	a.resources = service.NewResourceService(service.ResourceServiceOptions{API: api, Logger: a.logger})
	a.accounts = service.NewAccountService(service.AccountServiceOptions{API: api, Logger: a.logger})
	a.quickSearch = service.NewQuickSearchService(service.QuickSearchServiceOptions{
		API:      api,
		Interval: cfg.QuickSearch.PollInterval,
		Timeout:  cfg.QuickSearch.Timeout,
		Logger:   a.logger,
	})
	a.overview = service.NewOverviewService(service.OverviewServiceOptions{API: api, Logger: a.logger})
	return nil
}

// verifiedSession restores the persisted session once per invocation.
func (a *app) verifiedSession(ctx context.Context) *service.SessionStore {
	a.initOnce.Do(func() { a.session.Init(ctx) })
	return a.session
}

// signedIn returns the verified session or an error telling the user to log in.
func (a *app) signedIn(ctx context.Context) (*service.SessionStore, error) {
	sess := a.verifiedSession(ctx)
	if !sess.Snapshot().IsAuthenticated() {
		return nil, errNotSignedIn
	}
	return sess, nil
}

var errNotSignedIn = errors.New("not signed in; run `mediaconsole-cli login` first")

// scope partitions the query cache for this invocation.
func (a *app) scope(sess *service.SessionStore) service.Scope {
	return service.Scope{SID: "cli", Token: sess.Token()}
}
