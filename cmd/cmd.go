package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/supervisorapp/supervisor-client/internal"
	"github.com/supervisorapp/supervisor-client/internal/credentials"
	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/session"
	"github.com/supervisorapp/supervisor-client/internal/transport"
	"github.com/supervisorapp/supervisor-client/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Supervisor API client",
	Long:  `Command line access to the supervisor field-operations backend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// Check if we're running without a config file (CI, containers)
	if os.Getenv("APP_ENV") == "production" || os.Getenv("SUPERVISOR_ENV_ONLY") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("SUPERVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// No config file is fine, the env defaults cover everything.
		cfg := internal.LoadConfigFromEnv()
		if verr := cfg.Validate(); verr != nil {
			return nil, fmt.Errorf("error validating config: %w", verr)
		}
		return cfg, nil
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

// Dependencies is everything a command needs wired: config, logger,
// the credential store, the transport and the session manager.
type Dependencies struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Creds   credentials.Store
	API     *transport.Client
	Session *session.Manager
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))

	creds, err := credentials.OpenSQLite(cfg.Storage.Path, cfg.Storage.Secret, logger.Component("credentials"))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	transportLog := logger.Component("transport")
	api, err := transport.New(transport.Config{
		BaseURL:              cfg.API.BaseURL,
		Timeout:              cfg.API.Timeout,
		RedirectDelay:        cfg.API.RedirectDelay,
		NetworkErrorDuration: cfg.Notifications.ErrorDuration,
	}, creds, &notify.LogNotifier{Logger: transportLog}, notify.NopNavigator{}, transportLog)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport: %w", err)
	}

	sess := session.NewManager(api, creds, cfg.API.RefreshAhead, logger.Component("session"))
	return &Dependencies{
		Config:  cfg,
		Logger:  logger.LoggerWrapper(),
		Creds:   creds,
		API:     api,
		Session: sess,
	}, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(changePasswordCmd)
	rootCmd.AddCommand(listCmd)
}
