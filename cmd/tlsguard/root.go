package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/avaropoint/tlsguard/internal/config"
	"github.com/avaropoint/tlsguard/internal/cryptolib"
	"github.com/avaropoint/tlsguard/internal/logging"
)

// library is what the commands need from a loaded OpenSSL.
type library interface {
	cryptolib.Library
	Path() string
	Close() error
}

// openLibrary is replaced in tests.
var openLibrary = func(cfg cryptolib.Config) (library, error) {
	lib, err := cryptolib.Open(cfg)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// app carries flag values and the resolved configuration between the root
// command and its subcommands.
type app struct {
	configPath string
	logLevel   string
	logJSON    bool
	cryptoPath string
	sslPath    string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "tlsguard",
		Short:             "Gate and initialize the system OpenSSL libraries",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "configuration file (.toml, .yaml or .yml)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.BoolVar(&a.logJSON, "log-json", false, "emit JSON logs")
	f.StringVar(&a.cryptoPath, "libcrypto", "", "path to libcrypto (default: search well-known names)")
	f.StringVar(&a.sslPath, "libssl", "", "path to libssl (legacy versions only)")

	root.AddCommand(
		a.newCheckCmd(),
		a.newInitCmd(),
		a.newDefectsCmd(),
		a.newAuditCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the config file, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = a.logJSON
	}
	if flags.Changed("libcrypto") {
		cfg.Library.CryptoPath = a.cryptoPath
	}
	if flags.Changed("libssl") {
		cfg.Library.SSLPath = a.sslPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, logger
	return nil
}

// open loads the configured libraries.
func (a *app) open() (library, error) {
	lib, err := openLibrary(cryptolib.Config{
		CryptoPath: a.cfg.Library.CryptoPath,
		SSLPath:    a.cfg.Library.SSLPath,
	})
	if err != nil {
		return nil, fmt.Errorf("open crypto library: %w", err)
	}
	a.log.Debug("crypto library loaded", "path", lib.Path(), "version", lib.Version().String())
	return lib, nil
}
