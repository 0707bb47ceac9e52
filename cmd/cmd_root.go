// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jcodagnone/storelocator/config"
	"github.com/jcodagnone/storelocator/store"
	"github.com/jcodagnone/storelocator/utils/httputils"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var (
	configPath string
	// flagOptions receives the command line values; options is the result
	// of merging them over the loaded configuration.
	flagOptions = config.Default()
	options     *config.Options
)

var rootCmd = &cobra.Command{
	Use:   "storelocator",
	Short: "importazione massiva dei punti vendita",
	Long: `
storelocator carica da un file CSV i punti vendita di un'attività, ne
geocodifica gli indirizzi tramite il proxy e li salva nel registro dei negozi.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := config.Load(configPath)
		if err != nil {
			return err
		}

		opts.Override(flagOptions, cmd.Flags().Changed)

		if err := opts.Validate(); err != nil {
			return err
		}

		options = opts

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"File YAML di configurazione",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagOptions.DbPath,
		config.FlagDbPath,
		flagOptions.DbPath,
		"Directory del database DuckDB",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagOptions.Driver,
		config.FlagDriver,
		flagOptions.Driver,
		"Archivio dei negozi: duckdb o postgres",
	)
	rootCmd.PersistentFlags().BoolVar(
		&flagOptions.EnableHTTPTrace,
		config.FlagTraceHTTP,
		false,
		"Display HTTP requests-responses",
	)
	rootCmd.PersistentFlags().BoolVar(
		&flagOptions.EnableHTTPBodyTrace,
		config.FlagTraceHTTPBody,
		false,
		"Display HTTP requests-responses bodies",
	)
}

// openStore opens the configured store, creating the DuckDB directory if needed.
func openStore(ctx context.Context) (store.Repository, error) {
	if options.Driver == store.DriverDuckDB {
		if err := os.MkdirAll(options.DbPath, 0o750); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	repo, err := store.Open(ctx, options.Driver, options.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return repo, nil
}

// httpClient returns a client honoring the tracing flags.
func httpClient(timeout time.Duration) *http.Client {
	opts := httputils.ClientOptions{
		Timeout: timeout,
		Headers: map[string]string{
			"User-Agent": fmt.Sprintf("storelocator/%s", Version),
		},
	}

	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		opts.TraceWriter = os.Stderr
		opts.TraceBody = options.EnableHTTPBodyTrace
	}

	return httputils.NewClient(opts)
}
