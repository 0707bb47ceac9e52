// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jcodagnone/storelocator/config"
	"github.com/jcodagnone/storelocator/geocoding"
	"github.com/jcodagnone/storelocator/importer"
	"github.com/jcodagnone/storelocator/store"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importOptions struct {
	BusinessID string
	DryRun     bool
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Importa, geocodifica e salva i negozi di un file CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importOptions.BusinessID == "" && !importOptions.DryRun {
			return errors.New("--business-id is required unless --dry-run is set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var repo store.Repository

		if !importOptions.DryRun {
			var err error

			repo, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if _, err := repo.GetBusiness(ctx, importOptions.BusinessID); err != nil {
				return fmt.Errorf("business %s: %w", importOptions.BusinessID, err)
			}
		}

		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		runner := importer.NewRunner(geocoding.NewProxyClient(options.ProxyURL, httpClient(0)))
		runner.Delay = options.GeocodeDelay
		runner.CallTimeout = options.CallTimeout

		session := importer.NewSession(runner, &importer.Submitter{Store: repo})

		parsed, err := session.Load(f)
		if err != nil {
			return err
		}

		for _, s := range parsed.Skipped {
			log.Printf("⚠️ line %d skipped: %s", s.Line, s.Reason)
		}

		log.Printf("%d rows to geocode via %s", len(parsed.Rows), options.ProxyURL)

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(parsed.Rows),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		summary, err := session.Geocode(ctx, func(p importer.Progress) {
			if bar == nil {
				log.Printf("[%d/%d] %s: %s", p.Done, p.Total, p.Row.StoreName, importer.Label(p.Row))

				return
			}

			_ = bar.Add(1)
		})
		if bar != nil {
			_ = bar.Finish()
		}

		for i, r := range session.Rows() {
			if r.Status == importer.StatusError {
				log.Printf("⚠️ row %d %q: %s", i+1, r.StoreName, r.Error)
			}
		}

		if errors.Is(err, importer.ErrUpstreamStopped) {
			log.Printf("🛑 geocoder refused further calls after %d of %d rows (%s), nothing saved",
				summary.Processed, summary.Total, geocoding.Reason(err))

			return err
		}

		if err != nil {
			log.Printf("🛑 interrupted after %d of %d rows, nothing saved", summary.Processed, summary.Total)

			return err
		}

		log.Printf("%s addresses geocoded, %d failed", summary, summary.Failed)

		if importOptions.DryRun {
			log.Print("dry run, nothing saved")

			return nil
		}

		n, err := session.Submit(ctx, importOptions.BusinessID)
		if errors.Is(err, importer.ErrNothingToSubmit) {
			log.Print("⚠️ no address could be geocoded, nothing saved")

			return err
		}

		if err != nil {
			return err
		}

		log.Printf("✅ %d stores saved for business %s", n, importOptions.BusinessID)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(
		&importOptions.BusinessID,
		"business-id",
		"",
		"Attività a cui assegnare i negozi",
	)
	importCmd.Flags().BoolVar(
		&importOptions.DryRun,
		"dry-run",
		false,
		"Geocodifica senza salvare",
	)
	importCmd.Flags().StringVar(
		&flagOptions.ProxyURL,
		config.FlagProxyURL,
		flagOptions.ProxyURL,
		"URL del proxy di geocodifica",
	)
	importCmd.Flags().DurationVar(
		&flagOptions.GeocodeDelay,
		config.FlagDelay,
		flagOptions.GeocodeDelay,
		"Pausa dopo ogni geocodifica",
	)
	importCmd.Flags().DurationVar(
		&flagOptions.CallTimeout,
		config.FlagCallTimeout,
		flagOptions.CallTimeout,
		"Tempo massimo per ogni chiamata di geocodifica",
	)
}
