// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcodagnone/storelocator/auth"
	"github.com/jcodagnone/storelocator/config"
	"github.com/jcodagnone/storelocator/geocoding"
	"github.com/jcodagnone/storelocator/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Avvia il proxy di geocodifica e le API di importazione",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tokens, err := auth.NewTokenIssuer(options.JWTSecret, options.TokenTTL)
		if err != nil {
			return fmt.Errorf("%s: %w", config.EnvJWTSecret, err)
		}

		repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		srv := server.NewServer(repo, upstreamGeocoder(ctx), nil, tokens, server.Options{
			RateLimit:    options.RateLimit,
			RateBurst:    options.RateBurst,
			BcryptCost:   options.BcryptCost,
			SessionIdle:  options.SessionIdle,
			GeocodeDelay: options.GeocodeDelay,
			CallTimeout:  options.CallTimeout,
		})

		return srv.Run(ctx, options.Addr)
	},
}

// upstreamGeocoder builds the Google geocoder, or returns nil when no API key
// can be found; the proxy then answers 503.
func upstreamGeocoder(ctx context.Context) geocoding.Geocoder {
	key := options.GoogleMapsAPIKey
	if key == "" {
		var err error

		key, err = geocoding.ResolveAPIKey(ctx, options.GoogleProject)
		if err != nil {
			log.Printf("⚠️ geocoding disabled: %v", err)

			return nil
		}
	}

	return geocoding.NewGoogleMapsGeocoder(key,
		geocoding.WithHTTPClient(httpClient(options.CallTimeout)),
	)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&flagOptions.Addr,
		config.FlagAddr,
		flagOptions.Addr,
		"Indirizzo di ascolto del server HTTP",
	)
}
