// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/jcodagnone/storelocator/spatial"
	"github.com/spf13/cobra"
)

var searchOptions struct {
	Lat, Lng float64
	RadiusKm float64
	Brand    string
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Ricerca nel registro dei negozi",
}

var storesSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Cerca i negozi per marchio o vicino a un punto",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		near := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
		if !near && searchOptions.Brand == "" {
			return errors.New("either --brand or --lat/--lng is required")
		}

		repo, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		if !near {
			records, err := repo.SearchBrand(cmd.Context(), searchOptions.Brand)
			if err != nil {
				return err
			}

			printRecords(records)

			return nil
		}

		center := spatial.Point{Lat: searchOptions.Lat, Lng: searchOptions.Lng}
		if !center.Valid() {
			return fmt.Errorf("invalid point %s", center)
		}

		matches, err := repo.SearchNearby(cmd.Context(), center, searchOptions.RadiusKm, searchOptions.Brand)
		if err != nil {
			return err
		}

		for _, m := range matches {
			fmt.Printf("%8.0fm  %-30s %-15s %s, %s\n", m.Distance, m.StoreName, m.Brand, m.Address, m.City)
		}

		return nil
	},
}

var storesDeleteCmd = &cobra.Command{
	Use:   "delete <store-id>",
	Short: "Elimina un negozio dal registro",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.DeleteStore(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("store %s: %w", args[0], err)
		}

		log.Printf("✅ store %s deleted", args[0])

		return nil
	},
}

func init() {
	rootCmd.AddCommand(storesCmd)
	storesCmd.AddCommand(storesSearchCmd)
	storesCmd.AddCommand(storesDeleteCmd)
	storesSearchCmd.Flags().Float64Var(&searchOptions.Lat, "lat", 0, "Latitudine del centro")
	storesSearchCmd.Flags().Float64Var(&searchOptions.Lng, "lng", 0, "Longitudine del centro")
	storesSearchCmd.Flags().Float64Var(&searchOptions.RadiusKm, "radius-km", 10, "Raggio di ricerca in km")
	storesSearchCmd.Flags().StringVar(&searchOptions.Brand, "brand", "", "Marchio o nome del negozio")
}
