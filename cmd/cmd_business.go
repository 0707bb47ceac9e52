// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/jcodagnone/storelocator/store"
	"github.com/spf13/cobra"
)

var businessOptions struct {
	Name   string
	Email  string
	UserID string
}

var businessCmd = &cobra.Command{
	Use:   "business",
	Short: "Gestione delle attività",
}

var businessCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Registra una nuova attività",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		b := &store.Business{
			Name:   strings.TrimSpace(businessOptions.Name),
			Email:  businessOptions.Email,
			UserID: businessOptions.UserID,
		}
		if err := repo.CreateBusiness(cmd.Context(), b); err != nil {
			return fmt.Errorf("creating business: %w", err)
		}

		fmt.Println(b.ID)

		return nil
	},
}

var businessStoresCmd = &cobra.Command{
	Use:   "stores <business-id>",
	Short: "Elenca i negozi di un'attività",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		b, err := repo.GetBusiness(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("business %s: %w", args[0], err)
		}

		records, err := repo.ListStores(cmd.Context(), b.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d negozi)\n", b.Name, len(records))
		printRecords(records)

		return nil
	},
}

func printRecords(records []*store.Record) {
	for _, r := range records {
		where := "-"
		if p, ok := r.Point(); ok {
			where = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
		}

		fmt.Printf("  %-30s %-15s %-40s %-20s %s\n", r.StoreName, r.Brand, r.Address, r.City, where)
	}
}

func init() {
	rootCmd.AddCommand(businessCmd)
	businessCmd.AddCommand(businessCreateCmd)
	businessCmd.AddCommand(businessStoresCmd)
	businessCreateCmd.Flags().StringVar(
		&businessOptions.Name,
		"name",
		"",
		"Nome dell'attività",
	)
	businessCreateCmd.Flags().StringVar(
		&businessOptions.Email,
		"email",
		"",
		"Email dell'attività, usata per collegarla all'utente che accede",
	)
	businessCreateCmd.Flags().StringVar(
		&businessOptions.UserID,
		"user-id",
		"",
		"Utente già registrato da collegare all'attività",
	)
	_ = businessCreateCmd.MarkFlagRequired("name")
}
