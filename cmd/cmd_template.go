// Copyright 2025 The StoreLocator Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcodagnone/storelocator/importer"
	"github.com/spf13/cobra"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Scrive il file CSV di esempio con le colonne attese",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if templateOut == "" || templateOut == "-" {
			_, err := fmt.Print(importer.TemplateCSV())

			return err
		}

		if err := os.WriteFile(filepath.Clean(templateOut), []byte(importer.TemplateCSV()), 0o600); err != nil {
			return fmt.Errorf("writing template: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVarP(
		&templateOut,
		"out",
		"o",
		"template_negozi.csv",
		"File di destinazione, - per lo standard output",
	)
}
