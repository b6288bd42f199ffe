// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/source-scout/internal/source"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the platforms source-scout can search",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, name := range source.Names() {
			status := "ready"
			if _, err := source.New(name, cfg.Platforms, http.DefaultClient); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(w, "%-18s %s\n", name, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
