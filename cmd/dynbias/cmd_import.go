/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/friendsincode/dynbias/internal/collection/sqlstore"
	"github.com/friendsincode/dynbias/internal/db"
	"github.com/friendsincode/dynbias/internal/eventbus"
	"github.com/friendsincode/dynbias/internal/library"
	"github.com/friendsincode/dynbias/internal/meta"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import tracks from a YAML library file",
	Long:  "Upsert the tracks listed in a YAML library file into the database. Running servers sharing the event bus drop their cached results.",
	RunE:  runImport,
}

var importFile string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importFile, "file", "", "Path to the library file (required)")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	tracks, err := library.Load(importFile, meta.NewRegistry())
	if err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(database)

	bus, err := eventbus.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer bus.Close()

	store := sqlstore.New(database, sqlstore.Config{
		ID:        "library",
		BatchSize: cfg.QueryBatchSize,
		Broker:    bus,
	}, logger)

	n, err := store.Import(cmd.Context(), tracks)
	if err != nil {
		return err
	}
	total, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info().Str("file", importFile).Int("imported", n).Int64("total", total).Msg("library imported")
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s tracks (%s in library)\n", humanize.Comma(int64(n)), humanize.Comma(total))
	return nil
}
