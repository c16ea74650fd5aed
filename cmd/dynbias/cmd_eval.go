/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/friendsincode/dynbias/internal/collection/memory"
	"github.com/friendsincode/dynbias/internal/collection/sqlstore"
	"github.com/friendsincode/dynbias/internal/db"
	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/generator"
	"github.com/friendsincode/dynbias/internal/library"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the description of every bias in a file",
	RunE:  runDescribe,
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the biases in a file",
	Long:  "Evaluate the biases in a file against the database, or against a YAML library file when --library is set.",
	RunE:  runEval,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a playlist from the biases in a file",
	RunE:  runGenerate,
}

var (
	biasFile    string
	libraryFile string
	evalWait    time.Duration
	evalLimit   int
	genCount    int
	genSeed     int64
	genStrict   bool
)

func init() {
	rootCmd.AddCommand(describeCmd, evalCmd, generateCmd)

	for _, c := range []*cobra.Command{describeCmd, evalCmd, generateCmd} {
		c.Flags().StringVar(&biasFile, "file", "", "Path to a <bias> or <biases> XML file (required)")
		_ = c.MarkFlagRequired("file")
	}
	for _, c := range []*cobra.Command{evalCmd, generateCmd} {
		c.Flags().StringVar(&libraryFile, "library", "", "Evaluate against this YAML library instead of the database")
		c.Flags().DurationVar(&evalWait, "wait", 5*time.Second, "How long to wait for results")
	}
	evalCmd.Flags().IntVar(&evalLimit, "limit", 20, "Tracks listed per bias")
	generateCmd.Flags().IntVar(&genCount, "count", generator.DefaultCount, "Playlist length")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed")
	generateCmd.Flags().BoolVar(&genStrict, "strict", false, "Fail when a bias is still evaluating at the deadline")
}

// readBiasFile decodes biasFile with env.
func readBiasFile(env dynamic.Env) ([]dynamic.Bias, error) {
	f, err := os.Open(biasFile)
	if err != nil {
		return nil, fmt.Errorf("open bias file: %w", err)
	}
	defer f.Close()

	biases, err := dynamic.ReadDocument(f, dynamic.DefaultFactories(), env)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", biasFile, err)
	}
	return biases, nil
}

// openCollection returns the maker and source biases are evaluated with,
// and a func releasing them.
func openCollection(reg *meta.Registry) (query.Maker, generator.Source, func(), error) {
	if libraryFile != "" {
		tracks, err := library.Load(libraryFile, reg)
		if err != nil {
			return nil, nil, nil, err
		}
		coll := memory.New(memory.Config{
			ID:        "library",
			BatchSize: cfg.QueryBatchSize,
			Workers:   cfg.QueryWorkers,
		}, logger)
		coll.Replace(tracks)
		return coll, generator.MemorySource(coll), func() {}, nil
	}

	database, err := initDatabase()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	store := sqlstore.New(database, sqlstore.Config{ID: "library", BatchSize: cfg.QueryBatchSize}, logger)
	return store, generator.SQLSource(store), func() { _ = db.Close(database) }, nil
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	biases, err := readBiasFile(dynamic.Env{Logger: logger})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, b := range biases {
		fmt.Fprintf(out, "%s\t%s\n", b.Name(), b.String())
	}
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	reg := meta.NewRegistry()
	maker, source, release, err := openCollection(reg)
	if err != nil {
		return err
	}
	defer release()

	biases, err := readBiasFile(dynamic.Env{Maker: maker, Registry: reg, Logger: logger})
	if err != nil {
		return err
	}

	universe, err := source.Universe(cmd.Context())
	if err != nil {
		return err
	}
	_, pending := generator.Await(cmd.Context(), universe, biases, evalWait)
	isPending := make(map[dynamic.Bias]bool, len(pending))
	for _, b := range pending {
		isPending[b] = true
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "BIAS\tTRACKS\tSAMPLE\n")
	for _, b := range biases {
		if isPending[b] {
			fmt.Fprintf(w, "%s\tpending\t\n", b.String())
			continue
		}
		uids := b.MatchingTracks(universe).UIDs()
		sample := uids[:min(evalLimit, len(uids))]
		fmt.Fprintf(w, "%s\t%s of %s\t%v\n", b.String(), humanize.Comma(int64(len(uids))), humanize.Comma(int64(universe.Size())), sample)
	}
	return w.Flush()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	reg := meta.NewRegistry()
	maker, source, release, err := openCollection(reg)
	if err != nil {
		return err
	}
	defer release()

	biases, err := readBiasFile(dynamic.Env{Maker: maker, Registry: reg, Logger: logger})
	if err != nil {
		return err
	}

	gen := generator.New(source, evalWait, logger)
	result, err := gen.Generate(cmd.Context(), generator.Request{
		Biases: biases,
		Count:  genCount,
		Seed:   genSeed,
		Strict: genStrict,
	})
	for _, warn := range result.Warnings {
		logger.Warn().Str("warning", warn).Msg("playlist generation")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, uid := range result.UIDs {
		fmt.Fprintln(out, uid)
	}
	return nil
}
