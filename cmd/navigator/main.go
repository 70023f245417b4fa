// Copyright 2024 Saudi Government Services Navigator Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the navigator command line tool: one-shot query
// resolution, catalog validation and query history inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/config"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/engine"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/history"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/navigator"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/resolver"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/respond"
)

var (
	configPath   string
	historyLimit int
	showStats    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "navigator",
		Short: "Saudi Government Services Navigator",
		Long: "Bilingual assistant that routes Arabic and English questions " +
			"to the matching government e-services.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to configuration file")

	askCmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Resolve a single query against the service catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the service catalog file",
		RunE:  runValidate,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered queries",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show")
	historyCmd.Flags().BoolVar(&showStats, "stats", false, "Show aggregate outcome counts instead of entries")

	rootCmd.AddCommand(askCmd, validateCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runAsk resolves one query and renders the answer to stdout.
func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zap.NewNop()
	if cfg.Logging.Level == "debug" {
		logger, _ = zap.NewDevelopment()
		defer func() { _ = logger.Sync() }()
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load service catalog: %w", err)
	}

	engineClient, err := engine.NewClient(engine.Config{
		Model:   cfg.Engine.Model,
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
		Timeout: time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine client: %w", err)
	}

	detector := language.NewDetector(cfg.Language.ArabicThreshold)
	nav := navigator.New(cat, detector, resolver.New(engineClient, logger), logger)

	query := strings.Join(args, " ")
	answer := nav.ProcessQuery(context.Background(), query)

	renderPayload(cmd, answer.Payload)
	cmd.Printf("\n(%s, %s)\n", answer.Language.Name(), answer.Elapsed.Round(time.Millisecond))

	if store, err := history.NewStore(cfg.History.DBPath); err == nil {
		defer func() { _ = store.Close() }()
		_ = store.Record(history.Entry{
			Query:       answer.Query,
			Language:    string(answer.Language),
			Outcome:     string(answer.Payload.Kind),
			MatchedKeys: answer.Result.Keys,
			LatencyMS:   answer.Elapsed.Milliseconds(),
		})
	}

	return nil
}

// runValidate loads the catalog and reports every validation defect.
func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	cmd.Printf("Catalog OK: %d services\n", cat.Len())
	for _, key := range cat.Keys() {
		rec, _ := cat.Get(key)
		cmd.Printf("  %-34s %s / %s\n", rec.Key, rec.TitleEN, rec.TitleAR)
	}

	return nil
}

// runHistory prints recent query log entries, or aggregate stats.
func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if showStats {
		stats, err := store.GetStats()
		if err != nil {
			return err
		}
		cmd.Printf("Total queries:  %d\n", stats.Total)
		cmd.Printf("Matched:        %d\n", stats.Matched)
		cmd.Printf("Conversational: %d\n", stats.Conversational)
		cmd.Printf("Errors:         %d\n", stats.Errors)
		return nil
	}

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Println("No queries recorded yet")
		return nil
	}

	for _, e := range entries {
		keys := ""
		if len(e.MatchedKeys) > 0 {
			keys = " -> " + strings.Join(e.MatchedKeys, ", ")
		}
		cmd.Printf("[%s] (%s, %s, %dms) %s%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Language, e.Outcome, e.LatencyMS, e.Query, keys)
	}

	return nil
}

// renderPayload prints a composed answer as terminal text.
func renderPayload(cmd *cobra.Command, p respond.Payload) {
	switch p.Kind {
	case respond.KindServices:
		for i, svc := range p.Services {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s  [%s / %s]\n", svc.Title, svc.Platform, svc.Category)
			cmd.Printf("%s\n", svc.Description)
			if len(svc.Steps) > 0 {
				cmd.Println("Steps:")
				for j, step := range svc.Steps {
					cmd.Printf("  %d. %s\n", j+1, step)
				}
			}
			if len(svc.Requirements) > 0 {
				cmd.Println("Requirements:")
				for _, req := range svc.Requirements {
					cmd.Printf("  - %s\n", req)
				}
			}
			if svc.OfficialLink != "" {
				cmd.Printf("Link: %s\n", svc.OfficialLink)
			}
		}
	default:
		cmd.Println(p.Message)
	}
}
