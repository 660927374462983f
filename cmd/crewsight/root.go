package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewsight/crewsight/internal/app"
	"github.com/crewsight/crewsight/internal/config"
	"github.com/crewsight/crewsight/internal/http/handler"
	"github.com/crewsight/crewsight/internal/tools/loadgen"
	"github.com/crewsight/crewsight/internal/tools/obscheck"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "crewsight",
		Short:   "Team dashboard backend for coding-assistant plugin activity",
		Version: fmt.Sprintf("%s (%s)", handler.Version, handler.Commit),
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newLoadgenCommand())
	root.AddCommand(obscheck.NewCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

func newLoadgenCommand() *cobra.Command {
	cfg := loadgen.Config{}
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate synthetic plugin traffic against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Duration = duration
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			result, err := loadgen.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("requests=%d failures=%d\n", result.TotalRequests, result.Failures)
			for class, count := range result.StatusClasses {
				fmt.Printf("  %s: %d\n", class, count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&cfg.Token, "token", "", "bearer token (user or team)")
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "traffic profile: sessions, logs or mixed")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "how long to run")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 10, "target requests per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "worker count")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "rng seed")
	return cmd
}
