package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"support-triage/internal/app"
	"support-triage/internal/auth"
	"support-triage/internal/config"
	"support-triage/internal/logger"
	"support-triage/internal/pipeline"
	"support-triage/internal/triage"
)

type options struct {
	cfgFile string
	at      string
	offline bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage customer support messages",
		Long: `triage scores the urgency of a support message, assigns it one of six
categories and recommends a follow-up action.

The message is read from the arguments, or from stdin when none are given.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $TRIAGE_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(urgencyCmd(opts))
	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(hashSecretCmd())
	return rootCmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [message]",
		Short: "Classify a message with the keyword rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), triage.Classify(message))
		},
	}
}

func urgencyCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urgency [message]",
		Short: "Score the urgency of a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			clock, err := urgencyClock(opts)
			if err != nil {
				return err
			}
			message, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), triage.NewUrgencyScorer(clock).CalculateUrgency(message))
		},
	}

	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate business hours at this RFC3339 time instead of now")

	return cmd
}

// urgencyClock reads business hours in triage.timezone, like the server does.
// --at replaces the wall clock but is still converted into that zone.
func urgencyClock(opts *options) (triage.Clock, error) {
	var clock triage.Clock = triage.SystemClock
	if opts.at != "" {
		at, err := time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return nil, fmt.Errorf("--at: %w", err)
		}
		clock = triage.FixedClock(at)
	}
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return triage.InLocation(clock, loc), nil
}

func runCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Run the full triage pipeline, using the configured LLM provider when available",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development, OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			components, err := app.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer components.Close()

			var classifier pipeline.Classifier
			if !opts.offline {
				classifier = components.Service
			}
			result := pipeline.New(classifier, components.Clock, nil, log).
				WithDeadline(cfg.Triage.Deadline).
				Triage(cmd.Context(), message)
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&opts.offline, "offline", false, "skip LLM providers and classify with rules only")

	return cmd
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and their recommended actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := map[string]string{}
			for _, category := range triage.ActionCategories() {
				actions[string(category)] = triage.RecommendedAction(category)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"categories":    triage.Categories(),
				"actions":       actions,
				"defaultAction": triage.DefaultAction,
			})
		},
	}
}

func hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret [secret]",
		Short: "Print the bcrypt hash to use as auth.client_secret_hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readMessage(cmd, args)
			if err != nil {
				return err
			}
			if secret == "" {
				return errors.New("secret must not be empty")
			}
			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

func readMessage(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
