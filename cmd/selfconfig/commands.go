package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/optimization"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/infrastructure/collector"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/self-configuration/internal/infrastructure/telemetry"
	"github.com/dreschagin/self-configuration/internal/infrastructure/vault"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// cliOptions - значения глобальных флагов
type cliOptions struct {
	source   string
	snapshot string
	seed     int64
	output   string
	logLevel string
}

// stack - in-memory набор use case'ов для одного запуска команды
type stack struct {
	engine   *service.RecommendationEngine
	analyze  *usecase.AnalyzePerformanceUseCase
	insights *usecase.GetInsightsUseCase
	apply    *usecase.ApplyOptimizationsUseCase
	chat     *conversation.Engine
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "selfconfig",
		Short: "Self-configuring system optimizer",
		Long: `selfconfig анализирует метрики системы, оценивает ее здоровье
и применяет рекомендованные оптимизации.

Каждая команда работает с in-memory состоянием одного запуска.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "text", "json":
				return nil
			default:
				return fmt.Errorf("unsupported output format %q", opts.output)
			}
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.source, "source", "random", "Metrics source: random, static or runtime")
	flags.StringVar(&opts.snapshot, "snapshot", "", "YAML snapshot file for the static source")
	flags.Int64Var(&opts.seed, "seed", 0, "Seed for the random source (0 = time based)")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "error", "Log level (debug, info, warn, error)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Collect a snapshot and build an optimization profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts)
			if err != nil {
				return err
			}
			profile, err := s.analyze.Execute(cmd.Context())
			if err != nil {
				return err
			}
			profileDTO := dto.FromProfile(profile, s.engine)
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), profileDTO)
			}
			printProfile(cmd.OutOrStdout(), profileDTO)
			return nil
		},
	}

	insightsCmd := &cobra.Command{
		Use:   "insights",
		Short: "Show health score and narrative for a fresh analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts)
			if err != nil {
				return err
			}
			insight, err := s.insights.Execute(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), insight)
			}
			printInsight(cmd.OutOrStdout(), insight)
			return nil
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Print only the health score and band",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts)
			if err != nil {
				return err
			}
			insight, err := s.insights.Execute(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"health_score": insight.HealthScore,
					"health_band":  insight.HealthBand,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d/100 (%s)\n", insight.Emoji, insight.HealthScore, insight.HealthBand)
			return nil
		},
	}

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Analyze and apply all recommended optimizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts)
			if err != nil {
				return err
			}
			result, err := s.apply.Execute(cmd.Context())
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"profile_id": result.Profile.ID(),
					"applied":    result.Applied,
					"unchanged":  result.Unchanged,
					"failed":     result.Failed,
					"narrative":  result.Narrative,
				})
			}
			printApplyResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant about the system",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStack(opts)
			if err != nil {
				return err
			}
			reply, err := s.chat.Process(cmd.Context(), conversation.Request{
				SessionID: "cli",
				Message:   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), reply)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}

	rootCmd.AddCommand(analyzeCmd, insightsCmd, healthCmd, optimizeCmd, chatCmd)
	return rootCmd
}

func buildStack(opts *cliOptions) (*stack, error) {
	log := logger.NewWithWriter(opts.logLevel, os.Stderr)

	recorder := telemetry.NewRecorder(0)
	source, err := collector.NewSource(collector.SourceOptions{
		Kind:         opts.source,
		SnapshotPath: opts.snapshot,
		Seed:         opts.seed,
		Recorder:     recorder,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	repo := memory.NewProfileRepository(10)
	engine := service.NewRecommendationEngine()
	synthesizer := service.NewNarrativeSynthesizer(engine, nil, nil)
	applier := optimization.NewApplier(optimization.DefaultRegistry(), nil, log)

	analyzeUC := usecase.NewAnalyzePerformanceUseCase(usecase.AnalyzeDependencies{
		Source:     source,
		Engine:     engine,
		Repository: repo,
		Vault:      vault.NewMemoryVault(),
	}, log)
	insightsUC := usecase.NewGetInsightsUseCase(analyzeUC, repo, synthesizer, nil, log)
	applyUC := usecase.NewApplyOptimizationsUseCase(analyzeUC, applier, repo, synthesizer, nil, nil, log)

	return &stack{
		engine:   engine,
		analyze:  analyzeUC,
		insights: insightsUC,
		apply:    applyUC,
		chat:     conversation.NewEngine(analyzeUC, applyUC, insightsUC, recorder, applier.Tuning().Settings, log),
	}, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printProfile(w io.Writer, profile *dto.ProfileDTO) {
	fmt.Fprintf(w, "Profile %s\n", profile.ID)
	fmt.Fprintf(w, "Health score: %d/100 (%s)\n", profile.HealthScore, profile.HealthBand)
	if len(profile.BreachedMetrics) > 0 {
		fmt.Fprintf(w, "Breached: %s\n", strings.Join(profile.BreachedMetrics, ", "))
	}
	printList(w, "Recommendations", profile.Recommendations)
}

func printInsight(w io.Writer, insight *dto.InsightDTO) {
	fmt.Fprintf(w, "%s Health score: %d/100 (%s)\n\n", insight.Emoji, insight.HealthScore, insight.HealthBand)
	fmt.Fprintln(w, insight.Narrative)
	printList(w, "Recommendations", insight.Recommendations)
}

func printApplyResult(w io.Writer, result *usecase.ApplyResult) {
	printList(w, "Applied", result.Applied)
	if len(result.Unchanged) > 0 {
		printList(w, "Already in effect", result.Unchanged)
	}
	if len(result.Failed) > 0 {
		fmt.Fprintln(w, "\nFailed:")
		for _, failed := range result.Failed {
			fmt.Fprintf(w, "  - %s: %s\n", failed.Optimization, failed.Reason)
		}
	}
	if result.Narrative != "" {
		fmt.Fprintf(w, "\n%s\n", result.Narrative)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "\n%s: none\n", title)
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
