package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zen-systems/mindgate/pkg/archive"
	"github.com/zen-systems/mindgate/pkg/config"
	"github.com/zen-systems/mindgate/pkg/evidence"
	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/pipeline"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/router"
	"github.com/zen-systems/mindgate/pkg/schema"
)

var (
	configFile   string
	providerFlag string
	modelFlag    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mindgate",
		Short: "Mental-health text triage with crisis escalation",
		Long: `Mindgate routes free-form text to a risk category, runs a model-backed
	analysis with retry and circuit-breaker protection, and extracts
	supporting evidence. Crisis signals short-circuit the pipeline and
	fire an operator alert.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to pipeline config file")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "override provider (anthropic, openai, google, mock)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override model")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(evidenceCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	var userFlag string
	var sessionFlag string
	var hintFlag string
	var jsonFlag bool
	var statsFlag bool
	var archiveFlag bool

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Run the full triage pipeline on a piece of text",
		Long: `Routes the text, runs the category-specific model analysis, extracts
	supporting evidence and finalizes the result. With no argument the
	text is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textInput(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			p, inv, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			var reqCtx *schema.RequestContext
			if userFlag != "" || sessionFlag != "" || hintFlag != "" {
				reqCtx = &schema.RequestContext{
					UserID:           userFlag,
					SessionID:        sessionFlag,
					ExplicitTaskHint: hintFlag,
				}
			}

			result := p.Analyze(context.Background(), text, reqCtx)

			if archiveFlag {
				store, err := archive.NewStore("")
				if err != nil {
					return fmt.Errorf("failed to open archive: %w", err)
				}
				ref, err := store.StoreResult(result)
				if err != nil {
					return fmt.Errorf("failed to archive result: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Archived as %s\n", ref.SHA256[:12])
			}

			if statsFlag && inv != nil {
				snap := inv.Metrics().Snapshot()
				fmt.Fprintf(os.Stderr, "calls=%d success_rate=%.2f avg_latency_ms=%.0f\n",
					snap.TotalCalls, snap.SuccessRate, snap.AvgLatencyMs)
			}

			if jsonFlag {
				return printJSON(result)
			}

			fmt.Printf("Category:    %s\n", result.Category)
			fmt.Printf("Confidence:  %.2f\n", result.Confidence)
			fmt.Printf("Crisis:      %v\n", result.IsCrisis)
			fmt.Printf("Explanation: %s\n", result.Explanation)
			for _, ev := range result.SupportingEvidence {
				fmt.Printf("  - %s\n", ev)
			}
			for _, f := range result.Failures {
				fmt.Fprintf(os.Stderr, "warning: %s: %s\n", f.Type, f.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id for alert context")
	cmd.Flags().StringVar(&sessionFlag, "session", "", "session id for alert context")
	cmd.Flags().StringVar(&hintFlag, "hint", "", "explicit task hint (overrides keyword routing)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&statsFlag, "stats", false, "print invoker call stats to stderr")
	cmd.Flags().BoolVar(&archiveFlag, "archive", false, "store the result in the local archive")

	return cmd
}

func routeCmd() *cobra.Command {
	var hintFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "route [text]",
		Short: "Show the routing decision without running the full pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textInput(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			inv, err := buildInvoker(cfg)
			if err != nil {
				return err
			}

			var reqCtx *schema.RequestContext
			if hintFlag != "" {
				reqCtx = &schema.RequestContext{ExplicitTaskHint: hintFlag}
			}

			decision := router.New(inv, router.WithDebug(cfg.Pipeline.Debug)).Route(context.Background(), text, reqCtx)
			if jsonFlag {
				return printJSON(decision)
			}

			fmt.Printf("Category:   %s\n", decision.Category)
			fmt.Printf("Confidence: %.2f\n", decision.Confidence)
			fmt.Printf("Method:     %s\n", decision.Method)
			fmt.Printf("Critical:   %v\n", decision.IsCritical)
			return nil
		},
	}

	cmd.Flags().StringVar(&hintFlag, "hint", "", "explicit task hint")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the decision as JSON")

	return cmd
}

func evidenceCmd() *cobra.Command {
	var categoryFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "evidence [text]",
		Short: "Extract supporting evidence for a category",
		Long: `Runs the evidence engine directly against the text. The category
	defaults to general_mental_health; pass --category to target the
	pattern tables of a specific one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textInput(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			category := router.MapCategory(categoryFlag)

			inv, err := buildInvoker(cfg)
			if err != nil {
				return err
			}
			result := buildEngine(cfg, inv).Extract(context.Background(), text, category, nil)

			if jsonFlag {
				return printJSON(result)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TEXT\tCATEGORY\tCONFIDENCE\tCLINICAL")
			for _, item := range result.Items {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", item.Text, item.Category, item.Confidence, item.Clinical)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Strength: %s (%d items, %d high-confidence)\n",
				result.Summary.OverallStrength, result.Summary.TotalEvidence, result.Summary.HighConfidenceCount)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&categoryFlag, "category", "general_mental_health", "target category for pattern extraction")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full result as JSON")

	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers, their models, and key status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")

			for _, name := range []string{"anthropic", "google", "openai", "mock"} {
				status := "no key"
				if cfg.HasProvider(name) {
					status = "ready"
				}
				p, err := newProvider(name, cfg)
				models := ""
				if err == nil {
					models = strings.Join(p.Models(), ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, models, status)
			}

			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [pipeline.yaml]",
		Short: "Validate a pipeline config file",
		Long:  "Validates pipeline YAML without running anything.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPipelineConfig(args[0])
			if err != nil {
				return err
			}

			errs := cfg.Validate()
			if len(errs) == 0 {
				fmt.Println("Pipeline config is valid.")
				return nil
			}

			fmt.Fprintf(os.Stderr, "Found %d validation errors:\n", len(errs))
			for _, err := range errs {
				fmt.Fprintf(os.Stderr, "  - %s\n", err)
			}
			return fmt.Errorf("validation failed")
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithPipelineFile(configFile)
	}
	return config.Load()
}

// buildPipeline wires the full orchestrator from config. The invoker is
// returned alongside so callers can read its metrics.
func buildPipeline(cfg *config.Config) (*pipeline.Orchestrator, *invoker.Invoker, error) {
	inv, err := buildInvoker(cfg)
	if err != nil {
		return nil, nil, err
	}

	engine := buildEngine(cfg, inv)
	cache := evidence.NewCache(engine,
		time.Duration(cfg.Pipeline.CacheTTLMs)*time.Millisecond,
		cfg.Pipeline.CacheMaxSize)

	r := router.New(inv, router.WithDebug(cfg.Pipeline.Debug))
	o := pipeline.New(r, inv, cache, pipeline.WithDebug(cfg.Pipeline.Debug))
	return o, inv, nil
}

// buildInvoker creates the reliability invoker for the selected provider.
// A provider without a key degrades to the stub path rather than failing.
func buildInvoker(cfg *config.Config) (*invoker.Invoker, error) {
	name := cfg.Pipeline.Provider
	if providerFlag != "" {
		name = providerFlag
	}

	var p provider.Provider
	if cfg.HasProvider(name) {
		built, err := newProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		p = built
	} else {
		fmt.Fprintf(os.Stderr, "No API key for %s; model calls will return stub results.\n", name)
	}

	model := cfg.Pipeline.Model
	if modelFlag != "" {
		model = modelFlag
	}

	invCfg := invoker.Config{
		MaxRetries:          cfg.Pipeline.MaxRetries,
		Timeout:             time.Duration(cfg.Pipeline.LLMTimeoutMs) * time.Millisecond,
		BreakerThreshold:    cfg.Pipeline.BreakerFailureThreshold,
		BreakerResetTimeout: time.Duration(cfg.Pipeline.BreakerResetTimeoutMs) * time.Millisecond,
	}
	return invoker.New(p, invCfg,
		invoker.WithModel(model),
		invoker.WithDebug(cfg.Pipeline.Debug)), nil
}

// buildEngine creates the evidence engine, sharing the pipeline's invoker
// for the semantic strategy when one exists.
func buildEngine(cfg *config.Config, inv *invoker.Invoker) *evidence.Engine {
	engineCfg := evidence.Config{
		MinConfidence: cfg.Pipeline.MinEvidenceConfidence,
		MaxItems:      cfg.Pipeline.MaxEvidenceItems,
	}

	opts := []evidence.Option{evidence.WithDebug(cfg.Pipeline.Debug)}
	if inv != nil {
		opts = append(opts, evidence.WithSemantic(inv))
	}
	return evidence.New(engineCfg, opts...)
}

func newProvider(name string, cfg *config.Config) (provider.Provider, error) {
	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(cfg.AnthropicAPIKey)
	case "openai":
		return provider.NewOpenAIProvider(cfg.OpenAIAPIKey)
	case "google":
		return provider.NewGoogleProvider(cfg.GoogleAPIKey)
	case "mock":
		return provider.NewMockProvider(""), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func textInput(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text")
	}
	return text, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
