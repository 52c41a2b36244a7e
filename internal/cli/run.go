package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shantoislamdev/llmprobe/internal/benchmark"
	"github.com/shantoislamdev/llmprobe/internal/config"
	"github.com/shantoislamdev/llmprobe/internal/corpus"
	"github.com/shantoislamdev/llmprobe/internal/logging"
	"github.com/shantoislamdev/llmprobe/internal/prompt"
	"github.com/shantoislamdev/llmprobe/internal/pump"
	"github.com/shantoislamdev/llmprobe/internal/sinks"
	"github.com/shantoislamdev/llmprobe/internal/summary"
	"github.com/shantoislamdev/llmprobe/internal/tokenizer"
	"github.com/shantoislamdev/llmprobe/internal/transport"
)

var runFlags struct {
	url                 string
	apiKey              string
	model               string
	api                 string
	meanInputTokens     int
	stddevInputTokens   int
	meanOutputTokens    int
	stddevOutputTokens  int
	maxNumCompleted     int
	numConcurrent       int
	timeout             time.Duration
	tokenizerID         string
	useServerTokenCount bool
	outputFormat        string
	jsonOutput          bool
	resultsDir          string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a benchmark against a streaming LLM endpoint",
	RunE:  runBenchmark,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.url, "url", "", "target endpoint base URL (required)")
	f.StringVar(&runFlags.apiKey, "api-key", "", "credential; defaults to OPENAI_API_KEY/ANTHROPIC_API_KEY")
	f.StringVar(&runFlags.model, "model", "", "model identifier (required)")
	f.StringVar(&runFlags.api, "api", "", "protocol flavor: chat, responses, or anthropic-messages")
	f.IntVar(&runFlags.meanInputTokens, "mean-input-tokens", 0, "mean prompt length in tokens")
	f.IntVar(&runFlags.stddevInputTokens, "stddev-input-tokens", 0, "stddev of prompt length in tokens")
	f.IntVar(&runFlags.meanOutputTokens, "mean-output-tokens", 0, "mean output-token ceiling; 0 disables output shaping")
	f.IntVar(&runFlags.stddevOutputTokens, "stddev-output-tokens", 0, "stddev of the output-token ceiling")
	f.IntVar(&runFlags.maxNumCompleted, "max-num-completed-requests", 0, "total requests to dispatch (N)")
	f.IntVar(&runFlags.numConcurrent, "num-concurrent-requests", 0, "concurrency ceiling (C)")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "wall-clock deadline, e.g. 90s")
	f.StringVar(&runFlags.tokenizerID, "tokenizer", "", "tokenizer identifier; defaults to --model")
	f.BoolVar(&runFlags.useServerTokenCount, "use-server-token-count", false, "trust server-reported usage over local counting")
	f.StringVar(&runFlags.outputFormat, "output-format", "", "table, json, or none")
	f.BoolVar(&runFlags.jsonOutput, "json", false, "shorthand for --output-format json")
	f.StringVar(&runFlags.resultsDir, "results-dir", "", "override the results directory")

	for _, name := range []string{
		"url", "api-key", "model", "api", "mean-input-tokens", "stddev-input-tokens",
		"mean-output-tokens", "stddev-output-tokens", "max-num-completed-requests",
		"num-concurrent-requests", "timeout", "tokenizer", "use-server-token-count",
		"output-format", "results-dir",
	} {
		viper.BindPFlag(name, f.Lookup(name))
	}
}

// loadConfig builds the effective BenchmarkConfig, honoring the flag > env
// (BENCH_*) > config file > default precedence the ambient config package
// documents: config.Load resolves file and default, then viper (which has
// every field set as a default from that result, then layered with
// AutomaticEnv and the bound flags) resolves the final value per field.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	viper.SetEnvPrefix("bench")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("url", cfg.URL)
	viper.SetDefault("api-key", cfg.APIKey)
	viper.SetDefault("model", cfg.Model)
	viper.SetDefault("api", string(cfg.API))
	viper.SetDefault("mean-input-tokens", cfg.MeanInputTokens)
	viper.SetDefault("stddev-input-tokens", cfg.StddevInputTokens)
	if cfg.MeanOutputTokens != nil {
		viper.SetDefault("mean-output-tokens", *cfg.MeanOutputTokens)
	}
	viper.SetDefault("stddev-output-tokens", cfg.StddevOutputTokens)
	viper.SetDefault("max-num-completed-requests", cfg.MaxNumCompletedRequests)
	viper.SetDefault("num-concurrent-requests", cfg.NumConcurrentRequests)
	viper.SetDefault("timeout", cfg.Timeout.Duration)
	viper.SetDefault("tokenizer", cfg.Tokenizer)
	viper.SetDefault("use-server-token-count", cfg.UseServerTokenCount)
	viper.SetDefault("output-format", string(cfg.OutputFormat))

	cfg.URL = viper.GetString("url")
	cfg.Model = viper.GetString("model")
	cfg.API = config.Flavor(viper.GetString("api"))
	cfg.MeanInputTokens = viper.GetInt("mean-input-tokens")
	cfg.StddevInputTokens = viper.GetInt("stddev-input-tokens")
	cfg.StddevOutputTokens = viper.GetInt("stddev-output-tokens")
	cfg.MaxNumCompletedRequests = viper.GetInt("max-num-completed-requests")
	cfg.NumConcurrentRequests = viper.GetInt("num-concurrent-requests")
	cfg.Timeout = config.Duration{Duration: viper.GetDuration("timeout")}
	cfg.Tokenizer = viper.GetString("tokenizer")
	cfg.UseServerTokenCount = viper.GetBool("use-server-token-count")
	cfg.OutputFormat = config.OutputFormat(viper.GetString("output-format"))

	if meanOut := viper.GetInt("mean-output-tokens"); meanOut > 0 {
		cfg.MeanOutputTokens = &meanOut
	} else {
		cfg.MeanOutputTokens = nil
	}

	apiKey := viper.GetString("api-key")
	resolved, err := config.ResolveSecretRef(apiKey)
	if err != nil {
		return nil, fmt.Errorf("resolving api_key: %w", err)
	}
	cfg.APIKey = resolved

	if runFlags.jsonOutput {
		cfg.OutputFormat = config.OutputJSON
	}
	if quiet {
		cfg.OutputFormat = config.OutputNone
	}
	cfg.Quiet = quiet

	if runFlags.resultsDir != "" {
		cfg.ResultsDir = runFlags.resultsDir
	}

	return cfg, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError("%v", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		printError("%v", err)
		return err
	}

	log := logging.New(verbose, quiet)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Info("received interrupt, draining in-flight requests")
			cancel()
		case <-ctx.Done():
		}
	}()

	tokCache := tokenizer.NewCache()
	defer tokCache.Close()
	tok, err := tokCache.Get(cfg.TokenizerID())
	if err != nil {
		printError("loading tokenizer: %v", err)
		return err
	}

	plan, err := buildPromptPlan(cfg, tok)
	if err != nil {
		printError("generating prompts: %v", err)
		return err
	}

	tr, err := transport.New(cfg, &http.Client{})
	if err != nil {
		printError("%v", err)
		return err
	}

	var bar *progressbar.ProgressBar
	if cfg.OutputFormat == config.OutputTable && !cfg.Quiet {
		bar = progressbar.NewOptions(cfg.MaxNumCompletedRequests,
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionOnCompletion(func() { fmt.Println() }),
		)
	}

	out := pump.Run(ctx, plan, tr, tok, pump.Options{
		Concurrency:         cfg.NumConcurrentRequests,
		Deadline:            cfg.Timeout.Duration,
		UseServerTokenCount: cfg.UseServerTokenCount,
		Log:                 log,
		OnProgress: func(completed, total int) {
			if bar != nil {
				bar.Set(completed)
			}
		},
	})
	if bar != nil {
		bar.Finish()
	}

	benchmarkID := uuid.NewString()
	slug := summary.Slug(cfg.Model, cfg.MeanInputTokens, cfg.MeanOutputTokens)
	runID := summary.RunID(out.StartAt)
	dir := sinks.RunDir(cfg.ResultsDir, slug, runID)

	sum := summary.Build(benchmarkID, slug, out, cfg)

	if err := sinks.WriteIndividualResponses(filepath.Join(dir, "individual_responses.jsonl"), out.Records); err != nil {
		return fmt.Errorf("writing individual_responses.jsonl: %w", err)
	}
	if err := sinks.WriteSummaryJSON(filepath.Join(dir, "summary.json"), sum); err != nil {
		return fmt.Errorf("writing summary.json: %w", err)
	}

	switch cfg.OutputFormat {
	case config.OutputTable:
		sinks.RenderTable(os.Stdout, sum)
	case config.OutputJSON:
		if err := sinks.RenderJSON(os.Stdout, sum); err != nil {
			return fmt.Errorf("rendering summary json: %w", err)
		}
	}

	log.Info("benchmark complete", zap.String("results_dir", dir))
	return nil
}

// buildPromptPlan generates N prompts up front. A tokenization failure here
// is fatal (it happens before any request is dispatched), unlike the same
// failure occurring mid-request.
func buildPromptPlan(cfg *config.Config, tok tokenizer.Tokenizer) (benchmark.PromptPlan, error) {
	corpusCache := corpus.NewCache()
	gen := prompt.NewGenerator(cfg.TokenizerID(), tok, corpusCache)

	shape := prompt.Shape{
		MeanInputTokens:    cfg.MeanInputTokens,
		StddevInputTokens:  cfg.StddevInputTokens,
		MeanOutputTokens:   cfg.MeanOutputTokens,
		StddevOutputTokens: cfg.StddevOutputTokens,
	}

	plan := benchmark.PromptPlan{Prompts: make([]benchmark.PlannedPrompt, 0, cfg.MaxNumCompletedRequests)}
	for i := 0; i < cfg.MaxNumCompletedRequests; i++ {
		p, err := gen.Generate(shape)
		if err != nil {
			return benchmark.PromptPlan{}, err
		}
		plan.Prompts = append(plan.Prompts, benchmark.PlannedPrompt{
			Text:            p.Prompt,
			MaxOutputTokens: p.MaxOutputTokens,
		})
	}
	return plan, nil
}
