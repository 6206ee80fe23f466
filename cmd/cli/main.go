package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"pbidesc/adapters/excel"
	"pbidesc/adapters/llm"
	"pbidesc/app"
	"pbidesc/domain/prompt"
	"pbidesc/internal/config"
	"pbidesc/internal/usage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pbidesc-cli",
		Short:         "Generate descriptions for Power BI columns and measures with a local model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newDescribeCmd(),
		newPromptsCmd(),
	)
	return rootCmd
}

type describeOptions struct {
	output   string
	model    string
	endpoint string
	timeout  time.Duration
	delay    time.Duration
}

func newDescribeCmd() *cobra.Command {
	var opts describeOptions

	cmd := &cobra.Command{
		Use:   "describe [input-file]",
		Short: "Describe every row of a metadata workbook and write the result",
		Long: `Read TableName, ColumnName, DataType and DAXExpression from an .xlsx or .csv
file, ask the model for one description per row, and write the rows plus a
Description column to a new workbook.

Flags override LLM_BASE_URL, LLM_MODEL, LLM_TIMEOUT and ROW_DELAY.

Example: pbidesc-cli describe metadata.xlsx -o described.xlsx --model mistral`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", excel.OutputFilename, "Output workbook path")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (default from LLM_MODEL or llama2)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Ollama base URL (default from LLM_BASE_URL or http://localhost:11434)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout, 0 for none")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "Pause between rows")
	return cmd
}

func runDescribe(ctx context.Context, inputPath string, opts describeOptions, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	llmConfig := llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}
	if opts.endpoint != "" {
		llmConfig.BaseURL = opts.endpoint
	}
	if opts.model != "" {
		llmConfig.Model = opts.model
	}
	if opts.timeout > 0 {
		llmConfig.Timeout = opts.timeout
	}
	rowDelay := cfg.Process.RowDelay
	if opts.delay > 0 {
		rowDelay = opts.delay
	}

	ds, err := excel.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	client, err := llm.NewOllamaClient(llmConfig)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Describing %d rows from %s with %s at %s\n", ds.Len(), inputPath, client.Model(), client.Endpoint())

	tally := usage.NewService()
	describer := llm.NewDescriber(client).WithUsageRecorder(tally)
	service := app.NewDescriptionService(describer).WithRowDelay(rowDelay)
	lastPercent := -1
	service.ProcessDataset(ctx, ds, func(p app.Progress) {
		if p.Percent != lastPercent {
			fmt.Fprintln(stderr, p.Message)
			lastPercent = p.Percent
		}
	})

	if err := excel.WriteFile(opts.output, ds); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}

	fmt.Fprintf(stdout, "Descriptions generated successfully! Wrote %d rows to %s\n", ds.Len(), opts.output)
	totals := tally.Totals()
	fmt.Fprintf(stderr, "Token usage: %d prompt, %d completion over %d calls\n",
		totals.PromptTokens, totals.CompletionTokens, totals.Calls)
	return nil
}

func newPromptsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "prompts [input-file]",
		Short: "Print the prompt each row would send, without calling the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompts(args[0], asJSON, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit a JSON array instead of text")
	return cmd
}

type promptEntry struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name"`
	Kind       string `json:"kind"`
	Prompt     string `json:"prompt"`
}

func runPrompts(inputPath string, asJSON bool, stdout io.Writer) error {
	ds, err := excel.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	prompts := prompt.BuildAll(ds)
	entries := make([]promptEntry, len(prompts))
	for i, row := range ds.Rows {
		entries[i] = promptEntry{
			TableName:  row.TableName,
			ColumnName: row.ColumnName,
			Kind:       row.Kind(),
			Prompt:     prompts[i],
		}
	}

	if asJSON {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	for i, entry := range entries {
		fmt.Fprintf(stdout, "# %d %s.%s (%s)\n%s\n\n", i+1, entry.TableName, entry.ColumnName, entry.Kind, entry.Prompt)
	}
	return nil
}
