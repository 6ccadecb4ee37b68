// In file: cmd/askplanes/main.go

// Package main implements askplanes, a one-shot command-line client for the
// aircraft question loop. It runs a single question through the same
// orchestrator the HTTP service uses and prints each step followed by the answer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/config"
	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

type cliOptions struct {
	load          config.LoadOptions
	maxIterations int
	jsonOutput    bool
	question      string
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("askplanes: ")

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func parseArgs(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := pflag.NewFlagSet("askplanes", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: askplanes [flags] \"question about the aircraft data\"")
		fs.PrintDefaults()
	}
	fs.StringVarP(&opts.load.ConfigPath, "config", "c", config.DefaultConfigPath, "path to the YAML config file")
	fs.StringVar(&opts.load.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file loaded outside release mode")
	fs.IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "iteration budget (defaults to agent.max_iterations)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.question = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if opts.question == "" {
		fs.Usage()
		return cliOptions{}, errors.New("a question is required")
	}
	if opts.maxIterations < 0 {
		return cliOptions{}, errors.New("--max-iterations must be positive")
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	cfg, err := config.Load(opts.load)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	provider, err := llm.NewProvider(ctx, cfg.Provider)
	if err != nil {
		return err
	}
	if !llm.IsConfigured(provider) {
		return fmt.Errorf("%w for provider %q", llm.ErrMissingCredential, cfg.Provider.Provider)
	}

	gateway := tools.NewGateway(cfg.ToolEndpoint,
		tools.WithHeaders(cfg.ToolHeaders),
		tools.WithRowLimit(cfg.RowLimit),
		tools.WithClientInfo("askplanes", "dev"),
	)
	defer gateway.Close()

	return ask(ctx, agent.NewOrchestrator(provider, gateway, cfg.AgentConfig()), opts, out)
}

// runner is the part of the orchestrator ask needs.
type runner interface {
	Run(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error)
}

func ask(ctx context.Context, r runner, opts cliOptions, out io.Writer) error {
	res, err := r.Run(ctx, []llm.Message{llm.NewUserMessage(opts.question)}, agent.WithMaxIterations(opts.maxIterations))
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *agent.Result) {
	for _, it := range res.Iterations {
		fmt.Fprintf(out, "── step %d ──\n", it.Step)
		if it.Text != "" {
			fmt.Fprintln(out, it.Text)
		}
		if it.SQL != "" {
			fmt.Fprintf(out, "SQL: %s\n", it.SQL)
		}
		if len(it.Data) > 0 {
			fmt.Fprintf(out, "rows: %d\n", len(it.Data))
		}
	}
	fmt.Fprintln(out, "── answer ──")
	fmt.Fprintln(out, res.Response)
	if res.Truncated {
		fmt.Fprintf(out, "(stopped after %d steps; the answer may be incomplete)\n", res.Steps)
	}
}
