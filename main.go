package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/briangreenhill/wpcache/internal/config"
	"github.com/briangreenhill/wpcache/internal/handler"
	"github.com/briangreenhill/wpcache/internal/logging"
	"github.com/briangreenhill/wpcache/internal/providers"
	"github.com/briangreenhill/wpcache/resolvers"
)

const version = "wpcache v0.1.0"

func main() {
	_ = godotenv.Load()
	if err := runCLI(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version)
		return nil
	case "fields":
		for _, name := range resolvers.NewDefaultRegistry().List() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "get":
		raw, err := fieldEvent(args[1:])
		if err != nil {
			return err
		}
		return invoke(raw, stdout)
	case "invoke":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		return invoke(raw, stdout)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: wpcache <command>")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  get <field> [args-json]   Resolve a field, e.g. get getContentPage '{\"path\":\"about\"}'")
	fmt.Fprintln(w, "  invoke                    Read a raw event (direct or SNS envelope) from stdin")
	fmt.Fprintln(w, "  fields                    List the available fields")
	fmt.Fprintln(w, "  version                   Show version")
	fmt.Fprintln(w, "Configuration is read from the environment and .env (see internal/config).")
}

// fieldEvent builds a direct event from `get` arguments
func fieldEvent(args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, errors.New("get requires a field name")
	}
	fieldArgs := json.RawMessage(`{}`)
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			return nil, fmt.Errorf("args must be JSON, got %q", args[1])
		}
		fieldArgs = json.RawMessage(args[1])
	}
	return json.Marshal(map[string]any{"field": args[0], "args": fieldArgs})
}

func invoke(raw json.RawMessage, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)
	ctx := context.Background()

	p, err := providers.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	h, err := handler.New(handler.Deps{
		Config:       cfg,
		Cache:        p.Cache,
		Fetcher:      p.Fetcher,
		NewPublisher: p.NewPublisher,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(h.Handle(ctx, raw))
}
