package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dohyun-p/queryrun/internal/config"
	"github.com/dohyun-p/queryrun/internal/eventbus"
	"github.com/dohyun-p/queryrun/internal/language"
	"github.com/dohyun-p/queryrun/internal/logging"
	"github.com/dohyun-p/queryrun/internal/metrics"
	"github.com/dohyun-p/queryrun/internal/otel"
	"github.com/dohyun-p/queryrun/internal/runner"
	"github.com/dohyun-p/queryrun/internal/server"
)

const rootUsage = `queryrun — GraphQL query execution service & tools

USAGE:
  queryrun <command> [flags]

COMMANDS:
  serve   Run the HTTP GraphQL endpoint
  run     Execute a single query and print the response
  check   Parse and validate query files against a schema
  help    Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>              YAML config file (optional)
  -schema <file>              GraphQL SDL file (required)
  -data <file>                JSON document used as the root value
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.timeout <duration>  Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>    Max request body size (default: unlimited)
  -server.cors-origin <o>     Allowed CORS origin. Repeatable
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: queryrun)
  -log.level <level>          debug, info, warn, error (default: info)
  -log.format <format>        json or text (default: json)
  -debug                      Log full error diagnostics for every request

Environment variables with the QUERYRUN_ prefix override the config
file; double underscore nests, e.g. QUERYRUN_SERVER__ADDR=:9000.
`

const runUsage = `run FLAGS:
  -schema <file>     GraphQL SDL file (required)
  -data <file>       JSON document used as the root value
  -query <string>    Query text (required unless -query-file is given)
  -query-file <file> Read the query from a file
  -variables <json>  Variable values as a JSON object
  -operation <name>  Operation to execute when the document has several
  -debug             Print full error diagnostics to stderr
  -pretty            Pretty-print the JSON response

Exits non-zero when the response contains errors.
`

const checkUsage = `check FLAGS:
  -schema <file>  GraphQL SDL file (required)
  ...files        Query files to parse and validate
`

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("queryrun", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "run":
		return cmdRun(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "run":
		fmt.Print(runUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	var (
		configPath  string
		schemaPath  string
		dataPath    string
		addr        string
		pretty      bool
		timeout     time.Duration
		maxBody     int64
		corsOrigins stringListFlag
		otelEP      string
		otelSvc     string
		logLevel    string
		logFormat   string
		debug       bool
	)

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.StringVar(&schemaPath, "schema", "", "GraphQL SDL file")
	fs.StringVar(&dataPath, "data", "", "JSON root value file")
	fs.StringVar(&addr, "server.addr", "", "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", false, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", 0, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", 0, "Max request body size")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.StringVar(&otelEP, "otel.endpoint", "", "OTLP collector endpoint")
	fs.StringVar(&otelSvc, "otel.service", "", "OpenTelemetry service name")
	fs.StringVar(&logLevel, "log.level", "", "Log level")
	fs.StringVar(&logFormat, "log.format", "", "Log format")
	fs.BoolVar(&debug, "debug", false, "Log full error diagnostics")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Explicitly set flags win over the file and environment layers.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "schema":
			cfg.Schema.Path = schemaPath
		case "data":
			cfg.Schema.DataPath = dataPath
		case "server.addr":
			cfg.Server.Addr = addr
		case "server.pretty":
			cfg.Server.Pretty = pretty
		case "server.timeout":
			cfg.Server.Timeout = timeout
		case "server.max-body":
			cfg.Server.MaxBodyBytes = maxBody
		case "server.cors-origin":
			cfg.Server.CORSOrigins = corsOrigins
		case "otel.endpoint":
			cfg.Otel.Endpoint = otelEP
		case "otel.service":
			cfg.Otel.Service = otelSvc
		case "log.level":
			cfg.Logging.Level = logLevel
		case "log.format":
			cfg.Logging.Format = logFormat
		case "debug":
			cfg.Debug = debug
		}
	})

	if cfg.Schema.Path == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	sch, err := loadSchema(cfg.Schema.Path)
	if err != nil {
		return err
	}
	rootValue, err := loadRootValue(cfg.Schema.DataPath)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	met := metrics.New()

	sopts := []server.Option{
		server.WithRootValue(rootValue),
		server.WithLogger(logger),
		server.WithMetrics(met),
		server.WithDebug(cfg.Debug),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h := server.New(sch, sopts...)

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info("GraphQL server listening", "addr", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, mux)
}

func cmdRun(args []string) error {
	var (
		schemaPath string
		dataPath   string
		queryText  string
		queryFile  string
		varsJSON   string
		opName     string
		debug      bool
		pretty     bool
	)

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", "", "GraphQL SDL file")
	fs.StringVar(&dataPath, "data", "", "JSON root value file")
	fs.StringVar(&queryText, "query", "", "Query text")
	fs.StringVar(&queryFile, "query-file", "", "Query file")
	fs.StringVar(&varsJSON, "variables", "", "Variable values as JSON")
	fs.StringVar(&opName, "operation", "", "Operation name")
	fs.BoolVar(&debug, "debug", false, "Print full error diagnostics")
	fs.BoolVar(&pretty, "pretty", false, "Pretty-print the response")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, runUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, runUsage)
		return fmt.Errorf("-schema is required")
	}
	if queryText == "" && queryFile == "" {
		fmt.Fprint(os.Stderr, runUsage)
		return fmt.Errorf("one of -query or -query-file is required")
	}
	if queryFile != "" {
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return err
		}
		queryText = string(b)
	}

	var variables map[string]any
	if varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &variables); err != nil {
			return fmt.Errorf("invalid -variables JSON: %w", err)
		}
	}

	sch, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}
	rootValue, err := loadRootValue(dataPath)
	if err != nil {
		return err
	}

	resp := runner.Run(context.Background(), runner.Request{
		Schema:        sch,
		Query:         runner.Text(queryText),
		RootValue:     rootValue,
		Variables:     variables,
		OperationName: opName,
		Debug:         debug,
		DebugSink: func(detail string) {
			fmt.Fprintln(os.Stderr, detail)
		},
	})

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if resp.HasErrors() {
		return fmt.Errorf("query completed with %d error(s)", len(resp.Errors))
	}
	return nil
}

func cmdCheck(args []string) error {
	var schemaPath string
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", "", "GraphQL SDL file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("-schema is required")
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("no query files given")
	}

	sch, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}

	failed := 0
	for _, name := range files {
		b, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		doc, err := language.ParseQuery(string(b))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		if errs := language.Validate(sch, doc); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "%s: %v\n", name, e)
			}
			failed++
			continue
		}
		fmt.Printf("%s: ok\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func loadSchema(path string) (*language.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := language.BuildSchema(string(b))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func loadRootValue(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	return v, nil
}
