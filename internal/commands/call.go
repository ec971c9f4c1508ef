// Package commands implements the restcall command-line interface.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gaborage/restbricks/config"
	"github.com/gaborage/restbricks/httpclient"
	"github.com/gaborage/restbricks/logger"
	"github.com/gaborage/restbricks/observability"
)

// CallOptions holds options for the call command
type CallOptions struct {
	ConfigFile   string
	ConfigYAML   string
	BaseURL      string
	Name         string
	Headers      []string
	Data         string
	Retry        bool
	MaxRetries   int
	InitialDelay time.Duration
	LogLevel     string
	Pretty       bool
	Exporter     string
	Endpoint     string
	ID           string
	Timeout      time.Duration
	Include      bool
}

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send one request and print the response body",
		Long: `Sends METHOD BASE_URL+PATH through the REST client and writes the response
body to stdout. Non-2xx/3xx responses print their body and exit with an error.

Interrupting the command cancels the in-flight request by its id.`,
		Example: `  # GET with base URL from the environment
  RESTCALL_CLIENT_BASEURL=https://api.example.com restcall call GET /users/1

  # POST JSON with retries on 5xx
  restcall call POST /users -b https://api.example.com -d '{"name":"ana"}' --retry --max-retries 5

  # Read the body from a file and export spans to stderr
  restcall call PUT /users/1 -c restcall.yaml -d @user.json --telemetry-exporter stdout`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, strings.ToUpper(args[0]), args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (required to exist when set)")
	cmd.Flags().StringVar(&opts.ConfigYAML, "config-yaml", "", "Inline YAML applied on top of the config file")
	cmd.Flags().StringVarP(&opts.BaseURL, "base-url", "b", "", "Base URL prepended to PATH")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Client name used in errors, logs and metrics")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, `Request header "Key: Value" (repeatable)`)
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Request body, or @file to read it from a file")
	cmd.Flags().BoolVar(&opts.Retry, "retry", false, "Retry 5xx responses with exponential backoff")
	cmd.Flags().IntVar(&opts.MaxRetries, "max-retries", httpclient.DefaultMaxRetries, "Retry budget")
	cmd.Flags().DurationVar(&opts.InitialDelay, "initial-delay", httpclient.DefaultInitialDelay, "First backoff delay")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "Human readable logs")
	cmd.Flags().StringVar(&opts.Exporter, "telemetry-exporter", "", "Telemetry exporter (stdout|otlp-http|otlp-grpc)")
	cmd.Flags().StringVar(&opts.Endpoint, "otel-endpoint", "", "OTLP collector endpoint")
	cmd.Flags().StringVar(&opts.ID, "id", "", "Request id used for cancellation and logs")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Cancel the request after this duration (0 disables)")
	cmd.Flags().BoolVarP(&opts.Include, "include", "i", false, "Print the status line and response headers")

	return cmd
}

func runCall(cmd *cobra.Command, opts *CallOptions, method, path string) error {
	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}
	body, err := readBody(opts.Data)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Sources{
		File:      opts.ConfigFile,
		Required:  opts.ConfigFile != "",
		YAML:      []byte(opts.ConfigYAML),
		Overrides: flagOverrides(cmd.Flags(), opts),
	})
	if err != nil {
		return err
	}

	// logs and the stdout exporter share stderr from different goroutines
	stderr := zerolog.SyncWriter(cmd.ErrOrStderr())
	log := logger.NewWithWriter(stderr, cfg.Log.Level, cfg.Log.Pretty, nil)

	provider, err := observability.NewProvider(cfg.Telemetry.ObservabilityConfig(),
		observability.WithWriter(stderr),
		observability.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider, observability.DefaultShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	client, err := httpclient.NewBuilder(log).
		WithConfig(cfg.Client.HTTPClientConfig()).
		WithTelemetry(provider.TracerProvider(), provider.MeterProvider()).
		Build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req := &httpclient.Request{Path: path, Headers: headers, ID: opts.ID}
	if body != nil {
		req.Body = body
	}

	// interrupts and timeouts go through Cancel, not context propagation
	call := client.Start(context.WithoutCancel(ctx), method, req)
	select {
	case <-call.Done():
	case <-ctx.Done():
		log.Warn().Str("request_id", call.ID()).Msg("Cancelling request")
		client.Cancel(call.ID())
	}

	resp, err := call.Wait()
	return writeResult(cmd.OutOrStdout(), opts.Include, resp, err)
}

// flagOverrides maps explicitly set flags to config keys so unset flags leave
// file and environment values alone
func flagOverrides(flags *pflag.FlagSet, opts *CallOptions) map[string]any {
	overrides := map[string]any{}
	set := func(flag, key string, value any) {
		if flags.Changed(flag) {
			overrides[key] = value
		}
	}
	set("base-url", "client.baseurl", opts.BaseURL)
	set("name", "client.name", opts.Name)
	set("retry", "client.retry.enabled", opts.Retry)
	set("max-retries", "client.retry.max", opts.MaxRetries)
	set("initial-delay", "client.retry.initialdelay", opts.InitialDelay.String())
	set("log-level", "log.level", opts.LogLevel)
	set("pretty", "log.pretty", opts.Pretty)
	set("telemetry-exporter", "telemetry.exporter", opts.Exporter)
	set("otel-endpoint", "telemetry.endpoint", opts.Endpoint)
	return overrides
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

func readBody(data string) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

func writeResult(w io.Writer, include bool, resp *httpclient.Response, err error) error {
	if err != nil {
		ce, ok := httpclient.AsClientError(err)
		if ok && len(ce.Body()) > 0 {
			if include {
				fmt.Fprintf(w, "HTTP %d\n\n", ce.StatusCode())
			}
			_, _ = w.Write(ce.Body())
			fmt.Fprintln(w)
		}
		return err
	}
	if resp == nil {
		return errors.New("no response")
	}

	if include {
		fmt.Fprintf(w, "HTTP %d\n", resp.StatusCode)
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, strings.Join(resp.Headers[k], ", "))
		}
		fmt.Fprintln(w)
	}
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
		fmt.Fprintln(w)
	}
	return nil
}
