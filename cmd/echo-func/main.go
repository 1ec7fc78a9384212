package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"echo-func/internal/config"
	"echo-func/internal/echo"
	"echo-func/internal/function"
	"echo-func/internal/metrics"
	"echo-func/internal/telemetry"
	"echo-func/pkg/handler"
	"echo-func/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "echo-func",
		Short: "Serve the welcome echo functions over HTTP",
		Long: `Serve the welcome echo functions over HTTP.

Runs standalone or as an Azure Functions custom handler, in which case the
port is taken from FUNCTIONS_CUSTOMHANDLER_PORT.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	root.AddCommand(newRespondCmd())
	return root
}

func newRespondCmd() *cobra.Command {
	var headers []string

	cmd := &cobra.Command{
		Use:     "respond",
		Short:   "Build a response for a body read from stdin",
		Example: `  echo '{"a":1}' | echo-func respond -H "X-Test: abc"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseHeaders(headers)
			if err != nil {
				return err
			}
			resp, err := echo.NewResponder().Respond(cmd.Context(), echo.Request{
				Headers: parsed,
				Body:    cmd.InOrStdin(),
			})
			if err != nil {
				return err
			}
			out, err := resp.MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, `request header as "Name: value", repeatable`)
	return cmd
}

func parseHeaders(raw []string) ([]echo.Header, error) {
	headers := make([]echo.Header, 0, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		headers = append(headers, echo.Header{Name: name, Value: strings.TrimSpace(value)})
	}
	return headers, nil
}

func serve(cfg *config.Config) error {
	log := logger.Init(cfg.LogSettings())

	var tc *telemetry.Client
	if cfg.AppInsightsConnectionString != "" {
		var err error
		tc, err = telemetry.New(cfg.AppInsightsConnectionString)
		if err != nil {
			log.Error("Failed to set up Application Insights", zap.Error(err))
			return err
		}
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, tc.Core(zapcore.WarnLevel))
		}))
	}
	zap.ReplaceGlobals(log)

	responderOpts := []echo.Option{echo.WithLogger(log)}
	serverOpts := []handler.ServerOption{handler.WithLogger(log)}
	if cfg.MetricsEnabled {
		m := metrics.New()
		responderOpts = append(responderOpts, echo.WithObserver(m))
		serverOpts = append(serverOpts, handler.WithTracker(m), handler.WithMetricsHandler(m.Handler()))
	}
	if tc != nil {
		serverOpts = append(serverOpts, handler.WithTracker(tc))
	}

	server := handler.NewServer(handler.Options{
		Addr:              cfg.Addr(),
		RoutePrefix:       cfg.RoutePrefix,
		FunctionKeys:      cfg.FunctionKeys,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, serverOpts...)

	if err := function.Register(server, echo.NewResponder(responderOpts...), handler.AuthLevel(cfg.AuthLevel)); err != nil {
		log.Error("Failed to register functions", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		log.Error("Function host failed", zap.Error(err))
		return err
	case <-stop:
	}

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	if tc != nil {
		if err := tc.Close(cfg.ShutdownTimeout); err != nil {
			log.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}

	log.Info("Server stopped")
	_ = log.Sync()
	return nil
}
