package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentlab"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/telemetry"
	"github.com/hupe1980/agentlab/logging"
	"github.com/hupe1980/agentlab/meeting"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newAskCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with a single tool-using agent",
		Long: `Answer a question with the Principal Investigator alone. The agent may
read workspace files, run code, query the dataset and keep notes.

Examples:
  agentlab ask "Summarize data/results.csv"
  agentlab ask --provider openai --model gpt-4o "Which assay is most sensitive?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, lab *agentlab.Lab, w io.Writer) error {
				res, err := lab.Ask(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}

				if f.jsonOutput {
					return writeJSON(w, res)
				}

				_, err = fmt.Fprintln(w, res.Answer)

				return err
			})
		},
	}
}

func newMeetCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "meet <question>",
		Short: "Discuss a question in a parallel team meeting",
		Long: `Design a team of specialists for the question and run discussion rounds.
In each round every specialist contributes in parallel, the Scientific
Critic reviews the round and the Principal Investigator synthesizes it.

Examples:
  agentlab meet --rounds 3 "Is compound A a viable kinase inhibitor?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, lab *agentlab.Lab, w io.Writer) error {
				out, err := lab.Meet(ctx, strings.Join(args, " "))
				return f.writeOutcome(w, out, err)
			})
		},
	}
}

func newInvestigateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "investigate <question>",
		Short: "Investigate a question subtask by subtask with a quality gate",
		Long: `Have the Principal Investigator plan subtasks, let assigned specialists
execute them in order and retry any subtask the Scientific Critic
red-flags until it passes or the retry budget is spent.

Examples:
  agentlab investigate --max-team-size 4 "Which biomarker predicts response?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, func(ctx context.Context, lab *agentlab.Lab, w io.Writer) error {
				out, err := lab.Investigate(ctx, strings.Join(args, " "))
				return f.writeOutcome(w, out, err)
			})
		},
	}
}

// run sets up logging, telemetry, metrics and the lab, then calls fn.
func (f *flags) run(cmd *cobra.Command, fn func(ctx context.Context, lab *agentlab.Lab, w io.Writer) error) (retErr error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := f.load(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Backend: cfg.Log.Backend,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	if z, ok := logger.(*logging.ZapAdapter); ok {
		defer func() { _ = z.Sync() }()
	}

	tel, err := telemetry.New(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry.shutdown.failed", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	lab, err := agentlab.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	defer func() { retErr = errors.Join(retErr, lab.Close()) }()

	logger.Info("agentlab.start", "provider", cfg.Model.Provider, "model", cfg.Model.Name, "tools", strings.Join(lab.Tools(), ","))

	return fn(ctx, lab, cmd.OutOrStdout())
}

// writeOutcome prints a meeting outcome. A failed meeting still prints
// whatever it produced before returning the error.
func (f *flags) writeOutcome(w io.Writer, out *meeting.Outcome, runErr error) error {
	if out == nil {
		return runErr
	}

	var err error
	if f.jsonOutput {
		err = writeJSON(w, struct {
			*meeting.Outcome
			Transcript []meeting.Entry `json:"transcript"`
			Error      string          `json:"error,omitempty"`
		}{out, out.Transcript.Entries(), errString(runErr)})
	} else {
		_, err = io.WriteString(w, out.Report())
	}

	return errors.Join(runErr, err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// serveMetrics exposes /metrics on addr until the returned stop is called.
func serveMetrics(addr string, logger logging.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.serve.failed", "error", err)
		}
	}()

	logger.Info("metrics.serve.start", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}, nil
}
