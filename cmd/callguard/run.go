package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jeeves-cluster-organization/callguard/coreengine/sample"
)

// report is the output of run.
type report struct {
	Rows    []sample.Row `json:"rows"`
	Records []string     `json:"records"`
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Invoke every sample method and report the outcomes",
		Long: `Invoke each sample method synchronously and asynchronously through the
pipeline and print what the caller observed, followed by the recorded failures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runMatrix(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall time limit")
	return cmd
}

func runMatrix(ctx context.Context, opts *rootOptions, out, logOut io.Writer) error {
	logger := newStdLogger(logOut, opts.cfg.LogLevel)
	rt, err := newRuntime(opts.cfg, logger)
	if err != nil {
		return err
	}

	p, err := sample.NewPipeline(rt.policies, rt.options...)
	if err != nil {
		_ = rt.close(ctx)
		return err
	}

	rows, runErr := sample.RunMatrix(ctx, p)
	p.Wait()
	if err := rt.close(ctx); err != nil {
		logger.Warn("runtime_close_failed", "error", err.Error())
	}
	if runErr != nil {
		return runErr
	}

	result := report{Rows: rows, Records: rt.records.Entries()}
	if opts.isJSON() {
		return writeJSON(out, result)
	}
	return writeReportTable(out, result)
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeReportTable(out io.Writer, r report) error {
	table := tablewriter.NewWriter(out)
	table.Header("Method", "Mode", "Policy", "Status", "Result")
	for _, row := range r.Rows {
		if err := table.Append(row.Method, row.Mode, row.Policy, row.Status, row.Result); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nRecorded failures: %d\n", len(r.Records))
	for _, rec := range r.Records {
		fmt.Fprintf(out, "  %s\n", rec)
	}
	return nil
}
