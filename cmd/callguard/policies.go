package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type policyEntry struct {
	Method          string `json:"method"`
	SuppressFailure bool   `json:"suppress_failure"`
	RecordFailure   bool   `json:"record_failure"`
	Fallback        any    `json:"fallback,omitempty"`
}

func newPoliciesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the configured failure policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadPolicies(opts.cfg.PolicyFile)
			if err != nil {
				return err
			}

			entries := make([]policyEntry, 0, reg.Len())
			for _, key := range reg.Keys() {
				d, _ := reg.Lookup(key)
				entries = append(entries, policyEntry{
					Method:          key.String(),
					SuppressFailure: d.SuppressFailure,
					RecordFailure:   d.RecordFailure,
					Fallback:        d.Fallback,
				})
			}

			out := cmd.OutOrStdout()
			if opts.isJSON() {
				return writeJSON(out, entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No policies configured")
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.Header("Method", "Suppress", "Record", "Fallback")
			for _, e := range entries {
				fallback := "-"
				if e.Fallback != nil {
					fallback = fmt.Sprintf("%v", e.Fallback)
				}
				if err := table.Append(e.Method, fmt.Sprint(e.SuppressFailure), fmt.Sprint(e.RecordFailure), fallback); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal policies: %d\n", len(entries))
			return nil
		},
	}
}
