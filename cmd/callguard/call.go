package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/jeeves-cluster-organization/callguard/coreengine/sample"
)

func newCallCommand(opts *rootOptions) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:       "call <method>",
		Short:     "Call one SampleService method on a running server",
		Args:      cobra.ExactArgs(1),
		ValidArgs: sample.Methods,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			value, err := sample.NewClient(conn).Call(ctx, args[0])
			fmt.Fprintln(cmd.OutOrStdout(), describeReply(value, err))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50051", "server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "call timeout")
	return cmd
}

// describeReply renders an RPC result the way the caller reports it.
func describeReply(value string, err error) string {
	if err == nil {
		return fmt.Sprintf("Returned value: %s", value)
	}
	st, _ := status.FromError(err)
	if st.Code() == codes.InvalidArgument {
		return fmt.Sprintf("Caught server side error: %s", st.Message())
	}
	return fmt.Sprintf("Caught client side error: %s", st.Message())
}
