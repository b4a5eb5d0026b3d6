package sample

import (
	"context"
	"fmt"

	"github.com/jeeves-cluster-organization/callguard/coreengine/intercept"
	"github.com/jeeves-cluster-organization/callguard/coreengine/outcome"
	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// Row is one line of the demo report.
type Row struct {
	Method string `json:"method"`
	Mode   string `json:"mode"`
	Policy string `json:"policy"`
	Status string `json:"status"`
	Result string `json:"result"`
}

// Describe renders an outcome the way a caller reports it: returned values,
// argument failures as server side errors, anything else as client side.
func Describe(out outcome.Outcome) string {
	info := out.Err()
	switch {
	case info == nil:
		return fmt.Sprintf("Returned value: %v", out.Value())
	case info.Kind == outcome.KindArgument:
		return fmt.Sprintf("Caught server side error: %s", info.Message)
	default:
		return fmt.Sprintf("Caught client side error: %s", info.Message)
	}
}

// RunMatrix invokes every sample method synchronously and then asynchronously,
// waiting for each async delivery before moving on. Rows follow Methods order.
func RunMatrix(ctx context.Context, p *intercept.Pipeline) ([]Row, error) {
	rows := make([]Row, 0, 2*len(Methods))

	for _, name := range Methods {
		key := policy.NewMethodKey(TypeName, name)
		pol := "none"
		if d, ok := p.Policies().Lookup(key); ok {
			pol = d.String()
		}

		syncOut := p.InvokeSync(ctx, intercept.NewInvocation(key))
		rows = append(rows, newRow(key, intercept.ModeSync, pol, syncOut))

		done := make(chan outcome.Outcome, 1)
		p.InvokeAsync(ctx, intercept.NewInvocation(key), func(out outcome.Outcome) {
			done <- out
		})
		select {
		case async := <-done:
			rows = append(rows, newRow(key, intercept.ModeAsync, pol, async))
		case <-ctx.Done():
			return rows, fmt.Errorf("waiting for %s: %w", key, ctx.Err())
		}
	}

	return rows, nil
}

func newRow(key policy.MethodKey, mode intercept.Mode, pol string, out outcome.Outcome) Row {
	return Row{
		Method: key.Method,
		Mode:   string(mode),
		Policy: pol,
		Status: string(out.Status()),
		Result: Describe(out),
	}
}
