// Package report renders backtest results to the console, CSV, JSON
// documents in archive storage and structured logs.
package report

import (
	"context"
	"errors"
	"strconv"

	"github.com/newthinker/fxlab/internal/backtest"
)

// Reporter publishes one backtest result
type Reporter interface {
	Report(ctx context.Context, r *backtest.Result) error
}

// Multi fans a result out to every reporter, continuing past failures.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, r *backtest.Result) error {
	var errs []error
	for _, rep := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rep.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
