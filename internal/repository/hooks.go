package repository

import (
	"context"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

type ctxKey string

const ctxKeyBegin ctxKey = "begin"

// Hooks satisfies sqlhooks.Hooks, logging every query at debug level
// along with its elapsed time.
type Hooks struct{}

func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("SQL query %s %q", query, args)
	return context.WithValue(ctx, ctxKeyBegin, time.Now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(ctxKeyBegin).(time.Time); ok {
		log.Debugf("SQL query took %s", time.Since(begin))
	}
	return ctx, nil
}
