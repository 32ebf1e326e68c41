package logs

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// Span identifies one logical unit of work, such as a single run or resume.
type Span string

type spanKey struct{}

func SpanFrom(ctx context.Context) (Span, bool) {
	span, ok := ctx.Value(spanKey{}).(Span)
	return span, ok
}

type NewSpan func(ctx context.Context, what string) (context.Context, Span)

func (Module) NewSpan(
	logger Logger,
) NewSpan {
	return func(ctx context.Context, what string) (context.Context, Span) {
		parent, hasParent := SpanFrom(ctx)
		span := Span(rand.Text())
		ctx = context.WithValue(ctx, spanKey{}, span)
		args := []any{"what", what}
		if hasParent {
			args = append(args, "parent", parent)
		}
		logger.DebugContext(ctx, "span started", args...)
		return ctx, span
	}
}

// WrapSpan annotates err with the span carried by ctx.
func WrapSpan(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	span, ok := SpanFrom(ctx)
	if !ok {
		return err
	}
	return errors.Join(err, fmt.Errorf("span: %s", span))
}
