package logs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func TestLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		logger Logger,
	) {
		logger.Info("test", "hello", "world!")
	})
	if !underSystemdService() && !strings.Contains(buf.String(), "hello=world!") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSpan(t *testing.T) {
	level.Set(slog.LevelDebug)
	defer level.Set(slog.LevelInfo)
	if underSystemdService() {
		t.Skip("terminal output disabled")
	}

	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		newSpan NewSpan,
		logger Logger,
	) {
		ctx, parent := newSpan(context.Background(), "run")
		ctx, child := newSpan(ctx, "resume")
		logger.InfoContext(ctx, "inside")

		var lines []string
		for line := range strings.Lines(buf.String()) {
			if strings.Contains(line, "span started") || strings.Contains(line, "inside") {
				lines = append(lines, line)
			}
		}
		if len(lines) != 3 {
			t.Fatalf("got %q", buf.String())
		}
		if !strings.Contains(lines[0], spanAttr+"="+string(parent)) {
			t.Fatalf("got %v", lines[0])
		}
		if !strings.Contains(lines[1], "parent="+string(parent)) {
			t.Fatalf("got %v", lines[1])
		}
		if !strings.Contains(lines[2], spanAttr+"="+string(child)) {
			t.Fatalf("got %v", lines[2])
		}

		err := WrapSpan(ctx, errors.New("boom"))
		if !strings.Contains(err.Error(), string(child)) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestJournalKey(t *testing.T) {
	if got := journalKey("bud.span-id"); got != "BUD_SPAN_ID" {
		t.Fatalf("got %s", got)
	}
}
