package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/ModProg/budlang/asm"
	"github.com/ModProg/budlang/cmds"
	"github.com/ModProg/budlang/debugs"
	"github.com/ModProg/budlang/logs"
	"github.com/ModProg/budlang/modes"
	"github.com/ModProg/budlang/sessions"
	"github.com/reusee/dscope"
)

type action func(ctx context.Context, session *sessions.Session, tap debugs.Tap) error

var selected action

func selectAction(fn action) {
	if selected != nil {
		panic(fmt.Errorf("only one of run, resume, list, drop, inspect may be given"))
	}
	selected = fn
}

var (
	noteFlag  = cmds.Var[string]("-note", "note stored with a paused execution")
	grantFlag = cmds.Var[int]("-grant", "extra budget granted on resume")
)

func init() {
	cmds.Define("run", cmds.Func(func(path string) {
		selectAction(func(ctx context.Context, session *sessions.Session, _ debugs.Tap) error {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			program, err := asm.Load(path, src)
			if err != nil {
				return err
			}
			outcome, err := session.Run(ctx, program, noteFlag.Get())
			if err != nil {
				return err
			}
			fmt.Println(outcome)
			return nil
		})
	}).Desc("assemble and run a program"))

	cmds.Define("resume", cmds.Func(func(id string) {
		selectAction(func(ctx context.Context, session *sessions.Session, _ debugs.Tap) error {
			outcome, err := session.Resume(ctx, id, grantFlag.Get())
			if err != nil {
				return err
			}
			fmt.Println(outcome)
			return nil
		})
	}).Desc("resume a paused execution"))

	cmds.Define("list", cmds.Func(func() {
		selectAction(func(ctx context.Context, session *sessions.Session, _ debugs.Tap) error {
			entries, err := session.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					entry.ID,
					entry.Size,
					entry.UpdatedAt.Format(time.DateTime),
					entry.Note,
				)
			}
			return tw.Flush()
		})
	}).Desc("list paused executions"))

	cmds.Define("drop", cmds.Func(func(id string) {
		selectAction(func(ctx context.Context, session *sessions.Session, _ debugs.Tap) error {
			return session.Drop(ctx, id)
		})
	}).Desc("discard a paused execution"))

	cmds.Define("inspect", cmds.Func(func(id string) {
		selectAction(func(ctx context.Context, session *sessions.Session, tap debugs.Tap) error {
			snapshot, err := session.Inspect(ctx, id)
			if err != nil {
				return err
			}
			tap(ctx, id, debugs.SnapshotGlobals(snapshot))
			return nil
		})
	}).Desc("open a starlark repl on a paused execution"))
}

func main() {
	if err := cmds.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if selected == nil {
		if len(os.Args) < 2 {
			cmds.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		return
	}

	var err error
	dscope.New(
		new(Module),
		modes.ForProduction(),
	).Call(func(
		session *sessions.Session,
		tap debugs.Tap,
		logger logs.Logger,
		signals modes.PauseSignals,
	) {
		// a pause signal stops the running program, which is then stored
		ctx, stop := signal.NotifyContext(context.Background(), signals...)
		defer stop()
		defer func() {
			if closeErr := session.Close(); closeErr != nil {
				logger.Warn("close store", "error", closeErr)
			}
		}()
		err = selected(ctx, session, tap)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
