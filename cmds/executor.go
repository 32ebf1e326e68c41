package cmds

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
)

type Executor struct {
	commands map[string]*Command
	output   io.Writer
}

var errStop = errors.New("stop")

func NewExecutor() *Executor {
	ret := &Executor{
		commands: make(map[string]*Command),
		output:   os.Stdout,
	}
	ret.Define("-h", Func(func() error {
		ret.PrintUsage(ret.output)
		return errStop
	}).
		Desc("print this usage").
		Alias("help", "-help", "--help"))
	return ret
}

func (e *Executor) SetOutput(w io.Writer) {
	e.output = w
}

func (e *Executor) Define(name string, command *Command) {
	for _, n := range append([]string{name}, command.aliases...) {
		if _, ok := e.commands[n]; ok {
			panic(fmt.Errorf("duplicated command %s", n))
		}
		e.commands[n] = command
	}
}

// Execute runs commands in argument order. Sub commands of an executed
// command are visible to the arguments after it.
func (e *Executor) Execute(args []string) error {
	commands := e.commands
	for len(args) > 0 {
		name := strings.TrimSpace(args[0])
		args = args[1:]

		command, ok := commands[name]
		if !ok || command == nil {
			return fmt.Errorf("unknown command: %s", name)
		}

		if command.fn.IsValid() {
			var err error
			args, err = command.call(args)
			if errors.Is(err, errStop) {
				return nil
			} else if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}

		if len(command.subs) > 0 {
			commands = maps.Clone(commands)
			for subname, sub := range command.subs {
				if _, ok := commands[subname]; ok {
					return fmt.Errorf("duplicated sub command: %s %s", name, subname)
				}
				commands[subname] = sub
			}
		}
	}
	return nil
}

func (e *Executor) PrintUsage(w io.Writer) {
	names := make(map[*Command][]string)
	for name, command := range e.commands {
		names[command] = append(names[command], name)
	}
	lines := make([]string, 0, len(names))
	for command, ns := range names {
		slices.Sort(ns)
		lines = append(lines, strings.Join(ns, ", ")+"\t"+command.description)
	}
	slices.Sort(lines)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, line := range lines {
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

var defaultExecutor = NewExecutor()

func Define(name string, command *Command) {
	defaultExecutor.Define(name, command)
}

func Execute(args []string) error {
	return defaultExecutor.Execute(args)
}

func PrintUsage(w io.Writer) {
	defaultExecutor.PrintUsage(w)
}
