// Package shell provides the interactive tuning console for the
// microphone array.
//
// Edits made here go to the parameter cache, not the device. The
// reconciliation loop picks up each change on its next tick and pushes
// it over USB, so the console never competes with other surfaces for
// the transport.
package shell

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/brookman/respeaker-go/internal/param"
	"github.com/brookman/respeaker-go/internal/protocol"
	"github.com/brookman/respeaker-go/internal/state"
)

// watchInterval is the cadence at which watch re-reads the cache.
const watchInterval = 200 * time.Millisecond

// defaultWatchDuration is how long watch runs when no duration is given.
const defaultWatchDuration = 5 * time.Second

// Resetter reboots the device. *device.Session satisfies it.
type Resetter interface {
	Reset() error
}

// Shell is the interactive command loop.
type Shell struct {
	cache    *state.Cache
	resetter Resetter
	rl       *readline.Instance
	out      io.Writer
}

// New creates a shell over the given cache. The cache must be primed
// before Run so list and get have values to show.
func New(cache *state.Cache, resetter Resetter) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "respeaker> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		cache:    cache,
		resetter: resetter,
		rl:       rl,
		out:      rl.Stdout(),
	}, nil
}

// completer builds tab completion over commands and parameter names.
func completer() readline.AutoCompleter {
	names := make([]readline.PrefixCompleterInterface, 0, len(param.All()))
	for _, k := range param.All() {
		names = append(names, readline.PcItem(k.String()))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("get", names...),
		readline.PcItem("set", names...),
		readline.PcItem("watch", names...),
		readline.PcItem("reset"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

// Run starts the interactive command loop. It returns when the user
// exits or the context is cancelled.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.execute(line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command line. Returns false when the user asked to
// exit.
func (s *Shell) execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "list", "ls", "l":
		s.cmdList()

	case "get", "read", "g":
		s.cmdGet(args)

	case "set", "write", "s":
		s.cmdSet(args)

	case "watch", "w":
		s.cmdWatch(args)

	case "reset":
		s.cmdReset()

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
ReSpeaker Tuning Commands:
  list                - Show all parameters and their current values
  get <name>          - Show one parameter in detail
  set <name> <value>  - Change a writable parameter
  watch <name> [sec]  - Stream a parameter's value (default 5s)
  reset               - Reboot the microphone array
  help                - Show this help
  quit                - Exit

  Parameter names are case-insensitive, e.g. 'set agcgain 10'.
  Changes are applied by the background sync within one poll tick.`)
}

// cmdList prints every parameter in display order.
func (s *Shell) cmdList() {
	snapshot := s.cache.Snapshot()

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE\tTYPE\tACCESS\tRANGE")
	for _, k := range param.Sorted() {
		def := k.Definition()
		value := "-"
		if v, ok := snapshot[k]; ok {
			value = v.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			k, value, def.Type, def.Access, formatRange(def))
	}
	tw.Flush()
}

// cmdGet shows one parameter with its description and value labels.
func (s *Shell) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: get <name>")
		return
	}
	k, err := param.KindFromString(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	def := k.Definition()

	value := "unknown"
	if v, ok := s.cache.Get(k); ok {
		value = v.String()
		if label := choiceLabel(def, v); label != "" {
			value += " (" + label + ")"
		}
	}

	fmt.Fprintf(s.out, "%s = %s\n", k, value)
	fmt.Fprintf(s.out, "  Type:   %s, %s\n", def.Type, def.Access)
	fmt.Fprintf(s.out, "  Range:  %s\n", formatRange(def))
	fmt.Fprintf(s.out, "  About:  %s\n", def.Description)
	// Only discrete parameters map each value to a label; range
	// parameters may carry labels as free-form notes instead.
	if def.Type == param.IntDiscrete {
		for i, label := range def.ChoiceLabels {
			fmt.Fprintf(s.out, "    %d = %s\n", i, label)
		}
		return
	}
	for _, note := range def.ChoiceLabels {
		fmt.Fprintf(s.out, "  Note:   %s\n", note)
	}
}

// cmdSet validates the value and queues it in the cache for the
// reconciler to push.
func (s *Shell) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: set <name> <value>")
		fmt.Fprintln(s.out, "  Example: set AGCGAIN 10")
		return
	}
	k, err := param.KindFromString(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	v, err := param.Parse(k, args[1])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if err := protocol.ValidateWrite(k, v); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	s.cache.Set(k, v)
	fmt.Fprintf(s.out, "%s = %s (queued)\n", k, v)
}

// cmdWatch streams one parameter's cached value for a while. The
// reconciler refreshes read-only values each tick, so this shows live
// telemetry without issuing transfers of its own.
func (s *Shell) cmdWatch(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: watch <name> [seconds]")
		fmt.Fprintln(s.out, "  Example: watch DOAANGLE 10")
		return
	}
	k, err := param.KindFromString(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	duration := defaultWatchDuration
	if len(args) >= 2 {
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs <= 0 {
			fmt.Fprintf(s.out, "Invalid duration: %q\n", args[1])
			return
		}
		duration = time.Duration(secs) * time.Second
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	deadline := time.After(duration)

	var last param.Value
	seen := false
	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			v, ok := s.cache.Get(k)
			if !ok || (seen && v.Equal(last)) {
				continue
			}
			last, seen = v, true
			fmt.Fprintf(s.out, "[%s] %s = %s\n", time.Now().Format("15:04:05.000"), k, v)
		}
	}
}

// cmdReset reboots the array. Blocks through the settle window.
func (s *Shell) cmdReset() {
	if s.resetter == nil {
		fmt.Fprintln(s.out, "Reset not available")
		return
	}
	fmt.Fprintln(s.out, "Resetting device...")
	if err := s.resetter.Reset(); err != nil {
		fmt.Fprintf(s.out, "Reset failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Device is back")
}

// formatRange renders the value domain for tables.
func formatRange(def param.Definition) string {
	if def.Type == param.FloatRange {
		return fmt.Sprintf("%g..%g", def.Min, def.Max)
	}
	return fmt.Sprintf("%d..%d", int(def.Min), int(def.Max))
}

// choiceLabel returns the label for a discrete value, or "".
func choiceLabel(def param.Definition, v param.Value) string {
	if def.Type != param.IntDiscrete || v.IsFloat() {
		return ""
	}
	idx := int(v.Int())
	if idx < 0 || idx >= len(def.ChoiceLabels) {
		return ""
	}
	return def.ChoiceLabels[idx]
}
