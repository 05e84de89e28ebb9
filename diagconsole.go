// diagconsole.go - line-edited diagnostic REPL for bring-up inspection
//
// Distinct from (and much smaller than) the out-of-scope shell: this
// console only exposes read-only and reset operations against the heap,
// scheduler, keyboard decoder, and filesystem for diagnosing bring-up.
//
// License: GPLv3 or later

package luxkernel

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

// DiagConsole exposes a small fixed command set over the kernel's live
// subsystems.
type DiagConsole struct {
	heap *Heap
	sch  *Scheduler
	kbd  *KeyboardController
	fs   *FS
}

// NewDiagConsole wires a console to the subsystems it introspects. Any of
// the arguments may be nil if that subsystem isn't wired yet; the
// corresponding command reports it unavailable.
func NewDiagConsole(heap *Heap, sch *Scheduler, kbd *KeyboardController, fs *FS) *DiagConsole {
	return &DiagConsole{heap: heap, sch: sch, kbd: kbd, fs: fs}
}

type diagCmd struct {
	name string
	help string
	run  func(c *DiagConsole, args []string) (string, error)
}

var diagCmds []diagCmd

func init() {
	diagCmds = []diagCmd{
		{"heap", "show heap allocator stats", diagHeap},
		{"ps", "list scheduler process table", diagPS},
		{"kbd", "show keyboard modifier state", diagKbd},
		{"ls", "ls <path> - list a filesystem path", diagLS},
		{"reset", "reset the heap and keyboard decoder", diagReset},
		{"help", "list commands", diagHelp},
		{"quit", "exit the console", diagQuit},
	}
}

func diagHeap(c *DiagConsole, _ []string) (string, error) {
	if c.heap == nil {
		return "", errors.New("heap not wired")
	}
	s := c.heap.Stats()
	return fmt.Sprintf("total=%d used=%d free=%d largest_free=%d allocs=%d free_blocks=%d",
		s.TotalBytes, s.UsedBytes, s.FreeBytes, s.LargestFree, s.AllocationCount, s.FreeBlockCount), nil
}

func diagPS(c *DiagConsole, _ []string) (string, error) {
	if c.sch == nil {
		return "", errors.New("scheduler not wired")
	}
	procs := c.sch.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-10s %s\n", "PID", "STATE", "PRIORITY")
	for _, p := range procs {
		fmt.Fprintf(&b, "%-6d %-10s %d\n", p.Pid, p.State, p.Priority)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func diagKbd(c *DiagConsole, _ []string) (string, error) {
	if c.kbd == nil {
		return "", errors.New("keyboard controller not wired")
	}
	snap := c.kbd.Snapshot()
	return fmt.Sprintf("%+v", snap), nil
}

func diagLS(c *DiagConsole, args []string) (string, error) {
	if c.fs == nil {
		return "", errors.New("filesystem not wired")
	}
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	entries, err := c.fs.List(path)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	var b strings.Builder
	for _, e := range entries {
		kind := "f"
		if e.Type == TypeDir {
			kind = "d"
		}
		fmt.Fprintf(&b, "%s %8d %s\n", kind, e.Size, e.Name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func diagReset(c *DiagConsole, _ []string) (string, error) {
	if c.heap != nil {
		c.heap.Reset()
	}
	if c.kbd != nil {
		c.kbd.Reset()
	}
	return "reset", nil
}

func diagHelp(_ *DiagConsole, _ []string) (string, error) {
	var b strings.Builder
	for _, cmd := range diagCmds {
		fmt.Fprintf(&b, "%-8s %s\n", cmd.name, cmd.help)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

var errDiagQuit = errors.New("quit")

func diagQuit(_ *DiagConsole, _ []string) (string, error) {
	return "", errDiagQuit
}

func matchDiagCmd(name string) *diagCmd {
	for i := range diagCmds {
		if diagCmds[i].name == name {
			return &diagCmds[i]
		}
	}
	return nil
}

// Dispatch parses and runs one command line against the console's wired
// subsystems, returning its output (or an error). It never touches a
// terminal, so it is directly unit-testable.
func (c *DiagConsole) Dispatch(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := matchDiagCmd(fields[0])
	if cmd == nil {
		return "", fmt.Errorf("unknown command: %s", fields[0])
	}
	return cmd.run(c, fields[1:])
}

// Run drives an interactive liner-backed REPL until "quit" or EOF/Ctrl-C.
func (c *DiagConsole) Run() {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var matches []string
		for _, cmd := range diagCmds {
			if strings.HasPrefix(cmd.name, partial) {
				matches = append(matches, cmd.name)
			}
		}
		return matches
	})

	for {
		input, err := line.Prompt("luxkernel> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			fmt.Fprintf(os.Stderr, "diagconsole: read error: %v\n", err)
			return
		}
		line.AppendHistory(input)

		out, err := c.Dispatch(input)
		if err != nil {
			if errors.Is(err, errDiagQuit) {
				return
			}
			fmt.Println("error: " + err.Error())
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
