// Command vmshell is an interactive console over the toolkit: boot a pair
// of synthetic images, then issue CSR reads/writes and ECALL/SRET/MRET
// instructions against the resulting monitor by hand. Grounded on the
// S370 emulator's ConsoleReader (a peterh/liner prompt loop with history
// and tab completion feeding a small command parser).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"circbuf"
	"csr"
	"obslog"
	"replay"
	"tem"
	"tinfo"
	"trapframe"
)

// shellGuestTID is the single guest thread id this console drives; there
// is only ever one guest in an interactive session.
const shellGuestTID = 1

// shellHost is a tem.Host the console drives directly: its trap frame and
// guest memory are plain in-process state rather than a real guest. Kill
// state is recorded in a tinfo.Table instead of a bare print so `status`
// can report it after the fact, the same separation a real host keeps
// between "what happened" (tinfo) and "what the terminal printed".
type shellHost struct {
	frame trapframe.Frame
	sepc  uint64
	mem   map[uint64][]byte
	notes tinfo.Table
}

func newShellHost() *shellHost {
	h := &shellHost{mem: make(map[uint64][]byte)}
	h.notes.Init()
	return h
}

func (h *shellHost) TrapFrame() *trapframe.Frame { return &h.frame }
func (h *shellHost) SEPC() uint64                { return h.sepc }

func (h *shellHost) CopyIn(dst []byte, vaddr uint64) error {
	src, ok := h.mem[vaddr]
	if !ok {
		return fmt.Errorf("vmshell: no instruction mapped at %#x", vaddr)
	}
	copy(dst, src)
	return nil
}

func (h *shellHost) Kill(reason string) {
	h.notes.Note(shellGuestTID).Kill(reason)
	fmt.Printf("guest killed: %s\n", reason)
}

func completer() func(string) []string {
	cmds := []string{"word", "mode", "mstatus", "status", "trace", "log", "quit", "help"}
	return func(line string) []string {
		var out []string
		for _, c := range cmds {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	}
}

func main() {
	file := &csr.File{}
	mon := tem.New(file)
	mon.Init()
	mon.Trace = circbuf.New(4096)
	host := newShellHost()

	pane := replay.New(8192)
	obslog.AddHook(pane)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer())

	fmt.Println("vmshell: type `help` for commands, `quit` to exit")
	for {
		input, err := line.Prompt("vmshell> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("reading command", "error", err)
			return
		}
		line.AppendHistory(input)

		if quit := dispatch(strings.TrimSpace(input), file, mon, host, pane); quit {
			return
		}
	}
}

func dispatch(cmd string, file *csr.File, mon *tem.Monitor, host *shellHost, pane *replay.Pane) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println("word <hex>    inject a 32-bit SYSTEM instruction word at sepc and emulate it")
		fmt.Println("mode          print current guest privilege mode")
		fmt.Println("mstatus <hex> set shadow mstatus.MPP/MIE directly")
		fmt.Println("status        print whether the guest has been killed, and why")
		fmt.Println("trace         print the instruction trace recorded so far")
		fmt.Println("log           print the subsystem log pane recorded so far")
		fmt.Println("quit          exit")
	case "mode":
		fmt.Println(file.Mode)
	case "status":
		note := host.notes.Note(shellGuestTID)
		if note.Killed() {
			fmt.Printf("killed: %s\n", note.Reason())
		} else {
			fmt.Println("alive")
		}
	case "trace":
		cb, ok := mon.Trace.(*circbuf.Circbuf)
		if !ok || cb.Empty() {
			fmt.Println("(no trace recorded)")
			return false
		}
		fmt.Print(string(cb.Lines()))
	case "log":
		if pane.Empty() {
			fmt.Println("(no log output recorded)")
			return false
		}
		fmt.Print(string(pane.Lines()))
	case "mstatus":
		if len(fields) != 2 {
			fmt.Println("usage: mstatus <hex>")
			return false
		}
		v, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			fmt.Println("bad value:", err)
			return false
		}
		file.Mstatus.Value = v
	case "word":
		if len(fields) != 2 {
			fmt.Println("usage: word <hex>")
			return false
		}
		w, err := strconv.ParseUint(fields[1], 0, 32)
		if err != nil {
			fmt.Println("bad word:", err)
			return false
		}
		word := uint32(w)
		host.sepc += 4
		host.mem[host.sepc] = []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
		host.frame.Epc = host.sepc
		if err := mon.HandleIllegalInstruction(host); err != nil {
			fmt.Println("fatal:", err)
		} else {
			fmt.Printf("mode=%s frame.epc=%#x\n", file.Mode, host.frame.Epc)
		}
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return false
}
