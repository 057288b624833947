package editor

import (
	"context"

	"github.com/zjrosen/modal/internal/buffer"
	"github.com/zjrosen/modal/internal/log"
)

// hostCommand is a command bound through a key remapping.
type hostCommand struct {
	name string
	args []string
}

// Host is the buffer the terminal editor renders. The engine calls it from
// its worker while Update waits, so command line requests and bound commands
// are queued here and drained once the key has been handled.
type Host struct {
	*buffer.Memory

	prompts  chan string
	commands chan hostCommand
}

// NewHost returns a host editing text.
func NewHost(text string) *Host {
	return &Host{
		Memory:   buffer.NewMemory(text),
		prompts:  make(chan string, 4),
		commands: make(chan hostCommand, 16),
	}
}

// OpenCommandLine asks the editor to show the ":" prompt prefilled with initial.
func (h *Host) OpenCommandLine(_ context.Context, initial string) error {
	select {
	case h.prompts <- initial:
	default:
		log.Warn(log.CatUI, "command line request dropped", "initial", initial)
	}
	return nil
}

// RunCommand queues a command bound in the remap configuration.
func (h *Host) RunCommand(_ context.Context, name string, args ...string) error {
	select {
	case h.commands <- hostCommand{name: name, args: args}:
	default:
		log.Warn(log.CatUI, "host command dropped", "command", name)
	}
	return nil
}

// pendingPrompt returns the latest queued command line request.
func (h *Host) pendingPrompt() (string, bool) {
	var initial string
	found := false
	for {
		select {
		case p := <-h.prompts:
			initial, found = p, true
		default:
			return initial, found
		}
	}
}

func (h *Host) pendingCommands() []hostCommand {
	var out []hostCommand
	for {
		select {
		case c := <-h.commands:
			out = append(out, c)
		default:
			return out
		}
	}
}
