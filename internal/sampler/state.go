package sampler

import (
	"context"

	"codeberg.org/mutker/sysrec/internal/errors"
)

// State is the recording state of the engine.
type State int32

const (
	Idle State = iota
	RecordingQuiet
	RecordingVerbose
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RecordingQuiet:
		return "recording"
	case RecordingVerbose:
		return "recording_verbose"
	default:
		return "unknown"
	}
}

// Recording reports whether the state samples metrics.
func (s State) Recording() bool {
	return s == RecordingQuiet || s == RecordingVerbose
}

// Command is a control message from the foreground to the engine.
type Command int

const (
	Stop Command = iota
	Start
	StartVerbose
)

func (c Command) String() string {
	switch c {
	case Stop:
		return "stop"
	case Start:
		return "start"
	case StartVerbose:
		return "start_verbose"
	default:
		return "unknown"
	}
}

// next returns the state a command leads to. Every command is valid in every
// state.
func next(c Command) State {
	switch c {
	case Start:
		return RecordingQuiet
	case StartVerbose:
		return RecordingVerbose
	default:
		return Idle
	}
}

const defaultControlBuffer = 8

// Control is the single-producer command queue into the engine. Commands are
// delivered in send order.
type Control struct {
	ch chan Command
}

func NewControl() *Control {
	return &Control{ch: make(chan Command, defaultControlBuffer)}
}

// Send queues cmd, blocking while the queue is full.
func (c *Control) Send(ctx context.Context, cmd Command) error {
	select {
	case c.ch <- cmd:
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrInternal, ctx.Err())
	}
}

func (c *Control) commands() <-chan Command {
	return c.ch
}
