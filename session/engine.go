package session

import (
	"context"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/miditools/looper/looper"
	"gitlab.com/gomidi/midi/v2"
)

// EventKind tags engine mailbox messages.
type EventKind int

const (
	EvMidi EventKind = iota
	EvBoundary
	EvQuit
)

// Message is one entry in the engine mailbox.
type Message struct {
	Kind   EventKind
	Device string
	Midi   midi.Message
	AbsMS  int32
}

// Engine is the single dispatch goroutine: MIDI input, loop-boundary ticks
// and control messages all drain through one channel, so the controller
// sees events strictly in arrival order and never needs a lock.
type Engine struct {
	In chan Message

	ctrl   *looper.Ctrl
	sess   *Session
	logger *charmlog.Logger
}

func NewEngine(ctrl *looper.Ctrl, sess *Session, logger *charmlog.Logger) *Engine {
	if logger == nil {
		logger = charmlog.NewWithOptions(os.Stdout, charmlog.Options{
			Level:  charmlog.InfoLevel,
			Prefix: "engine",
		})
	}
	return &Engine{
		In:     make(chan Message, 64),
		ctrl:   ctrl,
		sess:   sess,
		logger: logger,
	}
}

// Feed pushes one device event into the mailbox. Safe to call from MIDI
// driver callbacks.
func (e *Engine) Feed(device string, msg midi.Message, absMS int32) {
	e.In <- Message{Kind: EvMidi, Device: device, Midi: msg, AbsMS: absMS}
}

// Run dispatches until the context is cancelled or EvQuit arrives. The
// boundary ticker follows the session's loop period; its tick is the
// "loop restarted" notification.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("start", "period", e.sess.LoopPeriod())
	ticker := time.NewTicker(e.sess.LoopPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("context done")
			e.sess.Stop()
			return
		case <-ticker.C:
			// loop length or tempo may have changed since the last tick
			ticker.Reset(e.sess.LoopPeriod())
			if e.sess.IsPlaying() {
				e.boundary(ctx)
			}
		case m := <-e.In:
			if m.Kind == EvQuit {
				e.logger.Info("quit")
				e.sess.Stop()
				return
			}
			e.process(ctx, m)
		}
	}
}

func (e *Engine) process(ctx context.Context, m Message) {
	switch m.Kind {
	case EvMidi:
		e.handleMidi(m)
	case EvBoundary:
		e.boundary(ctx)
	}
}

// boundary drains the pending-action register first so record transitions
// land exactly on the bar line, then starts the next playback iteration.
func (e *Engine) boundary(ctx context.Context) {
	e.ctrl.OnLoopRestart()
	if e.sess.IsPlaying() {
		e.sess.PlayIteration(ctx)
	}
}

func (e *Engine) handleMidi(m Message) {
	var ch, key, vel uint8
	switch {
	case m.Midi.GetNoteOn(&ch, &key, &vel) || m.Midi.GetNoteEnd(&ch, &key):
		// performance input: echo and record
		e.sess.HandleInput(m.Device, m.Midi, m.AbsMS)
	default:
		// Program Change / Control Change drive the controller
		e.ctrl.OnMessage(m.Midi)
	}
}
