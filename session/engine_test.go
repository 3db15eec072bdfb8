package session

import (
	"context"
	"testing"

	"github.com/miditools/looper/looper"
	"gitlab.com/gomidi/midi/v2"
)

func testEngine(t *testing.T) (*Engine, *Session, *looper.Ctrl) {
	t.Helper()
	sess := testSession(&sendLog{})
	sess.AddTrack(NewTrack("loop 1", Instrument))
	sess.AddTrack(NewTrack("drums", Sample))
	sess.AddTrack(NewTrack("loop 2", Instrument))

	binds := looper.Unbound()
	binds[looper.BindPlay] = looper.KeyBind{Channel: 1, Control: 10}
	binds[looper.BindRecord] = looper.KeyBind{Channel: 1, Control: 11}

	ctrl := looper.New(looper.Config{
		Transport: sess,
		Tracks:    sess,
		Timeline:  sess,
		Devices:   []string{"pedal"},
		Binds:     binds,
		LoopBars:  2,
		Logger:    quiet(),
	})
	return NewEngine(ctrl, sess, quiet()), sess, ctrl
}

// The full quantized-record flow, driven through the engine mailbox
// semantics: select, play, arm record, two boundaries.
func TestEngineRecordFlow(t *testing.T) {
	e, sess, ctrl := testEngine(t)
	ctx := context.Background()

	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ProgramChange(0, 0)})
	if got := ctrl.CurrentTrack(); got != 0 {
		t.Fatalf("current track = %d, want 0", got)
	}

	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 10, 127)})
	if !sess.IsPlaying() {
		t.Fatal("play button did not start playback")
	}

	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 11, 127)})
	if sess.IsRecording() {
		t.Fatal("record must wait for the boundary")
	}
	if got := ctrl.Pending(); got != looper.StartRecord {
		t.Fatalf("pending = %v, want StartRecord", got)
	}

	e.process(ctx, Message{Kind: EvBoundary})
	if !sess.IsRecording() {
		t.Fatal("record did not start at the boundary")
	}

	// a note played during the loop lands in the selected track's clip
	e.process(ctx, Message{Kind: EvMidi, Device: "pedal", Midi: midi.NoteOn(0, 60, 100), AbsMS: 10})
	e.process(ctx, Message{Kind: EvMidi, Device: "pedal", Midi: midi.NoteOff(0, 60), AbsMS: 400})

	e.process(ctx, Message{Kind: EvBoundary})
	if sess.IsRecording() {
		t.Fatal("record did not stop one loop later")
	}
	clip := sess.Tracks()[0].(*Track).LoopClip()
	if clip == nil || clip.Len() != 2 {
		t.Fatalf("loop clip has %v events, want 2", clip)
	}
}

// Boundary handling drains the register before starting playback, and a
// second stop press while recording acts immediately.
func TestEngineImmediateStop(t *testing.T) {
	e, sess, ctrl := testEngine(t)
	ctx := context.Background()

	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ProgramChange(0, 1)})
	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 11, 127)}) // record from idle
	if !sess.IsRecording() {
		t.Fatal("record from idle must start immediately")
	}
	if got := ctrl.Pending(); got != looper.StopRecord {
		t.Fatalf("pending = %v, want StopRecord armed", got)
	}

	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 10, 127)}) // play acts as stop-record
	if sess.IsRecording() {
		t.Fatal("record button while recording must stop immediately")
	}
	if got := ctrl.Pending(); got != looper.NoAction {
		t.Fatalf("pending = %v, want cleared", got)
	}
}

func TestEngineUnboundButtonIgnored(t *testing.T) {
	e, sess, _ := testEngine(t)
	ctx := context.Background()
	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 99, 127)})
	e.process(ctx, Message{Kind: EvMidi, Midi: midi.ControlChange(1, 10, 0)}) // release of play
	if sess.IsPlaying() {
		t.Fatal("unbound or released buttons must not drive the transport")
	}
}
