package looper

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestUnboundNeverMatches(t *testing.T) {
	kb := Unbound()
	for ch := uint8(0); ch < 16; ch++ {
		if _, ok := kb.Match(ch, 64); ok {
			t.Fatalf("unbound table matched channel %d", ch)
		}
	}
}

func TestMatchPriorityOrder(t *testing.T) {
	// alias every action onto the same pair: the first in priority order
	// must always fire
	kb := KeyBinds{}
	for i := range kb {
		kb[i] = KeyBind{Channel: 2, Control: 20}
	}
	name, ok := kb.Match(2, 20)
	if !ok || name != BindPlay {
		t.Fatalf("aliased match = %v/%v, want BindPlay", name, ok)
	}

	kb[BindPlay] = KeyBind{Channel: -1, Control: -1}
	name, ok = kb.Match(2, 20)
	if !ok || name != BindRecord {
		t.Fatalf("aliased match = %v/%v, want BindRecord", name, ok)
	}
}

func TestMatchExact(t *testing.T) {
	kb := testBinds()
	for want := BindPlay; want < NumBinds; want++ {
		b := kb[want]
		name, ok := kb.Match(uint8(b.Channel), uint8(b.Control))
		if !ok || name != want {
			t.Fatalf("match(%d,%d) = %v/%v, want %v", b.Channel, b.Control, name, ok, want)
		}
	}
	if _, ok := kb.Match(1, 99); ok {
		t.Fatal("unbound pair matched")
	}
	if _, ok := kb.Match(3, 10); ok {
		t.Fatal("wrong channel matched")
	}
}

func TestReleaseVelocityIgnored(t *testing.T) {
	r := newRig(testBinds(), true)
	r.ctrl.OnMessage(midi.ControlChange(1, 10, 0))
	if r.transport.plays != 0 {
		t.Fatal("zero-velocity control change must not trigger an action")
	}
}

// Unrelated events before and after a bound one must not change its
// classification.
func TestClassificationOrderIndependent(t *testing.T) {
	r := newRig(testBinds(), true)
	r.ctrl.OnMessage(midi.ControlChange(5, 77, 100)) // unbound
	r.ctrl.OnMessage(midi.NoteOn(1, 60, 90))         // not a controller event
	r.ctrl.OnMessage(midi.ControlChange(1, 10, 100)) // play
	r.ctrl.OnMessage(midi.ControlChange(9, 3, 1))    // unbound
	if r.transport.plays != 1 {
		t.Fatalf("plays = %d, want exactly 1", r.transport.plays)
	}
}

func TestBindByName(t *testing.T) {
	for n := BindPlay; n < NumBinds; n++ {
		got, ok := BindByName(n.String())
		if !ok || got != n {
			t.Fatalf("BindByName(%q) = %v/%v", n.String(), got, ok)
		}
	}
	if _, ok := BindByName("wobble"); ok {
		t.Fatal("unknown name resolved")
	}
}
