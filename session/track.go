package session

import (
	"sync"

	"github.com/miditools/looper/looper"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TrackKind mirrors the host track taxonomy. Only instrument tracks accept
// note clips and MIDI routing.
type TrackKind uint8

const (
	Instrument TrackKind = iota
	Sample
	Automation
)

func (k TrackKind) String() string {
	switch k {
	case Instrument:
		return "instrument"
	case Sample:
		return "sample"
	case Automation:
		return "automation"
	}
	return "unknown"
}

// Clip is a note clip backed by an SMF track. Live recording appends to it
// from the engine goroutine while a playback goroutine may be reading, so
// access goes through the embedded mutex.
type Clip struct {
	notes smf.Track
	sync.Mutex
}

const clipPreallocation = 128

func newClip() *Clip {
	return &Clip{notes: make(smf.Track, 0, clipPreallocation)}
}

// ClearNotes empties the clip.
func (c *Clip) ClearNotes() {
	c.Lock()
	c.notes = c.notes[0:0]
	c.Unlock()
}

// Add appends one message after delta ticks.
func (c *Clip) Add(delta uint32, msg midi.Message) {
	c.Lock()
	c.notes.Add(delta, msg)
	c.Unlock()
}

// Len returns the number of recorded events.
func (c *Clip) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.notes)
}

// Snapshot copies the clip contents for playback.
func (c *Clip) Snapshot() smf.Track {
	c.Lock()
	defer c.Unlock()
	out := make(smf.Track, len(c.notes))
	copy(out, c.notes)
	return out
}

func (c *Clip) replace(tr smf.Track) {
	c.Lock()
	c.notes = tr
	c.Unlock()
}

// Track is one entry of the session's ordered track list.
type Track struct {
	name  string
	kind  TrackKind
	muted bool
	solo  bool

	clips map[int]*Clip

	// subscribed input device names routed into this track
	subs map[string]bool
}

func NewTrack(name string, kind TrackKind) *Track {
	return &Track{
		name:  name,
		kind:  kind,
		clips: map[int]*Clip{},
		subs:  map[string]bool{},
	}
}

func (t *Track) Name() string       { return t.name }
func (t *Track) Kind() TrackKind    { return t.kind }
func (t *Track) IsInstrument() bool { return t.kind == Instrument }

func (t *Track) Muted() bool     { return t.muted }
func (t *Track) Solo() bool      { return t.solo }
func (t *Track) SetMuted(m bool) { t.muted = m }
func (t *Track) SetSolo(s bool)  { t.solo = s }

// ClipAt returns the clip at the given bar position, nil when absent.
func (t *Track) ClipAt(pos int) looper.NoteClip {
	if c, ok := t.clips[pos]; ok {
		return c
	}
	return nil
}

// CreateClip makes an empty clip at the given bar position. Existing clips
// are replaced.
func (t *Track) CreateClip(pos int) looper.NoteClip {
	c := newClip()
	t.clips[pos] = c
	return c
}

// LoopClip returns the concrete clip at position 0, nil when absent.
func (t *Track) LoopClip() *Clip {
	return t.clips[0]
}

func (t *Track) Subscribe(device string)   { t.subs[device] = true }
func (t *Track) Unsubscribe(device string) { delete(t.subs, device) }

// SubscribedTo reports whether the named device is routed into this track.
func (t *Track) SubscribedTo(device string) bool { return t.subs[device] }
