// Package looper implements the quantized-action MIDI control state machine
// of the Looper tool: a classifier from incoming Program Change / Control
// Change events to logical actions, a one-slot pending-action register
// drained at loop boundaries, and the effector that applies actions to the
// host transport and track list.
package looper

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
)

const (
	// TicksPerBar is the host's fixed timeline resolution.
	TicksPerBar = 192

	MinLoopBars = 1
	MaxLoopBars = 256
)

// Config carries the host collaborators and initial state for a Ctrl. All
// host state arrives through these explicit interfaces; the controller owns
// no ambient singletons.
type Config struct {
	Transport Transport
	Tracks    TrackList
	Timeline  Timeline

	// Devices are the names of the controller's enabled MIDI input
	// devices. Track selection routes exactly this set.
	Devices []string

	Binds    KeyBinds
	LoopBars int

	Logger *charmlog.Logger
}

// Ctrl interprets controller MIDI events against the current transport
// state. All methods must be called from a single goroutine; events are
// handled strictly in arrival order and never block.
type Ctrl struct {
	transport Transport
	tracks    TrackList
	timeline  Timeline
	devices   []string
	binds     KeyBinds

	loopBars  int         // global loop length
	trackBars map[int]int // per-track override, keyed by instrument position

	pending PendingAction
	current int      // selected instrument-track position, -1 when none
	clip    NoteClip // active loop clip, nil when none

	logger *charmlog.Logger
}

// New builds a controller. Construction is explicit: the session lifecycle
// manager that owns the host state also owns the Ctrl.
func New(cfg Config) *Ctrl {
	logger := cfg.Logger
	if logger == nil {
		logger = charmlog.NewWithOptions(os.Stdout, charmlog.Options{
			Level:  charmlog.InfoLevel,
			Prefix: "looper",
		})
	}
	bars := cfg.LoopBars
	if bars == 0 {
		bars = MinLoopBars
	}
	return &Ctrl{
		transport: cfg.Transport,
		tracks:    cfg.Tracks,
		timeline:  cfg.Timeline,
		devices:   cfg.Devices,
		binds:     cfg.Binds,
		loopBars:  clampBars(bars),
		trackBars: map[int]int{},
		pending:   NoAction,
		current:   -1,
		logger:    logger,
	}
}

func clampBars(bars int) int {
	if bars < MinLoopBars {
		return MinLoopBars
	}
	if bars > MaxLoopBars {
		return MaxLoopBars
	}
	return bars
}

// SetBinds replaces the button mapping table.
func (c *Ctrl) SetBinds(kb KeyBinds) { c.binds = kb }

// Binds returns the current button mapping table.
func (c *Ctrl) Binds() KeyBinds { return c.binds }

// SetDevices replaces the enabled input device set. Takes effect on the
// next track selection.
func (c *Ctrl) SetDevices(devices []string) { c.devices = devices }

// SetLoopBars sets the global loop length, clamped to 1..256 bars.
func (c *Ctrl) SetLoopBars(bars int) { c.loopBars = clampBars(bars) }

// SetTrackLoopBars overrides the loop length for one instrument track.
func (c *Ctrl) SetTrackLoopBars(pos, bars int) {
	c.trackBars[pos] = clampBars(bars)
}

// Pending returns the currently held quantized action.
func (c *Ctrl) Pending() PendingAction { return c.pending }

// CurrentTrack returns the selected instrument-track position, -1 when none.
func (c *Ctrl) CurrentTrack() int { return c.current }

// OnMessage classifies one incoming MIDI event and dispatches it. Program
// Change selects an instrument track by position; Control Change with a
// nonzero velocity is matched against the binding table. Everything else is
// left to the host.
func (c *Ctrl) OnMessage(msg midi.Message) {
	var ch, key, vel uint8
	switch {
	case msg.GetProgramChange(&ch, &key):
		c.SelectTrack(int(key))
	case msg.GetControlChange(&ch, &key, &vel):
		if vel == 0 {
			// button release
			return
		}
		name, ok := c.binds.Match(ch, key)
		if !ok {
			return
		}
		c.logger.Debug("button", "bind", name, "channel", ch, "control", key)
		switch name {
		case BindPlay:
			c.TogglePlay()
		case BindRecord:
			c.ToggleRecord()
		case BindMuteCurrent:
			c.SetPending(ToggleMuteTrack, false)
		case BindUnmuteAll:
			c.SetPending(UnmuteAllTracks, false)
		case BindSolo:
			c.SetPending(ToggleSoloTrack, false)
		case BindClearNotes:
			c.ClearNotes()
		}
	}
}

// SetPending requests a quantized action. Unless preempt is set, a
// protected held action wins and the request is dropped; there is no queue
// and no retry.
func (c *Ctrl) SetPending(a PendingAction, preempt bool) {
	if !preempt && c.pending.Protected() {
		c.logger.Debug("pending action protected", "held", c.pending, "dropped", a)
		return
	}
	c.pending = a
}

// OnLoopRestart drains the pending register. Called by the host once per
// loop iteration, at the boundary.
func (c *Ctrl) OnLoopRestart() {
	held := c.pending
	c.pending = NoAction
	switch held {
	case NoAction:
	case StartRecord:
		c.transport.StartRecordAccompany()
		// stop is owed exactly one loop later
		c.pending = StopRecord
	case StopRecord:
		c.transport.StopRecording()
	case ToggleMuteTrack:
		t := c.currentInstrument()
		if t == nil {
			c.logger.Warn("toggle mute: no track selected")
			return
		}
		t.SetMuted(!t.Muted())
	case ToggleSoloTrack:
		t := c.currentInstrument()
		if t == nil {
			c.logger.Warn("toggle solo: no track selected")
			return
		}
		t.SetSolo(!t.Solo())
	case UnmuteAllTracks:
		for _, t := range instrumentTracks(c.tracks) {
			t.SetMuted(false)
		}
	}
}

// TogglePlay realizes {recording: stop-record, playing: stop, idle: play}.
func (c *Ctrl) TogglePlay() {
	switch {
	case c.transport.IsRecording():
		c.ToggleRecord()
	case c.transport.IsPlaying():
		c.transport.Stop()
		c.SetPending(NoAction, true)
	default:
		c.transport.Play()
	}
}

// ToggleRecord stops a running recording immediately; while playing it
// defers the start to the next loop boundary; while idle it starts
// record-accompany right away and arms the boundary-aligned stop.
func (c *Ctrl) ToggleRecord() {
	switch {
	case c.transport.IsRecording():
		c.transport.StopRecording()
		c.SetPending(NoAction, true)
	case c.transport.IsPlaying():
		if c.clip == nil {
			c.logger.Warn("record: no clip selected")
			return
		}
		c.SetPending(StartRecord, false)
	default:
		c.transport.StartRecordAccompany()
		c.SetPending(StopRecord, true)
	}
}

// SelectTrack routes the configured device set exclusively to the
// instrument track at position pos (counted among instrument tracks only),
// makes its bar-0 loop clip the active clip, and applies the loop length to
// the timeline.
func (c *Ctrl) SelectTrack(pos int) {
	instruments := instrumentTracks(c.tracks)
	if pos < 0 || pos >= len(instruments) {
		c.logger.Warn("no instrument track at position", "pos", pos, "have", len(instruments))
		return
	}
	for i, t := range instruments {
		for _, dev := range c.devices {
			if i == pos {
				t.Subscribe(dev)
			} else {
				t.Unsubscribe(dev)
			}
		}
	}

	target := instruments[pos]
	clip := target.ClipAt(0)
	if clip == nil {
		clip = target.CreateClip(0)
	}
	c.current = pos
	c.clip = clip

	bars := c.loopBars
	if override, ok := c.trackBars[pos]; ok {
		bars = override
	}
	c.timeline.SetLoopBars(bars)
	c.logger.Debug("track selected", "pos", pos, "name", target.Name(), "bars", bars)
}

// ClearNotes empties the active loop clip.
func (c *Ctrl) ClearNotes() {
	if c.clip == nil {
		c.logger.Debug("clear notes: no active clip")
		return
	}
	c.clip.ClearNotes()
}

// SetMute mutes or unmutes the instrument track at position pos.
func (c *Ctrl) SetMute(pos int, muted bool) {
	t := c.instrumentAt(pos)
	if t == nil {
		c.logger.Warn("mute: no instrument track at position", "pos", pos)
		return
	}
	t.SetMuted(muted)
}

// SetSolo solos or unsolos the instrument track at position pos.
func (c *Ctrl) SetSolo(pos int, solo bool) {
	t := c.instrumentAt(pos)
	if t == nil {
		c.logger.Warn("solo: no instrument track at position", "pos", pos)
		return
	}
	t.SetSolo(solo)
}

func (c *Ctrl) currentInstrument() Track {
	if c.current < 0 {
		return nil
	}
	return c.instrumentAt(c.current)
}

func (c *Ctrl) instrumentAt(pos int) Track {
	instruments := instrumentTracks(c.tracks)
	if pos < 0 || pos >= len(instruments) {
		return nil
	}
	return instruments[pos]
}

func instrumentTracks(list TrackList) []Track {
	var out []Track
	for _, t := range list.Tracks() {
		if t.IsInstrument() {
			out = append(out, t)
		}
	}
	return out
}
