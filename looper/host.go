package looper

// The controller drives its host through these interfaces and never the
// other way around: every failure is logged and skipped, no error crosses
// back over the boundary.

// Transport is the host's playback/record session control.
type Transport interface {
	IsPlaying() bool
	IsRecording() bool
	Play()
	Stop()
	// StartRecordAccompany begins recording on top of current playback.
	StartRecordAccompany()
	StopRecording()
}

// NoteClip is the capability the controller needs from a clip. The host may
// have richer clip kinds; only note editing matters here.
type NoteClip interface {
	ClearNotes()
}

// Track is one entry of the host's ordered track list.
type Track interface {
	Name() string
	// IsInstrument reports whether the track can hold note clips. Program
	// Change track selection counts positions among instrument tracks only.
	IsInstrument() bool

	Muted() bool
	Solo() bool
	SetMuted(bool)
	SetSolo(bool)

	// ClipAt returns the clip at the given bar position, or nil.
	ClipAt(pos int) NoteClip
	CreateClip(pos int) NoteClip

	// Subscribe routes the named input device into this track's MIDI port.
	Subscribe(device string)
	Unsubscribe(device string)
}

// TrackList is the host's ordered track repository.
type TrackList interface {
	Tracks() []Track
}

// Timeline owns the host's loop markers.
type Timeline interface {
	// SetLoopBars moves the loop end marker to the given number of bars
	// past the loop start.
	SetLoopBars(bars int)
}
