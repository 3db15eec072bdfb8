package session

import (
	"bytes"
	"errors"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	quantizer "gitlab.com/gomidi/quantizer"
)

// recorder captures note events into a loop clip. The clock does not start
// until the first note-on arrives, so the take begins on the downbeat the
// player actually hits.
type recorder struct {
	armed   bool
	started bool
	lastMS  int32
	clip    *Clip
}

func (r *recorder) arm() {
	r.armed = true
	r.started = false
	r.clip = nil
}

// disarm ends the take and returns the clip it went into, nil when nothing
// was captured.
func (r *recorder) disarm() *Clip {
	clip := r.clip
	r.armed = false
	r.started = false
	r.clip = nil
	return clip
}

func (r *recorder) capture(clip *Clip, msg midi.Message, absMS int32, bpm float64) {
	if !r.armed {
		return
	}
	var ch, key, vel uint8
	if !(msg.GetNoteOn(&ch, &key, &vel) || msg.GetNoteEnd(&ch, &key)) {
		return
	}
	if !r.started {
		if !msg.IsOneOf(midi.NoteOnMsg) {
			return
		}
		// a new take replaces the loop content
		clip.ClearNotes()
		r.started = true
		r.clip = clip
		r.lastMS = absMS
		clip.Add(0, msg)
		return
	}
	deltams := absMS - r.lastMS
	r.lastMS = absMS
	delta := ticks.Ticks(bpm, time.Duration(deltams)*time.Millisecond)
	clip.Add(delta, msg)
}

// quantizeClip runs the freshly recorded clip through the quantizer via an
// in-memory SMF round trip.
func quantizeClip(clip *Clip, bpm float64) error {
	notes := clip.Snapshot()
	if len(notes) == 0 {
		return nil
	}

	track := smf.Track{}
	track.Add(0, smf.MetaTempo(bpm))
	track = append(track, notes...)
	track.Close(0)

	file := smf.New()
	file.TimeFormat = ticks
	if err := file.Add(track); err != nil {
		return err
	}
	var bf bytes.Buffer
	if _, err := file.WriteTo(&bf); err != nil {
		return err
	}
	if err := quantizer.Quantize(&bf, &bf); err != nil {
		return err
	}
	read := smf.ReadTracksFrom(&bf).SMF()
	if read == nil || read.NumTracks() < 1 {
		return errors.New("quantizer returned no tracks")
	}
	clip.replace(read.Tracks[0])
	return nil
}
