package session

import (
	"errors"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SaveClip writes a loop clip as a single-track SMF file so takes survive
// across sessions.
func SaveClip(path string, clip *Clip, bpm float64) error {
	track := smf.Track{}
	track.Add(0, smf.MetaTempo(bpm))
	track = append(track, clip.Snapshot()...)
	track.Close(0)

	file := smf.New()
	file.TimeFormat = ticks
	if err := file.Add(track); err != nil {
		return err
	}
	return file.WriteFile(path)
}

// LoadClip replaces a clip's contents with the note events of the first
// track of an SMF file.
func LoadClip(path string, clip *Clip) error {
	file, err := smf.ReadFile(path)
	if err != nil {
		return err
	}
	if file.NumTracks() < 1 {
		return errors.New("no tracks in file")
	}
	clip.replace(noteEvents(file.Tracks[0]))
	return nil
}

// noteEvents strips meta and non-note messages, folding their deltas into
// the following note so timing is preserved.
func noteEvents(tr smf.Track) smf.Track {
	out := smf.Track{}
	carry := uint32(0)
	var ch, key, vel uint8
	for _, ev := range tr {
		msg := midi.Message(ev.Message)
		if msg.GetNoteOn(&ch, &key, &vel) || msg.GetNoteEnd(&ch, &key) {
			out.Add(carry+ev.Delta, msg)
			carry = 0
		} else {
			carry += ev.Delta
		}
	}
	return out
}
