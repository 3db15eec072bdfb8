// Package session is a small in-process host for the looper controller: an
// ordered track list, a play/record transport, loop-boundary timing and
// per-track MIDI input routing. It stands in for the DAW the original tool
// lives inside, exposing exactly the surfaces the controller consumes.
package session

import (
	"context"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/miditools/looper/looper"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ticks is the timeline resolution: 48 per quarter note, so a 4/4 bar is
// looper.TicksPerBar.
const ticks = smf.MetricTicks(looper.TicksPerBar / 4)

// Session implements the looper host interfaces over in-memory tracks.
// All mutation happens on the engine goroutine.
type Session struct {
	bpm    float64
	tracks []looper.Track

	loopTicks uint32

	playing   bool
	recording bool

	rec      recorder
	quantize bool

	send func(midi.Message) error

	playCtx    context.Context
	cancelPlay context.CancelFunc

	logger *charmlog.Logger
}

// Config for a Session. Send is the MIDI output; nil discards.
type Config struct {
	BPM      float64
	LoopBars int
	Quantize bool
	Send     func(midi.Message) error
	Logger   *charmlog.Logger
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = charmlog.NewWithOptions(os.Stdout, charmlog.Options{
			Level:  charmlog.InfoLevel,
			Prefix: "session",
		})
	}
	bpm := cfg.BPM
	if bpm <= 0 {
		bpm = 120
	}
	bars := cfg.LoopBars
	if bars <= 0 {
		bars = 1
	}
	send := cfg.Send
	if send == nil {
		send = func(midi.Message) error { return nil }
	}
	s := &Session{
		bpm:       bpm,
		loopTicks: uint32(bars) * looper.TicksPerBar,
		quantize:  cfg.Quantize,
		send:      send,
		logger:    logger,
	}
	s.playCtx, s.cancelPlay = context.WithCancel(context.Background())
	s.cancelPlay()
	return s
}

// AddTrack appends a track to the session.
func (s *Session) AddTrack(t *Track) {
	s.tracks = append(s.tracks, t)
}

// Tracks returns the ordered track list.
func (s *Session) Tracks() []looper.Track { return s.tracks }

// SetLoopBars moves the loop end marker.
func (s *Session) SetLoopBars(bars int) {
	if bars < looper.MinLoopBars {
		bars = looper.MinLoopBars
	}
	if bars > looper.MaxLoopBars {
		bars = looper.MaxLoopBars
	}
	s.loopTicks = uint32(bars) * looper.TicksPerBar
	s.logger.Debug("loop markers", "bars", bars, "ticks", s.loopTicks)
}

// LoopTicks returns the configured loop length in ticks.
func (s *Session) LoopTicks() uint32 { return s.loopTicks }

// LoopPeriod returns the wall-clock duration of one loop iteration at the
// current tempo.
func (s *Session) LoopPeriod() time.Duration {
	return ticks.Duration(s.bpm, s.loopTicks)
}

// BPM returns the session tempo.
func (s *Session) BPM() float64 { return s.bpm }

func (s *Session) IsPlaying() bool   { return s.playing }
func (s *Session) IsRecording() bool { return s.recording }

// Play starts loop playback.
func (s *Session) Play() {
	if s.playing {
		return
	}
	s.playing = true
	s.logger.Info("play")
}

// Stop halts playback and any recording in progress.
func (s *Session) Stop() {
	if s.recording {
		s.StopRecording()
	}
	s.playing = false
	s.cancelPlay()
	s.logger.Info("stop")
}

// StartRecordAccompany begins recording on the armed track while existing
// loops keep playing. Recording waits for the first note before the clock
// starts, so a silent lead-in is not captured.
func (s *Session) StartRecordAccompany() {
	if s.recording {
		return
	}
	s.playing = true
	s.recording = true
	s.rec.arm()
	s.logger.Info("record")
}

// StopRecording closes the take and, if configured, quantizes it.
func (s *Session) StopRecording() {
	if !s.recording {
		return
	}
	s.recording = false
	clip := s.rec.disarm()
	if clip == nil {
		s.logger.Debug("record stop: nothing captured")
		return
	}
	s.logger.Info("record stop", "events", clip.Len())
	if s.quantize {
		if err := quantizeClip(clip, s.bpm); err != nil {
			s.logger.Error("quantize failed", "err", err)
		}
	}
}

// RouteFor returns the instrument track subscribed to the named device,
// nil when there is none. The controller's routing invariant keeps this
// unique.
func (s *Session) RouteFor(device string) *Track {
	for _, t := range s.tracks {
		tr, ok := t.(*Track)
		if !ok || !tr.IsInstrument() {
			continue
		}
		if tr.SubscribedTo(device) {
			return tr
		}
	}
	return nil
}

// HandleInput processes one performance event from a device: echoes it to
// the output and, while recording, captures it into the routed track's
// loop clip.
func (s *Session) HandleInput(device string, msg midi.Message, absMS int32) {
	if err := s.send(msg); err != nil {
		s.logger.Error("send failed", "err", err)
	}
	if !s.recording {
		return
	}
	track := s.RouteFor(device)
	if track == nil {
		s.logger.Debug("record: device not routed", "device", device)
		return
	}
	clip := track.LoopClip()
	if clip == nil {
		s.logger.Warn("record: routed track has no loop clip", "track", track.Name())
		return
	}
	s.rec.capture(clip, msg, absMS, s.bpm)
}

// PlayIteration plays one loop iteration of every audible clip. Called at
// each boundary while playing; a previous iteration still sounding is cut.
func (s *Session) PlayIteration(ctx context.Context) {
	s.cancelPlay()
	s.playCtx, s.cancelPlay = context.WithCancel(ctx)
	for _, clip := range s.audibleClips() {
		go s.playClip(s.playCtx, clip)
	}
}

// audibleClips resolves mute and solo flags: any soloed instrument track
// silences all non-soloed ones.
func (s *Session) audibleClips() []*Clip {
	solo := false
	for _, t := range s.tracks {
		if t.IsInstrument() && t.Solo() {
			solo = true
			break
		}
	}
	var out []*Clip
	for _, t := range s.tracks {
		tr, ok := t.(*Track)
		if !ok || !tr.IsInstrument() {
			continue
		}
		if solo && !tr.Solo() {
			continue
		}
		if !solo && tr.Muted() {
			continue
		}
		clip := tr.LoopClip()
		if clip == nil || clip.Len() == 0 {
			continue
		}
		out = append(out, clip)
	}
	return out
}

func (s *Session) playClip(ctx context.Context, clip *Clip) {
	for _, ev := range clip.Snapshot() {
		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(ticks.Duration(s.bpm, ev.Delta))
			if smf.Message(ev.Message).IsPlayable() {
				if err := s.send(midi.Message(ev.Message)); err != nil {
					s.logger.Error("send failed", "err", err)
					return
				}
			}
		}
	}
}
