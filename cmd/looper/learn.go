package main

import (
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/miditools/looper/looper"
)

// learnBinds walks the six actions in priority order and captures the next
// Control Change press for each one, like the original button-mapping
// dialog but headless. Zero-velocity events (releases) are skipped.
func learnBinds(logger *charmlog.Logger, ins []drivers.In) (looper.KeyBinds, error) {
	binds := looper.Unbound()

	presses := make(chan looper.KeyBind, 8)
	var stops []func()
	for _, in := range ins {
		stop, err := midi.ListenTo(in, func(msg midi.Message, absms int32) {
			var ch, key, vel uint8
			if msg.GetControlChange(&ch, &key, &vel) && vel > 0 {
				presses <- looper.KeyBind{Channel: int16(ch), Control: int16(key)}
			}
		})
		if err != nil {
			return binds, fmt.Errorf("listen on %s: %w", in.String(), err)
		}
		stops = append(stops, stop)
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	last := looper.KeyBind{Channel: -1, Control: -1}
	for name := looper.BindName(0); name < looper.NumBinds; name++ {
		logger.Info("press the button for", "action", name.String())
		for {
			b := <-presses
			if b == last {
				// controller still repeating the previous press
				continue
			}
			binds[name] = b
			last = b
			logger.Info("captured", "action", name.String(), "channel", b.Channel, "control", b.Control)
			break
		}
	}
	return binds, nil
}
