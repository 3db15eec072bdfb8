package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	rtmididrv "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/miditools/looper/looper"
	"github.com/miditools/looper/session"
	"github.com/miditools/looper/settings"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	presetFile := flag.String("preset", "", "looper preset file (overrides config)")
	inputs := flag.String("input", "", "comma-separated MIDI input port names (overrides config/preset)")
	output := flag.String("output", "", "MIDI output port name")
	bars := flag.Int("bars", 0, "loop length in bars (1-256)")
	bpm := flag.Float64("bpm", 0, "tempo")
	learnMode := flag.Bool("learn", false, "capture button bindings from the controller and write the preset")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	level := charmlog.InfoLevel
	if *debug {
		level = charmlog.DebugLevel
	}
	logger := charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		Level:  level,
		Prefix: "looper",
	})

	cfg := settings.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = settings.LoadConfig(*configFile)
		if err != nil {
			logger.Fatal("config", "err", err)
		}
	}
	if *presetFile != "" {
		cfg.Preset = *presetFile
	}
	if *bars > 0 {
		cfg.LoopBars = *bars
	}
	if *bpm > 0 {
		cfg.BPM = *bpm
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *inputs != "" {
		cfg.Inputs = splitList(*inputs)
	}

	binds := looper.Unbound()
	if cfg.Preset != "" && !*learnMode {
		preset, err := settings.LoadPreset(cfg.Preset)
		if err != nil {
			logger.Fatal("preset", "err", err)
		}
		binds = preset.Binds
		if len(preset.Inputs) > 0 && *inputs == "" {
			cfg.Inputs = preset.Inputs
		}
	}

	defer midi.CloseDriver()
	drv := drivers.Get().(*rtmididrv.Driver)

	ins := openInputs(logger, drv, cfg.Inputs)
	if len(ins) == 0 {
		logger.Fatal("no MIDI inputs")
	}

	if *learnMode {
		if cfg.Preset == "" {
			logger.Fatal("learn mode needs a preset path (-preset)")
		}
		learned, err := learnBinds(logger, ins)
		if err != nil {
			logger.Fatal("learn", "err", err)
		}
		preset := &settings.Preset{Binds: learned, Inputs: names(ins)}
		if err := settings.SavePreset(cfg.Preset, preset); err != nil {
			logger.Fatal("save preset", "err", err)
		}
		logger.Info("preset written", "path", cfg.Preset)
		return
	}

	send := func(midi.Message) error { return nil }
	if out, err := midi.FindOutPort(cfg.Output); err == nil {
		send, err = midi.SendTo(out)
		if err != nil {
			logger.Fatal("output", "err", err)
		}
		logger.Info("output", "port", out.String())
	} else {
		out, err := drv.OpenVirtualOut("looper")
		if err != nil {
			logger.Fatal("output", "err", err)
		}
		send, err = midi.SendTo(out)
		if err != nil {
			logger.Fatal("output", "err", err)
		}
		logger.Info("output", "port", "looper (virtual)")
	}

	sess := session.New(session.Config{
		BPM:      cfg.BPM,
		LoopBars: cfg.LoopBars,
		Quantize: cfg.Quantize,
		Send:     send,
		Logger:   logger.WithPrefix("session"),
	})
	for _, name := range cfg.Tracks {
		sess.AddTrack(session.NewTrack(name, session.Instrument))
	}

	ctrl := looper.New(looper.Config{
		Transport: sess,
		Tracks:    sess,
		Timeline:  sess,
		Devices:   names(ins),
		Binds:     binds,
		LoopBars:  cfg.LoopBars,
		Logger:    logger.WithPrefix("ctrl"),
	})
	engine := session.NewEngine(ctrl, sess, logger.WithPrefix("engine"))

	var stops []func()
	for _, in := range ins {
		device := in.String()
		stop, err := midi.ListenTo(in, func(msg midi.Message, absms int32) {
			engine.Feed(device, msg, absms)
		})
		if err != nil {
			logger.Fatal("listen", "port", device, "err", err)
		}
		stops = append(stops, stop)
		logger.Info("listening", "port", device)
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, os.Interrupt)
		<-signalCh
		logger.Info("interrupt")
		cancel()
	}()

	engine.Run(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openInputs(logger *charmlog.Logger, drv *rtmididrv.Driver, wanted []string) []drivers.In {
	var ins []drivers.In
	for _, name := range wanted {
		in, err := midi.FindInPort(name)
		if err != nil {
			logger.Warn("input not found", "port", name)
			continue
		}
		ins = append(ins, in)
	}
	if len(ins) == 0 {
		in, err := drv.OpenVirtualIn("looper")
		if err != nil {
			logger.Error("virtual input", "err", err)
			return nil
		}
		logger.Info("no inputs found, opened virtual port", "port", "looper")
		ins = append(ins, in)
	}
	return ins
}

func names(ins []drivers.In) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.String()
	}
	return out
}
