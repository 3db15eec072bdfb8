// serial-looper bridges a DIY serial pedalboard to a virtual MIDI port the
// looper can listen on. Frames are two bytes: a status byte whose high bit
// signals release, and a key code translated through the keymap file.
package main

import (
	"flag"
	"os"

	charmlog "github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	rtmididrv "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.bug.st/serial"
)

func main() {
	portName := flag.String("port", "/dev/ttyACM0", "serial port, e.g. /dev/ttyUSB0")
	keymapFile := flag.String("keymap", "keymap.txt", "keymap file (one 'code:value' per line)")
	outPort := flag.String("output", "", "MIDI output port name (default: open a virtual port)")
	channel := flag.Uint("channel", 0, "MIDI channel for generated events")
	debug := flag.Bool("debug", false, "print translated events")
	flag.Parse()

	level := charmlog.InfoLevel
	if *debug {
		level = charmlog.DebugLevel
	}
	logger := charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		Level:  level,
		Prefix: "serial-looper",
	})

	keymap, err := LoadKeymap(*keymapFile)
	if err != nil {
		logger.Fatal("keymap", "err", err)
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		logger.Fatal("serial", "err", err)
	}
	if len(ports) == 0 {
		logger.Fatal("no serial ports found")
	}
	if *portName == "" {
		portName = &ports[0]
	}

	port, err := serial.Open(*portName, &serial.Mode{BaudRate: 115200})
	if err != nil {
		logger.Fatal("serial open", "port", *portName, "err", err)
	}
	logger.Info("reading", "port", *portName)

	defer midi.CloseDriver()
	out, err := midi.FindOutPort(*outPort)
	if err != nil {
		out, err = drivers.Get().(*rtmididrv.Driver).OpenVirtualOut("serial-looper")
		if err != nil {
			logger.Fatal("output", "err", err)
		}
	}
	logger.Info("output", "port", out.String())
	send, err := midi.SendTo(out)
	if err != nil {
		logger.Fatal("output", "err", err)
	}

	ch := uint8(*channel)
	pressed := [256]bool{}

	port.ResetInputBuffer()
	buf := make([]byte, 2)
	for {
		if _, err := port.Read(buf); err != nil {
			logger.Error("serial read", "err", err)
			continue
		}
		status := int(buf[0])
		code := int(buf[1])

		press := (status >> 7) == 0
		if pressed[code] == press {
			continue
		}
		pressed[code] = press

		value, ok := keymap[code]
		if !ok {
			logger.Debug("unassigned", "code", code)
			continue
		}
		switch {
		case value >= 0:
			// button: CC press with full velocity, release with zero
			vel := uint8(0)
			if press {
				vel = 127
			}
			logger.Debug("control", "number", value, "press", press)
			send(midi.ControlChange(ch, uint8(value), vel))
		case press:
			// negative values select a track: -1 is program 0
			program := uint8(-value - 1)
			logger.Debug("track select", "program", program)
			send(midi.ProgramChange(ch, program))
		}
	}
}
