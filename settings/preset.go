// Package settings persists the Looper preset block and the application
// configuration. A preset holds the six button bindings and the set of
// enabled MIDI input devices; a malformed document is rejected whole, never
// applied partially.
package settings

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/miditools/looper/looper"
)

// Preset is the loaded settings block.
type Preset struct {
	Binds  looper.KeyBinds
	Inputs []string // enabled input device names
}

type presetDoc struct {
	XMLName  xml.Name   `xml:"looper"`
	Keybinds keybindsEl `xml:"keybinds"`
	Midi     midiEl     `xml:"midi"`
}

type keybindsEl struct {
	Keys []keyEl `xml:"key"`
}

type keyEl struct {
	Name    string `xml:"name,attr"`
	Channel int16  `xml:"channel,attr"`
	Control int16  `xml:"control,attr"`
}

type midiEl struct {
	Inputs []inputEl `xml:"input"`
}

type inputEl struct {
	Name    string `xml:"name,attr"`
	Enabled int    `xml:"enabled,attr"`
}

// ReadPreset parses a preset document. Any malformed content, unknown key
// name, or out-of-range value makes the whole block invalid.
func ReadPreset(r io.Reader) (*Preset, error) {
	var doc presetDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("not a valid looper preset: %w", err)
	}

	p := &Preset{Binds: looper.Unbound()}
	for _, k := range doc.Keybinds.Keys {
		name, ok := looper.BindByName(k.Name)
		if !ok {
			return nil, fmt.Errorf("not a valid looper preset: unknown key %q", k.Name)
		}
		if k.Channel < -1 || k.Channel > 16 || k.Control < -1 || k.Control > 128 {
			return nil, fmt.Errorf("not a valid looper preset: key %q out of range", k.Name)
		}
		p.Binds[name] = looper.KeyBind{Channel: k.Channel, Control: k.Control}
	}
	for _, in := range doc.Midi.Inputs {
		if in.Name == "" {
			return nil, fmt.Errorf("not a valid looper preset: unnamed input")
		}
		if in.Enabled == 1 {
			p.Inputs = append(p.Inputs, in.Name)
		}
	}
	return p, nil
}

// WritePreset serializes the preset. All six bindings are always written,
// unbound ones included; only enabled inputs are listed.
func WritePreset(w io.Writer, p *Preset) error {
	doc := presetDoc{}
	for name := looper.BindName(0); name < looper.NumBinds; name++ {
		b := p.Binds[name]
		doc.Keybinds.Keys = append(doc.Keybinds.Keys, keyEl{
			Name:    name.String(),
			Channel: b.Channel,
			Control: b.Control,
		})
	}
	for _, in := range p.Inputs {
		doc.Midi.Inputs = append(doc.Midi.Inputs, inputEl{Name: in, Enabled: 1})
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return enc.Close()
}

// LoadPreset reads a preset file from disk.
func LoadPreset(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPreset(f)
}

// SavePreset writes a preset file to disk.
func SavePreset(path string, p *Preset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePreset(f, p)
}
