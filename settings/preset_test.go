package settings

import (
	"bytes"
	"strings"
	"testing"

	"github.com/miditools/looper/looper"
)

func TestPresetRoundTrip(t *testing.T) {
	binds := looper.Unbound()
	binds[looper.BindPlay] = looper.KeyBind{Channel: 0, Control: 20}
	binds[looper.BindRecord] = looper.KeyBind{Channel: 0, Control: 21}
	binds[looper.BindClearNotes] = looper.KeyBind{Channel: 9, Control: 127}
	in := &Preset{
		Binds:  binds,
		Inputs: []string{"Arduino Micro MIDI 1", "nanoKONTROL2"},
	}

	var buf bytes.Buffer
	if err := WritePreset(&buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadPreset(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if out.Binds != in.Binds {
		t.Fatalf("binds changed:\n got %v\nwant %v", out.Binds, in.Binds)
	}
	if len(out.Inputs) != 2 || out.Inputs[0] != in.Inputs[0] || out.Inputs[1] != in.Inputs[1] {
		t.Fatalf("inputs changed: %v", out.Inputs)
	}
}

func TestPresetSchema(t *testing.T) {
	doc := `<looper>
  <keybinds>
    <key name="play" channel="0" control="20"></key>
    <key name="muteCurrent" channel="1" control="30"></key>
  </keybinds>
  <midi>
    <input name="pedalboard" enabled="1"></input>
    <input name="old device" enabled="0"></input>
  </midi>
</looper>`
	p, err := ReadPreset(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Binds[looper.BindPlay]; got != (looper.KeyBind{Channel: 0, Control: 20}) {
		t.Fatalf("play bind = %v", got)
	}
	if got := p.Binds[looper.BindMuteCurrent]; got != (looper.KeyBind{Channel: 1, Control: 30}) {
		t.Fatalf("muteCurrent bind = %v", got)
	}
	// keys absent from the document stay unbound
	if p.Binds[looper.BindSolo].Bound() {
		t.Fatal("solo should be unbound")
	}
	// disabled inputs are not loaded
	if len(p.Inputs) != 1 || p.Inputs[0] != "pedalboard" {
		t.Fatalf("inputs = %v, want only pedalboard", p.Inputs)
	}
}

func TestPresetRejectedWhole(t *testing.T) {
	cases := map[string]string{
		"truncated":   `<looper><keybinds><key name="play"`,
		"unknown key": `<looper><keybinds><key name="warp" channel="0" control="1"/></keybinds></looper>`,
		"bad range":   `<looper><keybinds><key name="play" channel="99" control="1"/></keybinds></looper>`,
		"no name":     `<looper><midi><input name="" enabled="1"/></midi></looper>`,
	}
	for label, doc := range cases {
		if _, err := ReadPreset(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: malformed preset accepted", label)
		}
	}
}

func TestPresetFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/looper.xml"
	p := &Preset{Binds: looper.Unbound(), Inputs: []string{"dev"}}
	if err := SavePreset(path, p); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Binds != p.Binds || len(got.Inputs) != 1 {
		t.Fatal("file round trip changed preset")
	}
}
