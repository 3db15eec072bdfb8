package looper

// KeyBind pairs a MIDI channel with a controller number. A value of -1 in
// either field means the binding is unset and will never match.
type KeyBind struct {
	Channel int16
	Control int16
}

func (b KeyBind) Bound() bool {
	return b.Channel >= 0 && b.Control >= 0
}

func (b KeyBind) Matches(ch, control uint8) bool {
	return b.Bound() && b.Channel == int16(ch) && b.Control == int16(control)
}

// BindName indexes the named button bindings. The declaration order is the
// match priority: if a user aliases two actions to the same channel/control
// pair, the lowest BindName always fires. First-match-wins is contractual.
type BindName int

const (
	BindPlay BindName = iota
	BindRecord
	BindMuteCurrent
	BindUnmuteAll
	BindSolo
	BindClearNotes
	NumBinds
)

var bindNames = [NumBinds]string{
	"play", "record", "muteCurrent", "unmuteAll", "solo", "clearNotes",
}

func (n BindName) String() string {
	if n < 0 || n >= NumBinds {
		return "invalid"
	}
	return bindNames[n]
}

// BindByName resolves a settings-document key name back to its BindName.
func BindByName(name string) (BindName, bool) {
	for i, s := range bindNames {
		if s == name {
			return BindName(i), true
		}
	}
	return 0, false
}

// KeyBinds is the button mapping table, indexed by BindName.
type KeyBinds [NumBinds]KeyBind

// Unbound returns a table with every binding unset.
func Unbound() KeyBinds {
	var kb KeyBinds
	for i := range kb {
		kb[i] = KeyBind{Channel: -1, Control: -1}
	}
	return kb
}

// Match finds the first binding matching the given channel and controller
// number, in priority order.
func (kb *KeyBinds) Match(ch, control uint8) (BindName, bool) {
	for i, b := range kb {
		if b.Matches(ch, control) {
			return BindName(i), true
		}
	}
	return 0, false
}
