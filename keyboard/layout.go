// Package keyboard holds the key definitions used to turn typed text into
// key events.
package keyboard

// ModifierKey is a key modifier like ALT, CTRL, or Shift.
type ModifierKey int64

const (
	// ModifierKeyAlt is the ALT key modifier.
	ModifierKeyAlt ModifierKey = 1 << iota
	// ModifierKeyControl is the CTRL key modifier.
	ModifierKeyControl
	// ModifierKeyMeta is the meta key modifier.
	ModifierKeyMeta
	// ModifierKeyShift is the Shift key modifier.
	ModifierKeyShift
)

// Key is a keyboard key name.
type Key string

// Definition represents information about a keyboard key.
type Definition struct {
	Code         string
	Key          string
	KeyCode      int64
	ShiftKey     string
	ShiftKeyCode int64
	Text         string
	Location     int64
}

// Layout represents a keyboard layout.
// Like: US.
type Layout struct {
	Name string
	Keys map[Key]Definition
	// Runes maps the characters that must be typed as key presses, rather
	// than inserted as text, to their key.
	Runes map[rune]Key
}

// KeyDefinition returns true with the key definition of a given key input.
// It returns false and an empty key definition if it cannot find the key.
func (l Layout) KeyDefinition(key Key) (Definition, bool) {
	if d, ok := l.Keys[key]; ok {
		return d, true
	}
	for _, d := range l.Keys {
		if d.Key == string(key) {
			return d, true
		}
	}
	return Definition{}, false
}

// KeyForRune reports the key that types r, for runes that have no text
// form like Enter or the WebDriver key codes.
func (l Layout) KeyForRune(r rune) (Key, bool) {
	k, ok := l.Runes[r]
	return k, ok
}

// ModifiedKeyDefinition returns a key definition by applying a modifier key.
func (l Layout) ModifiedKeyDefinition(key Key, m ModifierKey) (Definition, bool) {
	src, ok := l.KeyDefinition(key)
	if !ok {
		return Definition{}, false
	}

	def := src
	if m&ModifierKeyShift != 0 && src.ShiftKey != "" {
		def.Key = src.ShiftKey
		def.Text = src.ShiftKey
		if src.ShiftKeyCode != 0 {
			def.KeyCode = src.ShiftKeyCode
		}
	}
	// If any modifiers besides shift are pressed, no text should be sent
	if m&^ModifierKeyShift != 0 {
		def.Text = ""
	}

	return def, true
}
