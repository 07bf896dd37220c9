package workbench

import "strings"

// KeyAction is the workbench intent behind a keyboard event.
type KeyAction int

const (
	KeyActionNone KeyAction = iota
	// KeyActionLabel selects the Nth label of the task's label set.
	KeyActionLabel
	KeyActionSubmit
	KeyActionPlayPause
	KeyActionEscape
)

// KeyIntent is a decoded keyboard event. LabelIndex is zero-based and only
// meaningful for KeyActionLabel.
type KeyIntent struct {
	Action     KeyAction
	LabelIndex int
}

// labelKeyRow is the keyboard's top row in display order. Each key addresses
// the label at the same position in the task's label set, so label sets
// longer than nine entries stay reachable past the digits.
const labelKeyRow = "1234567890-="

// DecodeKey maps a DOM KeyboardEvent.key value to a workbench intent.
func DecodeKey(key string) KeyIntent {
	switch key {
	case "Enter":
		return KeyIntent{Action: KeyActionSubmit}
	case " ", "Space":
		return KeyIntent{Action: KeyActionPlayPause}
	case "Escape":
		return KeyIntent{Action: KeyActionEscape}
	}
	if len(key) == 1 {
		if idx := strings.IndexByte(labelKeyRow, key[0]); idx >= 0 {
			return KeyIntent{Action: KeyActionLabel, LabelIndex: idx}
		}
	}
	return KeyIntent{Action: KeyActionNone}
}
