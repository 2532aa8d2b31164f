package keyboard

// WebDriver key codes from the Unicode private use area.
const (
	RuneBackspace  = '\uE003'
	RuneTab        = '\uE004'
	RuneReturn     = '\uE006'
	RuneEnter      = '\uE007'
	RuneEscape     = '\uE00C'
	RuneArrowLeft  = '\uE012'
	RuneArrowUp    = '\uE013'
	RuneArrowRight = '\uE014'
	RuneArrowDown  = '\uE015'
	RuneDelete     = '\uE017'
)

func init() { //nolint:gochecknoinits
	register("us", map[Key]Definition{
		"Backspace":  {Code: "Backspace", Key: "Backspace", KeyCode: 8},
		"Tab":        {Code: "Tab", Key: "Tab", KeyCode: 9},
		"Enter":      {Code: "Enter", Key: "Enter", KeyCode: 13, Text: "\r"},
		"Escape":     {Code: "Escape", Key: "Escape", KeyCode: 27},
		"ArrowLeft":  {Code: "ArrowLeft", Key: "ArrowLeft", KeyCode: 37},
		"ArrowUp":    {Code: "ArrowUp", Key: "ArrowUp", KeyCode: 38},
		"ArrowRight": {Code: "ArrowRight", Key: "ArrowRight", KeyCode: 39},
		"ArrowDown":  {Code: "ArrowDown", Key: "ArrowDown", KeyCode: 40},
		"Delete":     {Code: "Delete", Key: "Delete", KeyCode: 46},
		"NumpadEnter": {
			Code: "NumpadEnter", Key: "Enter", KeyCode: 13, Text: "\r", Location: 3,
		},
	}, map[rune]Key{
		'\n':           "Enter",
		'\r':           "Enter",
		'\t':           "Tab",
		'\b':           "Backspace",
		RuneBackspace:  "Backspace",
		RuneTab:        "Tab",
		RuneReturn:     "Enter",
		RuneEnter:      "NumpadEnter",
		RuneEscape:     "Escape",
		RuneArrowLeft:  "ArrowLeft",
		RuneArrowUp:    "ArrowUp",
		RuneArrowRight: "ArrowRight",
		RuneArrowDown:  "ArrowDown",
		RuneDelete:     "Delete",
	})
}
