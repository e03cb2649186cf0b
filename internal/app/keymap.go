package app

// Key binding constants used in handleKey and the form.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyH         = "h"
	KeyJ         = "j"
	KeyK         = "k"
	KeyL         = "l"
	KeyEnter     = "enter"
	KeyNew       = "n"
	KeyEdit      = "e"
	KeyDelete    = "d"
	KeyDeleteAlt = "x"
	KeyTab       = "tab"
	KeyShiftTab  = "shift+tab"
	KeyEsc       = "esc"
	KeyBackspace = "backspace"
	KeyCtrlS     = "ctrl+s"
)
