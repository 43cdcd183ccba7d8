// Package frontapp tracks the frontmost application and synthesizes the
// paste keystroke used to insert transcribed text.
package frontapp

// App identifies a running application that can be reactivated later.
type App struct {
	PID  int32
	Name string
}

// Frontmost returns the currently active application. ok is false when
// none can be identified.
func Frontmost() (app App, ok bool) {
	return frontmost()
}

// Activate brings app to the foreground.
func Activate(app App) error {
	return activate(app)
}

// SynthesizePaste injects a Cmd+V keystroke into the system input stream.
func SynthesizePaste() error {
	return synthesizePaste()
}
