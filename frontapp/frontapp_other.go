//go:build !darwin

package frontapp

import "errors"

var errUnsupported = errors.New("frontapp: not supported on this platform")

func frontmost() (App, bool) { return App{}, false }

func activate(App) error { return errUnsupported }

func synthesizePaste() error { return errUnsupported }
