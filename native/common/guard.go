package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the named module is paused. A nil view
// or empty module name is treated as unpaused so optional wiring stays
// cheap for callers.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
