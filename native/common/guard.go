package common

import "fmt"

// ErrModulePaused is returned by Guard for a paused engine module. It wraps
// ErrNotActive so callers can match either.
var ErrModulePaused = fmt.Errorf("module paused: %w", ErrNotActive)

// PauseView reports whether an engine module is paused by an operator.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects an operation of module when p reports it paused. A nil view
// or an unnamed module is never paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}
