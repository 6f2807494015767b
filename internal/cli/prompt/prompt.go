// Package prompt provides interactive confirmation for destructive CLI
// commands.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

// Confirm asks a yes/no question and returns the answer. "n" and empty
// input both decline.
func Confirm(label string) (bool, error) {
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, nil
	}
	return true, nil
}

// ConfirmWithForce skips the prompt when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label)
}
