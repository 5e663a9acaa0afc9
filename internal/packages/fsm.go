package packages

import (
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

type instanceEvent string

const (
	eventOpen      instanceEvent = "open"
	eventForceOpen instanceEvent = "force_open"
)

// transition is the only way an instance leaves the unopened state. Opened
// is terminal for every event.
func transition(opened bool, event instanceEvent) (bool, error) {
	if opened {
		return true, pkgerrors.New(pkgerrors.CodeAlreadyOpened, "package already opened")
	}
	switch event {
	case eventOpen, eventForceOpen:
		return true, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown package event").
			WithDetails(map[string]any{"event": string(event)})
	}
}
