package trades

import (
	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

type tradeEvent string

const (
	eventAccept   tradeEvent = "accept"
	eventWithdraw tradeEvent = "withdraw"
)

// transition returns the status a trade moves to on event. Terminal states
// reject every event with ALREADY_FINALIZED.
func transition(from enums.TradeStatus, event tradeEvent) (enums.TradeStatus, error) {
	if from.IsTerminal() {
		return from, pkgerrors.New(pkgerrors.CodeAlreadyFinalized, "trade already finalized").
			WithDetails(map[string]any{"status": from})
	}
	if from != enums.TradeStatusPending {
		return from, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown trade status")
	}
	switch event {
	case eventAccept:
		return enums.TradeStatusAccepted, nil
	case eventWithdraw:
		return enums.TradeStatusWithdrawn, nil
	default:
		return from, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown trade event")
	}
}
