package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

// Holdings is an account's balance and inventory loaded for one unit of work.
// ApplyCardDelta and ApplyCreditDelta are the only ways to change them; Store.Save
// persists exactly what they journaled.
type Holdings struct {
	AccountID uuid.UUID
	Role      enums.AccountRole
	Balance   decimal.Decimal
	Inventory map[uuid.UUID]int
	Version   int64

	touchedCards  map[uuid.UUID]struct{}
	creditEntries []CreditEntry
}

// CreditEntry is a journaled balance change awaiting persistence.
type CreditEntry struct {
	Type         enums.CreditEventType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	ReferenceID  *uuid.UUID
}

func NewHoldings(accountID uuid.UUID, balance decimal.Decimal, inventory map[uuid.UUID]int, version int64) *Holdings {
	inv := make(map[uuid.UUID]int, len(inventory))
	for cardID, qty := range inventory {
		if qty > 0 {
			inv[cardID] = qty
		}
	}
	return &Holdings{
		AccountID:    accountID,
		Balance:      balance,
		Inventory:    inv,
		Version:      version,
		touchedCards: map[uuid.UUID]struct{}{},
	}
}

func (h *Holdings) Quantity(cardID uuid.UUID) int {
	return h.Inventory[cardID]
}

func (h *Holdings) Owns(cardID uuid.UUID) bool {
	return h.Inventory[cardID] > 0
}

// TotalCards is the sum of all quantities.
func (h *Holdings) TotalCards() int {
	total := 0
	for _, qty := range h.Inventory {
		total += qty
	}
	return total
}

// ApplyCardDelta adds delta to the card's quantity. Entries reaching zero are
// removed; a negative result fails with INSUFFICIENT_QUANTITY and changes nothing.
func (h *Holdings) ApplyCardDelta(cardID uuid.UUID, delta int) error {
	if cardID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "card id is required")
	}
	if delta == 0 {
		return nil
	}

	current := h.Inventory[cardID]
	next := current + delta
	if next < 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "not enough copies of card").
			WithDetails(map[string]any{"card_id": cardID, "quantity": current, "delta": delta})
	}

	if next == 0 {
		delete(h.Inventory, cardID)
	} else {
		h.Inventory[cardID] = next
	}
	h.touchedCards[cardID] = struct{}{}
	return nil
}

// ApplyCreditDelta adds amount to the balance and journals it under reason.
// A negative result fails with INSUFFICIENT_CREDITS and changes nothing.
func (h *Holdings) ApplyCreditDelta(amount decimal.Decimal, reason enums.CreditEventType, ref uuid.UUID) error {
	if !reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid credit event type")
	}
	if amount.IsZero() {
		return nil
	}

	next := h.Balance.Add(amount)
	if next.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
			WithDetails(map[string]any{"balance": h.Balance.StringFixed(2), "required": amount.Neg().StringFixed(2)})
	}

	h.Balance = next
	entry := CreditEntry{Type: reason, Amount: amount, BalanceAfter: next}
	if ref != uuid.Nil {
		refCopy := ref
		entry.ReferenceID = &refCopy
	}
	h.creditEntries = append(h.creditEntries, entry)
	return nil
}

// Dirty reports whether anything was applied since load or the last save.
func (h *Holdings) Dirty() bool {
	return len(h.touchedCards) > 0 || len(h.creditEntries) > 0
}

// entries returns the journaled credit changes.
func (h *Holdings) entries() []CreditEntry {
	return append([]CreditEntry(nil), h.creditEntries...)
}

func (h *Holdings) resetJournal() {
	h.touchedCards = map[uuid.UUID]struct{}{}
	h.creditEntries = nil
}
