package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

func TestApplyCardDelta(t *testing.T) {
	card := uuid.New()
	h := NewHoldings(uuid.New(), decimal.Zero, nil, 0)

	require.NoError(t, h.ApplyCardDelta(card, 2))
	require.Equal(t, 2, h.Quantity(card))
	require.True(t, h.Owns(card))

	require.NoError(t, h.ApplyCardDelta(card, -2))
	_, present := h.Inventory[card]
	require.False(t, present, "zero-quantity entries are removed")
	require.False(t, h.Owns(card))
	require.True(t, h.Dirty())
}

func TestApplyCardDeltaRejectsNegativeResult(t *testing.T) {
	card := uuid.New()
	h := NewHoldings(uuid.New(), decimal.Zero, map[uuid.UUID]int{card: 1}, 3)

	err := h.ApplyCardDelta(card, -2)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientQuantity, pkgerrors.CodeOf(err))
	require.Equal(t, 1, h.Quantity(card))
	require.False(t, h.Dirty())

	err = h.ApplyCardDelta(uuid.New(), -1)
	require.Equal(t, pkgerrors.CodeInsufficientQuantity, pkgerrors.CodeOf(err))
	require.Len(t, h.Inventory, 1)
}

func TestApplyCreditDelta(t *testing.T) {
	ref := uuid.New()
	h := NewHoldings(uuid.New(), decimal.NewFromInt(100), nil, 0)

	require.NoError(t, h.ApplyCreditDelta(decimal.NewFromInt(-10), enums.CreditEventTradeEscrow, ref))
	require.True(t, h.Balance.Equal(decimal.NewFromInt(90)))

	entries := h.entries()
	require.Len(t, entries, 1)
	require.Equal(t, enums.CreditEventTradeEscrow, entries[0].Type)
	require.True(t, entries[0].BalanceAfter.Equal(decimal.NewFromInt(90)))
	require.Equal(t, ref, *entries[0].ReferenceID)
}

func TestApplyCreditDeltaZeroFloor(t *testing.T) {
	h := NewHoldings(uuid.New(), decimal.NewFromInt(10), nil, 0)

	err := h.ApplyCreditDelta(decimal.NewFromInt(-15), enums.CreditEventPackPurchase, uuid.Nil)
	require.Equal(t, pkgerrors.CodeInsufficientCredits, pkgerrors.CodeOf(err))
	require.True(t, h.Balance.Equal(decimal.NewFromInt(10)))
	require.Empty(t, h.entries())

	require.NoError(t, h.ApplyCreditDelta(decimal.NewFromInt(-10), enums.CreditEventPackPurchase, uuid.Nil))
	require.True(t, h.Balance.IsZero())
}

func TestApplyCreditDeltaZeroIsNoop(t *testing.T) {
	h := NewHoldings(uuid.New(), decimal.NewFromInt(10), nil, 0)
	require.NoError(t, h.ApplyCreditDelta(decimal.Zero, enums.CreditEventTopUp, uuid.Nil))
	require.False(t, h.Dirty())
}

func TestNewHoldingsDropsNonPositiveEntries(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	h := NewHoldings(uuid.New(), decimal.Zero, map[uuid.UUID]int{a: 0, b: 3}, 0)
	require.Len(t, h.Inventory, 1)
	require.Equal(t, 3, h.TotalCards())
}
