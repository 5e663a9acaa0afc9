package registry

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/herovault-backend/pkg/outbox/payloads"
)

// Routing is the per-message delivery metadata derived from a decoded payload.
// Messages sharing an OrderingKey reach subscribers in publish order.
type Routing struct {
	OrderingKey string
	Attributes  map[string]string
}

// Routing keys balance-changing events by account so a consumer replaying one
// account's credit history sees them in commit order. Trade lifecycle events
// are keyed by trade and retirements by definition.
func (r *ResolvedEvent) Routing() Routing {
	attrs := map[string]string{}
	set := func(key string, id uuid.UUID) {
		if id != uuid.Nil {
			attrs[key] = id.String()
		}
	}

	var key string
	switch p := r.Payload.(type) {
	case *payloads.PackagePurchasedEvent:
		set("account_id", p.AccountID)
		set("definition_id", p.DefinitionID)
		key = accountKey(p.AccountID)
	case *payloads.PackageOpenedEvent:
		set("account_id", p.AccountID)
		set("definition_id", p.DefinitionID)
		attrs["forced"] = strconv.FormatBool(p.Forced)
		key = accountKey(p.AccountID)
	case *payloads.CreditsPurchasedEvent:
		set("account_id", p.AccountID)
		key = accountKey(p.AccountID)
	case *payloads.CardSoldEvent:
		set("account_id", p.AccountID)
		set("card_id", p.CardID)
		if p.Rarity != "" {
			attrs["rarity"] = p.Rarity
		}
		key = accountKey(p.AccountID)
	case *payloads.TradeProposedEvent:
		set("trade_id", p.TradeID)
		set("proposer_id", p.ProposerID)
		key = tradeKey(p.TradeID)
	case *payloads.TradeAcceptedEvent:
		set("trade_id", p.TradeID)
		set("proposer_id", p.ProposerID)
		set("acceptor_id", p.AcceptorID)
		key = tradeKey(p.TradeID)
	case *payloads.TradeWithdrawnEvent:
		set("trade_id", p.TradeID)
		set("proposer_id", p.ProposerID)
		key = tradeKey(p.TradeID)
	case *payloads.DefinitionRetiredEvent:
		set("definition_id", p.DefinitionID)
		if p.DefinitionID != uuid.Nil {
			key = "definition:" + p.DefinitionID.String()
		}
	}
	return Routing{OrderingKey: key, Attributes: attrs}
}

func accountKey(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return "account:" + id.String()
}

func tradeKey(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return "trade:" + id.String()
}
