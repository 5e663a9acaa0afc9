package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, used by dev auto-migration and tests.
func All() []any {
	return []any{
		&Account{},
		&AccountCard{},
		&Card{},
		&PackageDefinition{},
		&PackageInstance{},
		&Trade{},
		&CreditLedgerEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
