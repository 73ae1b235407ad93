package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the caller left the key empty. Postgres
// also defaults ids with gen_random_uuid(); sqlite relies on this hook.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model. Used by sqlite-backed tests and local dev.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&CartItem{},
		&DeliveryPartner{},
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
	}
}
