package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&ProductVariant{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&WishlistItem{},
		&Review{},
		&FAQ{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
