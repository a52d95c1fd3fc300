package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Supplier{},
		&Product{},
		&StockMovement{},
		&Order{},
		&OrderItem{},
		&SupplierPayout{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
