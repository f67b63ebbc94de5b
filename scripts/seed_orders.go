package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Seeds sample orders into the PostgreSQL document store so the
// confirmation endpoint can be tried locally:
//
//	curl -H 'X-Device-ID: demo' 'localhost:8080/api/orders/confirmation?id=SAMPLE-1001'
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, zerolog.Nop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := remote.NewPostgresStore(pool, zerolog.Nop())
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	for _, order := range sampleOrders() {
		doc, err := orderDocument(order)
		if err != nil {
			log.Fatalf("Failed to encode %s: %v", order.ID, err)
		}
		if err := store.Set(ctx, remote.CollectionOrders, order.ID, doc); err != nil {
			log.Fatalf("Failed to store %s: %v", order.ID, err)
		}
		fmt.Printf("Stored order %s (%s, total %s)\n", order.ID, order.Status, order.Amounts.Total)
	}

	fmt.Println("\nSample orders created successfully!")
}

func sampleOrders() []model.Order {
	lamp := model.LineItem{ID: 3, Name: "Brass Lamp", Price: decimal.NewFromInt(1250), Quantity: 1}
	mug := model.LineItem{ID: 7, Name: "Stoneware Mug", Price: decimal.RequireFromString("249.50"), Quantity: 4}

	return []model.Order{
		{
			ID:       "SAMPLE-1001",
			Customer: model.Customer{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210"},
			ShippingAddress: model.ShippingAddress{
				Address: "14 Lake Road", City: "Pune", State: "Maharashtra", PostalCode: "411001",
			},
			Items:     []model.LineItem{lamp, mug},
			Amounts:   amounts(lamp, mug),
			Payment:   model.Payment{Method: "cashfree", Status: "paid"},
			Status:    "confirmed",
			CreatedAt: time.Now().UTC(),
		},
		{
			ID:        "SAMPLE-1002",
			Customer:  model.Customer{FirstName: "Ravi", LastName: "Iyer", Email: "ravi@example.com"},
			Items:     []model.LineItem{mug},
			Amounts:   amounts(mug),
			Payment:   model.Payment{Method: "cod", Status: "pending"},
			Status:    model.OrderStatusPending,
			CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		},
	}
}

func amounts(items ...model.LineItem) model.Amounts {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return model.Amounts{Subtotal: subtotal, Shipping: decimal.Zero, Tax: decimal.Zero, Total: subtotal}
}

func orderDocument(order model.Order) (remote.Document, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
