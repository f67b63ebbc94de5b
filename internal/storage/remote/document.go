package remote

import (
	"encoding/json"
	"fmt"

	"storefront/internal/model"
)

// Document is a stored document as a set of top-level JSON fields.
type Document map[string]json.RawMessage

// merge copies fields into d, replacing existing top-level fields.
func (d Document) merge(fields Document) Document {
	if d == nil {
		d = make(Document, len(fields))
	}
	for k, v := range fields {
		d[k] = v
	}
	return d
}

// ItemsDocument builds the partial document that stores a collection.
func ItemsDocument(items []model.Item) (Document, error) {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return Document{"items": data}, nil
}

// DecodeItems extracts the items field of a cart or wishlist document. A
// document without items decodes to an empty collection.
func DecodeItems(doc Document) ([]model.Item, error) {
	raw, ok := doc["items"]
	if !ok || string(raw) == "null" {
		return []model.Item{}, nil
	}

	var items []model.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: items: %v", ErrInvalidDocument, err)
	}
	for i, item := range items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("%w: item %d has no id", ErrInvalidDocument, i)
		}
	}
	return items, nil
}

// DecodeOrder converts an orders document into a typed order. The document
// key is authoritative for the order id.
func DecodeOrder(key string, doc Document) (*model.Order, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var order model.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidDocument, key, err)
	}
	order.ID = key

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidDocument, key, err)
	}
	return &order, nil
}
