package dynamostore

import (
	"slices"
	"strings"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// Scans come back in hash order.

func sortDocuments(docs []*document.Document) {
	slices.SortFunc(docs, func(a, b *document.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.Number, b.Number)
	})
}

func sortItems(items []inventory.Item) {
	slices.SortFunc(items, func(a, b inventory.Item) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
