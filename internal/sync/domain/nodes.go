// Package domain defines the variant sync contracts: the GraphQL node
// shapes coming back from Shopify, the fetcher and reconciler seams, and
// the classified sync error.
package domain

import "strings"

// VariantNode is one ProductVariant node from a batched nodes(ids:) query.
// Unresolvable ids come back as null nodes; callers see those as zero-value
// structs and skip them.
type VariantNode struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	DisplayName   string     `json:"displayName"`
	Product       ProductRef `json:"product"`
	InventoryItem ItemNode   `json:"inventoryItem"`
}

type ProductRef struct {
	ID string `json:"id"`
}

// ItemNode is the variant's inventory item with its per-location levels.
type ItemNode struct {
	ID              string          `json:"id"`
	Tracked         bool            `json:"tracked"`
	InventoryLevels LevelConnection `json:"inventoryLevels"`
}

type LevelConnection struct {
	Edges []LevelEdge `json:"edges"`
}

type LevelEdge struct {
	Node LevelNode `json:"node"`
}

// LevelNode carries the quantities of one inventory item at one location.
type LevelNode struct {
	ID         string       `json:"id"`
	Location   LocationNode `json:"location"`
	Quantities []Quantity   `json:"quantities"`
}

type LocationNode struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type Quantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Available returns the "available" quantity of the level, zero when the
// name is absent from the response.
func (n LevelNode) Available() int {
	for _, q := range n.Quantities {
		if strings.EqualFold(q.Name, "available") {
			return q.Quantity
		}
	}
	return 0
}
