package product

import "time"

// Product is something the shop floor builds. Production logs are
// recorded against a product.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PartDefinition describes an installable part referenced by part
// nodes inside work instructions.
type PartDefinition struct {
	ID         string `json:"id"`
	PartNumber string `json:"part_number"`
	PartName   string `json:"part_name"`
}
