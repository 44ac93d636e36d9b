package catalog

import (
	"time"

	"github.com/hypershop/shopstream/internal/protocol"
)

// Product is a catalog row. The wire shape lives in the protocol package;
// this is the persisted shape.
type Product struct {
	ID          string  `gorm:"type:varchar(32);primaryKey" json:"product_id"`
	Name        string  `gorm:"type:varchar(128);not null;index" json:"product_name"`
	Description string  `gorm:"type:text" json:"description"`
	Category    string  `gorm:"type:varchar(64);index" json:"category"`
	Price       float64 `json:"price"`
	InStock     bool    `json:"in_stock"`
	ImageURL    string  `gorm:"type:varchar(256)" json:"image_url"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Product) TableName() string { return "products" }

// Wire converts a catalog row to its wire representation.
func (p Product) Wire(similarity float64) protocol.Product {
	return protocol.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Similarity:  similarity,
		Category:    p.Category,
		Price:       p.Price,
		InStock:     p.InStock,
		ImageURL:    p.ImageURL,
	}
}

// Merge enriches an extracted recommendation with catalog data. Extracted
// fields win when set; catalog data fills the gaps so the client can show
// price and imagery the assistant never mentioned.
func Merge(rec protocol.Product, row *Product) protocol.Product {
	if row == nil {
		return rec
	}
	if rec.Name == "" {
		rec.Name = row.Name
	}
	if rec.Description == "" {
		rec.Description = row.Description
	}
	if rec.Category == "" || rec.Category == "General" {
		rec.Category = row.Category
	}
	if rec.Price == 0 {
		rec.Price = row.Price
	}
	if rec.ImageURL == "" {
		rec.ImageURL = row.ImageURL
	}
	rec.InStock = row.InStock
	return rec
}
