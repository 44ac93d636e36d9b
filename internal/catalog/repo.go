package catalog

import (
	"context"
	"fmt"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Open opens (or creates) the catalog database and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.AutoMigrate(&Product{}); err != nil {
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return db, nil
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Search matches the query against product names and descriptions.
func (r *Repo) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"
	var products []Product
	err := r.db.WithContext(ctx).
		Where("name LIKE ? OR description LIKE ?", like, like).
		Order("name ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Upsert inserts or fully replaces a product by primary key.
func (r *Repo) Upsert(ctx context.Context, p *Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(p).Error
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Product{}).Count(&n).Error
	return n, err
}

// Seed loads the demo catalog when the table is empty. Idempotent.
func (r *Repo) Seed(ctx context.Context) error {
	n, err := r.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for i := range defaultProducts {
		if err := r.Upsert(ctx, &defaultProducts[i]); err != nil {
			return fmt.Errorf("seed %s: %w", defaultProducts[i].ID, err)
		}
	}
	return nil
}

var defaultProducts = []Product{
	{ID: "VIT001", Name: "Daily Multivitamin", Description: "Complete A-to-zinc formula for everyday nutritional coverage.", Category: "Vitamins", Price: 18.99, InStock: true},
	{ID: "PRO001", Name: "Whey Protein Isolate", Description: "25g protein per scoop for muscle recovery after training.", Category: "Sports Nutrition", Price: 39.99, InStock: true},
	{ID: "OMG001", Name: "Omega-3 Fish Oil", Description: "1000mg EPA and DHA softgels supporting heart and brain health.", Category: "Supplements", Price: 24.5, InStock: true},
	{ID: "SLP001", Name: "Melatonin 5mg", Description: "Fast-dissolve tablets for occasional sleeplessness.", Category: "Sleep", Price: 9.99, InStock: true},
	{ID: "PRB001", Name: "Probiotic 50 Billion CFU", Description: "Twelve-strain blend for digestive and immune support.", Category: "Digestive Health", Price: 29.99, InStock: true},
	{ID: "MAG001", Name: "Magnesium Glycinate", Description: "Highly absorbable magnesium for relaxation and muscle function.", Category: "Minerals", Price: 16.75, InStock: false},
}
