// Package catalog holds the immutable product catalog and its embeddings.
package catalog

import "fmt"

// Product is a single catalog entry. Immutable for the process lifetime.
type Product struct {
	id          string
	title       string
	description string
	category    string
	brand       string
	price       float64
	currency    string
	imageURL    string
	productURL  string
	tags        string
}

// New creates a product. A negative price is clamped to zero; ingestion is
// responsible for defaulting missing optional fields to empty strings.
func New(
	id, title, description, category, brand string,
	price float64, currency, imageURL, productURL, tags string,
) Product {
	if price < 0 {
		price = 0
	}
	return Product{
		id: id, title: title, description: description,
		category: category, brand: brand, price: price,
		currency: currency, imageURL: imageURL, productURL: productURL,
		tags: tags,
	}
}

// ID returns the unique product identifier.
func (p *Product) ID() string { return p.id }

// Title returns the product title.
func (p *Product) Title() string { return p.title }

// Description returns the product description.
func (p *Product) Description() string { return p.description }

// Category returns the product category.
func (p *Product) Category() string { return p.category }

// Brand returns the product brand.
func (p *Product) Brand() string { return p.brand }

// Price returns the non-negative product price.
func (p *Product) Price() float64 { return p.price }

// Currency returns the price currency.
func (p *Product) Currency() string { return p.currency }

// ImageURL returns the product image URL.
func (p *Product) ImageURL() string { return p.imageURL }

// ProductURL returns the external product page URL.
func (p *Product) ProductURL() string { return p.productURL }

// Tags returns the free-text tag string.
func (p *Product) Tags() string { return p.tags }

// CorpusText composes the canonical embedding corpus string for a product.
// Field order is fixed: the composition is an implicit input of the
// embedding cache key, so it must stay deterministic.
func (p *Product) CorpusText() string {
	return fmt.Sprintf("%s | %s | category: %s | brand: %s | tags: %s",
		p.title, p.description, p.category, p.brand, p.tags)
}
