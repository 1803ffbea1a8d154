package httpapi

import (
	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
	"github.com/brightbasket/reko/internal/usecase/recommend"
)

// SearchRequest is the POST /v1/search body. query and image_base64 can be
// combined for a fused multimodal query.
type SearchRequest struct {
	Query       string         `json:"query,omitempty"`
	ImageBase64 string         `json:"image_base64,omitempty"`
	TopK        int            `json:"top_k,omitempty"`
	Constraints *ConstraintDTO `json:"constraints,omitempty"`
}

// ConstraintDTO mirrors the caller-facing filter shape.
type ConstraintDTO struct {
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	TagsContains string   `json:"tags_contains,omitempty"`
	PriceMin     *float64 `json:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty"`
}

func (c *ConstraintDTO) toSpec() constraint.Spec {
	if c == nil {
		return constraint.New("", "", "", nil, nil)
	}
	return constraint.New(c.Brand, c.Category, c.TagsContains, c.PriceMin, c.PriceMax)
}

// ItemDTO is one recommended product with its final score.
type ItemDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	ProductURL  string  `json:"product_url,omitempty"`
	Tags        string  `json:"tags,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResponse is the POST /v1/search and GET /v1/similar/{id} reply.
type SearchResponse struct {
	Items       []ItemDTO        `json:"items"`
	Diagnostics rank.Diagnostics `json:"diagnostics"`
}

// ProductDTO is the GET /v1/products/{id} reply.
type ProductDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	ProductURL  string  `json:"product_url,omitempty"`
	Tags        string  `json:"tags,omitempty"`
}

// MetaResponse describes the loaded catalog.
type MetaResponse struct {
	Count      int      `json:"count"`
	Dims       int      `json:"dims"`
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	PriceMin   float64  `json:"price_min"`
	PriceMax   float64  `json:"price_max"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeEmptyQuery        = "empty_query"
	CodeInvalidImage      = "invalid_image"
	CodeProductNotFound   = "product_not_found"
	CodeVectorDimMismatch = "vector_dim_mismatch"
	CodeEncoderError      = "encoder_error"
	CodeInternalError     = "internal_error"
)

func productDTO(p *catalog.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID(),
		Title:       p.Title(),
		Description: p.Description(),
		Category:    p.Category(),
		Brand:       p.Brand(),
		Price:       p.Price(),
		Currency:    p.Currency(),
		ImageURL:    p.ImageURL(),
		ProductURL:  p.ProductURL(),
		Tags:        p.Tags(),
	}
}

func itemDTOs(snap *catalog.Snapshot, items []recommend.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		idx, ok := snap.IndexOf(it.ID)
		if !ok {
			continue
		}
		p := snap.Product(idx)
		out = append(out, ItemDTO{
			ID:          p.ID(),
			Title:       p.Title(),
			Description: p.Description(),
			Category:    p.Category(),
			Brand:       p.Brand(),
			Price:       p.Price(),
			Currency:    p.Currency(),
			ImageURL:    p.ImageURL(),
			ProductURL:  p.ProductURL(),
			Tags:        p.Tags(),
			Score:       it.Score,
		})
	}
	return out
}
