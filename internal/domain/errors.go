package domain

import "errors"

var (
	// ErrProductNotFound signals an unknown product id.
	ErrProductNotFound = errors.New("product not found")
	// ErrVectorDimMismatch signals a query vector with the wrong dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyQuery signals a search request with no text, image, or vector.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidImage signals an undecodable or oversized image payload.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEncoderError signals an embedding provider failure.
	ErrEncoderError = errors.New("encoder provider error")
	// ErrCatalogMismatch signals catalog and embedding collections of unequal shape.
	ErrCatalogMismatch = errors.New("catalog and embeddings misaligned")
)
