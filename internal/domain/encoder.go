package domain

import "context"

// TextEncoder vectorizes text into unit-norm embeddings.
// All vectors returned across calls must share one dimensionality.
type TextEncoder interface {
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEncoder vectorizes an image into a unit-norm embedding in the same
// space as the text encoder (CLIP-style shared space).
type ImageEncoder interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
}
