package domain

import (
	"fmt"
	"math"
)

// normEpsilon guards renormalization against a near-zero norm.
const normEpsilon = 1e-12

// Dot computes the inner product of two equal-length vectors.
// For unit-norm vectors this equals cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm computes the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-norm copy of v. A near-zero vector is returned
// unchanged rather than blown up by division.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n < normEpsilon {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Fuse blends an image vector and a text vector into a single query:
// alpha*img + (1-alpha)*txt, renormalized to unit length.
func Fuse(img, txt []float32, alpha float64) ([]float32, error) {
	if len(img) != len(txt) {
		return nil, fmt.Errorf("fuse vectors of dims %d and %d: %w", len(img), len(txt), ErrVectorDimMismatch)
	}
	out := make([]float32, len(img))
	for i := range img {
		out[i] = float32(alpha*float64(img[i]) + (1-alpha)*float64(txt[i]))
	}
	return Normalize(out), nil
}
