// Package recommend orchestrates a recommendation query through raw
// similarity search, diversity re-ranking, attribute boosting, constraint
// relaxation, and the keyword fallback.
package recommend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
	"github.com/brightbasket/reko/internal/metrics"
	"github.com/brightbasket/reko/internal/usecase/boost"
	"github.com/brightbasket/reko/internal/usecase/fallback"
	"github.com/brightbasket/reko/internal/usecase/index"
	"github.com/brightbasket/reko/internal/usecase/relax"
	"github.com/brightbasket/reko/internal/usecase/rerank"
)

// Result-size and window policy.
const (
	MinTopK      = 2
	MaxTopK      = 24
	DefaultTopK  = 8
	DefaultAlpha = 0.6

	textWindowFloor  = 100
	imageWindowFloor = 50

	// inferMargin is the minimum confidence gap between the best and
	// second-best category prompt for image category inference.
	inferMargin = 0.02
)

// Item is one recommended product.
type Item struct {
	ID    string
	Score float64
}

// Result is an ordered recommendation list with its diagnostics.
type Result struct {
	Items       []Item
	Diagnostics rank.Diagnostics
}

// Service answers recommendation queries against the published snapshot.
type Service struct {
	snaps     SnapshotSource
	text      TextEncoder
	image     ImageEncoder
	logger    *zap.Logger
	diversity float64
	alpha     float64
	minUnique int

	// Category prompt embeddings for image category inference, computed
	// lazily per snapshot.
	catMu     sync.Mutex
	catSnap   *catalog.Snapshot
	catLabels []string
	catVecs   [][]float32
}

// New creates a recommendation service. image may be nil when no image
// encoder is configured; image queries then fail with ErrEncoderError.
func New(snaps SnapshotSource, text TextEncoder, image ImageEncoder, logger *zap.Logger) *Service {
	return &Service{
		snaps:     snaps,
		text:      text,
		image:     image,
		logger:    logger,
		diversity: rerank.DefaultDiversity,
		alpha:     DefaultAlpha,
		minUnique: relax.DefaultMinUnique,
	}
}

// WithTuning overrides the diversity weight, fusion alpha, and minimum
// unique result count. Zero values keep the defaults.
func (s *Service) WithTuning(diversity, alpha float64, minUnique int) *Service {
	if diversity > 0 {
		s.diversity = diversity
	}
	if alpha > 0 {
		s.alpha = alpha
	}
	if minUnique > 0 {
		s.minUnique = minUnique
	}
	return s
}

// SearchVector runs a recommendation query for a caller-provided unit-norm
// query vector.
func (s *Service) SearchVector(
	ctx context.Context, query []float32, spec constraint.Spec, topK int,
) (Result, error) {
	defer s.observe("vector", time.Now())
	snap := s.snaps.Current()
	return s.run(snap, query, spec, topK, windowFor(topK, textWindowFloor), "")
}

// SearchText encodes the query text and runs a recommendation query. When
// the staged pipeline yields nothing, the keyword fallback answers.
func (s *Service) SearchText(
	ctx context.Context, text string, spec constraint.Spec, topK int,
) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	defer s.observe("text", time.Now())

	snap := s.snaps.Current()
	q, err := s.encodeText(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return s.run(snap, q, spec, topK, windowFor(topK, textWindowFloor), text)
}

// SearchImage encodes the query image and runs a recommendation query.
// When the caller set no category constraint, one is inferred from the
// image and enforced, surfaced via Diagnostics.CategoryInferred.
func (s *Service) SearchImage(
	ctx context.Context, image []byte, spec constraint.Spec, topK int,
) (Result, error) {
	defer s.observe("image", time.Now())

	snap := s.snaps.Current()
	q, err := s.encodeImage(ctx, image)
	if err != nil {
		return Result{}, err
	}

	var inferred string
	if spec.Category() == "" {
		if inferred = s.inferCategory(ctx, snap, q); inferred != "" {
			spec = spec.WithCategory(inferred)
		}
	}

	res, err := s.run(snap, q, spec, topK, windowFor(topK, imageWindowFloor), "")
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics.CategoryInferred = inferred
	return res, nil
}

// SearchImageAndText fuses the image and text embeddings (image-weighted by
// alpha) and runs a recommendation query.
func (s *Service) SearchImageAndText(
	ctx context.Context, image []byte, text string, spec constraint.Spec, topK int,
) (Result, error) {
	defer s.observe("image_text", time.Now())

	snap := s.snaps.Current()
	qImg, err := s.encodeImage(ctx, image)
	if err != nil {
		return Result{}, err
	}
	qTxt, err := s.encodeText(ctx, text)
	if err != nil {
		return Result{}, err
	}

	q, err := domain.Fuse(qImg, qTxt, s.alpha)
	if err != nil {
		return Result{}, err
	}

	var inferred string
	if spec.Category() == "" {
		if inferred = s.inferCategory(ctx, snap, qImg); inferred != "" {
			spec = spec.WithCategory(inferred)
		}
	}

	res, err := s.run(snap, q, spec, topK, windowFor(topK, imageWindowFloor), text)
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics.CategoryInferred = inferred
	return res, nil
}

// SimilarToID recommends items similar to an existing catalog entry, using
// the entry's own stored embedding as the query and excluding the entry
// itself. No constraints apply.
func (s *Service) SimilarToID(ctx context.Context, id string, topK int) (Result, error) {
	defer s.observe("similar", time.Now())

	snap := s.snaps.Current()
	self, ok := snap.IndexOf(id)
	if !ok {
		return Result{}, fmt.Errorf("similar to %q: %w", id, domain.ErrProductNotFound)
	}

	topK = clampTopK(topK)
	q := snap.Vector(self)

	cands, err := index.Search(snap, q, windowFor(topK+1, 20))
	if err != nil {
		return Result{}, err
	}
	cands = rank.Dedupe(cands)

	// Exclude self before truncation to the requested size.
	filtered := cands[:0]
	for _, c := range cands {
		if c.Index() != self {
			filtered = append(filtered, c)
		}
	}
	cands = filtered

	picked := rerank.Select(snap, cands, topK, s.diversity)
	empty := constraint.New("", "", "", nil, nil)
	boosted := boost.Apply(snap, q, picked, &empty)

	return Result{Items: itemsOf(snap, boosted)}, nil
}

// run is the shared query pipeline: raw search over a wide fetch window,
// dedupe, MMR, boost, staged relaxation, and (for text-driven queries)
// keyword fallback on true emptiness.
func (s *Service) run(
	snap *catalog.Snapshot, query []float32,
	spec constraint.Spec, topK, window int, queryText string,
) (Result, error) {
	topK = clampTopK(topK)

	cands, err := index.Search(snap, query, max(window*5, 20))
	if err != nil {
		return Result{}, err
	}
	cands = rank.Dedupe(cands)

	picked := rerank.Select(snap, cands, window, s.diversity)
	boosted := boost.Apply(snap, query, picked, &spec)

	chosen, diag := relax.Run(snap, boosted, &spec, topK, s.minUnique)

	scoreOf := make(map[int]float64, len(boosted))
	for _, c := range boosted {
		scoreOf[c.Index()] = c.Score()
	}

	if len(chosen) == 0 && queryText != "" {
		if fb := fallback.Score(snap, queryText, &spec, topK); len(fb) > 0 {
			diag.UsedFallback = true
			metrics.FallbackTotal.Inc()
			chosen = chosen[:0]
			for _, c := range fb {
				chosen = append(chosen, c.Index())
				scoreOf[c.Index()] = c.Score()
			}
		}
	}

	// Safety pass over the never-relaxed dimensions. Staged results
	// satisfy them by construction; this catches full-catalog fallback
	// answers that mention no brand. The override path is exempt: its
	// whole point is to violate filters, visibly.
	if !diag.MinUniqueOverride {
		kept := chosen[:0]
		for _, idx := range chosen {
			p := snap.Product(idx)
			if spec.PriceBrandOK(p) && spec.MatchesCategory(p) {
				kept = append(kept, idx)
			} else {
				diag.Pruned++
			}
		}
		chosen = kept
	}

	s.countStages(diag)

	items := make([]Item, len(chosen))
	for i, idx := range chosen {
		items[i] = Item{ID: snap.Product(idx).ID(), Score: scoreOf[idx]}
	}
	return Result{Items: items, Diagnostics: diag}, nil
}

func (s *Service) encodeText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.text.EncodeText(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("encode query text: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("encoder returned no vector: %w", domain.ErrEncoderError)
	}
	return domain.Normalize(vecs[0]), nil
}

func (s *Service) encodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if s.image == nil {
		return nil, fmt.Errorf("no image encoder configured: %w", domain.ErrEncoderError)
	}
	vec, err := s.image.EncodeImage(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("encode query image: %w", err)
	}
	return domain.Normalize(vec), nil
}

// inferCategory guesses a category for an image query by comparing the
// image embedding to "a photo of a <category>" prompts over the snapshot's
// distinct categories. Returns "" when uncertain or on encoder failure;
// inference is best-effort, never an error.
func (s *Service) inferCategory(ctx context.Context, snap *catalog.Snapshot, imgVec []float32) string {
	labels, vecs, err := s.categoryPrompts(ctx, snap)
	if err != nil {
		s.logger.Warn("Category inference unavailable", zap.Error(err))
		return ""
	}
	if len(labels) == 0 {
		return ""
	}

	best, second := -1, -1
	var bestSim, secondSim float64
	for i, v := range vecs {
		if len(v) != len(imgVec) {
			return ""
		}
		sim := domain.Dot(imgVec, v)
		switch {
		case best == -1 || sim > bestSim:
			second, secondSim = best, bestSim
			best, bestSim = i, sim
		case second == -1 || sim > secondSim:
			second, secondSim = i, sim
		}
	}
	if second != -1 && bestSim-secondSim < inferMargin {
		return ""
	}
	return labels[best]
}

func (s *Service) categoryPrompts(ctx context.Context, snap *catalog.Snapshot) ([]string, [][]float32, error) {
	s.catMu.Lock()
	defer s.catMu.Unlock()

	if s.catSnap == snap {
		return s.catLabels, s.catVecs, nil
	}

	labels := snap.Categories()
	if len(labels) == 0 {
		s.catSnap, s.catLabels, s.catVecs = snap, nil, nil
		return nil, nil, nil
	}

	prompts := make([]string, len(labels))
	for i, c := range labels {
		prompts[i] = "a photo of a " + c
	}
	vecs, err := s.text.EncodeText(ctx, prompts)
	if err != nil {
		return nil, nil, fmt.Errorf("encode category prompts: %w", err)
	}
	if len(vecs) != len(labels) {
		return nil, nil, fmt.Errorf("got %d prompt vectors for %d categories: %w",
			len(vecs), len(labels), domain.ErrEncoderError)
	}
	for i := range vecs {
		vecs[i] = domain.Normalize(vecs[i])
	}

	s.catSnap, s.catLabels, s.catVecs = snap, labels, vecs
	return labels, vecs, nil
}

func (s *Service) observe(mode string, start time.Time) {
	metrics.SearchesTotal.WithLabelValues(mode).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func (s *Service) countStages(diag rank.Diagnostics) {
	if diag.CategoryRelaxed {
		metrics.RelaxationStageTotal.WithLabelValues("category_relax").Inc()
	}
	if diag.AnyRelaxed {
		metrics.RelaxationStageTotal.WithLabelValues("any_relax").Inc()
	}
	if diag.MinUniqueOverride {
		metrics.RelaxationStageTotal.WithLabelValues("min_unique_override").Inc()
	}
}

func itemsOf(snap *catalog.Snapshot, cands []rank.Candidate) []Item {
	out := make([]Item, len(cands))
	for i, c := range cands {
		out[i] = Item{ID: snap.Product(c.Index()).ID(), Score: c.Score()}
	}
	return out
}

// clampTopK bounds the requested result count: at least MinTopK so relaxed
// queries stay useful, at most MaxTopK for latency.
func clampTopK(topK int) int {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return min(max(topK, MinTopK), MaxTopK)
}

// windowFor computes the wide fetch window for a requested result count.
func windowFor(topK, floor int) int {
	return max(topK*10, floor)
}
