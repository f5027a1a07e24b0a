package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

// ProductEmbedder computes the ingredient vector used for similarity search.
// *EmbeddingService satisfies it.
type ProductEmbedder interface {
	IngredientEmbedding(ctx context.Context, ingredients string) ([]float32, error)
}

// ProductIndexer stores enriched products so later scans can find them as
// similar products. *pgvector.Store and *vectorindex.MemoryIndex satisfy it.
type ProductIndexer interface {
	Index(ctx context.Context, product *domain.Product) error
}

// HouseholdAnalyzer runs the per-profile analyses for one product.
// *FamilyOrchestrator satisfies it.
type HouseholdAnalyzer interface {
	AnalyzeForHousehold(ctx context.Context, product *domain.Product, primary *domain.UserProfile, members []domain.UserProfile) (*domain.HouseholdAnalysis, error)
}

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// ScanService is the single entry point: UPC and profiles in, verdicts out.
// It wraps the whole pipeline in the scan cache.
type ScanService struct {
	cache    domain.CacheRepository
	lookup   domain.ProductLookup
	embedder ProductEmbedder
	indexer  ProductIndexer
	analyzer HouseholdAnalyzer
	cacheTTL time.Duration
	now      func() time.Time
	tracer   trace.Tracer
	log      *logger.Logger
}

// NewScanService creates a scan service. embedder and indexer may be nil.
func NewScanService(
	cache domain.CacheRepository,
	lookup domain.ProductLookup,
	embedder ProductEmbedder,
	indexer ProductIndexer,
	analyzer HouseholdAnalyzer,
	config ScanServiceConfig,
	log *logger.Logger,
) *ScanService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ScanService{
		cache:    cache,
		lookup:   lookup,
		embedder: embedder,
		indexer:  indexer,
		analyzer: analyzer,
		cacheTTL: cacheTTL,
		now:      now,
		tracer:   otel.Tracer("github.com/smarties/backend/internal/usecase"),
		log:      log.With("service", "ScanService"),
	}
}

// ScanAndAnalyze looks up the product and analyzes it for every profile.
// Flow: validate -> cache -> lookup -> enrich -> analyze -> cache -> return.
// Only invalid requests and lookup failures are returned as errors.
func (s *ScanService) ScanAndAnalyze(ctx context.Context, request *domain.ScanRequest) (resp *domain.ScanResponse, err error) {
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "ScanService.ScanAndAnalyze")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Bool("scan.cache_hit", resp.CacheHit),
				attribute.String("scan.safety_level", string(resp.Analysis.SafetyLevel)),
			)
		}
		span.End()
	}()

	req, err := normalizeScanRequest(request)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("scan.upc", req.UPC),
		attribute.Int("scan.profiles", len(req.FamilyProfiles)+1),
	)

	profiles := make([]*domain.UserProfile, 0, len(req.FamilyProfiles)+1)
	profiles = append(profiles, req.UserProfile)
	for i := range req.FamilyProfiles {
		profiles = append(profiles, &req.FamilyProfiles[i])
	}
	key := ScanKey(req.UPC, profiles...)

	if cached, ok := s.getFromCache(ctx, key, req); ok {
		cached.CacheHit = true
		s.stamp(cached, start)
		s.log.Debug("scan cache hit", "upc", req.UPC)
		return cached, nil
	}

	product, err := s.lookup.Lookup(ctx, req.UPC)
	if err != nil {
		s.log.Warn("product lookup failed", "upc", req.UPC, "error", err)
		if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrProductLookupFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProductLookupFailed, err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	product = s.enrich(ctx, product)

	household, err := s.analyzer.AnalyzeForHousehold(ctx, product, req.UserProfile, req.FamilyProfiles)
	if err != nil {
		return nil, err
	}

	response := &domain.ScanResponse{
		Product:  product,
		Analysis: household.Primary,
	}
	if len(household.Members) > 0 {
		response.FamilyAnalysis = household.Members
	}

	if modelOnly(response) {
		s.setInCache(ctx, key, response)
	} else {
		s.log.Debug("scan not cached: fallback or degraded verdict", "upc", req.UPC)
	}
	s.stamp(response, start)
	return response, nil
}

// enrich computes the ingredient vector when the lookup did not supply one and
// indexes the result. Failure leaves the product without a vector; similar
// products are then skipped.
func (s *ScanService) enrich(ctx context.Context, product *domain.Product) *domain.Product {
	if s.embedder == nil || len(product.Embedding) > 0 || !product.HasIngredients() {
		return product
	}
	vec, err := s.embedder.IngredientEmbedding(ctx, strings.Join(product.Ingredients, ", "))
	if err != nil {
		s.log.Warn("ingredient embedding failed, continuing without similarity", "upc", product.UPC, "error", err)
		return product
	}
	enriched := *product
	enriched.Embedding = vec

	if s.indexer != nil {
		if err := s.indexer.Index(ctx, &enriched); err != nil {
			s.log.Warn("indexing product for similarity failed", "upc", product.UPC, "error", err)
		}
	}
	return &enriched
}

// getFromCache decodes a cached response. Member identities are taken from the
// current request because the key only covers restrictions.
func (s *ScanService) getFromCache(ctx context.Context, key string, req *domain.ScanRequest) (*domain.ScanResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.Warn("scan cache read failed", "error", err)
		}
		return nil, false
	}

	var cached domain.ScanResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("scan cache entry undecodable, ignoring", "error", err)
		return nil, false
	}
	for i := range cached.FamilyAnalysis {
		if i < len(req.FamilyProfiles) {
			cached.FamilyAnalysis[i].ProfileID = req.FamilyProfiles[i].ID
			cached.FamilyAnalysis[i].ProfileName = req.FamilyProfiles[i].Name
		}
	}
	return &cached, true
}

// setInCache stores the response. Write failures are logged and never fail the scan.
func (s *ScanService) setInCache(ctx context.Context, key string, response *domain.ScanResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("scan response not cacheable", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.log.Warn("scan cache write failed", "error", err)
	}
}

// modelOnly reports whether every verdict in the response came from a parsed
// model reply. Fallback and degraded verdicts are transient and never cached.
func modelOnly(response *domain.ScanResponse) bool {
	if response.Analysis.Source != domain.SourceModel {
		return false
	}
	for _, m := range response.FamilyAnalysis {
		if m.Analysis.Source != domain.SourceModel {
			return false
		}
	}
	return true
}

func (s *ScanService) stamp(response *domain.ScanResponse, start time.Time) {
	response.ResponseTime = s.now().Sub(start)
	response.ResponseTimeMs = response.ResponseTime.Milliseconds()
}

// normalizeScanRequest validates the request and returns a copy with restriction
// types and severities normalized. The caller's request is not modified.
func normalizeScanRequest(request *domain.ScanRequest) (*domain.ScanRequest, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	upc := strings.TrimSpace(request.UPC)
	if upc == "" {
		return nil, fmt.Errorf("%w: upc is required", domain.ErrInvalidRequest)
	}
	if request.UserProfile == nil {
		return nil, fmt.Errorf("%w: userProfile is required", domain.ErrInvalidRequest)
	}

	primary, err := normalizeProfile(*request.UserProfile)
	if err != nil {
		return nil, err
	}
	family := make([]domain.UserProfile, 0, len(request.FamilyProfiles))
	for _, p := range request.FamilyProfiles {
		np, err := normalizeProfile(p)
		if err != nil {
			return nil, err
		}
		family = append(family, np)
	}
	return &domain.ScanRequest{UPC: upc, UserProfile: &primary, FamilyProfiles: family}, nil
}

func normalizeProfile(p domain.UserProfile) (domain.UserProfile, error) {
	restrictions := make([]domain.DietaryRestriction, 0, len(p.Restrictions))
	for _, r := range p.Restrictions {
		r.Type = domain.RestrictionType(strings.ToLower(strings.TrimSpace(string(r.Type))))
		if !r.Type.Valid() {
			return domain.UserProfile{}, fmt.Errorf("%w: unknown restriction type %q", domain.ErrInvalidRequest, r.Type)
		}
		r.Name = strings.TrimSpace(r.Name)
		r.Severity = domain.ParseSeverity(string(r.Severity))
		restrictions = append(restrictions, r)
	}
	p.Restrictions = restrictions
	return p, nil
}
