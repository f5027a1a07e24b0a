package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smarties/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	gets     int
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return append([]byte(nil), value...), nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockProductLookup is a mock implementation of domain.ProductLookup
type MockProductLookup struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	err      error
	calls    int
}

func NewMockProductLookup(products ...*domain.Product) *MockProductLookup {
	m := &MockProductLookup{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.UPC] = p
	}
	return m
}

func (m *MockProductLookup) Lookup(ctx context.Context, upc string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[upc]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

// MockSimilaritySearch is a mock implementation of domain.SimilaritySearch
type MockSimilaritySearch struct {
	results   []domain.SimilarProduct
	err       error
	lastQuery domain.SimilarityQuery
	calls     int
}

func (m *MockSimilaritySearch) FindSimilar(ctx context.Context, vector []float32, query domain.SimilarityQuery) ([]domain.SimilarProduct, error) {
	m.calls++
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// MockProductIndexer records indexed products
type MockProductIndexer struct {
	mu      sync.Mutex
	indexed []domain.Product
	err     error
}

func (m *MockProductIndexer) Index(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.indexed = append(m.indexed, *product)
	return nil
}

// MockReasoningService answers prompts with a function so tests can vary the
// reply per profile.
type MockReasoningService struct {
	mu      sync.Mutex
	respond func(ctx context.Context, prompt domain.Prompt) (string, error)
	prompts []domain.Prompt
}

func NewMockReasoningService(reply string) *MockReasoningService {
	return &MockReasoningService{
		respond: func(context.Context, domain.Prompt) (string, error) { return reply, nil },
	}
}

func (m *MockReasoningService) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.respond(ctx, prompt)
}

func (m *MockReasoningService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// blockingReasoning waits for the context to end, like a backend that never answers.
func blockingReasoning(ctx context.Context, _ domain.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// MockEmbeddingProvider returns a deterministic vector per text.
type MockEmbeddingProvider struct {
	mu         sync.Mutex
	dimensions int
	err        error
	requests   [][]string
	override   func(texts []string) [][]float32
}

func NewMockEmbeddingProvider(dimensions int) *MockEmbeddingProvider {
	return &MockEmbeddingProvider{dimensions: dimensions}
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, append([]string(nil), texts...))
	if m.err != nil {
		return nil, m.err
	}
	if m.override != nil {
		return m.override(texts), nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dimensions)
		for j := range vec {
			vec[j] = float32(len(text)%7+j+1) / 10
		}
		out[i] = vec
	}
	return out, nil
}

func (m *MockEmbeddingProvider) Requests() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// Test fixtures

const peanutButterUPC = "123456789012"

func peanutButter() *domain.Product {
	return &domain.Product{
		UPC:          peanutButterUPC,
		Name:         "Creamy Peanut Butter",
		Brand:        "Acme",
		Category:     "spreads",
		Ingredients:  []string{"roasted peanuts", "sugar", "hydrogenated vegetable oil", "salt"},
		Allergens:    []string{"en:peanuts"},
		Traces:       []string{},
		HasNutrition: true,
	}
}

func peanutAllergyProfile(id string) *domain.UserProfile {
	return &domain.UserProfile{
		ID:   id,
		Name: "Profile " + id,
		Restrictions: []domain.DietaryRestriction{
			{Type: domain.RestrictionAllergy, Name: "peanuts", Severity: domain.SeverityHigh},
		},
	}
}

const (
	replyDanger  = `{"safetyLevel":"danger","violations":[{"type":"allergy","restriction":"peanuts","severity":"high","reason":"Contains peanuts","ingredients":["roasted peanuts"]}],"explanation":"Contains peanuts."}`
	replySafe    = `{"safetyLevel":"safe","violations":[],"explanation":"No conflicts."}`
	replyCaution = `{"safetyLevel":"caution","violations":[{"type":"lifestyle","restriction":"vegan","severity":"low","reason":"Sugar may be bone-char refined","ingredients":["sugar"]}],"explanation":"Possible concern."}`
)

// promptMentions reports whether a restriction name appears in the prompt's restriction section.
func promptMentions(p domain.Prompt, name string) bool {
	return strings.Contains(p.User, "name="+name+" ")
}
