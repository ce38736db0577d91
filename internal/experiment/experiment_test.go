package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xaenox/shopbot-experiment/internal/assistant"
	"github.com/xaenox/shopbot-experiment/internal/catalog"
	"github.com/xaenox/shopbot-experiment/internal/models"
)

func testProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:           fmt.Sprintf("EAR%03d", i+1),
			Name:         fmt.Sprintf("Model %c", 'A'+i),
			Price:        float64(100 * (i + 1)),
			HeadsetType:  "头戴式",
			CoreFunction: "降噪",
			Functions:    []string{"降噪"},
			Brand:        "索尼",
		}
	}
	return products
}

func testStore(n int) *catalog.Store {
	products := testProducts(n)
	return catalog.NewStore(catalog.ProviderFunc(func() ([]models.Product, error) {
		return products, nil
	}))
}

// fakeGenerator returns canned replies in order and records every request
type fakeGenerator struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []assistant.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req assistant.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", assistant.ErrEmptyCompletion
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeGenerator) lastRequest() assistant.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func candidateIDs(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func summaryIDs(products []models.ProductSummary) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ProductID
	}
	return out
}

var errUnavailable = errors.New("upstream unavailable")

// slowGenerator blocks until the context is done
type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, req assistant.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type panicGenerator struct{}

func (panicGenerator) Generate(ctx context.Context, req assistant.Request) (string, error) {
	panic("boom")
}
