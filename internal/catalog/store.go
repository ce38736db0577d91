package catalog

import (
	"strings"
	"sync"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

// Provider supplies the product catalog
type Provider interface {
	Load() ([]models.Product, error)
}

// ProviderFunc adapts a plain function to Provider
type ProviderFunc func() ([]models.Product, error)

func (f ProviderFunc) Load() ([]models.Product, error) { return f() }

// Store holds the catalog for the lifetime of the process. The provider
// is consulted at most once, on first access; a load failure is kept and
// returned from every subsequent call so that no partial catalog is served.
type Store struct {
	provider Provider

	once     sync.Once
	products []models.Product
	index    map[string]int
	err      error
}

func NewStore(provider Provider) *Store {
	return &Store{provider: provider}
}

func (s *Store) load() {
	s.once.Do(func() {
		products, err := s.provider.Load()
		if err != nil {
			s.err = err
			return
		}
		index := make(map[string]int, len(products))
		for i, p := range products {
			key := strings.ToUpper(p.ID)
			if _, dup := index[key]; !dup {
				index[key] = i
			}
		}
		s.products = products
		s.index = index
	})
}

// Products returns a deep copy of the catalog in file order
func (s *Store) Products() ([]models.Product, error) {
	s.load()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Product, len(s.products))
	for i, p := range s.products {
		out[i] = cloneProduct(p)
	}
	return out, nil
}

// Lookup finds a product by identifier, ignoring case
func (s *Store) Lookup(id string) (models.Product, bool) {
	s.load()
	if s.err != nil {
		return models.Product{}, false
	}
	i, ok := s.index[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return models.Product{}, false
	}
	return cloneProduct(s.products[i]), true
}

func cloneProduct(p models.Product) models.Product {
	if p.Functions != nil {
		p.Functions = append([]string(nil), p.Functions...)
	}
	return p
}

func (s *Store) Len() int {
	s.load()
	return len(s.products)
}
