package recommend

import (
	"regexp"
	"strings"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

// FallbackSize is how many catalog products are surfaced when a reply
// references none.
const FallbackSize = 6

// Protocol marker tokens. The assistant is instructed to emit exactly one
// line of the form "||REC: EAR001, EAR002||".
const (
	MarkerStart = "||REC:"
	MarkerEnd   = "||"
)

var productIDPattern = regexp.MustCompile(`(?i)[a-z]{3}\d{3}`)

// Tier records which extraction strategy produced the products
type Tier string

const (
	TierProtocol Tier = "protocol"
	TierFullText Tier = "fulltext"
	TierName     Tier = "name"
	TierFallback Tier = "fallback"
)

// Extraction is the outcome of parsing an assistant reply
type Extraction struct {
	Products []models.Product
	Tier     Tier
	// Reply is the text to show the participant, with any marker removed
	Reply string
}

// BuildCandidateSet returns every catalog product once, with products
// recommended in earlier turns moved to the front in their original
// order. History entries without an identifier are ignored; history
// identifiers absent from the catalog are kept as partial products.
func BuildCandidateSet(catalog []models.Product, history []models.ProductSummary) []models.Product {
	byID := make(map[string]models.Product, len(catalog))
	for _, p := range catalog {
		key := normalizeID(p.ID)
		if _, ok := byID[key]; !ok {
			byID[key] = p
		}
	}

	merged := make([]models.Product, 0, len(catalog)+len(history))
	for _, h := range history {
		key := normalizeID(h.ProductID)
		if key == "" {
			continue
		}
		if p, ok := byID[key]; ok {
			merged = append(merged, p)
			continue
		}
		partial := h.Product()
		partial.ID = key
		merged = append(merged, partial)
	}
	merged = append(merged, catalog...)

	return dedupe(merged)
}

func dedupe(products []models.Product) []models.Product {
	seen := make(map[string]struct{}, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		key := normalizeID(p.ID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ExtractReferencedProducts resolves the products an assistant reply
// recommends. Strategies are tried in order and the first one that
// resolves anything wins: the protocol marker, identifiers anywhere in
// the text, then product names. When nothing resolves, the first
// FallbackSize catalog products are returned.
func ExtractReferencedProducts(reply string, candidates, catalog []models.Product) Extraction {
	region, cleaned, ok := findMarker(reply)
	result := Extraction{Reply: strings.TrimSpace(cleaned)}

	byID := make(map[string]models.Product, len(candidates))
	for _, p := range candidates {
		key := normalizeID(p.ID)
		if _, exists := byID[key]; !exists {
			byID[key] = p
		}
	}

	if ok {
		if ids := findIDs(region); len(ids) > 0 {
			if products := resolve(ids, byID); len(products) > 0 {
				result.Products, result.Tier = products, TierProtocol
				return result
			}
		}
	}

	if ids := findIDs(reply); len(ids) > 0 {
		if products := resolve(ids, byID); len(products) > 0 {
			result.Products, result.Tier = products, TierFullText
			return result
		}
	}

	if products := matchNames(reply, candidates); len(products) > 0 {
		result.Products, result.Tier = products, TierName
		return result
	}

	n := FallbackSize
	if len(catalog) < n {
		n = len(catalog)
	}
	result.Products = append([]models.Product(nil), catalog[:n]...)
	result.Tier = TierFallback
	return result
}

// findMarker locates the first well-formed marker. It returns the marker
// payload and the reply with the whole marker removed. An unterminated
// marker is treated as absent.
func findMarker(reply string) (region, cleaned string, ok bool) {
	start := strings.Index(reply, MarkerStart)
	if start < 0 {
		return "", reply, false
	}
	bodyStart := start + len(MarkerStart)
	end := strings.Index(reply[bodyStart:], MarkerEnd)
	if end < 0 {
		return "", reply, false
	}
	region = reply[bodyStart : bodyStart+end]
	cleaned = reply[:start] + reply[bodyStart+end+len(MarkerEnd):]
	return region, cleaned, true
}

// findIDs returns upper-cased identifiers in order of first appearance
func findIDs(text string) []string {
	matches := productIDPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		id := strings.ToUpper(m)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func resolve(ids []string, byID map[string]models.Product) []models.Product {
	var out []models.Product
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func matchNames(reply string, candidates []models.Product) []models.Product {
	lower := strings.ToLower(reply)
	var out []models.Product
	for _, p := range candidates {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name != "" && strings.Contains(lower, name) {
			out = append(out, p)
		}
	}
	return out
}

// Summarize reduces products to the records handed to display and storage
func Summarize(products []models.Product) []models.ProductSummary {
	out := make([]models.ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, p.Summary())
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
