package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

func testCatalog(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:           fmt.Sprintf("EAR%03d", i+1),
			Name:         fmt.Sprintf("Model %c", 'A'+i),
			Price:        float64(100 * (i + 1)),
			HeadsetType:  "入耳式",
			CoreFunction: "降噪,快充",
			Functions:    []string{"降噪", "快充"},
		}
	}
	return products
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestBuildCandidateSet_NoHistory(t *testing.T) {
	catalog := testCatalog(4)
	got := BuildCandidateSet(catalog, nil)
	assert.Equal(t, ids(catalog), ids(got))
}

func TestBuildCandidateSet_HistoryFirst(t *testing.T) {
	catalog := testCatalog(5)
	history := []models.ProductSummary{
		{ProductID: "EAR004"},
		{ProductID: "ear002"},
		{ProductID: "EAR004"},
	}

	got := BuildCandidateSet(catalog, history)

	assert.Equal(t, []string{"EAR004", "EAR002", "EAR001", "EAR003", "EAR005"}, ids(got))
	// History entries resolve to full catalog records.
	assert.Equal(t, "Model D", got[0].Name)
	assert.Len(t, got, len(catalog))
}

func TestBuildCandidateSet_Idempotent(t *testing.T) {
	catalog := testCatalog(6)
	history := []models.ProductSummary{{ProductID: "EAR005"}, {ProductID: "EAR003"}}

	once := BuildCandidateSet(catalog, history)
	twice := BuildCandidateSet(once, history)

	assert.Equal(t, ids(once), ids(twice))
}

func TestBuildCandidateSet_HistoryOutsideCatalog(t *testing.T) {
	catalog := testCatalog(2)
	history := []models.ProductSummary{{ProductID: "HPH010", ProductName: "Retired", Price: 99}}

	got := BuildCandidateSet(catalog, history)

	require.Len(t, got, 3)
	assert.Equal(t, "HPH010", got[0].ID)
	assert.Equal(t, "Retired", got[0].Name)
}

func TestBuildCandidateSet_MalformedHistory(t *testing.T) {
	catalog := testCatalog(3)
	history := []models.ProductSummary{{ProductName: "no id"}, {ProductID: "  "}}

	got := BuildCandidateSet(catalog, history)

	assert.Equal(t, ids(catalog), ids(got))
}

func TestExtractReferencedProducts(t *testing.T) {
	catalog := testCatalog(8)

	tests := []struct {
		name      string
		reply     string
		wantIDs   []string
		wantTier  Tier
		wantReply string
	}{
		{
			name:      "protocol marker wins over stray mention",
			reply:     "推荐EAR001和EAR005 ||REC: EAR001||",
			wantIDs:   []string{"EAR001"},
			wantTier:  TierProtocol,
			wantReply: "推荐EAR001和EAR005",
		},
		{
			name:      "protocol marker with several ids",
			reply:     "看看这两款吧\n||REC: ear003, EAR002, EAR003||\n有问题再问我",
			wantIDs:   []string{"EAR003", "EAR002"},
			wantTier:  TierProtocol,
			wantReply: "看看这两款吧\n\n有问题再问我",
		},
		{
			name:      "full text identifiers",
			reply:     "可以考虑 Ear004，或者 EAR001。",
			wantIDs:   []string{"EAR004", "EAR001"},
			wantTier:  TierFullText,
			wantReply: "可以考虑 Ear004，或者 EAR001。",
		},
		{
			name:      "unterminated marker falls through",
			reply:     "推荐 EAR002 ||REC: EAR006",
			wantIDs:   []string{"EAR002", "EAR006"},
			wantTier:  TierFullText,
			wantReply: "推荐 EAR002 ||REC: EAR006",
		},
		{
			name:      "unknown ids dropped",
			reply:     "||REC: XYZ999, EAR007||",
			wantIDs:   []string{"EAR007"},
			wantTier:  TierProtocol,
			wantReply: "",
		},
		{
			name:      "name match in candidate order",
			reply:     "我觉得 model c 和 Model B 都不错",
			wantIDs:   []string{"EAR002", "EAR003"},
			wantTier:  TierName,
			wantReply: "我觉得 model c 和 Model B 都不错",
		},
		{
			name:      "nothing resolves",
			reply:     "抱歉，我暂时无法为你推荐耳机，请稍后再试。",
			wantIDs:   []string{"EAR001", "EAR002", "EAR003", "EAR004", "EAR005", "EAR006"},
			wantTier:  TierFallback,
			wantReply: "抱歉，我暂时无法为你推荐耳机，请稍后再试。",
		},
		{
			name:      "empty reply",
			reply:     "",
			wantIDs:   []string{"EAR001", "EAR002", "EAR003", "EAR004", "EAR005", "EAR006"},
			wantTier:  TierFallback,
			wantReply: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferencedProducts(tt.reply, catalog, catalog)
			assert.Equal(t, tt.wantIDs, ids(got.Products))
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantReply, got.Reply)
		})
	}
}

func TestExtractReferencedProducts_CaseInsensitiveIDs(t *testing.T) {
	catalog := testCatalog(3)
	for _, reply := range []string{"ear001", "Ear001", "EAR001"} {
		got := ExtractReferencedProducts(reply, catalog, catalog)
		require.Len(t, got.Products, 1, reply)
		assert.Equal(t, "EAR001", got.Products[0].ID, reply)
	}
}

func TestExtractReferencedProducts_ResolvesAgainstCandidates(t *testing.T) {
	catalog := testCatalog(3)
	retired := models.Product{ID: "HPH010", Name: "Retired"}
	candidates := append([]models.Product{retired}, catalog...)

	got := ExtractReferencedProducts("还是上次那款 ||REC: HPH010||", candidates, catalog)

	require.Len(t, got.Products, 1)
	assert.Equal(t, "Retired", got.Products[0].Name)
}

func TestExtractReferencedProducts_SmallCatalogFallback(t *testing.T) {
	catalog := testCatalog(2)
	got := ExtractReferencedProducts("", catalog, catalog)
	assert.Len(t, got.Products, 2)

	got = ExtractReferencedProducts("", nil, nil)
	assert.Empty(t, got.Products)
	assert.Equal(t, TierFallback, got.Tier)
}

func TestSummarize(t *testing.T) {
	p := models.Product{
		ID:           "EAR001",
		Name:         "x",
		Price:        199,
		HeadsetType:  "入耳式",
		CoreFunction: "降噪",
		Brand:        "小米",
		BatteryLife:  8,
		SalesVolume:  models.SalesVolume{Value: 5000, AtLeast: true},
	}

	got := Summarize([]models.Product{p})

	require.Len(t, got, 1)
	assert.Equal(t, models.ProductSummary{
		ProductID:    "EAR001",
		ProductName:  "x",
		Price:        199,
		HeadsetType:  "入耳式",
		CoreFunction: "降噪",
		Brand:        "小米",
		BatteryLife:  8,
		SalesVolume:  "5000+",
	}, got[0])
}
