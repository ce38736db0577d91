package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledCatalog(t *testing.T) {
	store := NewStore(NewCSVProvider("../../data/product_list.csv"))

	products, err := store.Products()
	require.NoError(t, err)
	assert.Len(t, products, 24)

	p, ok := store.Lookup("ear005")
	require.True(t, ok)
	assert.Equal(t, "雷柏", p.Brand)
	assert.Equal(t, []string{"游戏低延迟", "RGB灯效", "降噪麦克风"}, p.Functions)
	assert.Equal(t, 3000, p.SalesVolume.Value)
	assert.True(t, p.SalesVolume.AtLeast)
}
