package asset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogDefaultBeforeInit(t *testing.T) {
	c := NewCatalog("")

	_, err := c.Default()
	require.ErrorIs(t, err, ErrCatalogNotInitialized)
}

func TestCatalogInitLoadsBundledAssets(t *testing.T) {
	c := NewCatalog("")
	require.NoError(t, c.Init())

	usd, err := c.Default()
	require.NoError(t, err)
	assert.Equal(t, "USD", usd.Symbol)
	assert.Equal(t, KindFiat, usd.Kind)
	assert.Equal(t, int32(2), usd.Decimals)

	btc, err := c.Resolve(" btc ")
	require.NoError(t, err)
	assert.Equal(t, KindCrypto, btc.Kind)
	assert.Greater(t, c.Len(), 20)
}

func TestCatalogResolveUnknown(t *testing.T) {
	c := NewCatalog("EUR")
	require.NoError(t, c.Init())

	_, err := c.Resolve("DOGE")
	require.ErrorIs(t, err, ErrUnknownAsset)

	eur, err := c.Default()
	require.NoError(t, err)
	assert.Equal(t, "EUR", eur.Symbol)
}

func TestCatalogAddKeepsFirstEntry(t *testing.T) {
	c := NewCatalog("")
	c.Add(Asset{Symbol: "usd", Name: "first"})
	c.Add(Asset{Symbol: "USD", Name: "second"})

	usd, err := c.Resolve("USD")
	require.NoError(t, err)
	assert.Equal(t, "first", usd.Name)
	assert.Equal(t, 1, c.Len())
}

func TestCatalogLoadRejectsMalformedDocument(t *testing.T) {
	c := NewCatalog("")
	err := c.Load(strings.NewReader("{"))
	require.Error(t, err)

	_, err = c.Default()
	require.ErrorIs(t, err, ErrCatalogNotInitialized)
}

func TestAssetEqualityBySymbol(t *testing.T) {
	a := Asset{Symbol: "USD", Name: "US Dollar", Decimals: 2}
	b := New("usd")

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
	assert.Negative(t, New("EUR").Compare(a))
	assert.True(t, Asset{}.IsZero())
}
