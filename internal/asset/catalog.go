package asset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yiplee/go-cache"
)

// DefaultSymbol is the asset used for default wallets when none is configured.
const DefaultSymbol = "USD"

var (
	// ErrCatalogNotInitialized is returned by lookups made before Init or Load.
	ErrCatalogNotInitialized = errors.New("asset catalog not initialized")

	// ErrUnknownAsset indicates the symbol is not present in the catalog.
	ErrUnknownAsset = errors.New("unknown asset")
)

//go:embed data/assets.json
var bundled []byte

type document struct {
	Assets []Asset `json:"assets"`
}

// Catalog resolves symbols to asset descriptors. It is read-only once loaded.
type Catalog struct {
	mu            sync.RWMutex
	assets        *cache.Cache[string, Asset]
	defaultSymbol string
	size          int
	ready         bool
}

// NewCatalog builds an empty catalog whose default asset is defaultSymbol.
func NewCatalog(defaultSymbol string) *Catalog {
	if defaultSymbol == "" {
		defaultSymbol = DefaultSymbol
	}
	return &Catalog{
		assets:        cache.New[string, Asset](),
		defaultSymbol: normalize(defaultSymbol),
	}
}

// Init loads the bundled asset data.
func (c *Catalog) Init() error {
	return c.Load(bytes.NewReader(bundled))
}

// Load reads a JSON document of the form {"assets": [...]} and adds every entry.
// Symbols already present are left untouched.
func (c *Catalog) Load(r io.Reader) error {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode assets: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range doc.Assets {
		c.addLocked(a)
	}
	c.ready = true
	return nil
}

// Add registers an asset unless its symbol is already known.
func (c *Catalog) Add(a Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(a)
	c.ready = true
}

func (c *Catalog) addLocked(a Asset) {
	a.Symbol = normalize(a.Symbol)
	if a.Symbol == "" {
		return
	}
	if _, ok := c.assets.Get(a.Symbol); ok {
		return
	}
	c.assets.Set(a.Symbol, a)
	c.size++
}

// Resolve returns the asset registered under symbol.
func (c *Catalog) Resolve(symbol string) (Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready {
		return Asset{}, ErrCatalogNotInitialized
	}
	a, ok := c.assets.Get(normalize(symbol))
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return a, nil
}

// Default returns the asset used for default wallets.
func (c *Catalog) Default() (Asset, error) {
	return c.Resolve(c.defaultSymbol)
}

// Len returns the number of registered assets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}
