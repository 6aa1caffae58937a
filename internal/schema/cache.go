package schema

import (
	"context"
	"strings"
	"sync"
)

// Loader reads the current structure of a table from the database.
type Loader func(ctx context.Context, table string) (*Table, error)

// Cache holds table structures until they are explicitly refreshed.
type Cache struct {
	mu     sync.Mutex
	tables map[string]*Table
}

func NewCache() *Cache {
	return &Cache{tables: make(map[string]*Table)}
}

// Table returns the cached structure of name, loading it on a miss.
func (c *Cache) Table(ctx context.Context, name string, load Loader) (*Table, error) {
	key := strings.ToUpper(name)

	c.mu.Lock()
	t, ok := c.tables[key]
	c.mu.Unlock()
	if ok {
		return t, nil
	}

	t, err := load(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[key] = t
	c.mu.Unlock()
	return t, nil
}

// Refresh forgets the cached structure of name. Safe to repeat.
func (c *Cache) Refresh(name string) {
	c.mu.Lock()
	delete(c.tables, strings.ToUpper(name))
	c.mu.Unlock()
}

// Cached returns the structure of name if it is cached, without loading it.
func (c *Cache) Cached(name string) (*Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[strings.ToUpper(name)]
	return t, ok
}
