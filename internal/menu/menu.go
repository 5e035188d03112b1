// Package menu loads the dish catalog the assistant backend sells from.
package menu

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/orderbot/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

type fileFormat struct {
	Sizes  []string `yaml:"sizes"`
	Dishes []struct {
		Name   string            `yaml:"name"`
		Prices map[string]string `yaml:"prices"`
	} `yaml:"dishes"`
}

// Dish is one catalog entry.
type Dish struct {
	Name   string
	Prices map[string]decimal.Decimal
}

// Catalog is an immutable, ordered menu.
type Catalog struct {
	sizes  []string
	dishes []Dish
	byKey  map[string]int
}

// Default returns the built-in menu.
func Default() (*Catalog, error) {
	return Parse(defaultMenu)
}

// Load reads a menu file, or the built-in menu when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML menu. Every dish must price every listed size.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	if len(f.Sizes) == 0 {
		return nil, errors.New("menu lists no sizes")
	}
	if len(f.Dishes) == 0 {
		return nil, errors.New("menu lists no dishes")
	}

	c := &Catalog{byKey: make(map[string]int, len(f.Dishes))}
	for _, s := range f.Sizes {
		c.sizes = append(c.sizes, strings.ToLower(strings.TrimSpace(s)))
	}

	for _, d := range f.Dishes {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, errors.New("menu dish without a name")
		}
		key := normalize(name)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("menu dish %q listed twice", name)
		}
		dish := Dish{Name: name, Prices: make(map[string]decimal.Decimal, len(c.sizes))}
		for _, size := range c.sizes {
			raw, ok := d.Prices[size]
			if !ok {
				return nil, fmt.Errorf("menu dish %q has no %s price", name, size)
			}
			price, err := decimal.NewFromString(raw)
			if err != nil || !price.IsPositive() {
				return nil, fmt.Errorf("menu dish %q: bad %s price %q", name, size, raw)
			}
			dish.Prices[size] = price
		}
		c.byKey[key] = len(c.dishes)
		c.dishes = append(c.dishes, dish)
	}
	return c, nil
}

// Sizes returns the valid sizes in menu order.
func (c *Catalog) Sizes() []string {
	return append([]string(nil), c.sizes...)
}

// ValidSize reports whether size (any case) is offered.
func (c *Catalog) ValidSize(size string) bool {
	size = strings.ToLower(strings.TrimSpace(size))
	for _, s := range c.sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Find resolves a dish name case-insensitively. Singular and plural forms
// differing by a trailing "s" both match, so "cheeseburgers" finds
// "Cheeseburger" and "chicken taco" finds "Chicken Tacos".
func (c *Catalog) Find(name string) (Dish, bool) {
	key := normalize(name)
	if key == "" {
		return Dish{}, false
	}
	for _, k := range []string{key, strings.TrimSuffix(key, "s"), key + "s"} {
		if i, ok := c.byKey[k]; ok {
			return c.dishes[i], true
		}
	}
	return Dish{}, false
}

// Price returns the unit price for a dish and size.
func (c *Catalog) Price(name, size string) (Dish, decimal.Decimal, error) {
	dish, ok := c.Find(name)
	if !ok {
		return Dish{}, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrItemNotOnMenu, strings.TrimSpace(name))
	}
	size = strings.ToLower(strings.TrimSpace(size))
	price, ok := dish.Prices[size]
	if !ok {
		return Dish{}, decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidSize, size)
	}
	return dish, price, nil
}

// Dishes returns the dishes in menu order.
func (c *Catalog) Dishes() []Dish {
	return append([]Dish(nil), c.dishes...)
}

// Format renders one line per dish, "Dish: small $4.49, medium $6.49, large $8.49".
func (c *Catalog) Format() string {
	lines := make([]string, 0, len(c.dishes))
	for _, d := range c.dishes {
		parts := make([]string, 0, len(c.sizes))
		for _, s := range c.sizes {
			parts = append(parts, s+" $"+d.Prices[s].StringFixed(2))
		}
		lines = append(lines, d.Name+": "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
