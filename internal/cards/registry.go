// Package cards maps the last four digits printed on a receipt to a known
// payment card and the accounting entity that owns it.
package cards

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Card is a configured payment card
type Card struct {
	Name     string `yaml:"name" json:"name"`
	LastFour string `yaml:"last_four" json:"lastFour"`
	Entity   string `yaml:"entity" json:"entity"`
}

type registryFile struct {
	Cards []Card `yaml:"cards"`
}

// Registry looks cards up by their last four digits
type Registry struct {
	byLastFour map[string]Card
}

// NewRegistry builds a registry from cards. Later duplicates of the same
// last four digits are ignored.
func NewRegistry(cards []Card) (*Registry, error) {
	r := &Registry{byLastFour: make(map[string]Card, len(cards))}
	for _, c := range cards {
		c.LastFour = strings.TrimSpace(c.LastFour)
		if !isLastFour(c.LastFour) {
			return nil, fmt.Errorf("card %q: last_four must be exactly four digits, got %q", c.Name, c.LastFour)
		}
		if _, ok := r.byLastFour[c.LastFour]; ok {
			continue
		}
		r.byLastFour[c.LastFour] = c
	}
	return r, nil
}

// LoadRegistry reads a YAML file of the form
//
//	cards:
//	  - name: Company Visa
//	    last_four: "1234"
//	    entity: Acme LLC
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cards file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cards yaml: %w", err)
	}
	return NewRegistry(f.Cards)
}

// Match returns the card ending in lastFour. A nil registry matches nothing.
func (r *Registry) Match(lastFour string) (Card, bool) {
	if r == nil {
		return Card{}, false
	}
	c, ok := r.byLastFour[strings.TrimSpace(lastFour)]
	return c, ok
}

// Len returns the number of registered cards
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byLastFour)
}

func isLastFour(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
