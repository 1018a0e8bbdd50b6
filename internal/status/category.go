package status

import (
	"fmt"
	"sync"
)

// Category tags every caller-visible error produced by this process.
// It is created at most once and never mutated afterwards.
type Category struct {
	name string
}

// Name returns the category name used as the error message prefix
func (c *Category) Name() string { return c.name }

var (
	categoryMu sync.Mutex
	category   *Category
)

// InitCategory creates the process-wide error category. A second call fails:
// the category has an init-once lifecycle with no teardown.
func InitCategory(name string) (*Category, error) {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if category != nil {
		return nil, fmt.Errorf("cannot initialize error category %q more than once (already %q)", name, category.name)
	}
	if name == "" {
		return nil, fmt.Errorf("error category name must not be empty")
	}

	category = &Category{name: name}
	return category, nil
}

// CurrentCategory returns the process-wide category, or nil before InitCategory
func CurrentCategory() *Category {
	categoryMu.Lock()
	defer categoryMu.Unlock()
	return category
}
