// In file: internal/tools/catalog.go
package tools

import (
	"fmt"

	"github.com/514-labs/planes/internal/llm"
)

// Catalog holds the tool definitions available to one run. It is built once
// per run and never modified afterwards.
type Catalog struct {
	order []string
	defs  map[string]Definition
}

// NewCatalog registers defs in order. A later duplicate name replaces the earlier one.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if _, exists := c.defs[def.Name]; !exists {
			c.order = append(c.order, def.Name)
		}
		c.defs[def.Name] = def
	}
	return c
}

// Specs returns the model-facing specs in registration order.
func (c *Catalog) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(c.order))
	for _, name := range c.order {
		specs = append(specs, c.defs[name].Spec())
	}
	return specs
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// Validate resolves name and checks args against its definition.
func (c *Catalog) Validate(name string, args map[string]any) (map[string]any, error) {
	def, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return def.Validate(args)
}

// ToolCount returns the number of registered tools.
func (c *Catalog) ToolCount() int {
	return len(c.order)
}

// QueryTool is the single statically-declared tool used when the endpoint's
// catalog is not consulted. It runs one read-only SQL statement.
// rowLimit is the cap the gateway applies to results; non-positive means DefaultRowLimit.
func QueryTool(name string, rowLimit int) Definition {
	if name == "" {
		name = DefaultQueryTool
	}
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return Definition{
		Name:        name,
		Description: fmt.Sprintf("Run a read-only SQL query against the aircraft tracking database and return up to %d rows.", rowLimit),
		Fields: []Field{{
			Name:     "sql",
			Param:    StringParam{Description: "A single ClickHouse SELECT statement."},
			Required: true,
		}},
	}
}
