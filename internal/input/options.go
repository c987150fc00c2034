package input

import "github.com/folioedit/folio/internal/input/key"

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTabSize sets how many spaces a Tab press inserts.
func WithTabSize(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 {
			c.tabSize = n
		}
	}
}

// WithReservedModifier sets the modifier the host reserves for tab
// switching. Tab with it held is left to the host.
func WithReservedModifier(m key.Modifier) Option {
	return func(c *Coordinator) { c.reserved = m }
}
