// Package mode holds the fixed catalogue of activity modes.
package mode

// Mode describes one activity mode and its display metadata.
type Mode struct {
	ID       string `json:"id"`       // single-letter identifier used everywhere
	Name     string `json:"name"`     // human-readable name
	Hidden   bool   `json:"hidden"`   // excluded from displays, still tracked
	Opposite string `json:"opposite"` // ID of the counterpart mode, if any
}

// Registry is the ordered catalogue of valid modes.
type Registry struct {
	modes []Mode
	index map[string]Mode
}

// Default returns the built-in mode catalogue.
func Default() *Registry {
	return New([]Mode{
		{ID: "w", Name: "work", Opposite: "p"},
		{ID: "p", Name: "play", Opposite: "w"},
		{ID: "n", Name: "neutral"},
		{ID: "s", Name: "stopped", Hidden: true},
	})
}

// New builds a registry from an ordered mode list.
func New(modes []Mode) *Registry {
	index := make(map[string]Mode, len(modes))
	for _, m := range modes {
		index[m.ID] = m
	}
	return &Registry{modes: modes, index: index}
}

// Valid reports whether id names a mode in the catalogue.
func (r *Registry) Valid(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Get returns the mode for id.
func (r *Registry) Get(id string) (Mode, bool) {
	m, ok := r.index[id]
	return m, ok
}

// All returns every mode in catalogue order.
func (r *Registry) All() []Mode {
	out := make([]Mode, len(r.modes))
	copy(out, r.modes)
	return out
}

// Visible returns the non-hidden modes in catalogue order.
func (r *Registry) Visible() []Mode {
	out := make([]Mode, 0, len(r.modes))
	for _, m := range r.modes {
		if !m.Hidden {
			out = append(out, m)
		}
	}
	return out
}

// IDs returns the identifiers of every mode in catalogue order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.modes))
	for i, m := range r.modes {
		out[i] = m.ID
	}
	return out
}
