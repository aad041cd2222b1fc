package domain

import "fmt"

// Catalog is the immutable, ordered list of steps.
// It is built once and shared read-only by every session.
type Catalog struct {
	steps []Step
	index map[string]int
}

// NewCatalog builds a catalog from the given steps, in order.
// It fails if the list is empty, if an ID is missing or duplicated, or if a step
// declares an unknown kind.
func NewCatalog(steps []Step) (*Catalog, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one step")
	}

	c := &Catalog{
		steps: make([]Step, len(steps)),
		index: make(map[string]int, len(steps)),
	}
	copy(c.steps, steps)

	for i, s := range c.steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step %d: missing id", i)
		}
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("step %q: unknown kind %q", s.ID, s.Kind)
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("step %q: duplicate id", s.ID)
		}
		c.index[s.ID] = i
	}
	return c, nil
}

// Len returns the number of steps.
func (c *Catalog) Len() int {
	return len(c.steps)
}

// Last returns the index of the terminal step.
func (c *Catalog) Last() int {
	return len(c.steps) - 1
}

// At returns the step at position i.
func (c *Catalog) At(i int) (Step, bool) {
	if i < 0 || i >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[i], true
}

// Lookup returns the step with the given ID and its position.
func (c *Catalog) Lookup(id string) (Step, int, bool) {
	i, ok := c.index[id]
	if !ok {
		return Step{}, -1, false
	}
	return c.steps[i], i, true
}

// IndexOf returns the position of the step with the given ID, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Steps returns a copy of the ordered step list.
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// ProgressTotal counts the steps shown in the progress indicator.
func (c *Catalog) ProgressTotal() int {
	n := 0
	for _, s := range c.steps {
		if s.CountsTowardProgress() {
			n++
		}
	}
	return n
}

// ProgressNumber returns the 1-based progress position of step i,
// counting only steps that take part in the indicator.
func (c *Catalog) ProgressNumber(i int) int {
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	n := 0
	for j := 0; j <= i; j++ {
		if c.steps[j].CountsTowardProgress() {
			n++
		}
	}
	return n
}
