package builder

// viewState is builder-local presentation state: which steps are expanded
// and which item is selected for editing. It is strictly separate from the
// persisted schema and never reaches the store.
type viewState struct {
	expanded map[string]bool
	selected string
}

func newViewState() viewState {
	return viewState{expanded: make(map[string]bool)}
}

func (v *viewState) expand(stepID string) {
	v.expanded[stepID] = true
}

func (v *viewState) forget(id string) {
	delete(v.expanded, id)
	if v.selected == id {
		v.selected = ""
	}
}

// Expanded reports whether a step is open in the builder UI.
func (b *Builder) Expanded(stepID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.expanded[stepID]
}

// SetExpanded opens or collapses a step in the builder UI.
func (b *Builder) SetExpanded(stepID string, expanded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if expanded {
		b.view.expanded[stepID] = true
		return
	}
	delete(b.view.expanded, stepID)
}

// Select marks a step or field as the current edit target.
func (b *Builder) Select(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view.selected = id
}

// Selected returns the current edit target, if any.
func (b *Builder) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.selected
}
