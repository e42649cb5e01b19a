package questionnaire

// Expansion tracks the single expanded question panel for a whole document.
// Opening any panel closes whichever was open, at any depth.
type Expansion struct {
	key string
}

func NewExpansion(key string) Expansion {
	return Expansion{key: key}
}

func (e Expansion) Key() string {
	return e.key
}

func (e Expansion) IsExpanded(key string) bool {
	return key != "" && e.key == key
}

func (e *Expansion) Expand(key string) {
	e.key = key
}

func (e *Expansion) Collapse() {
	e.key = ""
}

// Toggle closes the panel when key is the open one and opens it otherwise.
func (e *Expansion) Toggle(key string) {
	if e.key == key {
		e.key = ""
		return
	}
	e.key = key
}
