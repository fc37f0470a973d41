package banner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"free-shipping-bar/internal/domain"
)

// Element is the rendered banner node.
type Element struct {
	ID      string
	Visible bool
	Text    string
	Kind    domain.DisplayKind
}

// ElementRenderer keeps exactly one element keyed by its id. Rendering the
// same state twice changes nothing and is reported once.
type ElementRenderer struct {
	mu          sync.Mutex
	id          string
	element     *Element
	transitions int
	out         io.Writer
	now         func() time.Time
}

// NewElementRenderer creates a renderer for the element id. Transitions are
// written to out when it is not nil.
func NewElementRenderer(id string, out io.Writer) *ElementRenderer {
	return &ElementRenderer{id: id, out: out, now: time.Now}
}

// Render mounts the element on first use and updates it in place.
func (r *ElementRenderer) Render(state domain.DisplayState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := Element{ID: r.id, Visible: state.Visible(), Text: state.Text, Kind: state.Kind}
	if r.element != nil {
		// a hidden banner keeps its last text, the container stays mounted
		if !next.Visible && next.Text == "" {
			next.Text = r.element.Text
		}
		if *r.element == next {
			return
		}
	}
	r.element = &next
	r.transitions++

	if r.out != nil {
		if next.Visible {
			fmt.Fprintf(r.out, "%s #%s [%s] %s\n", r.now().Format(time.RFC3339), r.id, next.Kind, next.Text)
		} else {
			fmt.Fprintf(r.out, "%s #%s hidden\n", r.now().Format(time.RFC3339), r.id)
		}
	}
}

// Element returns a copy of the mounted element, or false before the first render.
func (r *ElementRenderer) Element() (Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.element == nil {
		return Element{}, false
	}
	return *r.element, true
}

// Transitions counts renders that changed the element.
func (r *ElementRenderer) Transitions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions
}
