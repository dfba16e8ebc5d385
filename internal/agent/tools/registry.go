// Package tools provides the ADK tools exposed to the planner agents.
package tools

import (
	"fmt"
	"sort"

	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/search"
	"google.golang.org/adk/tool"
)

// MaxToolResponseBytes caps the text a single tool call hands back to the model.
const MaxToolResponseBytes = 16 * 1024

// Registry maps tool names to ADK tools. Stages name the tools they may use and
// the registry resolves them per call, so a stage that names none gets none.
// The set is fixed once NewRegistry returns.
type Registry struct {
	tools  map[string]tool.Tool
	logger *logging.Logger
}

// Dependencies contains the backends the built-in tools wrap.
type Dependencies struct {
	Search *search.Tool
}

// NewRegistry creates a registry with every tool whose dependency is set.
func NewRegistry(deps Dependencies) (*Registry, error) {
	r := &Registry{
		tools:  make(map[string]tool.Tool),
		logger: logging.GetLogger("agent.tools"),
	}

	if deps.Search != nil {
		t, err := NewSearchWebTool(deps.Search)
		if err != nil {
			return nil, err
		}
		r.register(t)
	}

	return r, nil
}

// register adds a tool during construction, before the registry is shared.
func (r *Registry) register(t tool.Tool) {
	r.tools[t.Name()] = t
	r.logger.Debug("registered tool %s", t.Name())
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the tools for names in the given order. An unknown name is an
// error so a misconfigured stage fails before the model is called.
func (r *Registry) Resolve(names []string) ([]tool.Tool, error) {
	if len(names) == 0 {
		return nil, nil
	}

	out := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, fmt.Errorf("tool %q not found", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// truncateResult cuts text to maxBytes on a rune boundary and marks the cut.
func truncateResult(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	const marker = "\n[TRUNCATED]"
	cut := maxBytes - len(marker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + marker
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
