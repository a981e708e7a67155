package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentlab/model"
)

// RoutedModel dispatches each request to the scripted backend registered for
// the persona whose title appears in the request instructions. Concurrent
// agents of a meeting thus each consume their own script regardless of
// scheduling order.
type RoutedModel struct {
	mu       sync.Mutex
	routes   map[string]*model.ScriptedModel
	fallback *model.ScriptedModel
}

// NewRoutedModel creates a router whose unmatched requests go to a default
// scripted backend.
func NewRoutedModel() *RoutedModel {
	return &RoutedModel{
		routes:   map[string]*model.ScriptedModel{},
		fallback: model.NewScriptedModel("default"),
	}
}

// Route returns the scripted backend for persona title, creating it on first use.
func (r *RoutedModel) Route(title string) *model.ScriptedModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.routes[title]
	if !ok {
		m = model.NewScriptedModel(title)
		r.routes[title] = m
	}

	return m
}

// Fallback returns the backend serving unmatched requests.
func (r *RoutedModel) Fallback() *model.ScriptedModel { return r.fallback }

// Generate implements model.Model.
func (r *RoutedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	return r.pick(req.Instructions).Generate(ctx, req)
}

// Info implements model.Model.
func (r *RoutedModel) Info() model.Info {
	return model.Info{Name: "routed", Provider: "scripted", SupportsTools: true}
}

// pick prefers the longest matching title so "Data Analyst" wins over "Analyst".
func (r *RoutedModel) pick(instructions string) *model.ScriptedModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	titles := make([]string, 0, len(r.routes))
	for title := range r.routes {
		titles = append(titles, title)
	}

	sort.Slice(titles, func(i, j int) bool { return len(titles[i]) > len(titles[j]) })

	for _, title := range titles {
		if strings.Contains(instructions, title) {
			return r.routes[title]
		}
	}

	return r.fallback
}
