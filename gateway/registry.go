package gateway

import "context"

// BackendClient is implemented by an opaque back-end service stub (C10):
// event-manager, rsvp, guild-manager, photo-vibe-check, vibe-canvas. The
// gateway is the only caller; back-ends are otherwise invisible to the rest
// of the coordinator (spec §1 "treated behind the gateway contract").
type BackendClient interface {
	Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}

// ServiceEntry describes one back-end registered with the gateway: its tag,
// the tools it flatly exposes, and the client used to reach it.
type ServiceEntry struct {
	Service string
	Tools   []string
	Client  BackendClient
}

// Registry maps tool name -> owning service, the source of truth for tool
// discovery (spec §4.7 "On start, this registry is the source of truth").
type Registry struct {
	services      map[string]*ServiceEntry
	toolToService map[string]string
}

// NewRegistry constructs an empty Registry; callers populate it via Register.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*ServiceEntry), toolToService: make(map[string]string)}
}

// Register adds a back-end service entry, indexing each of its tools.
func (r *Registry) Register(entry ServiceEntry) {
	r.services[entry.Service] = &entry
	for _, tool := range entry.Tools {
		r.toolToService[tool] = entry.Service
	}
}

// Resolve returns the back-end client and service tag that owns tool.
func (r *Registry) Resolve(tool string) (BackendClient, string, bool) {
	service, ok := r.toolToService[tool]
	if !ok {
		return nil, "", false
	}
	entry, ok := r.services[service]
	if !ok {
		return nil, "", false
	}
	return entry.Client, service, true
}

// AvailableTools returns every registered tool name across all services,
// backing the get-available-tools management tool.
func (r *Registry) AvailableTools() map[string][]string {
	out := make(map[string][]string, len(r.services))
	for name, entry := range r.services {
		out[name] = append([]string(nil), entry.Tools...)
	}
	return out
}
