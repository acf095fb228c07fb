package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tltguild/tlt-core/internal/apierr"
)

// Role is a member in the gateway's closed role set (spec §4.7).
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEventOwner Role = "event-owner"
	RoleUser       Role = "user"
)

var validRoles = map[Role]bool{RoleAdmin: true, RoleEventOwner: true, RoleUser: true}

// IsValidRole reports whether r belongs to the closed role set.
func IsValidRole(r Role) bool { return validRoles[r] }

// policyRule is one persisted (role, tool, action) -> allow entry.
type policyRule struct {
	Role   Role   `yaml:"role"`
	Tool   string `yaml:"tool"`
	Action string `yaml:"action"`
	Allow  bool   `yaml:"allow"`
}

// policyFile is the on-disk YAML shape the rule table round-trips through.
type policyFile struct {
	Rules []policyRule `yaml:"rules"`
}

// PolicyEngine expresses the relation `(role, tool, action) -> allow/deny`
// with a two-tier lookup: an explicit rule first, then a role default (spec
// §9 "Gateway policy engine"). It is mutable at runtime via admin-only
// management tools and persists through atomic YAML rewrite.
type PolicyEngine struct {
	mu    sync.RWMutex
	rules map[string]bool
	path  string
}

// NewPolicyEngine constructs a PolicyEngine. If path is non-empty and the
// file exists, the rule table is loaded from it; otherwise the engine starts
// with only role-default behavior.
func NewPolicyEngine(path string) *PolicyEngine {
	p := &PolicyEngine{rules: make(map[string]bool), path: path}
	if path != "" {
		_ = p.load()
	}
	return p
}

func ruleKey(role Role, tool, action string) string {
	return fmt.Sprintf("%s|%s|%s", role, tool, action)
}

// roleDefault implements the second tier of the lookup: admin may invoke any
// tool; event-owner and user are denied by default and must be granted
// explicit rules for tools beyond their role's natural scope.
func roleDefault(role Role) bool {
	return role == RoleAdmin
}

// Allow reports whether role may perform action on tool, per the two-tier
// lookup (spec §4.7 step 1).
func (p *PolicyEngine) Allow(role Role, tool, action string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if allow, ok := p.rules[ruleKey(role, tool, action)]; ok {
		return allow
	}
	return roleDefault(role)
}

// AddRule grants or denies role access to tool/action explicitly, persisting
// the change. Callers (the gateway's management tools) are responsible for
// checking that the caller has the admin role before invoking this.
func (p *PolicyEngine) AddRule(role Role, tool, action string, allow bool) error {
	p.mu.Lock()
	p.rules[ruleKey(role, tool, action)] = allow
	p.mu.Unlock()
	return p.persist()
}

// RemoveRule deletes an explicit rule, reverting to the role default.
func (p *PolicyEngine) RemoveRule(role Role, tool, action string) error {
	p.mu.Lock()
	delete(p.rules, ruleKey(role, tool, action))
	p.mu.Unlock()
	return p.persist()
}

// Rules returns a snapshot of every explicit rule, for get-policy.
func (p *PolicyEngine) Rules() []policyRule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]policyRule, 0, len(p.rules))
	for k, allow := range p.rules {
		parts := splitRuleKey(k)
		if len(parts) != 3 {
			continue
		}
		out = append(out, policyRule{Role: Role(parts[0]), Tool: parts[1], Action: parts[2], Allow: allow})
	}
	return out
}

func splitRuleKey(k string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(k); i++ {
		if k[i] == '|' {
			parts = append(parts, k[start:i])
			start = i + 1
		}
	}
	parts = append(parts, k[start:])
	return parts
}

func (p *PolicyEngine) load() error {
	b, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apierr.Wrap(apierr.KindIO, "read policy file", err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return apierr.Wrap(apierr.KindIO, "parse policy file", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range pf.Rules {
		p.rules[ruleKey(r.Role, r.Tool, r.Action)] = r.Allow
	}
	return nil
}

// persist atomically rewrites the policy file (write-temp-then-rename),
// mirroring the atomic-write convention used throughout the persistence
// layer (spec §4.9).
func (p *PolicyEngine) persist() error {
	if p.path == "" {
		return nil
	}
	p.mu.RLock()
	pf := policyFile{Rules: make([]policyRule, 0, len(p.rules))}
	for k, allow := range p.rules {
		parts := splitRuleKey(k)
		if len(parts) != 3 {
			continue
		}
		pf.Rules = append(pf.Rules, policyRule{Role: Role(parts[0]), Tool: parts[1], Action: parts[2], Allow: allow})
	}
	p.mu.RUnlock()

	b, err := yaml.Marshal(pf)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, "encode policy file", err)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apierr.Wrap(apierr.KindIO, "create policy directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".policy-*")
	if err != nil {
		return apierr.Wrap(apierr.KindIO, "create temp policy file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apierr.Wrap(apierr.KindIO, "write temp policy file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apierr.Wrap(apierr.KindIO, "close temp policy file", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return apierr.Wrap(apierr.KindIO, "rename temp policy file", err)
	}
	return nil
}
