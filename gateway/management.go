package gateway

import (
	"context"
	"time"

	"github.com/tltguild/tlt-core/internal/apierr"
)

// registerManagementTools wires the tools the gateway answers itself rather
// than forwarding to a back-end (spec §4.7: "ping, policy CRUD, and tool
// discovery are handled in-process"). Policy-mutating tools require the
// caller to hold the admin role.
func (g *Gateway) registerManagementTools() {
	g.management = map[string]managementTool{
		"ping":                 g.toolPing,
		"get-gateway-status":   g.toolStatus,
		"get-user-permissions": g.toolUserPermissions,
		"get-available-tools":  g.toolAvailableTools,
		"get-policy":           g.toolGetPolicy,
		"add-policy":           g.adminOnly(g.toolAddPolicy),
		"remove-policy":        g.adminOnly(g.toolRemovePolicy),
		"get-user-role":        g.toolGetUserRole,
		"add-user-role":        g.adminOnly(g.toolAddUserRole),
		"remove-user-role":     g.adminOnly(g.toolRemoveUserRole),
	}
}

// adminOnly wraps a management tool so it rejects any caller whose auth
// context role is not admin, independent of whatever policy rule the tool
// name itself resolves to — policy mutation is always admin-gated.
func (g *Gateway) adminOnly(tool managementTool) managementTool {
	return func(ctx context.Context, args map[string]any, authCtx map[string]any) (map[string]any, error) {
		role, ok := authRole(authCtx)
		if !ok || role != RoleAdmin {
			return nil, apierr.New(apierr.KindAccessDenied, "only admin may mutate policy")
		}
		return tool(ctx, args, authCtx)
	}
}

func (g *Gateway) toolPing(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	return map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}, nil
}

func (g *Gateway) toolStatus(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	return map[string]any{
		"uptime_seconds": time.Since(g.startedAt).Seconds(),
		"services":       g.registry.AvailableTools(),
		"dev_mode":       g.opts.DevMode,
	}, nil
}

func (g *Gateway) toolUserPermissions(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	role, ok := authRole(authCtx)
	if !ok {
		role = RoleUser
	}
	rules := g.policy.Rules()
	allowed := make([]string, 0)
	for _, r := range rules {
		if r.Role == role && r.Allow {
			allowed = append(allowed, r.Tool+":"+r.Action)
		}
	}
	return map[string]any{"role": string(role), "explicit_allow": allowed, "role_default_allow": roleDefault(role)}, nil
}

func (g *Gateway) toolAvailableTools(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	out := g.registry.AvailableTools()
	for name := range g.management {
		out["gateway"] = append(out["gateway"], name)
	}
	return map[string]any{"tools": out}, nil
}

func (g *Gateway) toolGetPolicy(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	rules := g.policy.Rules()
	out := make([]map[string]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, map[string]any{"role": string(r.Role), "tool": r.Tool, "action": r.Action, "allow": r.Allow})
	}
	return map[string]any{"rules": out}, nil
}

func (g *Gateway) toolAddPolicy(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	role, tool, action, allow, err := parsePolicyArgs(args)
	if err != nil {
		return nil, err
	}
	if err := g.policy.AddRule(role, tool, action, allow); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (g *Gateway) toolRemovePolicy(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	role, tool, action, _, err := parsePolicyArgs(args)
	if err != nil {
		return nil, err
	}
	if err := g.policy.RemoveRule(role, tool, action); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func parsePolicyArgs(args map[string]any) (role Role, tool, action string, allow bool, err error) {
	roleStr, _ := args["role"].(string)
	role = Role(roleStr)
	if !IsValidRole(role) {
		return "", "", "", false, apierr.ValidationField("role", "must be one of admin, event-owner, user")
	}
	tool, _ = args["tool"].(string)
	if tool == "" {
		return "", "", "", false, apierr.ValidationField("tool", "required")
	}
	action, _ = args["action"].(string)
	if action == "" {
		action = "invoke"
	}
	allow, _ = args["allow"].(bool)
	return role, tool, action, allow, nil
}

// toolGetUserRole and its mutators manage the coarse user-id -> role
// assignment table used by the chat adapter's auth-context builder; the
// gateway itself only enforces roles already attached to the auth context,
// so these hand off to the same policy-backed rule table keyed under the
// reserved tool name "__role-assignment__".
func (g *Gateway) toolGetUserRole(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	userID, _ := args["user_id"].(string)
	if userID == "" {
		return nil, apierr.ValidationField("user_id", "required")
	}
	role := RoleUser
	for _, r := range g.policy.Rules() {
		if r.Tool == "__role-assignment__" && r.Action == userID && r.Allow {
			role = r.Role
		}
	}
	return map[string]any{"user_id": userID, "role": string(role)}, nil
}

func (g *Gateway) toolAddUserRole(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	userID, _ := args["user_id"].(string)
	roleStr, _ := args["role"].(string)
	role := Role(roleStr)
	if userID == "" || !IsValidRole(role) {
		return nil, apierr.ValidationField("user_id/role", "both required, role must be valid")
	}
	if err := g.policy.AddRule(role, "__role-assignment__", userID, true); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (g *Gateway) toolRemoveUserRole(ctx context.Context, args, authCtx map[string]any) (map[string]any, error) {
	userID, _ := args["user_id"].(string)
	roleStr, _ := args["role"].(string)
	role := Role(roleStr)
	if userID == "" || !IsValidRole(role) {
		return nil, apierr.ValidationField("user_id/role", "both required, role must be valid")
	}
	if err := g.policy.RemoveRule(role, "__role-assignment__", userID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}
