package tool

import "database/sql"

// Deps carries the external resources a deployment can offer to tools.
// The registry inspects it to decide which capabilities exist.
type Deps struct {
	// DB enables the data-lookup tools when set. Tools query through
	// this handle; they never open their own connections.
	DB *sql.DB
}

// Registry resolves the capability set for a run.
//
// Resolution is deterministic: two calls with equivalent Deps yield the
// same tools with the same names and schemas, in the same order. The
// engine relies on this — capability availability must not change
// mid-conversation.
//
// The built-in set mirrors the system's standing capabilities: the
// data-lookup tools (user by email, item by id, items by owner) when a
// database handle is present, and the HTTP request tool always. Extra
// tools registered at construction are appended after the built-ins.
type Registry struct {
	extra []Tool
}

// NewRegistry creates a registry, optionally extended with custom tools.
func NewRegistry(extra ...Tool) *Registry {
	return &Registry{extra: extra}
}

// Resolve returns the capability set for the given dependencies.
//
// Order: data-lookup tools (if Deps.DB is set), HTTP request tool,
// then custom tools in registration order.
func (r *Registry) Resolve(deps Deps) []Tool {
	var tools []Tool
	if deps.DB != nil {
		tools = append(tools,
			NewUserLookupTool(deps.DB),
			NewItemLookupTool(deps.DB),
			NewUserItemsTool(deps.DB),
		)
	}
	tools = append(tools, NewHTTPTool())
	tools = append(tools, r.extra...)
	return tools
}
