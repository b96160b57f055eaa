package tool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentgraph/agentgraph/graph/model"
)

// Data-lookup tools expose read-only queries over the application's
// users and items tables. They follow the capability contract for
// failures: a missing row or a query error comes back as a structured
// {"error": ...} result so the model can observe it and adjust, rather
// than aborting the run. Only invalid input (a missing required
// parameter) is a Go error.

const defaultItemsLimit = 10

// UserLookupTool looks up a user by email address.
type UserLookupTool struct {
	db *sql.DB
}

// NewUserLookupTool creates the lookup_user_by_email capability.
func NewUserLookupTool(db *sql.DB) *UserLookupTool {
	return &UserLookupTool{db: db}
}

// Name returns the tool identifier.
func (t *UserLookupTool) Name() string {
	return "lookup_user_by_email"
}

// Spec returns the machine-readable tool description.
func (t *UserLookupTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        "lookup_user_by_email",
		Description: "Look up a user by their email address. Returns user details including ID, name, and status.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Email address of the user to look up",
				},
			},
			"required": []string{"email"},
		},
	}
}

// Call executes the lookup.
func (t *UserLookupTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	email, ok := input["email"].(string)
	if !ok || email == "" {
		return nil, fmt.Errorf("email parameter required (string)")
	}

	var (
		id, fullName          string
		isActive, isSuperuser bool
	)
	query := `SELECT id, full_name, is_active, is_superuser FROM users WHERE email = ?`
	err := t.db.QueryRowContext(ctx, query, email).Scan(&id, &fullName, &isActive, &isSuperuser)
	if errors.Is(err, sql.ErrNoRows) {
		return errResult("no user found with email: " + email), nil
	}
	if err != nil {
		return errResult("database error: " + err.Error()), nil
	}

	return map[string]interface{}{
		"id":           id,
		"email":        email,
		"full_name":    fullName,
		"is_active":    isActive,
		"is_superuser": isSuperuser,
	}, nil
}

// ItemLookupTool looks up an item by its ID.
type ItemLookupTool struct {
	db *sql.DB
}

// NewItemLookupTool creates the lookup_item_by_id capability.
func NewItemLookupTool(db *sql.DB) *ItemLookupTool {
	return &ItemLookupTool{db: db}
}

// Name returns the tool identifier.
func (t *ItemLookupTool) Name() string {
	return "lookup_item_by_id"
}

// Spec returns the machine-readable tool description.
func (t *ItemLookupTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        "lookup_item_by_id",
		Description: "Look up an item by its UUID. Returns item details including title, description, and owner.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"item_id": map[string]interface{}{
					"type":        "string",
					"description": "UUID of the item to look up",
				},
			},
			"required": []string{"item_id"},
		},
	}
}

// Call executes the lookup.
func (t *ItemLookupTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	itemID, ok := input["item_id"].(string)
	if !ok || itemID == "" {
		return nil, fmt.Errorf("item_id parameter required (string)")
	}

	var title, description, ownerID string
	query := `SELECT title, description, owner_id FROM items WHERE id = ?`
	err := t.db.QueryRowContext(ctx, query, itemID).Scan(&title, &description, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return errResult("no item found with ID: " + itemID), nil
	}
	if err != nil {
		return errResult("database error: " + err.Error()), nil
	}

	return map[string]interface{}{
		"id":          itemID,
		"title":       title,
		"description": description,
		"owner_id":    ownerID,
	}, nil
}

// UserItemsTool lists the items owned by a user.
type UserItemsTool struct {
	db *sql.DB
}

// NewUserItemsTool creates the lookup_user_items capability.
func NewUserItemsTool(db *sql.DB) *UserItemsTool {
	return &UserItemsTool{db: db}
}

// Name returns the tool identifier.
func (t *UserItemsTool) Name() string {
	return "lookup_user_items"
}

// Spec returns the machine-readable tool description.
func (t *UserItemsTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        "lookup_user_items",
		Description: "Look up all items owned by a specific user. Returns a list of items with pagination.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "UUID of the user whose items to retrieve",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of items to return (1-100, default 10)",
				},
			},
			"required": []string{"user_id"},
		},
	}
}

// Call executes the lookup.
func (t *UserItemsTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	userID, ok := input["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("user_id parameter required (string)")
	}

	limit := defaultItemsLimit
	// JSON numbers decode as float64.
	if raw, ok := input["limit"].(float64); ok && raw > 0 {
		limit = int(raw)
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT id, title, description FROM items WHERE owner_id = ? LIMIT ?`
	rows, err := t.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return errResult("database error: " + err.Error()), nil
	}
	defer rows.Close()

	items := []map[string]interface{}{}
	for rows.Next() {
		var id, title, description string
		if err := rows.Scan(&id, &title, &description); err != nil {
			return errResult("database error: " + err.Error()), nil
		}
		items = append(items, map[string]interface{}{
			"id":          id,
			"title":       title,
			"description": description,
			"owner_id":    userID,
		})
	}
	if err := rows.Err(); err != nil {
		return errResult("database error: " + err.Error()), nil
	}

	return map[string]interface{}{
		"count": len(items),
		"items": items,
		"limit": limit,
	}, nil
}

func errResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}
