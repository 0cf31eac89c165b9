package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"piggybank/internal/models"
)

func TestUserStoreCreate(t *testing.T) {
	ctx := context.Background()
	parentID := "parent-1"
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO users") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 7 || args[0] != "user-1" || args[1] != "kid" || args[4] != models.RoleChild {
				t.Fatalf("unexpected args: %#v", args)
			}
			if ptr, ok := args[5].(*string); !ok || ptr == nil || *ptr != "parent-1" {
				t.Fatalf("unexpected parent arg: %#v", args[5])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewUserStore(stubDB{})
	user := models.User{
		ID:           "user-1",
		Username:     "kid",
		Email:        "kid@example.com",
		PasswordHash: "hash",
		Role:         models.RoleChild,
		ParentID:     &parentID,
		Active:       true,
	}
	if err := store.Create(ctx, execer, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserStoreGetByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE email = $1") || !strings.Contains(query, "password_hash") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "email@example.com" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.User) = models.User{ID: "user-1"}
			return nil
		},
	})
	row, err := store.GetByEmail(ctx, "email@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID != "user-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestUserStoreGetByUsernameNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE username = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByUsername(ctx, "ghost"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUserStoreGetByID(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.User) = models.User{ID: "user-1", Username: "alice"}
			return nil
		},
	})
	row, err := store.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Username != "alice" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestUserStoreListChildren(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE parent_id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "parent-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.User) = []models.User{{ID: "kid-1"}, {ID: "kid-2"}}
			return nil
		},
	})
	rows, err := store.ListChildren(ctx, "parent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestUserStoreListAll(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM users ORDER BY") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]models.User) = []models.User{{ID: "user-1"}}
			return nil
		},
	})
	rows, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}
