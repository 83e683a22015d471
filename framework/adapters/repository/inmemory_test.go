package repository

import (
	"context"
	"testing"

	"github.com/akriventsev/ordering/framework/core"
)

type account struct {
	IDField string
	Email   string
	City    string
}

func (a account) ID() string {
	return a.IDField
}

func newAccounts() *InMemoryRepository[account] {
	repo := NewInMemoryRepository[account](DefaultInMemoryConfig())
	repo.AddUniqueIndex("email", func(a account) string { return a.Email })
	repo.AddIndex("city", func(a account) string { return a.City })
	return repo
}

func TestInMemoryRepository_SaveAndFind(t *testing.T) {
	repo := newAccounts()
	ctx := context.Background()

	if err := repo.Save(ctx, account{IDField: "a-1", Email: "a@example.com", City: "Oslo"}); err != nil {
		t.Fatalf("Failed to save entity: %v", err)
	}

	found, err := repo.FindByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if found.Email != "a@example.com" {
		t.Errorf("Expected email a@example.com, got %s", found.Email)
	}
}

func TestInMemoryRepository_Save_EmptyID(t *testing.T) {
	repo := newAccounts()

	err := repo.Save(context.Background(), account{Email: "a@example.com"})
	if !core.HasCode(err, core.ErrValidation) {
		t.Errorf("Expected VALIDATION_ERROR, got %v", err)
	}
}

func TestInMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := newAccounts()

	_, err := repo.FindByID(context.Background(), "missing")
	if !core.HasCode(err, core.ErrNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestInMemoryRepository_UniqueIndex(t *testing.T) {
	repo := newAccounts()
	ctx := context.Background()

	if err := repo.Save(ctx, account{IDField: "a-1", Email: "same@example.com"}); err != nil {
		t.Fatalf("Failed to save entity: %v", err)
	}

	err := repo.Save(ctx, account{IDField: "a-2", Email: "same@example.com"})
	if !core.HasCode(err, core.ErrAlreadyExists) {
		t.Fatalf("Expected ALREADY_EXISTS, got %v", err)
	}

	// replacing the owner of the key is allowed
	if err := repo.Save(ctx, account{IDField: "a-1", Email: "same@example.com", City: "Rome"}); err != nil {
		t.Errorf("Expected update to succeed, got %v", err)
	}

	// the key is released after the owner changes it
	if err := repo.Save(ctx, account{IDField: "a-1", Email: "new@example.com"}); err != nil {
		t.Fatalf("Failed to update entity: %v", err)
	}
	if err := repo.Save(ctx, account{IDField: "a-2", Email: "same@example.com"}); err != nil {
		t.Errorf("Expected released key to be reusable, got %v", err)
	}
}

func TestInMemoryRepository_FindByIndex(t *testing.T) {
	repo := newAccounts()
	ctx := context.Background()

	_ = repo.Save(ctx, account{IDField: "a-2", Email: "2@example.com", City: "Oslo"})
	_ = repo.Save(ctx, account{IDField: "a-1", Email: "1@example.com", City: "Oslo"})
	_ = repo.Save(ctx, account{IDField: "a-3", Email: "3@example.com", City: "Rome"})

	results, err := repo.FindByIndex(ctx, "city", "Oslo")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 2 || results[0].IDField != "a-1" || results[1].IDField != "a-2" {
		t.Errorf("Expected [a-1 a-2], got %v", results)
	}

	if _, err := repo.FindByIndex(ctx, "missing", "x"); err == nil {
		t.Error("Expected error for unknown index")
	}
}

func TestInMemoryRepository_Delete(t *testing.T) {
	repo := newAccounts()
	ctx := context.Background()

	_ = repo.Save(ctx, account{IDField: "a-1", Email: "1@example.com", City: "Oslo"})

	if err := repo.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := repo.Delete(ctx, "a-1"); !core.HasCode(err, core.ErrNotFound) {
		t.Errorf("Expected NOT_FOUND on second delete, got %v", err)
	}

	results, _ := repo.FindByIndex(ctx, "city", "Oslo")
	if len(results) != 0 {
		t.Errorf("Expected index to be cleaned, got %v", results)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Expected 0 entities, got %d", n)
	}
}

func TestInMemoryRepository_MaxEntities(t *testing.T) {
	repo := NewInMemoryRepository[account](InMemoryConfig{MaxEntities: 1})
	ctx := context.Background()

	_ = repo.Save(ctx, account{IDField: "a-1"})
	if err := repo.Save(ctx, account{IDField: "a-2"}); err == nil {
		t.Error("Expected limit error")
	}
	if err := repo.Save(ctx, account{IDField: "a-1", City: "Oslo"}); err != nil {
		t.Errorf("Expected update within limit, got %v", err)
	}
}

func TestInMemoryRepository_Find(t *testing.T) {
	repo := newAccounts()
	ctx := context.Background()

	_ = repo.Save(ctx, account{IDField: "a-1", Email: "1@example.com", City: "Oslo"})
	_ = repo.Save(ctx, account{IDField: "a-2", Email: "2@example.com", City: "Rome"})

	results, _ := repo.Find(ctx, func(a account) bool { return a.City == "Rome" })
	if len(results) != 1 || results[0].IDField != "a-2" {
		t.Errorf("Expected [a-2], got %v", results)
	}

	all, _ := repo.FindAll(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 entities, got %d", len(all))
	}
}
