// Package contactstest checks that contacts.Repository implementations behave alike.
package contactstest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/animalet/sargantana-contacts/pkg/contacts"
)

// Factory returns an empty repository. The repository is closed by the contract.
type Factory func(t *testing.T) contacts.Repository

// RunRepository runs the repository contract against repositories built by newRepo.
func RunRepository(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("create assigns ids and timestamps", func(t *testing.T) {
		repo := open(t, newRepo)
		ctx := context.Background()

		first := contacts.Contact{Name: "Ada", Email: "ada@example.com"}
		second := contacts.Contact{Name: "Grace"}
		mustCreate(t, repo, &first)
		mustCreate(t, repo, &second)

		if first.ID == 0 || second.ID == 0 || first.ID == second.ID {
			t.Fatalf("expected distinct non-zero ids, got %d and %d", first.ID, second.ID)
		}
		if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
			t.Fatalf("expected timestamps to be set: %+v", first)
		}

		got, err := repo.Get(ctx, first.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "Ada" || got.Email != "ada@example.com" {
			t.Fatalf("unexpected contact: %+v", got)
		}
	})

	t.Run("list is ordered by name then id", func(t *testing.T) {
		repo := open(t, newRepo)
		for _, name := range []string{"Linus", "Ada", "Linus", "Barbara"} {
			c := contacts.Contact{Name: name}
			mustCreate(t, repo, &c)
		}
		list, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, c := range list {
			names = append(names, c.Name)
		}
		if strings.Join(names, ",") != "Ada,Barbara,Linus,Linus" {
			t.Fatalf("unexpected order: %v", names)
		}
		if list[2].ID >= list[3].ID {
			t.Fatalf("expected equal names ordered by id: %d, %d", list[2].ID, list[3].ID)
		}
	})

	t.Run("list ignores case when ordering names", func(t *testing.T) {
		repo := open(t, newRepo)
		for _, name := range []string{"bob", "Carol", "alice", "Bob"} {
			c := contacts.Contact{Name: name}
			mustCreate(t, repo, &c)
		}
		list, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, c := range list {
			names = append(names, c.Name)
		}
		if strings.Join(names, ",") != "alice,bob,Bob,Carol" {
			t.Fatalf("unexpected order: %v", names)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		repo := open(t, newRepo)
		list, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("expected an empty non-nil list, got %#v", list)
		}
	})

	t.Run("update replaces fields", func(t *testing.T) {
		repo := open(t, newRepo)
		ctx := context.Background()
		c := contacts.Contact{Name: "Ada"}
		mustCreate(t, repo, &c)

		c.Name = "Ada Lovelace"
		c.Email = "ada@example.com"
		if err := repo.Update(ctx, &c); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, err := repo.Get(ctx, c.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "Ada Lovelace" || got.Email != "ada@example.com" {
			t.Fatalf("update not stored: %+v", got)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Fatalf("updated_at before created_at: %+v", got)
		}
	})

	t.Run("missing ids", func(t *testing.T) {
		repo := open(t, newRepo)
		ctx := context.Background()
		if _, err := repo.Get(ctx, 424242); !errors.Is(err, contacts.ErrNotFound) {
			t.Fatalf("Get: expected ErrNotFound, got %v", err)
		}
		missing := contacts.Contact{ID: 424242, Name: "Nobody"}
		if err := repo.Update(ctx, &missing); !errors.Is(err, contacts.ErrNotFound) {
			t.Fatalf("Update: expected ErrNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, 424242); !errors.Is(err, contacts.ErrNotFound) {
			t.Fatalf("Delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete removes the contact", func(t *testing.T) {
		repo := open(t, newRepo)
		ctx := context.Background()
		c := contacts.Contact{Name: "Ada"}
		mustCreate(t, repo, &c)
		if err := repo.Delete(ctx, c.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := repo.Get(ctx, c.ID); !errors.Is(err, contacts.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("invalid contacts are rejected", func(t *testing.T) {
		repo := open(t, newRepo)
		ctx := context.Background()
		for _, c := range []contacts.Contact{
			{Name: ""},
			{Name: strings.Repeat("x", 101)},
			{Name: "Ada", Email: "not-an-email"},
		} {
			if err := repo.Create(ctx, &c); contacts.FieldErrors(err) == nil {
				t.Errorf("Create(%+v): expected validation error, got %v", c, err)
			}
		}
		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("invalid contacts were stored: %+v", list)
		}
	})

	t.Run("ping", func(t *testing.T) {
		repo := open(t, newRepo)
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

func open(t *testing.T, newRepo Factory) contacts.Repository {
	t.Helper()
	repo := newRepo(t)
	t.Cleanup(repo.Close)
	return repo
}

func mustCreate(t *testing.T, repo contacts.Repository, c *contacts.Contact) {
	t.Helper()
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create(%+v): %v", *c, err)
	}
}
