package store

import (
	"testing"

	"questboard/internal/database"
)

func setupKidTestDB(t *testing.T) *KidStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewKidStore(db)
}

func TestKidCRUD(t *testing.T) {
	ks := setupKidTestDB(t)

	kid, err := ks.Create("Ada", "#ff0000")
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if kid.Name != "Ada" || kid.Color != "#ff0000" {
		t.Errorf("kid = %q/%q", kid.Name, kid.Color)
	}

	updated, err := ks.Update(kid.ID, "Ada Jr", "#00ff00")
	if err != nil {
		t.Fatalf("update kid: %v", err)
	}
	if updated.Name != "Ada Jr" || updated.Color != "#00ff00" {
		t.Errorf("updated = %q/%q", updated.Name, updated.Color)
	}

	missing, err := ks.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing kid")
	}
}

func TestKidDefaultColor(t *testing.T) {
	ks := setupKidTestDB(t)

	kid, err := ks.Create("Ben", "")
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if kid.Color != "#3b82f6" {
		t.Errorf("color = %q, want default #3b82f6", kid.Color)
	}
}

func TestKidListOrderedByName(t *testing.T) {
	ks := setupKidTestDB(t)

	for _, name := range []string{"Zoe", "Ada", "Milo"} {
		if _, err := ks.Create(name, ""); err != nil {
			t.Fatalf("create kid: %v", err)
		}
	}

	kids, err := ks.List()
	if err != nil {
		t.Fatalf("list kids: %v", err)
	}
	want := []string{"Ada", "Milo", "Zoe"}
	if len(kids) != len(want) {
		t.Fatalf("kids = %d, want %d", len(kids), len(want))
	}
	for i, name := range want {
		if kids[i].Name != name {
			t.Errorf("kids[%d].Name = %q, want %q", i, kids[i].Name, name)
		}
	}
}
