package actor

import (
	"testing"

	"github.com/google/uuid"
)

func TestDedupeKeepsOrderAndDropsZero(t *testing.T) {
	a := New(uuid.New(), RoleManager)
	b := New(uuid.New(), RoleWorker)

	got := Dedupe([]Actor{a, {}, b, a, New(b.ID, RoleManager)})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("Dedupe = %+v", got)
	}
}

func TestParseRole(t *testing.T) {
	if _, ok := ParseRole("admin"); ok {
		t.Fatal("admin must not parse")
	}
	if r, ok := ParseRole("worker"); !ok || r != RoleWorker {
		t.Fatalf("ParseRole(worker) = %v, %v", r, ok)
	}
}
