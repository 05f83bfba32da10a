package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestBuildLeadListWhereAlwaysExcludesDeleted(t *testing.T) {
	where, args, next := buildLeadListWhere(ListParams{})
	if where != "l.is_deleted = false" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 0 || next != 1 {
		t.Fatalf("args = %v next = %d", args, next)
	}
}

func TestBuildLeadListWhereScopesWorker(t *testing.T) {
	worker := uuid.New()
	status := "follow-up"
	where, args, next := buildLeadListWhere(ListParams{Owner: &worker, Status: &status})

	want := "l.is_deleted = false AND (l.assigned_to = $1 OR (l.assigned_to IS NULL AND l.created_by = $1)) AND l.status = $2"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 2 || args[0] != worker || args[1] != status {
		t.Fatalf("args = %v", args)
	}
	if next != 3 {
		t.Fatalf("next placeholder = %d", next)
	}
}

func TestBuildConversationWhere(t *testing.T) {
	lead, author := uuid.New(), uuid.New()

	cases := []struct {
		name    string
		filter  ConversationFilter
		want    string
		numArgs int
	}{
		{"default hides deleted", ConversationFilter{}, "cv.is_deleted = false", 0},
		{"include deleted", ConversationFilter{IncludeDeleted: true}, "true", 0},
		{"lead and author", ConversationFilter{LeadID: &lead, AddedBy: &author}, "cv.is_deleted = false AND cv.lead_id = $1 AND cv.added_by = $2", 2},
		{"lead with tombstones", ConversationFilter{LeadID: &lead, IncludeDeleted: true}, "cv.lead_id = $1", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			where, args := buildConversationWhere(tc.filter)
			if where != tc.want {
				t.Errorf("where = %q, want %q", where, tc.want)
			}
			if len(args) != tc.numArgs {
				t.Errorf("args = %v", args)
			}
		})
	}
}

func TestLeadSelectJoinsCategory(t *testing.T) {
	if !strings.Contains(leadFromClause, "LEFT JOIN categories") {
		t.Fatal("lead reads must join the category for title and color")
	}
}
