package management

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc        *Service
	repo       *leadstest.Repo
	bus        *leadstest.Bus
	categories *leadstest.Categories
	storage    *leadstest.Storage
	manager    actor.Actor
	worker     actor.Actor
	categoryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       leadstest.NewRepo(),
		bus:        &leadstest.Bus{},
		storage:    leadstest.NewStorage(),
		manager:    actor.New(uuid.New(), actor.RoleManager),
		worker:     actor.New(uuid.New(), actor.RoleWorker),
		categoryID: uuid.New(),
	}
	f.categories = leadstest.NewCategories(f.categoryID)
	users := leadstest.NewUsers(f.manager, f.worker)
	f.svc = New(f.repo, f.categories, users, f.storage, f.bus, Config{
		PhoneRegion:    "US",
		DocumentBucket: "lead-documents",
	}, logger.New("test"))
	return f
}

func strPtr(s string) *string { return &s }

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equalf(t, kind, apperr.GetKind(err), "unexpected error: %v", err)
}

func TestCreateRequiresEmailOrPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.manager, transport.CreateLeadRequest{Name: "Ada"})

	requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, err.Error(), "Name, email or phone are required")
	assert.Empty(t, f.repo.Leads)
	assert.Empty(t, f.bus.Events)
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.manager, transport.CreateLeadRequest{Name: "Ada", Email: "ada@"})

	requireKind(t, err, apperr.KindValidation)
	assert.Empty(t, f.repo.Leads)
}

func TestCreateDuplicateEmailAllowedAfterSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := transport.CreateLeadRequest{Name: "Ada", Email: "Ada@Example.com"}

	first, err := f.svc.Create(ctx, f.manager, req)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", *first.Email)

	_, err = f.svc.Create(ctx, f.manager, req)
	requireKind(t, err, apperr.KindConflict)

	require.NoError(t, f.svc.SoftDelete(ctx, f.manager, first.ID))

	second, err := f.svc.Create(ctx, f.manager, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateWithCategoryActivatesIt(t *testing.T) {
	f := newFixture(t)

	lead, err := f.svc.Create(context.Background(), f.manager, transport.CreateLeadRequest{
		Name:       "Ada",
		Phone:      "+1 650 253 0000",
		CategoryID: &f.categoryID,
	})

	require.NoError(t, err)
	require.NotNil(t, lead.Category)
	assert.True(t, f.categories.IsActive(f.categoryID))
	assert.Equal(t, "new", lead.Status)
	assert.Equal(t, "+16502530000", *lead.Phone)
}

func TestCreateUnknownCategoryIsNotFound(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), f.manager, transport.CreateLeadRequest{
		Name: "Ada", Email: "ada@example.com", CategoryID: &missing,
	})

	requireKind(t, err, apperr.KindNotFound)
	assert.Empty(t, f.repo.Leads)
}

func TestCreateWithAssigneePublishesRoleResolvedEvent(t *testing.T) {
	f := newFixture(t)

	lead, err := f.svc.Create(context.Background(), f.manager, transport.CreateLeadRequest{
		Name: "Ada", Email: "ada@example.com", AssignedTo: &f.worker.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", lead.Status, "plain create never changes status because of an assignee")

	require.Len(t, f.bus.Events, 1)
	created, ok := f.bus.Events[0].(events.LeadCreated)
	require.True(t, ok)
	require.NotNil(t, created.Assignee)
	assert.Equal(t, f.worker, *created.Assignee)
	assert.Equal(t, f.manager, created.Actor)
}

func TestWorkerCreatedLeadStaysUnassignedButVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, err := f.svc.Create(ctx, f.worker, transport.CreateLeadRequest{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Nil(t, lead.AssignedTo)
	assert.Equal(t, "new", lead.Status)

	created, ok := f.bus.Events[0].(events.LeadCreated)
	require.True(t, ok)
	assert.Nil(t, created.Assignee)

	got, err := f.svc.Get(ctx, f.worker, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	mine, err := f.svc.List(ctx, f.worker, transport.ListLeadsRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, lead.ID, mine.Items[0].ID)

	require.NoError(t, f.svc.SoftDelete(ctx, f.manager, lead.ID), "an unassigned lead can be deleted")

	_, err = f.svc.Create(ctx, f.worker, transport.CreateLeadRequest{
		Name: "Bob", Email: "bob@example.com", AssignedTo: &f.manager.ID,
	})
	requireKind(t, err, apperr.KindForbidden)
}

func TestGetHidesOtherWorkersLeads(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	id := f.repo.Seed(repository.Lead{Name: "Ada", AssignedTo: &other})

	_, err := f.svc.Get(context.Background(), f.worker, id)
	requireKind(t, err, apperr.KindForbidden)

	lead, err := f.svc.Get(context.Background(), f.manager, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", lead.Name)
}

func TestGetDeletedLeadIsNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada", IsDeleted: true})

	_, err := f.svc.Get(context.Background(), f.manager, id)
	requireKind(t, err, apperr.KindNotFound)
}

func TestListPaginatesAndScopesWorkers(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.repo.Seed(repository.Lead{Name: "unassigned"})
	}
	f.repo.Seed(repository.Lead{Name: "mine", AssignedTo: &f.worker.ID})
	f.repo.Seed(repository.Lead{Name: "gone", AssignedTo: &f.worker.ID, IsDeleted: true})

	page, err := f.svc.List(context.Background(), f.manager, transport.ListLeadsRequest{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, transport.Pagination{CurrentPage: 2, TotalPages: 2, TotalLeads: 13, HasNext: false, HasPrev: true}, page.Pagination)

	mine, err := f.svc.List(context.Background(), f.worker, transport.ListLeadsRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "mine", mine.Items[0].Name)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), f.manager, transport.ListLeadsRequest{Status: "won"})
	requireKind(t, err, apperr.KindValidation)
}

func TestUpdateRejectsEmptyRequest(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada"})

	_, err := f.svc.Update(context.Background(), f.manager, id, transport.UpdateLeadRequest{})
	requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, err.Error(), "At least one field is required")
}

func TestUpdateRefusesAssignmentAndDeletionFields(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada"})

	for _, body := range []string{
		`{"name":"Ada B","assignedTo":"` + f.worker.ID.String() + `"}`,
		`{"name":"Ada B","assignedTo":null}`,
		`{"notes":"x","isDeleted":true}`,
	} {
		var req transport.UpdateLeadRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))

		_, err := f.svc.Update(context.Background(), f.manager, id, req)
		requireKind(t, err, apperr.KindValidation)
		assert.Contains(t, err.Error(), "cannot be changed")
	}

	stored, _ := f.repo.Lead(id)
	assert.Equal(t, "Ada", stored.Name)
	assert.Nil(t, stored.AssignedTo)
	assert.Empty(t, f.bus.Events)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada", Status: "closed"})

	_, err := f.svc.Update(context.Background(), f.manager, id, transport.UpdateLeadRequest{Status: strPtr("new")})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.svc.Update(context.Background(), f.manager, id, transport.UpdateLeadRequest{Status: strPtr("lost")})
	requireKind(t, err, apperr.KindValidation)
}

func TestUpdateEmailUniquenessExcludesSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.repo.Seed(repository.Lead{Name: "Ada", Email: strPtr("ada@example.com")})
	f.repo.Seed(repository.Lead{Name: "Bob", Email: strPtr("bob@example.com")})

	_, err := f.svc.Update(ctx, f.manager, ada, transport.UpdateLeadRequest{Email: strPtr("ADA@example.com")})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.manager, ada, transport.UpdateLeadRequest{Email: strPtr("bob@example.com")})
	requireKind(t, err, apperr.KindConflict)
}

func TestUpdateCategoryActivatesAndCanClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.repo.Seed(repository.Lead{Name: "Ada", AssignedTo: &f.worker.ID, AssignedRole: strPtr("worker")})

	lead, err := f.svc.Update(ctx, f.manager, id, transport.UpdateLeadRequest{
		Category: transport.OptionalUUID{Set: true, Value: &f.categoryID},
	})
	require.NoError(t, err)
	require.NotNil(t, lead.Category)
	assert.True(t, f.categories.IsActive(f.categoryID))

	updated, ok := f.bus.Events[0].(events.LeadUpdated)
	require.True(t, ok)
	assert.Equal(t, []string{"category"}, updated.Fields)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, f.worker, *updated.Assignee)

	lead, err = f.svc.Update(ctx, f.manager, id, transport.UpdateLeadRequest{
		Category: transport.OptionalUUID{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, lead.Category)
	assert.True(t, f.categories.IsActive(f.categoryID), "categories are never deactivated")
}

func TestSoftDeleteGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assigned := f.repo.Seed(repository.Lead{Name: "Ada", AssignedTo: &f.worker.ID})
	free := f.repo.Seed(repository.Lead{Name: "Bob"})

	err := f.svc.SoftDelete(ctx, f.manager, assigned)
	requireKind(t, err, apperr.KindConflict)

	require.NoError(t, f.svc.SoftDelete(ctx, f.manager, free))
	stored, _ := f.repo.Lead(free)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, []string{"leads.lead.deleted"}, f.bus.Names())

	err = f.svc.SoftDelete(ctx, f.manager, free)
	requireKind(t, err, apperr.KindNotFound)

	page, err := f.svc.List(ctx, f.manager, transport.ListLeadsRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, assigned, page.Items[0].ID)
}

func TestUploadDocumentStoresUnderLeadFolder(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada"})

	doc, err := f.svc.UploadDocument(context.Background(), f.manager, id, UploadDocumentInput{
		FileName:    "offer.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Reader:      strings.NewReader("%PDF-"),
	})
	require.NoError(t, err)

	assert.Equal(t, "leads/"+id.String()+"/offer.pdf", doc.Key)
	assert.Equal(t, "offer.pdf", *doc.Description)
	assert.Contains(t, doc.URL, "lead-documents")
	assert.Contains(t, f.storage.Objects, "lead-documents/"+doc.Key)

	lead, err := f.svc.Get(context.Background(), f.manager, id)
	require.NoError(t, err)
	require.Len(t, lead.Documents, 1)
}

func TestUploadDocumentValidatesContentType(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada"})

	_, err := f.svc.UploadDocument(context.Background(), f.manager, id, UploadDocumentInput{
		FileName:    "run.exe",
		ContentType: "application/x-msdownload",
		Size:        5,
		Reader:      strings.NewReader("MZ..."),
	})
	requireKind(t, err, apperr.KindValidation)
	assert.Empty(t, f.storage.Objects)
}

func TestUploadDocumentRemovesObjectWhenMetadataFails(t *testing.T) {
	f := newFixture(t)
	id := f.repo.Seed(repository.Lead{Name: "Ada"})
	f.repo.DocumentErr = errors.New("insert failed")

	_, err := f.svc.UploadDocument(context.Background(), f.manager, id, UploadDocumentInput{
		FileName:    "offer.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Reader:      strings.NewReader("%PDF-"),
	})
	require.Error(t, err)
	assert.Empty(t, f.storage.Objects)
}

func TestListByCategoryScopesWorkers(t *testing.T) {
	f := newFixture(t)
	f.repo.Seed(repository.Lead{Name: "mine", CategoryID: &f.categoryID, AssignedTo: &f.worker.ID})
	f.repo.Seed(repository.Lead{Name: "other", CategoryID: &f.categoryID})

	all, err := f.svc.ListByCategory(context.Background(), f.manager, f.categoryID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.ListByCategory(context.Background(), f.worker, f.categoryID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Name)

	_, err = f.svc.ListByCategory(context.Background(), f.manager, uuid.New())
	requireKind(t, err, apperr.KindNotFound)
}
