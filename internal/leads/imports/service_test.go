package imports

import (
	"context"
	"strings"
	"testing"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/leadstest"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "name,email,phoneNumber,priority\n" +
	"Ada,ada@example.com,+1 650 253 0000,high\n" +
	"Cy,not-an-email,,low\n" +
	"Bob,bob@example.com,,\n"

type fixture struct {
	svc        *Service
	repo       *leadstest.Repo
	bus        *leadstest.Bus
	categories *leadstest.Categories
	manager    actor.Actor
	worker     actor.Actor
	categoryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       leadstest.NewRepo(),
		bus:        &leadstest.Bus{},
		manager:    actor.New(uuid.New(), actor.RoleManager),
		worker:     actor.New(uuid.New(), actor.RoleWorker),
		categoryID: uuid.New(),
	}
	f.categories = leadstest.NewCategories(f.categoryID)
	users := leadstest.NewUsers(f.manager, f.worker)
	f.svc = New(f.repo, f.categories, users, f.bus, Config{PhoneRegion: "US", MaxRows: 100}, logger.New("test"))
	return f
}

func TestImportReportsRowErrors(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader(sampleCSV), transport.ImportOptions{
		AssignedTo: &f.worker.ID,
		CategoryID: &f.categoryID,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, transport.ImportRowError{Row: 3, Name: "Cy", Email: "not-an-email", Error: msgInvalidEmail}, result.Errors[0])

	require.Len(t, f.repo.Leads, 2)
	for _, lead := range f.repo.Leads {
		assert.Equal(t, "in-progress", lead.Status)
		require.NotNil(t, lead.AssignedTo)
		assert.Equal(t, f.worker.ID, *lead.AssignedTo)
		if lead.Name == "Ada" {
			require.NotNil(t, lead.Phone)
			assert.Equal(t, "+16502530000", *lead.Phone)
			assert.Equal(t, "high", lead.Priority)
		}
	}

	assert.True(t, f.categories.IsActive(f.categoryID))
	require.Equal(t, []string{"leads.imported"}, f.bus.Names())
	imported := f.bus.Events[0].(events.LeadsImported)
	assert.Equal(t, 2, imported.Successful)
}

func TestImportSkipsDuplicatesWithinBatch(t *testing.T) {
	f := newFixture(t)
	input := "name,email\nAda,ada@example.com\nAda Again,ADA@example.com\n"

	result, err := f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader(input), transport.ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, msgDuplicateEmail, result.Errors[0].Error)
	for _, lead := range f.repo.Leads {
		assert.Equal(t, "new", lead.Status)
		assert.Nil(t, lead.AssignedTo)
	}
}

func TestImportAssigneeRules(t *testing.T) {
	f := newFixture(t)
	opts := func(id uuid.UUID) transport.ImportOptions { return transport.ImportOptions{AssignedTo: &id} }

	_, err := f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader(sampleCSV), opts(f.manager.ID))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
	assert.Contains(t, err.Error(), msgAssigneeNotFound)

	_, err = f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader(sampleCSV), opts(uuid.New()))
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))

	_, err = f.svc.Import(context.Background(), f.worker, "leads.csv", strings.NewReader(sampleCSV), opts(uuid.New()))
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
	assert.Empty(t, f.repo.Leads)
}

func TestImportByWorkerSelfAssigns(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Import(context.Background(), f.worker, "leads.csv", strings.NewReader("name,email\nAda,ada@example.com\n"), transport.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)

	for _, lead := range f.repo.Leads {
		require.NotNil(t, lead.AssignedTo)
		assert.Equal(t, f.worker.ID, *lead.AssignedTo)
		assert.Equal(t, "new", lead.Status)
	}
}

func TestImportRejectsBadFiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), f.manager, "leads.pdf", strings.NewReader("x"), transport.ImportOptions{})
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	_, err = f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader("name,email\n"), transport.ImportOptions{})
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	missing := uuid.New()
	_, err = f.svc.Import(context.Background(), f.manager, "leads.csv", strings.NewReader(sampleCSV), transport.ImportOptions{CategoryID: &missing})
	assert.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}
