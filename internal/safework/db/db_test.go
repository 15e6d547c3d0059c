package db

import (
	"context"
	"errors"
	"testing"
	"time"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/gartstein/safework/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupTestDB opens an in-memory SQLite database with the schema applied.
func SetupTestDB(t *testing.T) *Repository {
	repo, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newClient(taxID string) *models.ClientCompany {
	c := &models.ClientCompany{Registrant: models.NewRegistrant(models.LegalEntity, taxID, "Client "+taxID, true)}
	c.ID = uuid.New()
	return c
}

func newEmployee(clientID uuid.UUID, taxID string) *models.Employee {
	emp := &models.Employee{
		Registrant:      models.NewRegistrant(models.Individual, taxID, "Employee "+taxID, true),
		JobFunction:     "Operator",
		ClientCompanyID: clientID,
	}
	emp.ID = uuid.New()
	return emp
}

func newAddress() *models.Address {
	return &models.Address{
		ID: uuid.New(), Street: "Av. Paulista", Number: "1000", Neighborhood: "Bela Vista",
		Municipality: "Sao Paulo", StateCode: "SP", PostalCode: "01310100",
	}
}

// TestMigrateIsIdempotent applies the schema a second time.
func TestMigrateIsIdempotent(t *testing.T) {
	repo := SetupTestDB(t)
	assert.NoError(t, repo.Migrate(context.Background()))
}

// TestSeedIsIdempotent runs the seed twice and counts the reference rows.
func TestSeedIsIdempotent(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	admin := &models.User{
		ID: uuid.New(), Name: "Admin", Email: "admin@safework.com", PasswordHash: "hash",
		ProfileID: models.ProfileRootID, ServiceProviderID: models.DefaultProviderID, Active: true,
	}
	require.NoError(t, repo.Seed(ctx, admin))

	again := *admin
	again.ID = uuid.New()
	require.NoError(t, repo.Seed(ctx, &again))

	profiles, err := repo.ListProfiles(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{models.ProfileRoot, models.ProfileAdministrator, models.ProfileCollaborator}, names)

	providers, err := repo.ListProviders(ctx, models.RegistrantFilter{})
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, models.DefaultProviderID, providers[0].ID)

	users, err := repo.ListUsers(ctx, models.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)
	assert.Equal(t, models.ProfileRoot, users[0].ProfileName())
}

// TestPersonTypeStoredAsText reads the discriminator column directly.
func TestPersonTypeStoredAsText(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c))

	var personType string
	require.NoError(t, repo.db.Raw("SELECT person_type FROM client_companies WHERE id = ?", c.ID).Scan(&personType).Error)
	assert.Equal(t, "LEGAL_ENTITY", personType)
}

func TestCreateAndGetClient(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c), "CreateClient should succeed")

	got, err := repo.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.LegalName, got.LegalName)
	assert.Equal(t, models.LegalEntity, got.PersonType)
	assert.True(t, got.Active)
}

func TestGetClientNotFound(t *testing.T) {
	repo := SetupTestDB(t)
	_, err := repo.GetClient(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestDuplicateTaxIDWithinSpecialization(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateClient(ctx, newClient("12345678000190")))
	err := repo.CreateClient(ctx, newClient("12345678000190"))
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity)
}

func TestTaxIDLengthEnforcedBySchema(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	c.PersonType = models.Individual
	err := repo.CreateClient(ctx, c)
	assert.ErrorIs(t, err, e.ErrValidation)
}

func TestUpdateClient(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c))

	c.TradeName = "Acme"
	c.Active = false
	require.NoError(t, repo.UpdateClient(ctx, c))

	got, err := repo.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.TradeName)
	assert.False(t, got.Active)
}

func TestUpdateClientNotFound(t *testing.T) {
	repo := SetupTestDB(t)
	err := repo.UpdateClient(context.Background(), newClient("12345678000190"))
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestEmployeeRequiresExistingClient(t *testing.T) {
	repo := SetupTestDB(t)
	err := repo.CreateEmployee(context.Background(), newEmployee(uuid.New(), "12345678901"))
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity)
}

// TestOpenSQLiteEnforcesEmployeeClientFK opens a fresh SQLite database and
// checks the employee table carries its client reference.
func TestOpenSQLiteEnforcesEmployeeClientFK(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err, "schema must apply on SQLite")
	t.Cleanup(func() { _ = repo.Close() })

	var enabled int
	require.NoError(t, repo.db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)

	var refs []struct {
		Table string `gorm:"column:table"`
		From  string `gorm:"column:from"`
	}
	require.NoError(t, repo.db.Raw("PRAGMA foreign_key_list(employees)").Scan(&refs).Error)
	targets := make(map[string]string, len(refs))
	for _, ref := range refs {
		targets[ref.From] = ref.Table
	}
	assert.Equal(t, "client_companies", targets["client_company_id"])
	assert.Equal(t, "addresses", targets["address_id"])

	err = repo.CreateEmployee(ctx, newEmployee(uuid.New(), "12345678901"))
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity)

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c))
	assert.NoError(t, repo.CreateEmployee(ctx, newEmployee(c.ID, "12345678901")))
}

func TestContractRequiresExistingCompanies(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx, nil))

	contract := &models.Contract{
		ID:                uuid.New(),
		ClientCompanyID:   uuid.New(),
		ServiceProviderID: models.DefaultProviderID,
		StartDate:         time.Now(),
		Active:            true,
	}
	err := repo.CreateContract(ctx, contract)
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity, "contract with unknown client must be rejected")

	_, err = repo.GetContract(ctx, contract.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "rejected contract must not be stored")
}

func TestContractQueries(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx, nil))

	contracted := newClient("12345678000190")
	other := newClient("98765432000110")
	require.NoError(t, repo.CreateClient(ctx, contracted))
	require.NoError(t, repo.CreateClient(ctx, other))

	contract := &models.Contract{
		ID: uuid.New(), ClientCompanyID: contracted.ID, ServiceProviderID: models.DefaultProviderID,
		StartDate: time.Now(), Active: true,
	}
	require.NoError(t, repo.CreateContract(ctx, contract))

	ok, err := repo.HasActiveContract(ctx, contracted.ID, models.DefaultProviderID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasActiveContract(ctx, other.ID, models.DefaultProviderID)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.ContractedClientIDs(ctx, models.DefaultProviderID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{contracted.ID}, ids)

	list, err := repo.ListContracts(ctx, models.ContractFilter{ClientCompanyID: &other.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.DeleteContract(ctx, contract.ID))
	assert.ErrorIs(t, repo.DeleteContract(ctx, contract.ID), e.ErrNotFound)
}

func TestDeleteAddressInUse(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	addr := newAddress()
	require.NoError(t, repo.CreateAddress(ctx, addr))

	c := newClient("12345678000190")
	c.AddressID = &addr.ID
	require.NoError(t, repo.CreateClient(ctx, c))

	assert.ErrorIs(t, repo.DeleteAddress(ctx, addr.ID), e.ErrReferentialIntegrity)

	c.AddressID = nil
	require.NoError(t, repo.UpdateClient(ctx, c))
	assert.NoError(t, repo.DeleteAddress(ctx, addr.ID))
}

func TestEmployeeWithExamsCannotBeRemovedImplicitly(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c))
	emp := newEmployee(c.ID, "12345678901")
	require.NoError(t, repo.CreateEmployee(ctx, emp))

	exam := &models.HealthExam{ID: uuid.New(), EmployeeID: emp.ID, Kind: models.ExamAdmission,
		ExamDate: time.Now(), Result: models.ResultFit}
	require.NoError(t, repo.CreateExam(ctx, exam))

	err := repo.Exec(ctx, "DELETE FROM employees WHERE id = ?", emp.ID)
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity)

	err = repo.Exec(ctx, "DELETE FROM client_companies WHERE id = ?", c.ID)
	assert.ErrorIs(t, err, e.ErrReferentialIntegrity)

	exams, err := repo.ListExams(ctx, &emp.ID, nil)
	require.NoError(t, err)
	assert.Len(t, exams, 1)
}

func TestDeactivateEmployees(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	require.NoError(t, repo.CreateClient(ctx, c))
	require.NoError(t, repo.CreateEmployee(ctx, newEmployee(c.ID, "12345678901")))
	require.NoError(t, repo.CreateEmployee(ctx, newEmployee(c.ID, "10987654321")))

	n, err := repo.DeactivateEmployees(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := repo.ListEmployees(ctx, models.EmployeeFilter{ClientCompanyID: &c.ID, Active: utils.Ptr(true)})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.ListEmployees(ctx, models.EmployeeFilter{ClientCompanyID: &c.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUserEmailUnique(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx, nil))

	u := &models.User{ID: uuid.New(), Name: "Ana", Email: "ana@safework.com", PasswordHash: "h",
		ProfileID: models.ProfileCollaboratorID, ServiceProviderID: models.DefaultProviderID, Active: true}
	require.NoError(t, repo.CreateUser(ctx, u))

	dup := *u
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), e.ErrReferentialIntegrity)

	got, err := repo.GetUserByEmail(ctx, "  ANA@safework.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.ProfileCollaborator, got.ProfileName())

	require.NoError(t, repo.UpdateUserPassword(ctx, u.ID, "new-hash"))
	got, err = repo.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, repo.DeleteProfile(ctx, models.ProfileCollaboratorID), e.ErrReferentialIntegrity)
}

func TestUserRequiresExistingProfile(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Seed(ctx, nil))

	u := &models.User{ID: uuid.New(), Name: "Bob", Email: "bob@safework.com", PasswordHash: "h",
		ProfileID: uuid.New(), ServiceProviderID: models.DefaultProviderID, Active: true}
	assert.ErrorIs(t, repo.CreateUser(ctx, u), e.ErrReferentialIntegrity)
}

// TestWithTransaction ensures a failing transaction leaves nothing behind.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	c := newClient("12345678000190")
	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		if err := txRepo.CreateClient(ctx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetClient(ctx, c.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "rolled back client should not be found")

	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		return txRepo.CreateClient(ctx, c)
	})
	require.NoError(t, err)
	_, err = repo.GetClient(ctx, c.ID)
	assert.NoError(t, err)
}

func TestListEmployeesByClientSet(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	a := newClient("12345678000190")
	b := newClient("98765432000110")
	require.NoError(t, repo.CreateClient(ctx, a))
	require.NoError(t, repo.CreateClient(ctx, b))
	ea := newEmployee(a.ID, "12345678901")
	require.NoError(t, repo.CreateEmployee(ctx, ea))
	require.NoError(t, repo.CreateEmployee(ctx, newEmployee(b.ID, "10987654321")))

	got, err := repo.ListEmployees(ctx, models.EmployeeFilter{ClientCompanyIDs: []uuid.UUID{a.ID}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ea.ID, got[0].ID)

	got, err = repo.ListEmployees(ctx, models.EmployeeFilter{ClientCompanyIDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, got, "an empty set matches nothing")

	exams, err := repo.ListExams(ctx, nil, []uuid.UUID{})
	require.NoError(t, err)
	assert.Empty(t, exams)
}

func TestStatementsPerDialect(t *testing.T) {
	for _, stmt := range Statements(DriverPostgres) {
		assert.NotContains(t, stmt, "{uuid}")
		assert.NotContains(t, stmt, "{timestamp}")
	}
	assert.Contains(t, Statements(DriverPostgres)[0], "id UUID PRIMARY KEY")
	assert.Contains(t, Statements(DriverSQLite)[0], "id TEXT PRIMARY KEY")
}
