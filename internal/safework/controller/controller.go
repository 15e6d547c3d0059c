// Package controller implements the business rules of the registry:
// role checks, validation, transactional writes and lifecycle events for
// every cadastral entity.
package controller

import (
	"context"

	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/db"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/metrics"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage operations the service relies on.
type Repository interface {
	CreateProvider(ctx context.Context, p *models.ServiceProvider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error)
	ListProviders(ctx context.Context, f models.RegistrantFilter) ([]models.ServiceProvider, error)

	CreateClient(ctx context.Context, c *models.ClientCompany) error
	GetClient(ctx context.Context, id uuid.UUID) (*models.ClientCompany, error)
	ListClients(ctx context.Context, f models.RegistrantFilter) ([]models.ClientCompany, error)

	CreateEmployee(ctx context.Context, emp *models.Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, error)

	CreateAddress(ctx context.Context, a *models.Address) error
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	ListAddresses(ctx context.Context) ([]models.Address, error)

	CreateContract(ctx context.Context, c *models.Contract) error
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error
	ListContracts(ctx context.Context, f models.ContractFilter) ([]models.Contract, error)
	HasActiveContract(ctx context.Context, clientID, providerID uuid.UUID) (bool, error)
	ContractedClientIDs(ctx context.Context, providerID uuid.UUID) ([]uuid.UUID, error)

	GetExam(ctx context.Context, id uuid.UUID) (*models.HealthExam, error)
	ListExams(ctx context.Context, employeeID *uuid.UUID, employeeIDs []uuid.UUID) ([]models.HealthExam, error)

	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// Service applies the registry rules on top of a Repository.
type Service struct {
	repo     Repository
	producer EventProducer
	hasher   *auth.Hasher
	logger   *zap.Logger
}

// NewService constructs a Service with a repository, an event producer,
// the password hasher used for new users, and a logger.
func NewService(repo Repository, producer EventProducer, hasher *auth.Hasher, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		hasher:   hasher,
		logger:   logger.Named("controller"),
	}
}

// publish counts a committed write and emits its event.
func (s *Service) publish(ctx context.Context, t events.EventType, entity string, id uuid.UUID) {
	metrics.EntityWrites.WithLabelValues(entity, string(t)).Inc()

	var actor uuid.UUID
	if caller, ok := auth.IdentityFromContext(ctx); ok {
		actor = caller.UserID
	}
	s.producer.Produce(events.New(t, entity, id, actor))
}
