package service

import (
	"context"
	"time"

	"home_dispatch/internal/agent"
	"home_dispatch/internal/catalog"
	"home_dispatch/internal/hub"
	"home_dispatch/internal/logger"
	"home_dispatch/internal/matcher"
	"home_dispatch/internal/models"
	"home_dispatch/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Instructions is the entry point for panel, voice and scheduler triggers.
type Instructions interface {
	// Submit resolves free text and dispatches the match. An unresolved
	// instruction is recorded and returned with a nil error.
	Submit(ctx context.Context, text string, source models.Source) (models.ExecutionRecord, error)
	// ExecuteAction dispatches a known pair without text resolution.
	ExecuteAction(ctx context.Context, req ActionRequest) (models.ExecutionRecord, error)
	// Preview resolves and renders without dispatching or recording.
	Preview(ctx context.Context, text string) (Preview, error)
}

// Dispatcher renders and submits a resolved pair, recording exactly one
// execution record per call.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (models.ExecutionRecord, error)
}

// Catalog exposes the device catalog and its edits.
type Catalog interface {
	ListDevices(ctx context.Context) []models.Device
	GetDevice(ctx context.Context, id string) (models.Device, error)
	CreateDevice(ctx context.Context, d models.Device) (models.Device, error)
	UpdateDevice(ctx context.Context, id string, d models.Device) (models.Device, error)
	DeleteDevice(ctx context.Context, id string) error
	Reload(ctx context.Context) (int, error)
	ListIcons(ctx context.Context) ([]string, error)
	IconPath(name string) (string, error)
}

// Schedules manages scheduled job definitions.
type Schedules interface {
	ListJobs(ctx context.Context) ([]JobView, error)
	GetJob(ctx context.Context, id string) (JobView, error)
	CreateJob(ctx context.Context, in JobInput) (JobView, error)
	UpdateJob(ctx context.Context, id string, in JobInput) (JobView, error)
	DeleteJob(ctx context.Context, id string) error
}

// ExecutionLog exposes append-only records with filtering and a live feed.
type ExecutionLog interface {
	Append(ctx context.Context, rec models.ExecutionRecord) error
	List(ctx context.Context, f LogFilter) ([]models.ExecutionRecord, error)
	Subscribe(buffer int) *hub.Subscription
}

// Scheduler runs the background loop that fires due jobs.
// Stop via context cancellation in main() for graceful shutdown.
type Scheduler interface {
	Run(ctx context.Context, tick time.Duration)
	Reload(ctx context.Context) error
	Status() []JobStatus
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Instructions
	Dispatcher
	Catalog
	Schedules
	ExecutionLog
	Scheduler
	Authorization
}

// Deps carries the collaborators that do not live in the repository layer.
type Deps struct {
	Store        *catalog.Store
	Resolver     *matcher.Resolver
	Agent        agent.Executor
	Hub          *hub.Hub
	AgentTimeout time.Duration
	Location     *time.Location
	Auth         AuthConfig
	Log          *logger.Logger
}

// NewService wires repository layer and engine components into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if deps.Hub == nil {
		deps.Hub = hub.New(hub.DefaultBacklog)
	}
	if deps.Resolver == nil {
		deps.Resolver = matcher.NewResolver(nil)
	}

	execLog := NewExecutionLogService(repos.Executions, deps.Hub, log.Named("executions"))
	dispatcher := NewDispatcherService(deps.Agent, execLog, deps.AgentTimeout, log.Named("dispatcher"))
	instructions := NewInstructionService(deps.Store, deps.Resolver, dispatcher, execLog, log.Named("instructions"))
	scheduler := NewSchedulerService(repos.Schedules, instructions, deps.Location, log.Named("scheduler"))

	return &Service{
		Instructions:  instructions,
		Dispatcher:    dispatcher,
		Catalog:       NewCatalogService(deps.Store, log.Named("catalog")),
		Schedules:     NewScheduleService(repos.Schedules, deps.Store, scheduler, log.Named("schedules")),
		ExecutionLog:  execLog,
		Scheduler:     scheduler,
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}
