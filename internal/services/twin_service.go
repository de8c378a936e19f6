package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/mirador-twin/internal/api"
	"github.com/miradorstack/mirador-twin/internal/engine"
	"github.com/miradorstack/mirador-twin/internal/metrics"
	"github.com/miradorstack/mirador-twin/internal/models"
	"github.com/miradorstack/mirador-twin/internal/registry"
)

// TwinStore defines the registry operations the service exposes.
type TwinStore interface {
	Register(name string) (models.Twin, error)
	List() []models.Twin
	Len() int
	Get(id string) (models.Twin, error)
	Latest(id string) (models.Snapshot, bool, error)
	Recent(id string, k int) ([]models.Snapshot, error)
	Failure(id string) (*models.FailureState, error)
}

// HealthPublisher receives per-twin health transitions.
type HealthPublisher interface {
	SetTwinHealth(twinID string, health models.Health)
}

// TwinService implements the TwinMonitor gRPC service and observes poll cycles.
type TwinService struct {
	logger *slog.Logger
	store  TwinStore
	health HealthPublisher

	// publishMu orders health publication so the last publish reflects the newest record.
	publishMu sync.Mutex
}

var _ api.TwinMonitorServer = (*TwinService)(nil)

// NewTwinService constructs the service facade. health may be nil.
func NewTwinService(logger *slog.Logger, store TwinStore, health HealthPublisher) *TwinService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwinService{
		logger: logger,
		store:  store,
		health: health,
	}
}

// AddTwin registers a twin and publishes its initial state.
func (s *TwinService) AddTwin(name string) (models.Twin, error) {
	if s.store == nil {
		return models.Twin{}, errors.New("twin store not configured")
	}
	twin, err := s.store.Register(name)
	if err != nil {
		return models.Twin{}, err
	}
	metrics.SetRegistered(s.store.Len())
	if s.health != nil {
		s.health.SetTwinHealth(twin.ID, models.HealthUnknown)
	}
	s.logger.Info("twin registered", slog.String("twin_id", twin.ID), slog.String("twin", twin.Name))
	return twin, nil
}

// ObserveCycle is installed as a scheduler hook to keep metrics and gRPC health current.
// Health is derived from the registry rather than res, since cycles for one twin may overlap.
func (s *TwinService) ObserveCycle(res engine.CycleResult) {
	if s.store == nil {
		return
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	health, err := s.currentHealth(res.Twin.ID)
	if err != nil {
		s.logger.Warn("observe poll cycle", slog.String("twin_id", res.Twin.ID), slog.Any("error", err))
		return
	}

	if health == models.HealthUnknown {
		metrics.ClearHealthy(res.Twin.ID)
	} else {
		metrics.SetHealthy(res.Twin.ID, health == models.HealthHealthy)
	}
	if s.health != nil {
		s.health.SetTwinHealth(res.Twin.ID, health)
	}
}

// currentHealth is UNKNOWN while a terminal failure is outstanding, otherwise the latest classification.
func (s *TwinService) currentHealth(id string) (models.Health, error) {
	failure, err := s.store.Failure(id)
	if err != nil {
		return models.HealthUnknown, err
	}
	if failure != nil {
		return models.HealthUnknown, nil
	}
	latest, ok, err := s.store.Latest(id)
	if err != nil {
		return models.HealthUnknown, err
	}
	return engine.ClassifyLatest(latest, ok), nil
}

// View assembles the read-only projection of one twin.
func (s *TwinService) View(id string) (models.TwinView, error) {
	twin, err := s.store.Get(id)
	if err != nil {
		return models.TwinView{}, err
	}
	latest, ok, err := s.store.Latest(id)
	if err != nil {
		return models.TwinView{}, err
	}
	recent, err := s.store.Recent(id, registry.DefaultCapacity)
	if err != nil {
		return models.TwinView{}, err
	}
	failure, err := s.store.Failure(id)
	if err != nil {
		return models.TwinView{}, err
	}

	view := models.TwinView{
		Twin:    twin,
		Health:  engine.ClassifyLatest(latest, ok),
		Recent:  recent,
		Failure: failure,
	}
	if ok {
		view.Latest = &latest
	}
	return view, nil
}

// RegisterTwin creates a twin from the supplied name.
func (s *TwinService) RegisterTwin(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name, err := api.FromStringValue(req, "name")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	twin, err := s.AddTwin(name)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStructTwin(models.TwinView{Twin: twin, Health: models.HealthUnknown})
	if err != nil {
		s.logger.Error("encode twin failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode twin")
	}
	return out, nil
}

// ListTwins returns every registered twin in registration order.
func (s *TwinService) ListTwins(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "twin store not configured")
	}

	twins := s.store.List()
	views := make([]models.TwinView, 0, len(twins))
	for _, twin := range twins {
		latest, ok, err := s.store.Latest(twin.ID)
		if err != nil {
			return nil, toStatus(err)
		}
		views = append(views, models.TwinView{Twin: twin, Health: engine.ClassifyLatest(latest, ok)})
	}

	out, err := api.ToStructTwinList(views)
	if err != nil {
		s.logger.Error("encode twin list failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode twins")
	}
	return out, nil
}

// GetTwin returns one twin with its latest sample, recent history and failure state.
func (s *TwinService) GetTwin(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := api.FromStringValue(req, "id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "twin store not configured")
	}

	view, err := s.View(id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStructTwinDetail(view)
	if err != nil {
		s.logger.Error("encode twin detail failed", slog.String("twin_id", id), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode twin")
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
