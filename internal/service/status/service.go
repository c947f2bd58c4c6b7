package status

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

// Service resolves status names to ids and back. The lookup table only
// changes when seeded, so hits are cached in-process.
type Service struct {
	repo  repository.StatusRepository
	cache *cache.Cache
}

func NewService(repo repository.StatusRepository, ttl, cleanupInterval time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, cleanupInterval),
	}
}

// Resolve returns the id of the status called name. Unknown names and
// missing rows both yield a NotFound error.
func (s *Service) Resolve(ctx context.Context, name string) (int64, error) {
	if !model.IsValidStatus(name) {
		return 0, apperrors.NotFound("status", fmt.Errorf("unknown status %q", name))
	}

	key := "name:" + name
	if id, ok := s.cache.Get(key); ok {
		return id.(int64), nil
	}

	status, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.NotFound("status", err)
		}
		return 0, fmt.Errorf("resolve status: %w", err)
	}

	s.remember(status)
	return status.ID, nil
}

// Name returns the status name for id.
func (s *Service) Name(ctx context.Context, id int64) (string, error) {
	key := "id:" + strconv.FormatInt(id, 10)
	if name, ok := s.cache.Get(key); ok {
		return name.(string), nil
	}

	status, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NotFound("status", err)
		}
		return "", fmt.Errorf("lookup status name: %w", err)
	}

	s.remember(status)
	return status.Status, nil
}

func (s *Service) List(ctx context.Context) ([]*model.StatusPatient, error) {
	statuses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	for _, st := range statuses {
		s.remember(st)
	}
	return statuses, nil
}

// Seed inserts the fixed statuses and drops anything cached before.
func (s *Service) Seed(ctx context.Context) error {
	if err := s.repo.Seed(ctx, model.StatusNames); err != nil {
		return fmt.Errorf("seed statuses: %w", err)
	}
	s.cache.Flush()
	return nil
}

func (s *Service) remember(status *model.StatusPatient) {
	s.cache.SetDefault("name:"+status.Status, status.ID)
	s.cache.SetDefault("id:"+strconv.FormatInt(status.ID, 10), status.Status)
}
