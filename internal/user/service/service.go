package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/userstore/internal/database"
	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/repository"
	"github.com/gogotex/gogotex/backend/userstore/pkg/logger"
	"github.com/gogotex/gogotex/backend/userstore/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository is the persistence the service needs. Implementations return
// user.ErrNotFound for missing documents and *database.ConnectionError when
// the store cannot be reached.
type Repository interface {
	Insert(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindOne(ctx context.Context, f user.Filter) (*user.User, error)
	Find(ctx context.Context, f user.Filter, opts user.FindOptions) ([]*user.User, error)
	DeleteOne(ctx context.Context, f user.Filter) (int64, error)
	DeleteMany(ctx context.Context, f user.Filter) (int64, error)
}

// Service is the user document-access layer. It keeps no mutable state after
// construction and is safe for concurrent use.
type Service struct {
	repo   Repository
	schema *user.Schema
	hooks  user.Hooks
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for createdAt and the default pre-save hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHooks appends pre-save hooks after the default updatedAt hook.
func WithHooks(h ...user.Hook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h...) }
}

func New(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, schema: user.NewSchema(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.hooks = append(user.Hooks{user.TouchUpdatedAt(s.now)}, s.hooks...)
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) *Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection, opts ...Option) *Service {
	return New(repository.NewMongoRepo(col), opts...)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrNotFound):
		return "not_found"
	case database.IsConnectionError(err):
		return "unavailable"
	}
	if _, ok := user.AsValidationError(err); ok {
		return "invalid"
	}
	return "error"
}

func observe(op string, err error) {
	metrics.StoreOperations.WithLabelValues(op, result(err)).Inc()
	if database.IsConnectionError(err) {
		logger.Errorf("userstore %s: %v", op, err)
	}
}

// Create validates and persists a new user built from fields.
func (s *Service) Create(ctx context.Context, fields user.User) (*user.User, error) {
	u := fields
	u.ID = ""
	if err := s.Save(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Save validates u, runs the pre-save hooks and writes it: an insert when u
// has no id yet, otherwise an update by id. On success u holds the stored state.
func (s *Service) Save(ctx context.Context, u *user.User) (err error) {
	op := "update"
	if u.IsNew() {
		op = "insert"
	}
	defer func() { observe(op, err) }()

	user.Normalize(u)
	if err := s.schema.Validate(u); err != nil {
		if ve, ok := user.AsValidationError(err); ok {
			for _, f := range ve.Fields() {
				metrics.ValidationFailures.WithLabelValues(f).Inc()
			}
		}
		return err
	}

	if u.IsNew() {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.now().UTC()
		}
		if err := s.hooks.Run(ctx, u); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, u); err != nil {
			return err
		}
		logger.Debugf("userstore: inserted user %s", u.ID)
		return nil
	}

	if err := s.hooks.Run(ctx, u); err != nil {
		return err
	}
	stored, err := s.repo.Update(ctx, u)
	if err != nil {
		return err
	}
	// keep an already resolved friend when the reference did not change
	if u.BestFriend.Resolved() && stored.BestFriend != nil && stored.BestFriend.ID == u.BestFriend.ID {
		stored.BestFriend = u.BestFriend
	}
	*u = *stored
	logger.Debugf("userstore: updated user %s", u.ID)
	return nil
}

func (s *Service) FindByID(ctx context.Context, id string) (u *user.User, err error) {
	defer func() { observe("find_by_id", err) }()
	return s.repo.FindByID(ctx, id)
}

func (s *Service) FindOne(ctx context.Context, f user.Filter) (u *user.User, err error) {
	defer func() { observe("find_one", err) }()
	return s.repo.FindOne(ctx, f)
}

func (s *Service) Find(ctx context.Context, f user.Filter, opts user.FindOptions) (out []*user.User, err error) {
	defer func() { observe("find", err) }()
	return s.repo.Find(ctx, f, opts)
}

// FindByFirstName returns the first user whose firstName contains name,
// ignoring case. The name is matched literally: regex metacharacters in it
// have no special meaning.
func (s *Service) FindByFirstName(ctx context.Context, name string) (*user.User, error) {
	return s.FindOne(ctx, user.Where(user.Match(user.FieldFirstName, user.ContainsFold(name))))
}

func (s *Service) DeleteOne(ctx context.Context, f user.Filter) (n int64, err error) {
	defer func() { observe("delete_one", err) }()
	return s.repo.DeleteOne(ctx, f)
}

func (s *Service) DeleteMany(ctx context.Context, f user.Filter) (n int64, err error) {
	defer func() { observe("delete_many", err) }()
	return s.repo.DeleteMany(ctx, f)
}

// Populate replaces the reference at path with the referenced user.
// A reference to a user that no longer exists is left unresolved and is not
// an error. Only "bestFriend" can be populated.
func (s *Service) Populate(ctx context.Context, u *user.User, path string) error {
	if path != user.FieldBestFriend {
		return fmt.Errorf("populate %q: %w", path, user.ErrUnknownField)
	}
	if u == nil || u.BestFriend == nil || u.BestFriend.ID == "" || u.BestFriend.Resolved() {
		return nil
	}
	friend, err := s.FindByID(ctx, u.BestFriend.ID)
	if errors.Is(err, user.ErrNotFound) {
		logger.Debugf("userstore: bestFriend %s of %s not found, left unresolved", u.BestFriend.ID, u.ID)
		return nil
	}
	if err != nil {
		return err
	}
	u.BestFriend.User = friend
	return nil
}

// PopulateAll populates path on every user.
func (s *Service) PopulateAll(ctx context.Context, users []*user.User, path string) error {
	for _, u := range users {
		if err := s.Populate(ctx, u, path); err != nil {
			return err
		}
	}
	return nil
}
