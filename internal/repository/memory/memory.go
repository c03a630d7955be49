// Package memory is an in-memory implementation of the repository interfaces.
// It is safe for concurrent use and is intended for tests and local
// development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

// Store keeps every table in maps plus insertion-order slices. Writes outside
// a transaction are serialized with transactions through txMu, so a commit
// never overwrites a concurrent single-statement write.
type Store struct {
	parent *Store
	txMu   *sync.Mutex
	mu     sync.RWMutex
	data   *dataset
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		txMu: &sync.Mutex{},
		data: newDataset(),
	}
}

func (s *Store) Users() repository.UserRepository         { return userRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository   { return profileRepo{s} }
func (s *Store) Products() repository.ProductRepository   { return productRepo{s} }
func (s *Store) Orders() repository.OrderRepository       { return orderRepo{s} }
func (s *Store) Licenses() repository.LicenseRepository   { return licenseRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository     { return reviewRepo{s} }
func (s *Store) Favorites() repository.FavoriteRepository { return favoriteRepo{s} }
func (s *Store) AuditLogs() repository.AuditLogRepository { return auditRepo{s} }
func (s *Store) Ping(context.Context) error               { return nil }

// WithinTransaction runs fn against a private copy of the data and publishes
// the copy only when fn succeeds. Nested calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.parent != nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{parent: s, txMu: s.txMu, data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

func (s *Store) view(fn func(d *dataset) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) update(fn func(d *dataset) error) error {
	if s.parent == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

type dataset struct {
	lastStamp time.Time

	users        map[uuid.UUID]models.User
	usersByEmail map[string]uuid.UUID
	profiles     map[uuid.UUID]models.Profile
	products     map[uuid.UUID]models.Product
	productSeq   []uuid.UUID
	orders       map[uuid.UUID]models.Order
	orderSeq     []uuid.UUID
	licenses     map[uuid.UUID]models.License
	licenseSeq   []uuid.UUID
	reviews      map[uuid.UUID]models.Review
	reviewSeq    []uuid.UUID
	favorites    map[uuid.UUID]models.Favorite
	favoriteSeq  []uuid.UUID
	auditLogs    []models.AuditLog
}

func newDataset() *dataset {
	return &dataset{
		users:        make(map[uuid.UUID]models.User),
		usersByEmail: make(map[string]uuid.UUID),
		profiles:     make(map[uuid.UUID]models.Profile),
		products:     make(map[uuid.UUID]models.Product),
		orders:       make(map[uuid.UUID]models.Order),
		licenses:     make(map[uuid.UUID]models.License),
		reviews:      make(map[uuid.UUID]models.Review),
		favorites:    make(map[uuid.UUID]models.Favorite),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		lastStamp:    d.lastStamp,
		users:        cloneMap(d.users),
		usersByEmail: cloneMap(d.usersByEmail),
		profiles:     cloneMap(d.profiles),
		products:     cloneMap(d.products),
		productSeq:   append([]uuid.UUID(nil), d.productSeq...),
		orders:       cloneMap(d.orders),
		orderSeq:     append([]uuid.UUID(nil), d.orderSeq...),
		licenses:     cloneMap(d.licenses),
		licenseSeq:   append([]uuid.UUID(nil), d.licenseSeq...),
		reviews:      cloneMap(d.reviews),
		reviewSeq:    append([]uuid.UUID(nil), d.reviewSeq...),
		favorites:    cloneMap(d.favorites),
		favoriteSeq:  append([]uuid.UUID(nil), d.favoriteSeq...),
		auditLogs:    append([]models.AuditLog(nil), d.auditLogs...),
	}
}

// stamp returns a strictly increasing timestamp so that "newest first"
// ordering is deterministic even within one clock tick.
func (d *dataset) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(d.lastStamp) {
		now = d.lastStamp.Add(time.Microsecond)
	}
	d.lastStamp = now
	return now
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
