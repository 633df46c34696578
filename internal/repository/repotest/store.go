// Package repotest provides an in-memory RepositoryFactory with the same conditional
// update semantics as the Postgres repositories, for service and engine tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-interior-design-be/internal/entity"
	"ai-interior-design-be/internal/repository/contract"
	"ai-interior-design-be/internal/repository/specification"
	"ai-interior-design-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation mirrors what the pgx driver reports for a duplicate key.
const uniqueViolation = "23505"

type Store struct {
	mu        sync.Mutex
	seq       int64
	users     map[uuid.UUID]*entity.User
	designs   map[uuid.UUID]*entity.Design
	designSeq map[uuid.UUID]int64
	purchases map[string]*entity.CreditPurchase
	failures  map[string]error
}

var _ unitofwork.RepositoryFactory = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*entity.User),
		designs:   make(map[uuid.UUID]*entity.Design),
		designSeq: make(map[uuid.UUID]int64),
		purchases: make(map[string]*entity.CreditPurchase),
		failures:  make(map[string]error),
	}
}

func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

// FailNext makes the next call of op return err. Ops are named "<repo>.<Method>",
// for example "designs.Create" or "users.DecrementCreditIfAvailable".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	err := s.failures[op]
	delete(s.failures, op)
	return err
}

// SeedUser stores a user with the given balance and returns it.
func (s *Store) SeedUser(credits int) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &entity.User{
		Id:           uuid.New(),
		Email:        fmt.Sprintf("user-%d@example.com", len(s.users)+1),
		PasswordHash: "x",
		FullName:     "Test User",
		Credits:      credits,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.users[u.Id] = u
	cp := *u
	return &cp
}

// SeedDesign stores a copy of d as-is, bypassing state checks.
func (s *Store) SeedDesign(d entity.Design) *entity.Design {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Id == uuid.Nil {
		d.Id = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.seq++
	s.designSeq[d.Id] = s.seq
	s.designs[d.Id] = &d
	cp := d
	return &cp
}

func (s *Store) User(id uuid.UUID) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *Store) Design(id uuid.UUID) *entity.Design {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[id]
	if !ok {
		return nil
	}
	return copyDesign(d)
}

func (s *Store) DesignCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.designs)
}

func (s *Store) PurchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

func copyDesign(d *entity.Design) *entity.Design {
	cp := *d
	if d.ProviderSnapshot != nil {
		cp.ProviderSnapshot = append([]byte(nil), d.ProviderSnapshot...)
	}
	return &cp
}

func strPtr(s string) *string {
	return &s
}

// unitOfWork applies writes immediately and keeps an undo log while a transaction is open.
type unitOfWork struct {
	store *Store
	inTx  bool
	undo  []func()
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	err := u.store.takeFailure("uow.Begin")
	u.store.mu.Unlock()
	if err != nil {
		return err
	}
	u.inTx = true
	u.undo = nil
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.store.mu.Lock()
	err := u.store.takeFailure("uow.Commit")
	u.store.mu.Unlock()
	if err != nil {
		u.rollback()
		return err
	}
	u.inTx = false
	u.undo = nil
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to rollback")
	}
	u.rollback()
	return nil
}

func (u *unitOfWork) rollback() {
	u.store.mu.Lock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.store.mu.Unlock()
	u.inTx = false
	u.undo = nil
}

// record must be called with the store lock held.
func (u *unitOfWork) record(fn func()) {
	if u.inTx {
		u.undo = append(u.undo, fn)
	}
}

func (u *unitOfWork) UserRepository() contract.UserRepository {
	return &userRepo{uow: u}
}

func (u *unitOfWork) DesignRepository() contract.DesignRepository {
	return &designRepo{uow: u}
}

func (u *unitOfWork) CreditPurchaseRepository() contract.CreditPurchaseRepository {
	return &purchaseRepo{uow: u}
}

type userRepo struct {
	uow *unitOfWork
}

func (r *userRepo) Create(ctx context.Context, user *entity.User) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("users.Create"); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: uniqueViolation, ConstraintName: "idx_users_email"}
		}
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	s.users[user.Id] = &cp
	id := user.Id
	r.uow.record(func() { delete(s.users, id) })
	return nil
}

func (r *userRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("users.FindOne"); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if userMatches(u, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *userRepo) DecrementCreditIfAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("users.DecrementCreditIfAvailable"); err != nil {
		return false, err
	}
	u, ok := s.users[id]
	if !ok || u.Credits < 1 {
		return false, nil
	}
	u.Credits--
	r.uow.record(func() { u.Credits++ })
	return true, nil
}

func (r *userRepo) IncrementCredits(ctx context.Context, id uuid.UUID, amount int) (bool, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("users.IncrementCredits"); err != nil {
		return false, err
	}
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	u.Credits += amount
	r.uow.record(func() { u.Credits -= amount })
	return true, nil
}

func userMatches(u *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if u.Id != sp.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != sp.Email {
				return false
			}
		}
	}
	return true
}

type designRepo struct {
	uow *unitOfWork
}

func (r *designRepo) Create(ctx context.Context, design *entity.Design) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("designs.Create"); err != nil {
		return err
	}
	if design.Id == uuid.Nil {
		design.Id = uuid.New()
	}
	if design.Status == "" {
		design.Status = entity.DesignStatusPending
	}
	now := time.Now()
	design.CreatedAt, design.UpdatedAt = now, now
	s.seq++
	s.designSeq[design.Id] = s.seq
	s.designs[design.Id] = copyDesign(design)
	id := design.Id
	r.uow.record(func() {
		delete(s.designs, id)
		delete(s.designSeq, id)
	})
	return nil
}

func (r *designRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Design, error) {
	all, err := r.find("designs.FindOne", specs)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *designRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Design, error) {
	return r.find("designs.FindAll", specs)
}

func (r *designRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var filters []specification.Specification
	for _, spec := range specs {
		if _, ok := spec.(specification.Pagination); !ok {
			filters = append(filters, spec)
		}
	}
	all, err := r.find("designs.Count", filters)
	return int64(len(all)), err
}

func (r *designRepo) find(op string, specs []specification.Specification) ([]*entity.Design, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(op); err != nil {
		return nil, err
	}

	var out []*entity.Design
	for _, d := range s.designs {
		if designMatches(d, specs) {
			out = append(out, copyDesign(d))
		}
	}

	desc := false
	var page *specification.Pagination
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.OrderBy:
			desc = sp.Desc
		case specification.Pagination:
			p := sp
			page = &p
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return s.designSeq[out[i].Id] > s.designSeq[out[j].Id]
		}
		return s.designSeq[out[i].Id] < s.designSeq[out[j].Id]
	})

	if page != nil {
		if page.Offset >= len(out) {
			return []*entity.Design{}, nil
		}
		out = out[page.Offset:]
		if page.Limit > 0 && page.Limit < len(out) {
			out = out[:page.Limit]
		}
	}
	return out, nil
}

func designMatches(d *entity.Design, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if d.Id != sp.ID {
				return false
			}
		case specification.UserOwnedBy:
			if d.UserId != sp.UserID {
				return false
			}
		case specification.ByPredictionID:
			if !d.HasPrediction(sp.PredictionID) {
				return false
			}
		case specification.ByDesignStatus:
			if d.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

// mutate applies fn to the design when guard holds, recording an undo snapshot.
func (r *designRepo) mutate(op string, id uuid.UUID, guard func(*entity.Design) bool, fn func(*entity.Design)) (bool, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(op); err != nil {
		return false, err
	}
	d, ok := s.designs[id]
	if !ok || !guard(d) {
		return false, nil
	}
	before := copyDesign(d)
	fn(d)
	d.UpdatedAt = time.Now()
	r.uow.record(func() { *d = *before })
	return true, nil
}

func (r *designRepo) MarkProcessing(ctx context.Context, id uuid.UUID, predictionId string) (bool, error) {
	return r.mutate("designs.MarkProcessing", id,
		func(d *entity.Design) bool { return d.Status == entity.DesignStatusPending },
		func(d *entity.Design) {
			d.Status = entity.DesignStatusProcessing
			d.PredictionId = strPtr(predictionId)
			d.ErrorMessage = nil
		})
}

func (r *designRepo) MarkCompleted(ctx context.Context, id uuid.UUID, predictionId, resultUrl string, snapshot []byte) (bool, error) {
	return r.mutate("designs.MarkCompleted", id,
		func(d *entity.Design) bool {
			return d.Status == entity.DesignStatusProcessing && d.HasPrediction(predictionId)
		},
		func(d *entity.Design) {
			now := time.Now()
			d.Status = entity.DesignStatusCompleted
			d.ResultUrl = strPtr(resultUrl)
			d.ErrorMessage = nil
			d.ProviderSnapshot = append([]byte(nil), snapshot...)
			d.CompletedAt = &now
		})
}

func (r *designRepo) MarkFailed(ctx context.Context, id uuid.UUID, predictionId, errorMessage string, snapshot []byte) (bool, error) {
	return r.mutate("designs.MarkFailed", id,
		func(d *entity.Design) bool {
			return d.Status == entity.DesignStatusProcessing && d.HasPrediction(predictionId)
		},
		func(d *entity.Design) {
			now := time.Now()
			d.Status = entity.DesignStatusFailed
			d.ResultUrl = nil
			d.ErrorMessage = strPtr(errorMessage)
			d.ProviderSnapshot = append([]byte(nil), snapshot...)
			d.CompletedAt = &now
		})
}

func (r *designRepo) ResetForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.mutate("designs.ResetForRetry", id,
		func(d *entity.Design) bool { return d.Status == entity.DesignStatusFailed },
		func(d *entity.Design) {
			d.Status = entity.DesignStatusPending
			d.PredictionId = nil
			d.ResultUrl = nil
			d.ErrorMessage = nil
			d.CompletedAt = nil
		})
}

type purchaseRepo struct {
	uow *unitOfWork
}

func (r *purchaseRepo) CreateIfAbsent(ctx context.Context, purchase *entity.CreditPurchase) (bool, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("purchases.CreateIfAbsent"); err != nil {
		return false, err
	}
	if _, exists := s.purchases[purchase.TransactionId]; exists {
		return false, nil
	}
	if purchase.Id == uuid.Nil {
		purchase.Id = uuid.New()
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now()
	}
	cp := *purchase
	s.purchases[purchase.TransactionId] = &cp
	txId := purchase.TransactionId
	r.uow.record(func() { delete(s.purchases, txId) })
	return true, nil
}

func (r *purchaseRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchase, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("purchases.FindAll"); err != nil {
		return nil, err
	}

	var out []*entity.CreditPurchase
	for _, p := range s.purchases {
		match := true
		for _, spec := range specs {
			if owned, ok := spec.(specification.UserOwnedBy); ok && p.UserId != owned.UserID {
				match = false
			}
		}
		if match {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
