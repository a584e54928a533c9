// Package memory is an in-memory implementation of the store interfaces.
// It is safe for concurrent use and returns copies so callers cannot mutate
// stored state. Data is lost on restart: it backs tests and the server's
// -in-memory development mode, not production deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// Store holds every aggregate in maps behind one mutex. The single lock is
// what makes multi-step operations (posting, firing) atomic here.
type Store struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	recurring    map[uuid.UUID]*domain.RecurringTransaction
	categories   map[uuid.UUID]*domain.Category
	accountTypes map[uuid.UUID]*domain.AccountType
	users        map[uuid.UUID]*domain.User
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		recurring:    make(map[uuid.UUID]*domain.RecurringTransaction),
		categories:   make(map[uuid.UUID]*domain.Category),
		accountTypes: make(map[uuid.UUID]*domain.AccountType),
		users:        make(map[uuid.UUID]*domain.User),
	}
}

var _ store.Store = (*Store)(nil)

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.CurrentBalance = a.InitialBalance
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) GetAccount(ctx context.Context, owner, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccountLocked(owner, id)
}

func (s *Store) getAccountLocked(owner, id uuid.UUID) (*domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok || a.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAccounts(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Account
	for _, a := range s.accounts {
		if a.OwnerID == owner {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[a.ID]
	if !ok || existing.OwnerID != a.OwnerID {
		return domain.ErrNotFound
	}
	// Balances stay under posting control.
	existing.Name = a.Name
	existing.TypeID = a.TypeID
	existing.Category = a.Category
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.OwnerID != owner {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	// Cascade: drop transactions touching the account on either side.
	for txID, t := range s.transactions {
		if (t.FromAccountID != nil && *t.FromAccountID == id) ||
			(t.ToAccountID != nil && *t.ToAccountID == id) {
			delete(s.transactions, txID)
		}
	}
	return nil
}

func (s *Store) BalancesByCategory(ctx context.Context, owner uuid.UUID) ([]store.CategoryBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		category domain.AccountCategory
		currency string
	}
	sums := make(map[key]decimal.Decimal)
	for _, a := range s.accounts {
		if a.OwnerID != owner {
			continue
		}
		k := key{a.Category, a.Currency}
		sums[k] = sums[k].Add(a.CurrentBalance)
	}
	out := make([]store.CategoryBalance, 0, len(sums))
	for k, sum := range sums {
		out = append(out, store.CategoryBalance{Category: k.category, Currency: k.currency, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

// --- transactions ---

// checkDeltas verifies every delta targets an account owned by owner.
// Called with the lock held, before any balance is touched, so a failed
// posting leaves all balances unchanged.
func (s *Store) checkDeltas(owner uuid.UUID, deltas []domain.Delta) error {
	for _, d := range deltas {
		a, ok := s.accounts[d.AccountID]
		if !ok || a.OwnerID != owner {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (s *Store) applyDeltas(deltas []domain.Delta) {
	for _, d := range deltas {
		a := s.accounts[d.AccountID]
		a.CurrentBalance = a.CurrentBalance.Add(d.Amount)
	}
}

func (s *Store) PostTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDeltas(t.OwnerID, t.Deltas()); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.applyDeltas(t.Deltas())
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, owner, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactions(ctx context.Context, owner uuid.UUID, f store.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Transaction
	for _, t := range s.transactions {
		if t.OwnerID != owner {
			continue
		}
		if f.Year != 0 && (t.Date.UTC().Year() != f.Year || t.Date.UTC().Month() != f.Month) {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.AccountID != nil {
			hit := (t.FromAccountID != nil && *t.FromAccountID == *f.AccountID) ||
				(t.ToAccountID != nil && *t.ToAccountID == *f.AccountID)
			if !hit {
				continue
			}
		}
		if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ReplaceTransaction(ctx context.Context, updated *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.transactions[updated.ID]
	if !ok || old.OwnerID != updated.OwnerID {
		return domain.ErrNotFound
	}
	// Both the reversal targets and the new targets must resolve before any
	// balance moves.
	if err := s.checkDeltas(old.OwnerID, old.ReverseDeltas()); err != nil {
		return err
	}
	if err := s.checkDeltas(updated.OwnerID, updated.Deltas()); err != nil {
		return err
	}
	s.applyDeltas(old.ReverseDeltas())
	s.applyDeltas(updated.Deltas())
	updated.CreatedAt = old.CreatedAt
	updated.RecurringID = old.RecurringID
	cp := *updated
	s.transactions[updated.ID] = &cp
	return nil
}

func (s *Store) RemoveTransaction(ctx context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.OwnerID != owner {
		return domain.ErrNotFound
	}
	if err := s.checkDeltas(owner, t.ReverseDeltas()); err != nil {
		return err
	}
	s.applyDeltas(t.ReverseDeltas())
	delete(s.transactions, id)
	return nil
}

func (s *Store) MonthlySums(ctx context.Context, owner uuid.UUID, year int, month time.Month) (income, expense []store.CurrencySum, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incomeSums := make(map[string]decimal.Decimal)
	expenseSums := make(map[string]decimal.Decimal)
	for _, t := range s.transactions {
		if t.OwnerID != owner {
			continue
		}
		d := t.Date.UTC()
		if d.Year() != year || d.Month() != month {
			continue
		}
		switch t.Kind {
		case domain.KindIncome:
			incomeSums[t.Currency] = incomeSums[t.Currency].Add(t.Amount)
		case domain.KindExpense:
			expenseSums[t.Currency] = expenseSums[t.Currency].Add(t.Amount)
		}
	}
	return currencySums(incomeSums), currencySums(expenseSums), nil
}

func currencySums(m map[string]decimal.Decimal) []store.CurrencySum {
	out := make([]store.CurrencySum, 0, len(m))
	for currency, sum := range m {
		out = append(out, store.CurrencySum{Currency: currency, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

func (s *Store) ExpensesByCategory(ctx context.Context, owner uuid.UUID, year int, month time.Month) ([]store.CategorySum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		category uuid.UUID
		currency string
	}
	sums := make(map[key]decimal.Decimal)
	for _, t := range s.transactions {
		if t.OwnerID != owner || t.Kind != domain.KindExpense {
			continue
		}
		d := t.Date.UTC()
		if d.Year() != year || d.Month() != month {
			continue
		}
		k := key{currency: t.Currency}
		if t.CategoryID != nil {
			k.category = *t.CategoryID
		}
		sums[k] = sums[k].Add(t.Amount)
	}
	out := make([]store.CategorySum, 0, len(sums))
	for k, sum := range sums {
		cs := store.CategorySum{CategoryID: k.category, Currency: k.currency, Sum: sum}
		if c, ok := s.categories[k.category]; ok {
			cs.CategoryName = c.Name
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CategoryName != out[j].CategoryName {
			return out[i].CategoryName < out[j].CategoryName
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

// --- recurring definitions ---

func (s *Store) CreateRecurring(ctx context.Context, r *domain.RecurringTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	s.recurring[r.ID] = &cp
	return nil
}

func (s *Store) GetRecurring(ctx context.Context, owner, id uuid.UUID) (*domain.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[id]
	if !ok || r.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRecurring(ctx context.Context, owner uuid.UUID) ([]*domain.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.RecurringTransaction
	for _, r := range s.recurring {
		if r.OwnerID == owner {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateRecurring(ctx context.Context, r *domain.RecurringTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.recurring[r.ID]
	if !ok || existing.OwnerID != r.OwnerID {
		return domain.ErrNotFound
	}
	r.CreatedAt = existing.CreatedAt
	cp := *r
	s.recurring[r.ID] = &cp
	return nil
}

func (s *Store) SetRecurringActive(ctx context.Context, owner, id uuid.UUID, active bool, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[id]
	if !ok || r.OwnerID != owner {
		return domain.ErrNotFound
	}
	r.IsActive = active
	if next != nil {
		n := *next
		r.NextExecutionAt = &n
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[id]
	if !ok || r.OwnerID != owner {
		return domain.ErrNotFound
	}
	delete(s.recurring, id)
	return nil
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*domain.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.RecurringTransaction
	for _, r := range s.recurring {
		if !r.IsActive || r.NextExecutionAt == nil || r.NextExecutionAt.After(now) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextExecutionAt.Before(*out[j].NextExecutionAt)
	})
	return out, nil
}

func (s *Store) FireRecurring(ctx context.Context, def *domain.RecurringTransaction, produced *domain.Transaction, next *time.Time, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.recurring[def.ID]
	if !ok || current.OwnerID != def.OwnerID {
		return domain.ErrNotFound
	}
	// Somebody else already advanced or paused this definition: the
	// occurrence is no longer ours to fire.
	if !current.IsActive ||
		current.NextExecutionAt == nil || def.NextExecutionAt == nil ||
		!current.NextExecutionAt.Equal(*def.NextExecutionAt) {
		return domain.ErrConflict
	}
	if err := s.checkDeltas(produced.OwnerID, produced.Deltas()); err != nil {
		return err
	}
	if produced.ID == uuid.Nil {
		produced.ID = uuid.New()
	}
	if produced.CreatedAt.IsZero() {
		produced.CreatedAt = time.Now().UTC()
	}
	s.applyDeltas(produced.Deltas())
	cp := *produced
	s.transactions[produced.ID] = &cp

	current.IsActive = active
	if next != nil {
		n := *next
		current.NextExecutionAt = &n
	} else {
		current.NextExecutionAt = nil
	}
	return nil
}

// --- categories ---

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) GetCategory(ctx context.Context, owner, id uuid.UUID) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCategories(ctx context.Context, owner uuid.UUID) ([]*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Category
	for _, c := range s.categories {
		if c.OwnerID == owner {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return domain.ErrNotFound
	}
	existing.Name = c.Name
	existing.Kind = c.Kind
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.OwnerID != owner {
		return domain.ErrNotFound
	}
	delete(s.categories, id)
	// Transactions keep their history but lose the label.
	for _, t := range s.transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
		}
	}
	return nil
}

// --- account types ---

func (s *Store) CreateAccountType(ctx context.Context, t *domain.AccountType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	s.accountTypes[t.ID] = &cp
	return nil
}

func (s *Store) ListAccountTypes(ctx context.Context, owner uuid.UUID) ([]*domain.AccountType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.AccountType
	for _, t := range s.accountTypes {
		if t.OwnerID == owner {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteAccountType(ctx context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.accountTypes[id]
	if !ok || t.OwnerID != owner {
		return domain.ErrNotFound
	}
	delete(s.accountTypes, id)
	for _, a := range s.accounts {
		if a.TypeID != nil && *a.TypeID == id {
			a.TypeID = nil
		}
	}
	return nil
}

// --- users ---

func (s *Store) UpsertUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
