package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
)

// MemStore is an in-process Store. Each user and each withdrawal has its own
// mutex, held from first touch until the owning transaction ends; writes are
// staged on copies and published on commit.
type MemStore struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	ads         map[int64]*models.Ad
	withdrawals map[int64]*models.Withdrawal
	clicks      []models.AdClick
	deposits    []models.Deposit

	adSeq         atomic.Int64
	withdrawalSeq atomic.Int64
	clickSeq      atomic.Int64
	depositSeq    atomic.Int64

	locksMu         sync.Mutex
	userLocks       map[string]*sync.Mutex
	withdrawalLocks map[int64]*sync.Mutex

	now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:           make(map[string]*models.User),
		ads:             make(map[int64]*models.Ad),
		withdrawals:     make(map[int64]*models.Withdrawal),
		userLocks:       make(map[string]*sync.Mutex),
		withdrawalLocks: make(map[int64]*sync.Mutex),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemStore) userMutex(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.userLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.userLocks[id] = m
	}
	return m
}

func (s *MemStore) withdrawalMutex(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.withdrawalLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.withdrawalLocks[id] = m
	}
	return m
}

func (s *MemStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &memTx{
		s:           s,
		users:       make(map[string]*models.User),
		withdrawals: make(map[int64]*models.Withdrawal),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (s *MemStore) EnsureUser(ctx context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[u.ID]; ok {
		return existing.Clone(), nil
	}
	now := s.now()
	created := u.Clone()
	created.Balance = models.RoundMoney(created.Balance)
	created.CreatedAt = now
	created.UpdatedAt = now
	s.users[u.ID] = created
	return created.Clone(), nil
}

func (s *MemStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// PutUser stores u as-is, replacing any existing entry. Intended for seeding.
func (s *MemStore) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u.Clone()
}

func (s *MemStore) CreateAd(ctx context.Context, ad *models.Ad) error {
	ad.ID = s.adSeq.Add(1)
	ad.Price = models.RoundMoney(ad.Price)
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ad
	s.ads[ad.ID] = &cp
	return nil
}

func (s *MemStore) GetAd(ctx context.Context, adID int64) (*models.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ad, ok := s.ads[adID]
	if !ok {
		return nil, ErrAdNotFound
	}
	cp := *ad
	return &cp, nil
}

func (s *MemStore) SetAdActive(ctx context.Context, adID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ad, ok := s.ads[adID]
	if !ok {
		return ErrAdNotFound
	}
	ad.IsActive = active
	return nil
}

func (s *MemStore) ListAds(ctx context.Context, activeOnly bool) ([]models.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Ad{}
	for _, ad := range s.ads {
		if activeOnly && !ad.IsActive {
			continue
		}
		out = append(out, *ad)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	return cloneWithdrawal(w), nil
}

func (s *MemStore) ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Withdrawal{}
	for _, w := range s.withdrawals {
		if userID != "" && w.UserID != userID {
			continue
		}
		out = append(out, *cloneWithdrawal(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) ListAdClicks(ctx context.Context, userID string) ([]models.AdClick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AdClick{}
	for i := len(s.clicks) - 1; i >= 0; i-- {
		if userID == "" || s.clicks[i].UserID == userID {
			out = append(out, s.clicks[i])
		}
	}
	return out, nil
}

func (s *MemStore) ListDeposits(ctx context.Context, userID string) ([]models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Deposit{}
	for i := len(s.deposits) - 1; i >= 0; i-- {
		if userID == "" || s.deposits[i].UserID == userID {
			out = append(out, s.deposits[i])
		}
	}
	return out, nil
}

// ResetAllDailyRewards takes each user's lock in turn, so it waits for an
// in-flight transaction on that user instead of racing its commit.
func (s *MemStore) ResetAllDailyRewards(ctx context.Context) (int64, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var n int64
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m := s.userMutex(id)
		m.Lock()
		s.mu.Lock()
		if u, ok := s.users[id]; ok {
			u.DailyReward = decimal.Zero
			u.UpdatedAt = s.now()
			n++
		}
		s.mu.Unlock()
		m.Unlock()
	}
	return n, nil
}

type memTx struct {
	s              *MemStore
	users          map[string]*models.User
	withdrawals    map[int64]*models.Withdrawal
	newWithdrawals []*models.Withdrawal
	clicks         []models.AdClick
	deposits       []models.Deposit
	unlocks        []func()
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

func (t *memTx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range t.users {
		s.users[id] = u
	}
	for id, w := range t.withdrawals {
		s.withdrawals[id] = w
	}
	for _, w := range t.newWithdrawals {
		s.withdrawals[w.ID] = w
	}
	s.clicks = append(s.clicks, t.clicks...)
	s.deposits = append(s.deposits, t.deposits...)
}

// user returns the staged copy of a user, locking it on first touch
func (t *memTx) user(userID string) (*models.User, error) {
	if u, ok := t.users[userID]; ok {
		return u, nil
	}

	t.s.mu.RLock()
	_, exists := t.s.users[userID]
	t.s.mu.RUnlock()
	if !exists {
		return nil, ErrUserNotFound
	}

	m := t.s.userMutex(userID)
	m.Lock()
	t.unlocks = append(t.unlocks, m.Unlock)

	t.s.mu.RLock()
	staged := t.s.users[userID].Clone()
	t.s.mu.RUnlock()

	t.users[userID] = staged
	return staged, nil
}

func (t *memTx) touch(u *models.User) {
	u.UpdatedAt = t.s.now()
}

func (t *memTx) LockUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := t.user(userID)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

func (t *memTx) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Balance = models.RoundMoney(u.Balance.Add(amount))
	t.touch(u)
	return nil
}

func (t *memTx) SubtractBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	if u.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	u.Balance = models.RoundMoney(u.Balance.Sub(amount))
	t.touch(u)
	return nil
}

func (t *memTx) SetBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Balance = amount
	t.touch(u)
	return nil
}

func (t *memTx) AddDailyReward(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.DailyReward = models.RoundMoney(u.DailyReward.Add(amount))
	t.touch(u)
	return nil
}

func (t *memTx) IncrementAdsCompleted(ctx context.Context, userID string) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.TotalAdsCompleted++
	t.touch(u)
	return nil
}

func (t *memTx) IncrementRestrictedAdsCompleted(ctx context.Context, userID string) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.RestrictedAdsCompleted++
	if u.Restriction != nil {
		u.Restriction.CompletedCount = u.RestrictedAdsCompleted
	}
	t.touch(u)
	return nil
}

func (t *memTx) SetRestriction(ctx context.Context, userID string, in models.RestrictionInput) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Restriction = &models.Restriction{
		AdsLimit:           in.AdsLimit,
		CommissionPerAd:    models.RoundMoney(in.CommissionPerAd),
		DepositRequirement: models.RoundMoney(in.DepositRequirement),
	}
	u.PendingDepositAmount = models.RoundMoney(in.PendingDepositAmount)
	u.RestrictedAdsCompleted = 0
	t.touch(u)
	return nil
}

func (t *memTx) ClearRestriction(ctx context.Context, userID string) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Restriction = nil
	u.PendingDepositAmount = decimal.Zero
	u.RestrictedAdsCompleted = 0
	t.touch(u)
	return nil
}

func (t *memTx) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Status = status
	t.touch(u)
	return nil
}

func (t *memTx) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.IsAdmin = isAdmin
	t.touch(u)
	return nil
}

func (t *memTx) ResetField(ctx context.Context, userID string, field models.ResetField) error {
	if field.Column() == "" {
		return ErrFieldNotAllowed
	}
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	switch field {
	case models.ResetBalance:
		u.Balance = decimal.Zero
	case models.ResetDailyReward:
		u.DailyReward = decimal.Zero
	case models.ResetDestinationAmount:
		u.DestinationAmount = decimal.Zero
	case models.ResetOngoingMilestone:
		u.OngoingMilestone = 0
	case models.ResetTotalAdsCompleted:
		u.TotalAdsCompleted = 0
	case models.ResetPoints:
		u.Points = 0
	case models.ResetRestrictedAdsCompleted:
		u.RestrictedAdsCompleted = 0
		if u.Restriction != nil {
			u.Restriction.CompletedCount = 0
		}
	}
	t.touch(u)
	return nil
}

func (t *memTx) InsertAdClick(ctx context.Context, click *models.AdClick) error {
	click.ID = t.s.clickSeq.Add(1)
	click.EarnedAmount = models.RoundMoney(click.EarnedAmount)
	click.CreatedAt = t.s.now()
	if click.Mode == "" {
		click.Mode = models.EarningModeNormal
	}
	t.clicks = append(t.clicks, *click)
	return nil
}

func (t *memTx) InsertDeposit(ctx context.Context, d *models.Deposit) error {
	d.ID = t.s.depositSeq.Add(1)
	d.Amount = models.RoundMoney(d.Amount)
	d.CreatedAt = t.s.now()
	t.deposits = append(t.deposits, *d)
	return nil
}

func (t *memTx) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	w.ID = t.s.withdrawalSeq.Add(1)
	w.Amount = models.RoundMoney(w.Amount)
	w.CreatedAt = t.s.now()
	if w.Status == "" {
		w.Status = models.WithdrawalPending
	}
	t.newWithdrawals = append(t.newWithdrawals, cloneWithdrawal(w))
	return nil
}

func (t *memTx) LockWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	if w, ok := t.withdrawals[id]; ok {
		return cloneWithdrawal(w), nil
	}

	t.s.mu.RLock()
	_, exists := t.s.withdrawals[id]
	t.s.mu.RUnlock()
	if !exists {
		return nil, ErrWithdrawalNotFound
	}

	m := t.s.withdrawalMutex(id)
	m.Lock()
	t.unlocks = append(t.unlocks, m.Unlock)

	t.s.mu.RLock()
	staged := cloneWithdrawal(t.s.withdrawals[id])
	t.s.mu.RUnlock()

	t.withdrawals[id] = staged
	return cloneWithdrawal(staged), nil
}

func (t *memTx) SetWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, reason *string) error {
	if _, err := t.LockWithdrawal(ctx, id); err != nil {
		return err
	}
	w := t.withdrawals[id]
	w.Status = status
	if reason != nil {
		r := *reason
		w.Reason = &r
	}
	processed := t.s.now()
	w.ProcessedAt = &processed
	return nil
}

func cloneWithdrawal(w *models.Withdrawal) *models.Withdrawal {
	c := *w
	if w.Reason != nil {
		r := *w.Reason
		c.Reason = &r
	}
	if w.ProcessedAt != nil {
		p := *w.ProcessedAt
		c.ProcessedAt = &p
	}
	return &c
}
