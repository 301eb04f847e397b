package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adrewards/backend/internal/database"
	"github.com/adrewards/backend/internal/models"
	"github.com/shopspring/decimal"
)

const userColumns = `id, email, status, is_admin, balance, daily_reward, destination_amount,
	ongoing_milestone, total_ads_completed, points, pending_deposit_amount,
	restriction_ads_limit, restriction_deposit, restriction_commission,
	restricted_ads_completed, created_at, updated_at`

const adColumns = `id, title, description, image_url, target_url, price, is_active, created_at`

const withdrawalColumns = `id, user_id, amount, method, account_details, status, reason, created_at, processed_at`

// SQLStore implements Store on Postgres or SQLite through database/sql
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, dialect: s.dialect, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) EnsureUser(ctx context.Context, u *models.User) (*models.User, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO users (id, email, status, is_admin, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`),
		u.ID, u.Email, string(u.Status), u.IsAdmin, money(u.Balance), now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *SQLStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+userColumns+` FROM users WHERE id = $1`), userID)
	return scanUser(row)
}

func (s *SQLStore) CreateAd(ctx context.Context, ad *models.Ad) error {
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = s.now()
	}
	ad.Price = models.RoundMoney(ad.Price)
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO ads (title, description, image_url, target_url, price, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`),
		ad.Title, ad.Description, ad.ImageURL, ad.TargetURL, money(ad.Price), ad.IsActive, ad.CreatedAt,
	).Scan(&ad.ID)
	if err != nil {
		return fmt.Errorf("create ad: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAd(ctx context.Context, adID int64) (*models.Ad, error) {
	var ad models.Ad
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+adColumns+` FROM ads WHERE id = $1`), adID).
		Scan(&ad.ID, &ad.Title, &ad.Description, &ad.ImageURL, &ad.TargetURL, &ad.Price, &ad.IsActive, &ad.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ad %d: %w", adID, err)
	}
	return &ad, nil
}

func (s *SQLStore) ListAds(ctx context.Context, activeOnly bool) ([]models.Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()

	ads := []models.Ad{}
	for rows.Next() {
		var ad models.Ad
		if err := rows.Scan(&ad.ID, &ad.Title, &ad.Description, &ad.ImageURL, &ad.TargetURL, &ad.Price, &ad.IsActive, &ad.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ad: %w", err)
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func (s *SQLStore) SetAdActive(ctx context.Context, adID int64, active bool) error {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE ads SET is_active = $1 WHERE id = $2`), active, adID)
	if err != nil {
		return fmt.Errorf("set ad %d active: %w", adID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set ad %d active: %w", adID, err)
	}
	if n == 0 {
		return ErrAdNotFound
	}
	return nil
}

func (s *SQLStore) GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`), id)
	return scanWithdrawal(row)
}

func (s *SQLStore) ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	rows, err := s.listQuery(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals`, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	out := []models.Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAdClicks(ctx context.Context, userID string) ([]models.AdClick, error) {
	rows, err := s.listQuery(ctx, `SELECT id, user_id, ad_id, earned_amount, mode, created_at FROM ad_clicks`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ad clicks: %w", err)
	}
	defer rows.Close()

	out := []models.AdClick{}
	for rows.Next() {
		var c models.AdClick
		var mode string
		if err := rows.Scan(&c.ID, &c.UserID, &c.AdID, &c.EarnedAmount, &mode, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ad click: %w", err)
		}
		c.Mode = models.EarningMode(mode)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListDeposits(ctx context.Context, userID string) ([]models.Deposit, error) {
	rows, err := s.listQuery(ctx, `SELECT id, user_id, amount, type, description, created_at FROM deposits`, userID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	out := []models.Deposit{}
	for rows.Next() {
		var d models.Deposit
		var typ string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &typ, &d.Description, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		d.Type = models.DepositType(typ)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) listQuery(ctx context.Context, base, userID string) (*sql.Rows, error) {
	if userID == "" {
		return s.db.QueryContext(ctx, base+` ORDER BY created_at DESC, id DESC`)
	}
	return s.db.QueryContext(ctx, s.dialect.Rebind(base+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`), userID)
}

func (s *SQLStore) ResetAllDailyRewards(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE users
		SET daily_reward = $1, updated_at = $2`),
		money(decimal.Zero), s.now())
	if err != nil {
		return 0, fmt.Errorf("reset daily rewards: %w", err)
	}
	return result.RowsAffected()
}

// sqlTx carries the ledger primitives over one database transaction
type sqlTx struct {
	tx      *sql.Tx
	dialect database.Dialect
	now     func() time.Time
}

func (t *sqlTx) LockUser(ctx context.Context, userID string) (*models.User, error) {
	row := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`+t.dialect.ForUpdate()), userID)
	return scanUser(row)
}

func (t *sqlTx) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	current, err := t.lockMoney(ctx, userID, "balance")
	if err != nil {
		return err
	}
	return t.writeMoney(ctx, userID, "balance", current.Add(amount))
}

func (t *sqlTx) SubtractBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	current, err := t.lockMoney(ctx, userID, "balance")
	if err != nil {
		return err
	}
	if current.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return t.writeMoney(ctx, userID, "balance", current.Sub(amount))
}

func (t *sqlTx) SetBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	return t.writeMoney(ctx, userID, "balance", amount)
}

func (t *sqlTx) AddDailyReward(ctx context.Context, userID string, amount decimal.Decimal) error {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return err
	}
	current, err := t.lockMoney(ctx, userID, "daily_reward")
	if err != nil {
		return err
	}
	return t.writeMoney(ctx, userID, "daily_reward", current.Add(amount))
}

func (t *sqlTx) IncrementAdsCompleted(ctx context.Context, userID string) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET total_ads_completed = total_ads_completed + 1, updated_at = $1
		WHERE id = $2`, t.now(), userID)
}

func (t *sqlTx) IncrementRestrictedAdsCompleted(ctx context.Context, userID string) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET restricted_ads_completed = restricted_ads_completed + 1, updated_at = $1
		WHERE id = $2`, t.now(), userID)
}

func (t *sqlTx) SetRestriction(ctx context.Context, userID string, in models.RestrictionInput) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET restriction_ads_limit = $1, restriction_deposit = $2, restriction_commission = $3,
			pending_deposit_amount = $4, restricted_ads_completed = 0, updated_at = $5
		WHERE id = $6`,
		in.AdsLimit, money(in.DepositRequirement), money(in.CommissionPerAd),
		money(in.PendingDepositAmount), t.now(), userID)
}

func (t *sqlTx) ClearRestriction(ctx context.Context, userID string) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET restriction_ads_limit = NULL, restriction_deposit = NULL, restriction_commission = NULL,
			pending_deposit_amount = $1, restricted_ads_completed = 0, updated_at = $2
		WHERE id = $3`,
		money(decimal.Zero), t.now(), userID)
}

func (t *sqlTx) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET status = $1, updated_at = $2
		WHERE id = $3`,
		string(status), t.now(), userID)
}

func (t *sqlTx) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET is_admin = $1, updated_at = $2
		WHERE id = $3`,
		isAdmin, t.now(), userID)
}

func (t *sqlTx) ResetField(ctx context.Context, userID string, field models.ResetField) error {
	column := field.Column()
	if column == "" {
		return ErrFieldNotAllowed
	}
	var zero any = 0
	if field.Monetary() {
		zero = money(decimal.Zero)
	}
	// column comes from the allow-list, never from input
	return t.exec(ctx, userID, `
		UPDATE users
		SET `+column+` = $1, updated_at = $2
		WHERE id = $3`,
		zero, t.now(), userID)
}

func (t *sqlTx) InsertAdClick(ctx context.Context, click *models.AdClick) error {
	click.EarnedAmount = models.RoundMoney(click.EarnedAmount)
	click.CreatedAt = t.now()
	if click.Mode == "" {
		click.Mode = models.EarningModeNormal
	}
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		INSERT INTO ad_clicks (user_id, ad_id, earned_amount, mode, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`),
		click.UserID, click.AdID, money(click.EarnedAmount), string(click.Mode), click.CreatedAt,
	).Scan(&click.ID)
	if err != nil {
		return fmt.Errorf("insert ad click: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertDeposit(ctx context.Context, d *models.Deposit) error {
	d.Amount = models.RoundMoney(d.Amount)
	d.CreatedAt = t.now()
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		INSERT INTO deposits (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`),
		d.UserID, money(d.Amount), string(d.Type), d.Description, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	w.Amount = models.RoundMoney(w.Amount)
	w.CreatedAt = t.now()
	if w.Status == "" {
		w.Status = models.WithdrawalPending
	}
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		INSERT INTO withdrawals (user_id, amount, method, account_details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`),
		w.UserID, money(w.Amount), string(w.Method), w.AccountDetails, string(w.Status), w.CreatedAt,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

func (t *sqlTx) LockWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error) {
	row := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE id = $1`+t.dialect.ForUpdate()), id)
	return scanWithdrawal(row)
}

func (t *sqlTx) SetWithdrawalStatus(ctx context.Context, id int64, status models.WithdrawalStatus, reason *string) error {
	var r sql.NullString
	if reason != nil {
		r = sql.NullString{String: *reason, Valid: true}
	}
	result, err := t.tx.ExecContext(ctx, t.dialect.Rebind(`
		UPDATE withdrawals
		SET status = $1, reason = COALESCE($2, reason), processed_at = $3
		WHERE id = $4`),
		string(status), r, t.now(), id)
	if err != nil {
		return fmt.Errorf("update withdrawal %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrWithdrawalNotFound
	}
	return nil
}

// lockMoney reads one monetary column under the row lock
func (t *sqlTx) lockMoney(ctx context.Context, userID, column string) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(`
		SELECT `+column+`
		FROM users
		WHERE id = $1`+t.dialect.ForUpdate()), userID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return value, ErrUserNotFound
	}
	if err != nil {
		return value, fmt.Errorf("lock %s for user %s: %w", column, userID, err)
	}
	return value, nil
}

func (t *sqlTx) writeMoney(ctx context.Context, userID, column string, value decimal.Decimal) error {
	return t.exec(ctx, userID, `
		UPDATE users
		SET `+column+` = $1, updated_at = $2
		WHERE id = $3`,
		money(value), t.now(), userID)
}

// exec runs a single-user update and maps zero affected rows to ErrUserNotFound
func (t *sqlTx) exec(ctx context.Context, userID, query string, args ...any) error {
	result, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                   models.User
		status              string
		adsLimit            sql.NullInt64
		deposit, commission decimal.NullDecimal
	)
	err := row.Scan(
		&u.ID, &u.Email, &status, &u.IsAdmin, &u.Balance, &u.DailyReward, &u.DestinationAmount,
		&u.OngoingMilestone, &u.TotalAdsCompleted, &u.Points, &u.PendingDepositAmount,
		&adsLimit, &deposit, &commission,
		&u.RestrictedAdsCompleted, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Status = models.UserStatus(status)
	if adsLimit.Valid {
		u.Restriction = &models.Restriction{
			AdsLimit:           int(adsLimit.Int64),
			CommissionPerAd:    commission.Decimal,
			DepositRequirement: deposit.Decimal,
			CompletedCount:     u.RestrictedAdsCompleted,
		}
	}
	return &u, nil
}

func scanWithdrawal(row rowScanner) (*models.Withdrawal, error) {
	var (
		w           models.Withdrawal
		method      string
		status      string
		reason      sql.NullString
		processedAt sql.NullTime
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &method, &w.AccountDetails, &status, &reason, &w.CreatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}

	w.Method = models.PayoutMethod(method)
	w.Status = models.WithdrawalStatus(status)
	if reason.Valid {
		w.Reason = &reason.String
	}
	if processedAt.Valid {
		w.ProcessedAt = &processedAt.Time
	}
	return &w, nil
}

// money renders an amount the way every column stores it
func money(d decimal.Decimal) string {
	return models.RoundMoney(d).StringFixed(2)
}
