package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

// Dialect selects placeholder style and error decoding for a database/sql driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// SQLStore persists the bot state through database/sql. Queries are written
// with '?' placeholders and rebound for Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ api.Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Open connects to driver/dsn, verifies the connection and applies SQLite pragmas.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	dialect := Dialect(driver)
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// SQLite has a single writer.
		conn.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		}
		for _, stmt := range pragmas {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
			}
		}
	}
	logrus.WithField("driver", driver).Info("database connected")
	return conn, nil
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Organizations

const orgColumns = "id, name, invite_code, timezone, created_at"

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.InviteCode, &o.Timezone, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) AddOrganization(ctx context.Context, o *models.Organization) error {
	return s.insertOrganization(ctx, s.db, o)
}

func (s *SQLStore) insertOrganization(ctx context.Context, ex execer, o *models.Organization) error {
	_, err := ex.ExecContext(ctx, s.rebind(`INSERT INTO organizations (`+orgColumns+`) VALUES (?, ?, ?, ?, ?)`),
		o.ID, o.Name, o.InviteCode, o.Timezone, o.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("organization already exists")
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *SQLStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	o, err := scanOrganization(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+orgColumns+` FROM organizations WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

func (s *SQLStore) FindOrganizationByInvite(ctx context.Context, code string) (*models.Organization, error) {
	o, err := scanOrganization(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+orgColumns+` FROM organizations WHERE UPPER(invite_code) = UPPER(?)`), code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find organization by invite: %w", err)
	}
	return o, nil
}

func (s *SQLStore) GetOrganizationTimezone(ctx context.Context, orgID string) (string, error) {
	var tz string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT timezone FROM organizations WHERE id = ?`), orgID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get organization timezone: %w", err)
	}
	return tz, nil
}

func (s *SQLStore) UpdateOrganizationTimezone(ctx context.Context, id, timezone string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE organizations SET timezone = ? WHERE id = ?`), timezone, id)
	if err != nil {
		return fmt.Errorf("update organization timezone: %w", err)
	}
	return expectRow(res, services.NewNotFoundError("organization not found"))
}

// Admins

// CreateAdmin inserts org and its first admin in one transaction.
func (s *SQLStore) CreateAdmin(ctx context.Context, org *models.Organization, a *models.Admin) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create admin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.insertOrganization(ctx, tx, org); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO admins (id, email, pass_hash, organization_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		a.ID, a.Email, string(a.PassHash), a.OrganizationID, a.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			err = services.NewConflictError("email exists")
			return err
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create admin: %w", err)
	}
	return nil
}

func (s *SQLStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var (
		a    models.Admin
		hash string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, email, pass_hash, organization_id, created_at FROM admins WHERE email = ?`), email).
		Scan(&a.ID, &a.Email, &hash, &a.OrganizationID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	a.PassHash = []byte(hash)
	return &a, nil
}

// Users

const userColumns = "id, chat_id, name, organization_id, step, points, welcome_bonus, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		org   sql.NullString
		bonus int
	)
	if err := row.Scan(&u.ID, &u.ChatID, &u.Name, &org, &u.Step, &u.Points, &bonus, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.OrganizationID = org.String
	u.WelcomeBonus = bonus != 0
	return &u, nil
}

func (s *SQLStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.ChatID, u.Name, toNullString(u.OrganizationID), u.Step, u.Points, boolToInt(u.WelcomeBonus), u.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("user already exists")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE chat_id = ?`), chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by chat: %w", err)
	}
	return u, nil
}

// UpdateUser writes profile and registration fields. The point balance is
// only changed through the completion transactions.
func (s *SQLStore) UpdateUser(ctx context.Context, u *models.User) error {
	return s.updateUser(ctx, s.db, u)
}

func (s *SQLStore) updateUser(ctx context.Context, ex execer, u *models.User) error {
	res, err := ex.ExecContext(ctx, s.rebind(`UPDATE users SET name = ?, organization_id = ?, step = ?, welcome_bonus = ? WHERE id = ?`),
		u.Name, toNullString(u.OrganizationID), u.Step, boolToInt(u.WelcomeBonus), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectRow(res, services.ErrUserNotFound)
}

func (s *SQLStore) GetUserOrganization(ctx context.Context, userID string) (string, error) {
	var org sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT organization_id FROM users WHERE id = ?`), userID).Scan(&org)
	if errors.Is(err, sql.ErrNoRows) {
		return "", services.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user organization: %w", err)
	}
	return org.String, nil
}

func (s *SQLStore) ListOrganizationUsers(ctx context.Context, orgID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE organization_id = ? ORDER BY name, id`), orgID)
	if err != nil {
		return nil, fmt.Errorf("list organization users: %w", err)
	}
	defer rows.Close()
	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CompleteRegistration updates u and credits bonus in one transaction.
func (s *SQLStore) CompleteRegistration(ctx context.Context, u *models.User, bonus int) (balance int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.updateUser(ctx, tx, u); err != nil {
		return 0, err
	}
	balance, err = s.creditTx(ctx, tx, u.ID, bonus)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit complete registration: %w", err)
	}
	return balance, nil
}

func (s *SQLStore) creditTx(ctx context.Context, tx *sql.Tx, userID string, delta int) (int, error) {
	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE users SET points = points + ? WHERE id = ?`), delta, userID)
	if err != nil {
		return 0, fmt.Errorf("credit points: %w", err)
	}
	if err := expectRow(res, services.ErrUserNotFound); err != nil {
		return 0, err
	}
	var balance int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT points FROM users WHERE id = ?`), userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// Survey records

const recordColumns = "id, user_id, period, local_date, sleep_quality, energy, readiness, mood, points, recorded_at"

func scanRecord(row rowScanner) (*models.SurveyRecord, error) {
	var (
		r      models.SurveyRecord
		period string
		mood   string
	)
	if err := row.Scan(&r.ID, &r.UserID, &period, &r.LocalDate, &r.SleepQuality, &r.Energy, &r.Readiness, &mood, &r.Points, &r.RecordedAt); err != nil {
		return nil, err
	}
	tag, err := models.ParseWindowTag(period)
	if err != nil {
		return nil, err
	}
	r.Period = tag
	r.Mood = models.Mood(mood)
	return &r, nil
}

func (s *SQLStore) FindCompletions(ctx context.Context, userID string, period models.WindowTag, localDate string) ([]*models.SurveyRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+recordColumns+` FROM survey_records WHERE user_id = ? AND period = ? AND local_date = ? ORDER BY recorded_at`),
		userID, period.String(), localDate)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	defer rows.Close()
	var out []*models.SurveyRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOrganizationRecords returns the records of orgID's members with a local
// date in [fromDate, toDate]. Empty bounds are open.
func (s *SQLStore) ListOrganizationRecords(ctx context.Context, orgID, fromDate, toDate string) ([]*models.SurveyRecord, error) {
	q := `SELECT ` + recordColumns + ` FROM survey_records WHERE user_id IN (SELECT id FROM users WHERE organization_id = ?)`
	args := []any{orgID}
	if fromDate != "" {
		q += ` AND local_date >= ?`
		args = append(args, fromDate)
	}
	if toDate != "" {
		q += ` AND local_date <= ?`
		args = append(args, toDate)
	}
	q += ` ORDER BY local_date, recorded_at, id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list organization records: %w", err)
	}
	defer rows.Close()
	out := []*models.SurveyRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordCompletion re-checks the (user, period, local date) slot, inserts the
// record and credits rec.Points in one transaction.
func (s *SQLStore) RecordCompletion(ctx context.Context, rec *models.SurveyRecord) (id string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record completion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(1) FROM survey_records WHERE user_id = ? AND period = ? AND local_date = ?`),
		rec.UserID, rec.Period.String(), rec.LocalDate).Scan(&existing)
	if err != nil {
		return "", fmt.Errorf("check completion: %w", err)
	}
	if existing > 0 {
		err = services.ErrAlreadyCompleted
		return "", err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO survey_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.UserID, rec.Period.String(), rec.LocalDate, rec.SleepQuality, rec.Energy, rec.Readiness, string(rec.Mood), rec.Points, rec.RecordedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			err = services.ErrAlreadyCompleted
			return "", err
		}
		return "", fmt.Errorf("insert completion: %w", err)
	}
	if _, err = s.creditTx(ctx, tx, rec.UserID, rec.Points); err != nil {
		return "", err
	}
	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			err = services.ErrAlreadyCompleted
			return "", err
		}
		return "", fmt.Errorf("commit completion: %w", err)
	}
	return rec.ID, nil
}

// Challenges

const challengeColumns = "id, user_id, text, reward, status, custom, created_at, updated_at"

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	var (
		c      models.Challenge
		status string
		custom int
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Text, &c.Reward, &status, &custom, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = models.ChallengeStatus(status)
	c.Custom = custom != 0
	return &c, nil
}

func (s *SQLStore) AddChallenge(ctx context.Context, c *models.Challenge) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO challenges (`+challengeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.UserID, c.Text, c.Reward, string(c.Status), boolToInt(c.Custom), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (s *SQLStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx, s.rebind(`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	return c, nil
}

func (s *SQLStore) ListChallenges(ctx context.Context, userID string) ([]*models.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+challengeColumns+` FROM challenges WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()
	var out []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateChallengeStatus(ctx context.Context, id string, status models.ChallengeStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE challenges SET status = ?, updated_at = ? WHERE id = ?`), string(status), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	return expectRow(res, services.NewNotFoundError("challenge not found"))
}

// CompleteChallenge flips an active challenge to completed and credits its
// reward. A challenge that is no longer active is a conflict.
func (s *SQLStore) CompleteChallenge(ctx context.Context, id string, at time.Time) (balance int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin complete challenge: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		userID string
		reward int
	)
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT user_id, reward FROM challenges WHERE id = ?`), id).Scan(&userID, &reward)
	if errors.Is(err, sql.ErrNoRows) {
		err = services.NewNotFoundError("challenge not found")
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("load challenge: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE challenges SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		string(models.ChallengeCompleted), at.UTC(), id, string(models.ChallengeActive))
	if err != nil {
		return 0, fmt.Errorf("complete challenge: %w", err)
	}
	if err = expectRow(res, services.NewConflictError("challenge is not active")); err != nil {
		return 0, err
	}
	if balance, err = s.creditTx(ctx, tx, userID, reward); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit complete challenge: %w", err)
	}
	return balance, nil
}
