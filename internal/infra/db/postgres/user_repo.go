// File: internal/infra/db/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/repository"
)

var (
	_ repository.TranslatorRepository = (*translatorRepo)(nil)
	_ repository.CustomerRepository   = (*customerRepo)(nil)
	_ repository.LanguageRepository   = (*languageRepo)(nil)
)

type translatorRepo struct {
	pool *pgxpool.Pool
}

func NewTranslatorRepo(pool *pgxpool.Pool) *translatorRepo {
	return &translatorRepo{pool: pool}
}

const translatorColumns = `
  t.id, t.email, t.name, t.phone, t.town, t.type, t.gender, t.accept_all,
  t.not_get_notification, t.not_get_nighttime, t.not_get_emails`

func (r *translatorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Translator, error) {
	q := `SELECT ` + translatorColumns + ` FROM translators t WHERE t.id=$1;`
	return r.findOne(ctx, tx, q, id)
}

func (r *translatorRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Translator, error) {
	q := `SELECT ` + translatorColumns + ` FROM translators t WHERE t.email=$1;`
	return r.findOne(ctx, tx, q, email)
}

func (r *translatorRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Translator, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	t, err := scanTranslator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := r.loadProfile(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// loadProfile fills the language and level slices for one translator.
func (r *translatorRepo) loadProfile(ctx context.Context, tx repository.Tx, t *model.Translator) error {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT language_id FROM translator_languages WHERE translator_id=$1`, t.ID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return domain.ErrReadDatabaseRow
		}
		t.Languages = append(t.Languages, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.ErrReadDatabaseRow
	}

	lvlRows, err := queryRows(ctx, r.pool, tx,
		`SELECT level FROM translator_levels WHERE translator_id=$1`, t.ID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	defer lvlRows.Close()
	for lvlRows.Next() {
		var lvl model.TranslatorLevel
		if err := lvlRows.Scan(&lvl); err != nil {
			return domain.ErrReadDatabaseRow
		}
		t.Levels = append(t.Levels, lvl)
	}
	return lvlRows.Err()
}

func (r *translatorRepo) FindCandidates(ctx context.Context, tx repository.Tx, c repository.CandidateCriteria) ([]*model.Translator, error) {
	levels := make([]string, 0, len(c.Levels))
	for _, l := range c.Levels {
		levels = append(levels, string(l))
	}
	exclude := c.ExcludeIDs
	if exclude == nil {
		exclude = []string{}
	}
	q := `
SELECT DISTINCT ` + translatorColumns + `
  FROM translators t
  JOIN translator_languages tl ON tl.translator_id = t.id
  JOIN translator_levels    lv ON lv.translator_id = t.id
 WHERE t.type = $1
   AND tl.language_id = $2
   AND ($3 = '' OR t.gender = $3)
   AND lv.level = ANY($4)
   AND NOT (t.id = ANY($5));`
	rows, err := queryRows(ctx, r.pool, tx, q, c.Type, c.LanguageID, c.Gender, levels, exclude)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	var out []*model.Translator
	for rows.Next() {
		t, err := scanTranslator(rows)
		if err != nil {
			rows.Close()
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	// Close before the profile queries: a tx executor is a single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	for _, t := range out {
		if err := r.loadProfile(ctx, tx, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanTranslator(row rowScanner) (*model.Translator, error) {
	var t model.Translator
	err := row.Scan(&t.ID, &t.Email, &t.Name, &t.Phone, &t.Town, &t.Type, &t.Gender, &t.AcceptAll,
		&t.NotGetNotification, &t.NotGetNighttime, &t.NotGetEmails)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type customerRepo struct {
	pool *pgxpool.Pool
}

func NewCustomerRepo(pool *pgxpool.Pool) *customerRepo {
	return &customerRepo{pool: pool}
}

func (r *customerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	const q = `
SELECT id, email, name, phone, town, consumer_type, not_get_emails
  FROM customers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var c model.Customer
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Town, &c.ConsumerType, &c.NotGetEmails); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}

func (r *customerRepo) FindBlacklist(ctx context.Context, tx repository.Tx, customerID string) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT translator_id FROM customer_blacklist WHERE customer_id=$1`, customerID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

type languageRepo struct {
	pool *pgxpool.Pool
}

func NewLanguageRepo(pool *pgxpool.Pool) *languageRepo {
	return &languageRepo{pool: pool}
}

func (r *languageRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Language, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name FROM languages WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	var l model.Language
	if err := row.Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &l, nil
}
