// Package persons provides the PostgreSQL-backed repository for encrypted
// person records.
package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/dbx"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const personColumns = `id, user_id, first_name, middle_name, last_name, nickname,
	birth_date, death_date, notes, address, phone, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, person *models.Person) (*models.Person, error) {
	query := `
		INSERT INTO persons (user_id, first_name, middle_name, last_name, nickname,
			birth_date, death_date, notes, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		person.UserID,
		nullable(person.FirstName), nullable(person.MiddleName), nullable(person.LastName),
		nullable(person.Nickname), nullable(person.BirthDate), nullable(person.DeathDate),
		nullable(person.Notes), nullable(person.Address), nullable(person.Phone)).
		Scan(&person.ID, &person.CreatedAt, &person.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return person, nil
}

func (r *PostgresRepository) Update(ctx context.Context, person *models.Person) error {
	query := `
		UPDATE persons
		SET first_name = $3, middle_name = $4, last_name = $5, nickname = $6,
			birth_date = $7, death_date = $8, notes = $9, address = $10, phone = $11,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		person.ID, person.UserID,
		nullable(person.FirstName), nullable(person.MiddleName), nullable(person.LastName),
		nullable(person.Nickname), nullable(person.BirthDate), nullable(person.DeathDate),
		nullable(person.Notes), nullable(person.Address), nullable(person.Phone))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkOneRow(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id, userID string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = $1 AND user_id = $2`

	person, err := scanPerson(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return person, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkOneRow(res)
}

// nullable maps the Absent marker to a SQL NULL parameter.
func nullable(e *cryptox.Envelope) any {
	if e == nil {
		return nil
	}
	return e
}

func checkOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var person models.Person
	var firstName, middleName, lastName, nickname, birthDate, deathDate, notes, address, phone cryptox.NullEnvelope

	err := row.Scan(&person.ID, &person.UserID,
		&firstName, &middleName, &lastName, &nickname,
		&birthDate, &deathDate, &notes, &address, &phone,
		&person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		return nil, err
	}

	person.FirstName = firstName.Envelope
	person.MiddleName = middleName.Envelope
	person.LastName = lastName.Envelope
	person.Nickname = nickname.Envelope
	person.BirthDate = birthDate.Envelope
	person.DeathDate = deathDate.Envelope
	person.Notes = notes.Envelope
	person.Address = address.Envelope
	person.Phone = phone.Envelope

	return &person, nil
}
