package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/repomanager"
)

// PersonInput carries plaintext attribute values for create/update requests.
// An empty string means Absent: the attribute is stored as NULL, not as an
// encryption of "".
type PersonInput struct {
	FirstName  string
	MiddleName string
	LastName   string
	Nickname   string
	BirthDate  string
	DeathDate  string
	Notes      string
	Address    string
	Phone      string
}

// PersonView is a fully decrypted person record as returned to the caller.
// Absent attributes come back as empty strings.
type PersonView struct {
	ID         string
	FirstName  string
	MiddleName string
	LastName   string
	Nickname   string
	BirthDate  string
	DeathDate  string
	Notes      string
	Address    string
	Phone      string
}

// PersonService encrypts and decrypts person records with the caller's user
// key. The key arrives with each request and is never persisted here; a
// request without a key cannot be served.
type PersonService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPersonService(db *sql.DB, m repomanager.RepositoryManager) *PersonService {
	return &PersonService{db: db, repomanager: m}
}

// Create encrypts every non-empty attribute under userKey and persists the
// record. Returns the stored record's ID.
func (s *PersonService) Create(ctx context.Context, userID string, userKey []byte, input *PersonInput) (string, error) {
	person, err := encryptPerson(userID, userKey, input)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Persons(s.db)
	created, err := repo.Create(ctx, person)
	if err != nil {
		return "", fmt.Errorf("error creating person: %w", err)
	}
	return created.ID, nil
}

// Update re-encrypts the full attribute set from input and overwrites the
// record. Attributes left empty in input become Absent.
func (s *PersonService) Update(ctx context.Context, userID string, userKey []byte, id string, input *PersonInput) error {
	person, err := encryptPerson(userID, userKey, input)
	if err != nil {
		return err
	}
	person.ID = id

	repo := s.repomanager.Persons(s.db)
	if err := repo.Update(ctx, person); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error updating person: %w", err)
	}
	return nil
}

// Get loads and decrypts one record. Fail-closed: if any attribute fails
// authentication the whole request fails with ErrDecryptionFailed and no
// partial view is returned.
func (s *PersonService) Get(ctx context.Context, userID string, userKey []byte, id string) (*PersonView, error) {
	repo := s.repomanager.Persons(s.db)
	person, err := repo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading person: %w", err)
	}
	return decryptPerson(person, userKey)
}

// List loads and decrypts all records belonging to userID. A single
// undecryptable attribute anywhere in the batch fails the whole call:
// a silently shortened family tree is worse than an explicit error.
func (s *PersonService) List(ctx context.Context, userID string, userKey []byte) ([]*PersonView, error) {
	repo := s.repomanager.Persons(s.db)
	persons, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing persons: %w", err)
	}

	views := make([]*PersonView, 0, len(persons))
	for _, p := range persons {
		view, err := decryptPerson(p, userKey)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Delete removes a record. Requires no user key: nothing is decrypted.
func (s *PersonService) Delete(ctx context.Context, userID, id string) error {
	repo := s.repomanager.Persons(s.db)
	if err := repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting person: %w", err)
	}
	return nil
}

func encryptPerson(userID string, userKey []byte, input *PersonInput) (*models.Person, error) {
	person := &models.Person{UserID: userID}

	fields := []struct {
		plaintext string
		dst       **cryptox.Envelope
	}{
		{input.FirstName, &person.FirstName},
		{input.MiddleName, &person.MiddleName},
		{input.LastName, &person.LastName},
		{input.Nickname, &person.Nickname},
		{input.BirthDate, &person.BirthDate},
		{input.DeathDate, &person.DeathDate},
		{input.Notes, &person.Notes},
		{input.Address, &person.Address},
		{input.Phone, &person.Phone},
	}
	for _, f := range fields {
		e, err := cryptox.EncryptField(f.plaintext, userKey)
		if err != nil {
			return nil, fmt.Errorf("error encrypting attribute: %w", err)
		}
		*f.dst = e
	}
	return person, nil
}

func decryptPerson(person *models.Person, userKey []byte) (*PersonView, error) {
	view := &PersonView{ID: person.ID}

	fields := []struct {
		src *cryptox.Envelope
		dst *string
	}{
		{person.FirstName, &view.FirstName},
		{person.MiddleName, &view.MiddleName},
		{person.LastName, &view.LastName},
		{person.Nickname, &view.Nickname},
		{person.BirthDate, &view.BirthDate},
		{person.DeathDate, &view.DeathDate},
		{person.Notes, &view.Notes},
		{person.Address, &view.Address},
		{person.Phone, &view.Phone},
	}
	for _, f := range fields {
		plaintext, err := cryptox.DecryptField(f.src, userKey)
		if err != nil {
			return nil, err
		}
		*f.dst = plaintext
	}
	return view, nil
}
