package repository

import (
	"context"

	"interpretation-booking/internal/domain/model"
)

// CandidateCriteria selects translators able to serve a job.
type CandidateCriteria struct {
	Type       model.TranslatorType
	LanguageID int64
	Gender     model.Gender // GenderNone matches any
	Levels     []model.TranslatorLevel
	ExcludeIDs []string
}

type TranslatorRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Translator, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Translator, error)
	FindCandidates(ctx context.Context, tx Tx, c CandidateCriteria) ([]*model.Translator, error)
}

type CustomerRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Customer, error)
	// FindBlacklist returns translator ids the customer has blocked.
	FindBlacklist(ctx context.Context, tx Tx, customerID string) ([]string, error)
}

type LanguageRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Language, error)
}
