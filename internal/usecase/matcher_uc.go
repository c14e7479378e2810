// File: internal/usecase/matcher_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/repository"
)

// Matcher answers both directions of eligibility: which translators may see a
// job, and whether one translator may take one job. The predicates themselves
// are pure; repositories only feed them candidates.
type Matcher struct {
	jobs        repository.JobRepository
	translators repository.TranslatorRepository
	customers   repository.CustomerRepository
	log         *zerolog.Logger
}

func NewMatcher(jobs repository.JobRepository, translators repository.TranslatorRepository, customers repository.CustomerRepository, logger *zerolog.Logger) *Matcher {
	return &Matcher{jobs: jobs, translators: translators, customers: customers, log: logger}
}

// ProfileMatches checks the symmetric criteria: translator type against job
// type, spoken language, gender requirement and certification level.
func ProfileMatches(t *model.Translator, job *model.Job) bool {
	if t.Type != model.TranslatorTypeForJob(job.JobType) {
		return false
	}
	if !t.Speaks(job.FromLanguageID) {
		return false
	}
	if job.Gender != model.GenderNone && t.Gender != job.Gender {
		return false
	}
	return t.HasLevel(model.LevelsForCertification(job.Certification))
}

// MayAccept applies the per-translator rules on top of ProfileMatches: a job
// pinned to a specific translator is closed to everyone else unless the
// translator's accept-all flag overrides, and in-person jobs require the
// translator to live in the customer's town.
func MayAccept(t *model.Translator, job *model.Job) bool {
	if job.SpecificTranslatorID != "" && job.SpecificTranslatorID != t.ID && !t.AcceptAll {
		return false
	}
	if job.PhysicalEnabled && job.Town != "" && t.Town != job.Town {
		return false
	}
	return true
}

// IsEligible is the full accept-side predicate, including the customer's
// blacklist.
func (m *Matcher) IsEligible(ctx context.Context, t *model.Translator, job *model.Job) (bool, error) {
	if !ProfileMatches(t, job) || !MayAccept(t, job) {
		return false, nil
	}
	blocked, err := m.customers.FindBlacklist(ctx, repository.NoTX, job.CustomerID)
	if err != nil {
		return false, err
	}
	for _, id := range blocked {
		if id == t.ID {
			return false, nil
		}
	}
	return true, nil
}

// EligibleTranslatorsFor returns every translator who may be offered the job.
func (m *Matcher) EligibleTranslatorsFor(ctx context.Context, job *model.Job) ([]*model.Translator, error) {
	blocked, err := m.customers.FindBlacklist(ctx, repository.NoTX, job.CustomerID)
	if err != nil {
		return nil, err
	}
	candidates, err := m.translators.FindCandidates(ctx, repository.NoTX, repository.CandidateCriteria{
		Type:       model.TranslatorTypeForJob(job.JobType),
		LanguageID: job.FromLanguageID,
		Gender:     job.Gender,
		Levels:     model.LevelsForCertification(job.Certification),
		ExcludeIDs: blocked,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Translator, 0, len(candidates))
	for _, t := range candidates {
		if MayAccept(t, job) {
			out = append(out, t)
		}
	}
	return out, nil
}

// PotentialJobsFor is the inverse query: all pending jobs the translator may
// be offered, deduplicated by id.
func (m *Matcher) PotentialJobsFor(ctx context.Context, t *model.Translator) ([]*model.Job, error) {
	jobs, err := m.jobs.FindPendingByCriteria(ctx, repository.NoTX,
		t.Languages, jobTypeFor(t.Type), t.Gender, t.Levels)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(jobs))
	out := make([]*model.Job, 0, len(jobs))
	for _, job := range jobs {
		if seen[job.ID] {
			continue
		}
		seen[job.ID] = true
		ok, err := m.IsEligible(ctx, t, job)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, job)
		}
	}
	return out, nil
}

func jobTypeFor(tt model.TranslatorType) model.JobType {
	switch tt {
	case model.TranslatorTypeProfessional:
		return model.JobTypePaid
	case model.TranslatorTypeRWS:
		return model.JobTypeRWS
	default:
		return model.JobTypeUnpaid
	}
}
