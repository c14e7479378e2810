// File: internal/usecase/matcher_uc_test.go
package usecase

import (
	"context"
	"testing"
	"time"

	"interpretation-booking/internal/domain/model"
)

func professionalTranslator(id string) *model.Translator {
	return &model.Translator{
		ID:        id,
		Email:     id + "@example.com",
		Type:      model.TranslatorTypeProfessional,
		Levels:    []model.TranslatorLevel{model.LevelCertified},
		Languages: []int64{1},
	}
}

func paidJob() *model.Job {
	return &model.Job{
		ID:             "job-1",
		CustomerID:     "cust-1",
		FromLanguageID: 1,
		Status:         model.JobStatusPending,
		JobType:        model.JobTypePaid,
		PhoneEnabled:   true,
		Duration:       30,
	}
}

func TestProfileMatches(t *testing.T) {
	t.Run("should match a certified professional on a plain paid job", func(t *testing.T) {
		if !ProfileMatches(professionalTranslator("t1"), paidJob()) {
			t.Error("expected match")
		}
	})

	t.Run("should reject a volunteer on a paid job", func(t *testing.T) {
		tr := professionalTranslator("t1")
		tr.Type = model.TranslatorTypeVolunteer
		if ProfileMatches(tr, paidJob()) {
			t.Error("expected type mismatch")
		}
	})

	t.Run("should reject a translator without the language", func(t *testing.T) {
		tr := professionalTranslator("t1")
		tr.Languages = []int64{2}
		if ProfileMatches(tr, paidJob()) {
			t.Error("expected language mismatch")
		}
	})

	t.Run("should enforce a gender requirement and ignore its absence", func(t *testing.T) {
		job := paidJob()
		job.Gender = model.GenderFemale
		tr := professionalTranslator("t1")
		tr.Gender = model.GenderMale
		if ProfileMatches(tr, job) {
			t.Error("male translator matched a female-only job")
		}
		tr.Gender = model.GenderFemale
		if !ProfileMatches(tr, job) {
			t.Error("female translator rejected on a female-only job")
		}
		job.Gender = model.GenderNone
		tr.Gender = model.GenderMale
		if !ProfileMatches(tr, job) {
			t.Error("gender-free job rejected a translator")
		}
	})

	t.Run("should map law certification to the law level only", func(t *testing.T) {
		job := paidJob()
		job.Certification = model.CertificationLaw
		tr := professionalTranslator("t1")
		tr.Levels = []model.TranslatorLevel{model.LevelCertified}
		if ProfileMatches(tr, job) {
			t.Error("plain certified translator matched a law job")
		}
		tr.Levels = []model.TranslatorLevel{model.LevelCertifiedLaw}
		if !ProfileMatches(tr, job) {
			t.Error("law-certified translator rejected on a law job")
		}
	})

	t.Run("should map normal certification to layman and course levels", func(t *testing.T) {
		job := paidJob()
		job.Certification = model.CertificationNormal
		tr := professionalTranslator("t1")
		tr.Levels = []model.TranslatorLevel{model.LevelCertifiedHealth}
		if ProfileMatches(tr, job) {
			t.Error("health-certified translator matched a normal job")
		}
		tr.Levels = []model.TranslatorLevel{model.LevelLayman}
		if !ProfileMatches(tr, job) {
			t.Error("layman rejected on a normal job")
		}
	})

	t.Run("should accept any level when no certification is required", func(t *testing.T) {
		for _, lvl := range []model.TranslatorLevel{
			model.LevelCertified,
			model.LevelCertifiedLaw,
			model.LevelCertifiedHealth,
			model.LevelLayman,
			model.LevelReadCourses,
		} {
			tr := professionalTranslator("t1")
			tr.Levels = []model.TranslatorLevel{lvl}
			if !ProfileMatches(tr, paidJob()) {
				t.Errorf("level %q rejected on an unconstrained job", lvl)
			}
		}
	})
}

func TestMayAccept(t *testing.T) {
	t.Run("should close a pinned job to other translators unless accept-all", func(t *testing.T) {
		job := paidJob()
		job.SpecificTranslatorID = "t2"
		tr := professionalTranslator("t1")
		if MayAccept(tr, job) {
			t.Error("pinned job open to an unrelated translator")
		}
		tr.AcceptAll = true
		if !MayAccept(tr, job) {
			t.Error("accept-all translator refused a pinned job")
		}
		if !MayAccept(professionalTranslator("t2"), job) {
			t.Error("pinned translator refused their own job")
		}
	})

	t.Run("should require the translator's town for on-site jobs", func(t *testing.T) {
		job := paidJob()
		job.PhysicalEnabled = true
		job.Town = "Stockholm"
		tr := professionalTranslator("t1")
		tr.Town = "Malmo"
		if MayAccept(tr, job) {
			t.Error("out-of-town translator accepted an on-site job")
		}
		tr.Town = "Stockholm"
		if !MayAccept(tr, job) {
			t.Error("local translator refused an on-site job")
		}
		job.Town = ""
		tr.Town = "Malmo"
		if !MayAccept(tr, job) {
			t.Error("on-site job with no town should not constrain")
		}
	})
}

func TestMatcher_IsEligible_Blacklist(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	env.customers.add(&model.Customer{ID: "cust-1", Email: "c@example.com"})
	tr := professionalTranslator("t1")
	env.translators.add(tr)

	ok, err := env.matcher.IsEligible(ctx, tr, paidJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected eligibility before blacklisting")
	}

	env.customers.block("cust-1", "t1")
	ok, err = env.matcher.IsEligible(ctx, tr, paidJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("blacklisted translator reported eligible")
	}
}

func TestMatcher_PotentialJobsFor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.customers.add(&model.Customer{ID: "cust-1", ConsumerType: "paid"})

	open := paidJob()
	open.Due = now.Add(48 * time.Hour)
	if err := env.jobs.Save(ctx, nil, open); err != nil {
		t.Fatal(err)
	}
	taken := paidJob()
	taken.ID = "job-2"
	taken.Status = model.JobStatusAssigned
	taken.Due = now.Add(48 * time.Hour)
	if err := env.jobs.Save(ctx, nil, taken); err != nil {
		t.Fatal(err)
	}
	wrongLang := paidJob()
	wrongLang.ID = "job-3"
	wrongLang.FromLanguageID = 2
	wrongLang.Due = now.Add(48 * time.Hour)
	if err := env.jobs.Save(ctx, nil, wrongLang); err != nil {
		t.Fatal(err)
	}

	tr := professionalTranslator("t1")
	env.translators.add(tr)

	jobs, err := env.matcher.PotentialJobsFor(ctx, tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		got := make([]string, 0, len(jobs))
		for _, j := range jobs {
			got = append(got, j.ID)
		}
		t.Errorf("expected exactly job-1, got %v", got)
	}
}

func TestMatcher_EligibleTranslatorsFor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	env.customers.add(&model.Customer{ID: "cust-1"})

	fits := professionalTranslator("t1")
	blocked := professionalTranslator("t2")
	wrongType := professionalTranslator("t3")
	wrongType.Type = model.TranslatorTypeVolunteer
	for _, tr := range []*model.Translator{fits, blocked, wrongType} {
		env.translators.add(tr)
	}
	env.customers.block("cust-1", "t2")

	out, err := env.matcher.EligibleTranslatorsFor(ctx, paidJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != "t1" {
		t.Errorf("expected only t1, got %d candidates", len(out))
	}
}
