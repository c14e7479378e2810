// File: internal/usecase/statemachine_test.go
package usecase

import (
	"testing"
	"time"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
)

func pendingJob(due time.Time) model.Job {
	return model.Job{
		ID:             "job-1",
		CustomerID:     "cust-1",
		FromLanguageID: 1,
		Status:         model.JobStatusPending,
		Due:            due,
		Duration:       60,
		PhoneEnabled:   true,
	}
}

func TestApply_RejectsUnknownTransitions(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		from   model.JobStatus
		action Action
	}{
		{model.JobStatusCompleted, ActionAccept},
		{model.JobStatusPending, ActionComplete},
		{model.JobStatusPending, ActionStart},
		{model.JobStatusWithdrawBefore, ActionReopen},
		{model.JobStatusPending, ActionAdminWithdraw},
	}
	for _, c := range cases {
		job := pendingJob(now.Add(48 * time.Hour))
		job.Status = c.from
		res, reject := Apply(job, c.action, Patch{AdminComments: "x"}, now)
		if reject == nil {
			t.Errorf("%s from %s: expected rejection, got none", c.action, c.from)
			continue
		}
		if reject.Code != domain.CodeValidationFailed {
			t.Errorf("%s from %s: expected validation_failed, got %s", c.action, c.from, reject.Code)
		}
		if res.Job.Status != c.from {
			t.Errorf("%s from %s: job status mutated on rejection", c.action, c.from)
		}
	}
}

func TestApply_CustomerWithdraw24HourRule(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("should classify exactly 24h ahead as withdrawbefore24", func(t *testing.T) {
		job := pendingJob(now.Add(24 * time.Hour))
		job.Status = model.JobStatusAssigned

		res, reject := Apply(job, ActionCustomerWithdraw, Patch{}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusWithdrawBefore {
			t.Errorf("expected withdrawbefore24, got %s", res.Job.Status)
		}
		if res.Job.WithdrawAt == nil || !res.Job.WithdrawAt.Equal(now) {
			t.Error("expected WithdrawAt to be set to now")
		}
	})

	t.Run("should classify 10h ahead as withdrawafter24", func(t *testing.T) {
		job := pendingJob(now.Add(10 * time.Hour))
		job.Status = model.JobStatusAssigned

		res, reject := Apply(job, ActionCustomerWithdraw, Patch{}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusWithdrawAfter {
			t.Errorf("expected withdrawafter24, got %s", res.Job.Status)
		}
	})

	t.Run("should withdraw straight from pending", func(t *testing.T) {
		job := pendingJob(now.Add(48 * time.Hour))

		res, reject := Apply(job, ActionCustomerWithdraw, Patch{}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusWithdrawBefore {
			t.Errorf("expected withdrawbefore24, got %s", res.Job.Status)
		}
	})
}

func TestApply_TranslatorCancelGuard(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("should release the job 25h ahead", func(t *testing.T) {
		job := pendingJob(now.Add(25 * time.Hour))
		job.Status = model.JobStatusAssigned

		res, reject := Apply(job, ActionTranslatorCancel, Patch{}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusPending {
			t.Errorf("expected pending, got %s", res.Job.Status)
		}
		wantEffects := map[Effect]bool{EffectCancelAssignment: true, EffectBroadcast: true}
		for _, e := range res.Effects {
			delete(wantEffects, e)
		}
		if len(wantEffects) != 0 {
			t.Errorf("missing effects: %v", wantEffects)
		}
	})

	t.Run("should refuse exactly 24h ahead", func(t *testing.T) {
		job := pendingJob(now.Add(24 * time.Hour))
		job.Status = model.JobStatusAssigned

		res, reject := Apply(job, ActionTranslatorCancel, Patch{}, now)
		if reject == nil {
			t.Fatal("expected rejection, got none")
		}
		if reject.Code != domain.CodeTooLateToCancel {
			t.Errorf("expected too_late_to_cancel, got %s", reject.Code)
		}
		if res.Job.Status != model.JobStatusAssigned {
			t.Error("job status mutated on rejection")
		}
	})
}

func TestApply_CommentGuards(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("start requires a comment", func(t *testing.T) {
		job := pendingJob(now.Add(time.Hour))
		job.Status = model.JobStatusAssigned
		if _, reject := Apply(job, ActionStart, Patch{}, now); reject == nil || reject.Code != domain.CodeCommentRequired {
			t.Fatalf("expected comment_required, got %+v", reject)
		}
		res, reject := Apply(job, ActionStart, Patch{AdminComments: "session started by phone"}, now)
		if reject != nil {
			t.Fatalf("expected success with comment, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusStarted {
			t.Errorf("expected started, got %s", res.Job.Status)
		}
	})

	t.Run("timeout from assigned requires a comment, from pending does not", func(t *testing.T) {
		assigned := pendingJob(now.Add(time.Hour))
		assigned.Status = model.JobStatusAssigned
		if _, reject := Apply(assigned, ActionTimeout, Patch{FromSweeper: true}, now); reject == nil || reject.Code != domain.CodeCommentRequired {
			t.Fatalf("expected comment_required, got %+v", reject)
		}

		pending := pendingJob(now.Add(time.Hour))
		res, reject := Apply(pending, ActionTimeout, Patch{FromSweeper: true}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusTimedout {
			t.Errorf("expected timedout, got %s", res.Job.Status)
		}
		if len(res.Effects) != 0 {
			t.Errorf("pending timeout should carry no effects, got %v", res.Effects)
		}
	})

	t.Run("timeout from assigned cancels the assignment", func(t *testing.T) {
		job := pendingJob(now.Add(time.Hour))
		job.Status = model.JobStatusAssigned
		res, reject := Apply(job, ActionTimeout, Patch{AdminComments: "translator unreachable"}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		found := false
		for _, e := range res.Effects {
			if e == EffectCancelAssignment {
				found = true
			}
		}
		if !found {
			t.Error("expected cancel_assignment effect")
		}
	})

	t.Run("reopen requires a comment", func(t *testing.T) {
		job := pendingJob(now.Add(time.Hour))
		job.Status = model.JobStatusTimedout
		if _, reject := Apply(job, ActionReopen, Patch{}, now); reject == nil || reject.Code != domain.CodeCommentRequired {
			t.Fatalf("expected comment_required, got %+v", reject)
		}
	})

	t.Run("admin withdraw requires a target status and a comment", func(t *testing.T) {
		job := pendingJob(now.Add(time.Hour))
		job.Status = model.JobStatusAssigned
		if _, reject := Apply(job, ActionAdminWithdraw, Patch{AdminComments: "x"}, now); reject == nil || reject.Code != domain.CodeValidationFailed {
			t.Fatalf("expected validation_failed without target, got %+v", reject)
		}
		if _, reject := Apply(job, ActionAdminWithdraw, Patch{TargetStatus: model.JobStatusWithdrawAfter}, now); reject == nil || reject.Code != domain.CodeCommentRequired {
			t.Fatalf("expected comment_required without comment, got %+v", reject)
		}
		res, reject := Apply(job, ActionAdminWithdraw, Patch{TargetStatus: model.JobStatusWithdrawAfter, AdminComments: "customer request"}, now)
		if reject != nil {
			t.Fatalf("expected success, got: %s", reject.Message)
		}
		if res.Job.Status != model.JobStatusWithdrawAfter {
			t.Errorf("expected withdrawafter24, got %s", res.Job.Status)
		}
	})
}

func TestApply_Complete(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)
	job := pendingJob(now.Add(-90 * time.Minute))
	job.Status = model.JobStatusStarted

	if _, reject := Apply(job, ActionComplete, Patch{}, now); reject == nil || reject.Code != domain.CodeValidationFailed {
		t.Fatalf("expected validation_failed without session time, got %+v", reject)
	}

	st := 90 * time.Minute
	res, reject := Apply(job, ActionComplete, Patch{SessionTime: &st}, now)
	if reject != nil {
		t.Fatalf("expected success, got: %s", reject.Message)
	}
	if res.Job.Status != model.JobStatusCompleted {
		t.Errorf("expected completed, got %s", res.Job.Status)
	}
	if res.Job.SessionTime == nil || *res.Job.SessionTime != st {
		t.Error("expected session time to be recorded")
	}
	if res.Job.EndAt == nil || !res.Job.EndAt.Equal(now) {
		t.Error("expected EndAt to be set to now")
	}
}

func TestApply_NotCarriedOut(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, from := range []model.JobStatus{
		model.JobStatusPending,
		model.JobStatusAssigned,
		model.JobStatusStarted,
		model.JobStatusTimedout,
		model.JobStatusWithdrawAfter,
	} {
		job := pendingJob(now.Add(-time.Hour))
		job.Status = from
		res, reject := Apply(job, ActionNotCarriedOut, Patch{}, now)
		if reject != nil {
			t.Errorf("from %s: expected success, got: %s", from, reject.Message)
			continue
		}
		if res.Job.Status != model.JobStatusNotCarriedOut {
			t.Errorf("from %s: expected not_carried_out_customer, got %s", from, res.Job.Status)
		}
		if res.Job.EndAt == nil {
			t.Errorf("from %s: expected EndAt to be set", from)
		}
	}
}
