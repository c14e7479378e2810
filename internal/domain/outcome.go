package domain

// OutcomeCode identifies a business-rule rejection. Expected rejections are
// reported as Outcome values, never as Go errors; errors are reserved for
// infrastructure faults.
type OutcomeCode string

const (
	CodeOK                   OutcomeCode = "ok"
	CodeValidationFailed     OutcomeCode = "validation_failed"
	CodePastDueDate          OutcomeCode = "past_due_date"
	CodeAlreadyAssigned      OutcomeCode = "already_assigned"
	CodeTooLateToCancel      OutcomeCode = "too_late_to_cancel"
	CodeCommentRequired      OutcomeCode = "comment_required"
	CodeIneligibleTranslator OutcomeCode = "ineligible_translator"
	CodeNotFound             OutcomeCode = "not_found"
	CodeJobLocked            OutcomeCode = "job_locked"
)

// Outcome is the structured result of a lifecycle operation.
type Outcome struct {
	Status  string      `json:"status"` // "success" | "fail"
	Code    OutcomeCode `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    any         `json:"data,omitempty"`
}

func Success(data any) Outcome {
	return Outcome{Status: "success", Code: CodeOK, Data: data}
}

func Fail(code OutcomeCode, message string) Outcome {
	return Outcome{Status: "fail", Code: code, Message: message}
}

func (o Outcome) OK() bool { return o.Status == "success" }
