package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// Verdict reason strings surfaced to donors. Reasons are data, not errors:
// an Ineligible verdict is a legitimate business result.
const (
	ReasonMissingDetail   = "missing required detail"
	ReasonNotSelfEligible = "does not meet online self-registration criteria"
	ReasonAwaitingReview  = "answers require staff review"
)

// EligibilityEvaluator evaluates a completed pre-donation questionnaire
// against per-question rules and yields a verdict. Evaluation is sequential
// in questionnaire order and short-circuits on the first disqualifying
// condition, so the reported reason reflects the earliest failing question.
type EligibilityEvaluator struct {
	logger *logrus.Logger
}

// NewEligibilityEvaluator creates a new eligibility evaluator.
func NewEligibilityEvaluator(logger *logrus.Logger) *EligibilityEvaluator {
	return &EligibilityEvaluator{logger: logger}
}

// Evaluate applies the eligibility rules to a fully submitted answer set.
//
// Per question: a selected option requiring detail must carry free text,
// otherwise the verdict is Ineligible. When the text is present the answer is
// flagged for staff review and the disqualification check is skipped for that
// question. Otherwise every selected option must be the questionnaire's
// canonical negative answer, except on the screening question, which is
// accepted regardless of content.
//
// An answer set missing any question fails with a MissingAnswerError; answers
// referencing unknown question or option identifiers fail with a
// ValidationError. Both are caller bugs, distinct from an Ineligible verdict.
func (e *EligibilityEvaluator) Evaluate(questionnaire *domain.Questionnaire, answers domain.AnswerSet) (*domain.EligibilityVerdict, error) {
	if questionnaire == nil {
		return nil, domain.NewValidationError("questionnaire", "questionnaire is required", nil)
	}
	if err := questionnaire.Validate(); err != nil {
		return nil, err
	}

	for questionID := range answers {
		if _, ok := questionnaire.Question(questionID); !ok {
			return nil, domain.NewValidationError("answers", "answer references unknown question", questionID)
		}
	}

	screeningID := questionnaire.ScreeningID()
	negative := questionnaire.Negative()

	requiresReview := false
	var flagged []string

	for i := range questionnaire.Questions {
		question := &questionnaire.Questions[i]

		answer, ok := answers[question.ID]
		if !ok {
			return nil, &domain.MissingAnswerError{QuestionID: question.ID}
		}

		selected, err := e.resolveSelection(question, answer)
		if err != nil {
			return nil, err
		}

		// Detail rules come first: an option needing elaboration either
		// disqualifies (text absent) or routes to staff (text present).
		reviewed := false
		for _, opt := range selected {
			if !opt.RequiresDetail {
				continue
			}
			if strings.TrimSpace(answer.Detail(opt.ID)) == "" {
				verdict := &domain.EligibilityVerdict{
					Outcome: domain.OutcomeIneligible,
					Reason:  ReasonMissingDetail,
				}
				e.logVerdict(questionnaire.ID, question.ID, verdict)
				return verdict, nil
			}
			reviewed = true
		}
		if reviewed {
			requiresReview = true
			flagged = append(flagged, question.ID)
			continue
		}

		// The screening question is exempt from the negative-answer check:
		// it is accepted once answered and never disqualifies on its own.
		if question.ID == screeningID {
			continue
		}

		for _, opt := range selected {
			if opt.Text != negative {
				verdict := &domain.EligibilityVerdict{
					Outcome: domain.OutcomeIneligible,
					Reason:  ReasonNotSelfEligible,
				}
				e.logVerdict(questionnaire.ID, question.ID, verdict)
				return verdict, nil
			}
		}
	}

	verdict := &domain.EligibilityVerdict{
		Outcome:             domain.OutcomeEligible,
		RequiresStaffReview: requiresReview,
		FlaggedQuestionIDs:  flagged,
	}
	if requiresReview {
		verdict.Outcome = domain.OutcomeNeedsStaffReview
		verdict.Reason = ReasonAwaitingReview
	}

	e.logVerdict(questionnaire.ID, "", verdict)
	return verdict, nil
}

// resolveSelection maps the answer's selected option identifiers to options,
// enforcing the question-type cardinality rules.
func (e *EligibilityEvaluator) resolveSelection(question *domain.Question, answer domain.Answer) ([]*domain.Option, error) {
	if len(answer.SelectedOptionIDs) == 0 {
		return nil, &domain.MissingAnswerError{QuestionID: question.ID}
	}
	if question.Type == domain.SingleChoice && len(answer.SelectedOptionIDs) != 1 {
		return nil, domain.NewValidationError("answers",
			"single-choice question must have exactly one selection", question.ID)
	}

	selected := make([]*domain.Option, 0, len(answer.SelectedOptionIDs))
	for _, optionID := range answer.SelectedOptionIDs {
		opt, ok := question.Option(optionID)
		if !ok {
			return nil, domain.NewValidationError("answers", "answer references unknown option", optionID)
		}
		selected = append(selected, opt)
	}
	return selected, nil
}

func (e *EligibilityEvaluator) logVerdict(questionnaireID, questionID string, verdict *domain.EligibilityVerdict) {
	fields := logrus.Fields{"questionnaire_id": questionnaireID}
	if questionID != "" {
		fields["question_id"] = questionID
	}
	for k, v := range verdict.LogFields() {
		fields[k] = v
	}
	e.logger.WithFields(fields).Info("Eligibility evaluation completed")
}
