package domain

import (
	"fmt"
)

// DefaultNegativeAnswer is the canonical negative option text used when a
// questionnaire does not declare its own.
const DefaultNegativeAnswer = "No"

// Option is one selectable choice on a question. RequiresDetail marks options
// that must be accompanied by free text when selected.
type Option struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	RequiresDetail bool   `json:"requires_detail"`
}

// Question is one entry in a pre-donation questionnaire.
type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []Option     `json:"options"`
}

// Option returns the option with the given identifier.
func (q *Question) Option(id string) (*Option, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// Questionnaire is an ordered, immutable set of eligibility questions shown
// before registration. It is supplied by the survey source and never mutated
// by the engine.
//
// NegativeAnswer is the option text meaning "no risk/condition present", the
// pass condition for screening questions. ScreeningQuestionID names the one
// question exempt from the disqualification rules; when empty, the first
// question is the screening question.
type Questionnaire struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	NegativeAnswer      string     `json:"negative_answer"`
	ScreeningQuestionID string     `json:"screening_question_id,omitempty"`
	Questions           []Question `json:"questions"`
}

// Validate ensures the questionnaire is internally consistent: identifiers
// are unique, every question has options, and types are known.
func (q *Questionnaire) Validate() error {
	if q.ID == "" {
		return NewValidationError("id", "questionnaire ID is required", q.ID)
	}
	if len(q.Questions) == 0 {
		return NewValidationError("questions", "questionnaire has no questions", nil)
	}

	seen := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return NewValidationError("question.id", "question ID is required", nil)
		}
		if seen[question.ID] {
			return NewValidationError("question.id", "duplicate question ID", question.ID)
		}
		seen[question.ID] = true

		if !question.Type.IsValid() {
			return NewValidationError("question.type", "unknown question type", string(question.Type))
		}
		if len(question.Options) == 0 {
			return NewValidationError("question.options", fmt.Sprintf("question %s has no options", question.ID), nil)
		}

		optSeen := make(map[string]bool, len(question.Options))
		for _, opt := range question.Options {
			if opt.ID == "" {
				return NewValidationError("option.id", fmt.Sprintf("option ID is required on question %s", question.ID), nil)
			}
			if optSeen[opt.ID] {
				return NewValidationError("option.id", fmt.Sprintf("duplicate option ID on question %s", question.ID), opt.ID)
			}
			optSeen[opt.ID] = true
		}
	}

	if q.ScreeningQuestionID != "" && !seen[q.ScreeningQuestionID] {
		return NewValidationError("screening_question_id", "screening question not present in questionnaire", q.ScreeningQuestionID)
	}

	return nil
}

// Question returns the question with the given identifier.
func (q *Questionnaire) Question(id string) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// ScreeningID returns the identifier of the screening question, defaulting to
// the first question when none is declared.
func (q *Questionnaire) ScreeningID() string {
	if q.ScreeningQuestionID != "" {
		return q.ScreeningQuestionID
	}
	if len(q.Questions) > 0 {
		return q.Questions[0].ID
	}
	return ""
}

// Negative returns the canonical negative answer text for this questionnaire.
func (q *Questionnaire) Negative() string {
	if q.NegativeAnswer != "" {
		return q.NegativeAnswer
	}
	return DefaultNegativeAnswer
}

// Answer is a donor's response to one question: the selected option
// identifiers plus, for each selected option requiring elaboration, the
// accompanying free text keyed by option identifier.
type Answer struct {
	SelectedOptionIDs []string          `json:"selected_option_ids"`
	Details           map[string]string `json:"details,omitempty"`
}

// Detail returns the free text supplied for an option, if any.
func (a *Answer) Detail(optionID string) string {
	if a.Details == nil {
		return ""
	}
	return a.Details[optionID]
}

// AnswerSet maps question identifiers to responses. A fully submitted answer
// set contains exactly one entry per question in the questionnaire.
type AnswerSet map[string]Answer
