package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

// QuestionnaireRepository loads questionnaire definitions. Definitions change
// rarely and are read-heavy; callers are expected to sit a cache in front.
type QuestionnaireRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewQuestionnaireRepository creates a new questionnaire repository.
func NewQuestionnaireRepository(db *pgxpool.Pool, logger *logrus.Logger) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		db:  db,
		log: logger,
	}
}

// GetQuestionnaire assembles a questionnaire with its questions and options,
// in display order.
func (r *QuestionnaireRepository) GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error) {
	var questionnaire domain.Questionnaire

	err := r.db.QueryRow(ctx, `
		SELECT id, title, negative_answer, screening_question_id
		FROM questionnaires
		WHERE id = $1`, id,
	).Scan(
		&questionnaire.ID,
		&questionnaire.Title,
		&questionnaire.NegativeAnswer,
		&questionnaire.ScreeningQuestionID,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("questionnaire not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting questionnaire: %w", err)
	}

	questions, err := r.loadQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	questionnaire.Questions = questions

	if err := questionnaire.Validate(); err != nil {
		r.log.WithFields(logrus.Fields{
			"questionnaire_id": id,
			"error":            err,
		}).Error("Stored questionnaire failed validation")
		return nil, fmt.Errorf("stored questionnaire is invalid: %w", err)
	}

	return &questionnaire, nil
}

func (r *QuestionnaireRepository) loadQuestions(ctx context.Context, questionnaireID string) ([]domain.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, question_text, question_type
		FROM questions
		WHERE questionnaire_id = $1
		ORDER BY display_order ASC`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var question domain.Question
		var questionType string

		if err := rows.Scan(&question.ID, &question.Text, &questionType); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		question.Type = domain.QuestionType(questionType)
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		options, err := r.loadOptions(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = options
	}

	return questions, nil
}

func (r *QuestionnaireRepository) loadOptions(ctx context.Context, questionID string) ([]domain.Option, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, option_text, requires_detail
		FROM question_options
		WHERE question_id = $1
		ORDER BY display_order ASC`, questionID)
	if err != nil {
		return nil, fmt.Errorf("loading options: %w", err)
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var option domain.Option
		if err := rows.Scan(&option.ID, &option.Text, &option.RequiresDetail); err != nil {
			return nil, fmt.Errorf("scanning option: %w", err)
		}
		options = append(options, option)
	}

	return options, rows.Err()
}
