package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// QuestionRepository reads and writes the questions table. Question
// rows are only ever replaced wholesale, never patched row by row.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByPage returns a page's questions in display order.
func (r *QuestionRepository) ListByPage(ctx context.Context, pageID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, page_id, prompt, kind, options, correct_answer, order_num
		 FROM questions WHERE page_id = $1
		 ORDER BY order_num`, pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.PageID, &q.Prompt, &q.Kind, &q.Options, &q.CorrectAnswer, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForPage swaps a page's full question set in one transaction.
// Questions receive fresh IDs; order_num follows slice order.
func (r *QuestionRepository) ReplaceForPage(ctx context.Context, pageID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE page_id = $1`, pageID); err != nil {
		return err
	}

	if len(questions) > 0 {
		n := len(questions)
		ids := make([]uuid.UUID, 0, n)
		prompts := make([]string, 0, n)
		kinds := make([]string, 0, n)
		options := make([]string, 0, n)
		answers := make([]string, 0, n)
		orders := make([]int, 0, n)

		for i := range questions {
			ids = append(ids, uuid.New())
			prompts = append(prompts, questions[i].Prompt)
			kinds = append(kinds, string(questions[i].Kind))
			options = append(options, questions[i].Options)
			answers = append(answers, questions[i].CorrectAnswer)
			orders = append(orders, i)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO questions (id, page_id, prompt, kind, options, correct_answer, order_num)
			SELECT u.id, $1, u.prompt, u.kind, u.options, u.correct_answer, u.order_num
			FROM UNNEST(
				$2::uuid[],
				$3::text[],
				$4::text[],
				$5::text[],
				$6::text[],
				$7::int[]
			) AS u (id, prompt, kind, options, correct_answer, order_num)
		`, pageID, ids, prompts, kinds, options, answers, orders)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE pages SET question_count = $1, updated_at = NOW() WHERE id = $2`,
		len(questions), pageID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
