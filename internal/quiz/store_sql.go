package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, r Result) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return InvalidInput("answers", "answers are not serializable")
	}
	var scores sql.NullString
	if r.Scores != nil {
		b, err := json.Marshal(r.Scores)
		if err != nil {
			return InvalidInput("scores", "scores are not serializable")
		}
		scores = sql.NullString{String: string(b), Valid: true}
	}
	var pct sql.NullInt64
	if r.Percentage != nil {
		pct = sql.NullInt64{Int64: int64(*r.Percentage), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_results
		(id, learner_id, quiz_type, unit_id, unit_kind, answers, scores, score, percentage, total_questions, passed, completed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.LearnerID, string(r.Type), r.UnitID, string(r.UnitKind), string(answers), scores,
		r.Score, pct, r.TotalQuestions, r.Passed, r.Completed, r.CreatedAt.UnixMilli())
	if err != nil {
		return StorageFailure("insert result", err)
	}
	return nil
}

func (s *SQLStore) ListByLearner(ctx context.Context, learnerID string, typ Type) ([]Result, error) {
	const cols = `id, learner_id, quiz_type, unit_id, unit_kind, answers, scores, score, percentage, total_questions, passed, completed, created_at`
	var (
		rows *sql.Rows
		err  error
	)
	if typ == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+cols+` FROM quiz_results
			WHERE learner_id=$1 ORDER BY created_at DESC, id DESC`, learnerID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+cols+` FROM quiz_results
			WHERE learner_id=$1 AND quiz_type=$2 ORDER BY created_at DESC, id DESC`, learnerID, string(typ))
	}
	if err != nil {
		return nil, StorageFailure("list results", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r         Result
			typStr    string
			kindStr   string
			answers   string
			scores    sql.NullString
			pct       sql.NullInt64
			createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.LearnerID, &typStr, &r.UnitID, &kindStr, &answers, &scores,
			&r.Score, &pct, &r.TotalQuestions, &r.Passed, &r.Completed, &createdMs); err != nil {
			return nil, StorageFailure("scan result", err)
		}
		r.Type = Type(typStr)
		r.UnitKind = UnitKind(kindStr)
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, StorageFailure("decode result "+r.ID, err)
		}
		if scores.Valid {
			if err := json.Unmarshal([]byte(scores.String), &r.Scores); err != nil {
				return nil, StorageFailure("decode result "+r.ID, err)
			}
		}
		if pct.Valid {
			p := int(pct.Int64)
			r.Percentage = &p
		}
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, StorageFailure("list results", err)
	}
	return out, nil
}
