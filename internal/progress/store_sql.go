package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(h *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: h, driver: driver}
}

// CreateTx inserts an empty progress row inside the caller's transaction, so
// a learner and its progress are created together.
func CreateTx(ctx context.Context, tx *sql.Tx, learnerID string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO learner_progress (learner_id, completed_units, completed_units_count, version, updated_at)
		VALUES ($1,'[]',0,0,$2)
		ON CONFLICT (learner_id) DO NOTHING`, learnerID, time.Now().UnixMilli())
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectProgress = `SELECT learner_id, aptitude_scores, assigned_path, pre_assessment, post_assessment,
	completed_units, version, updated_at FROM learner_progress WHERE learner_id=$1`

func (s *SQLStore) Get(ctx context.Context, learnerID string) (Progress, error) {
	return s.load(ctx, s.db, learnerID, "")
}

func (s *SQLStore) Update(ctx context.Context, learnerID string, fn func(*Progress) error) (Progress, error) {
	lockClause := ""
	if s.driver == db.DriverPostgres {
		lockClause = " FOR UPDATE"
	}
	var out Progress
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		cur, err := s.load(ctx, tx, learnerID, lockClause)
		if err != nil {
			return err
		}
		next := cur.clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.Version = cur.Version + 1
		next.UpdatedAt = time.Now().UTC()
		if err := s.write(ctx, tx, cur.Version, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if quiz.KindOf(err) != "" {
			return Progress{}, err
		}
		return Progress{}, quiz.StorageFailure("update progress", err)
	}
	return out, nil
}

func (s *SQLStore) load(ctx context.Context, q queryer, learnerID, lockClause string) (Progress, error) {
	var (
		p         Progress
		aptitude  sql.NullString
		path      sql.NullString
		pre, post sql.NullInt64
		units     string
		updatedMs int64
	)
	err := q.QueryRowContext(ctx, selectProgress+lockClause, learnerID).
		Scan(&p.LearnerID, &aptitude, &path, &pre, &post, &units, &p.Version, &updatedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Progress{}, quiz.NotFound("learner not found")
		}
		return Progress{}, quiz.StorageFailure("load progress", err)
	}
	if aptitude.Valid {
		if err := json.Unmarshal([]byte(aptitude.String), &p.AptitudeScores); err != nil {
			return Progress{}, quiz.StorageFailure("decode aptitude scores", err)
		}
		if p.AptitudeScores == nil {
			p.AptitudeScores = map[string]float64{}
		}
	}
	p.AssignedPath = path.String
	if pre.Valid {
		v := int(pre.Int64)
		p.PreAssessment = &v
	}
	if post.Valid {
		v := int(post.Int64)
		p.PostAssessment = &v
	}
	var list []string
	if err := json.Unmarshal([]byte(units), &list); err != nil {
		return Progress{}, quiz.StorageFailure("decode completed units", err)
	}
	p.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return Restore(p, list), nil
}

// write stores next only if the row still has version prev; the count column
// is always written from the unit set in the same statement.
func (s *SQLStore) write(ctx context.Context, tx *sql.Tx, prev int64, next Progress) error {
	var aptitude, path sql.NullString
	if next.AptitudeScores != nil {
		b, err := json.Marshal(next.AptitudeScores)
		if err != nil {
			return err
		}
		aptitude = sql.NullString{String: string(b), Valid: true}
	}
	if next.AssignedPath != "" {
		path = sql.NullString{String: next.AssignedPath, Valid: true}
	}
	units := next.CompletedUnits()
	ub, err := json.Marshal(units)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE learner_progress SET
		aptitude_scores=$1, assigned_path=$2, pre_assessment=$3, post_assessment=$4,
		completed_units=$5, completed_units_count=$6, version=$7, updated_at=$8
		WHERE learner_id=$9 AND version=$10`,
		aptitude, path, nullInt(next.PreAssessment), nullInt(next.PostAssessment),
		string(ub), len(units), next.Version, next.UpdatedAt.UnixMilli(),
		next.LearnerID, prev)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("progress changed concurrently")
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
