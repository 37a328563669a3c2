package learner

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/db"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(h *sql.DB) *SQLStore { return &SQLStore{db: h} }

func (s *SQLStore) Get(ctx context.Context, id string) (Learner, error) {
	return s.scanOne(ctx, `SELECT id, username, name, role, created_at FROM learners WHERE id=$1`, id)
}

func (s *SQLStore) scanOne(ctx context.Context, q string, arg string) (Learner, error) {
	var (
		l    Learner
		role string
		ms   int64
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&l.ID, &l.Username, &l.Name, &role, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Learner{}, quiz.NotFound("learner not found")
	}
	if err != nil {
		return Learner{}, quiz.StorageFailure("load learner", err)
	}
	l.Role = Role(role)
	l.CreatedAt = time.UnixMilli(ms).UTC()
	return l, nil
}

func (s *SQLStore) Authenticate(ctx context.Context, username, password string) (Learner, error) {
	var (
		l    Learner
		role string
		hash string
		ms   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, name, role, password_hash, created_at FROM learners WHERE username=$1`, username).
		Scan(&l.ID, &l.Username, &l.Name, &role, &hash, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Learner{}, ErrInvalidCredentials
	}
	if err != nil {
		return Learner{}, quiz.StorageFailure("load learner", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Learner{}, ErrInvalidCredentials
	}
	l.Role = Role(role)
	l.CreatedAt = time.UnixMilli(ms).UTC()
	return l, nil
}

func (s *SQLStore) BulkUpsert(ctx context.Context, rows []Row) (UpsertStats, error) {
	prep, err := prepare(rows)
	if err != nil {
		return UpsertStats{}, err
	}
	var st UpsertStats
	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		for _, r := range prep {
			var exists bool
			switch err := tx.QueryRowContext(ctx, `SELECT 1 FROM learners WHERE id=$1`, r.ID).Scan(new(int)); {
			case err == nil:
				exists = true
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}

			var err error
			if exists {
				if r.hash != nil {
					_, err = tx.ExecContext(ctx, `UPDATE learners SET username=$1, name=$2, role=$3, password_hash=$4 WHERE id=$5`,
						r.Username, r.Name, string(r.role), string(r.hash), r.ID)
				} else {
					_, err = tx.ExecContext(ctx, `UPDATE learners SET username=$1, name=$2, role=$3 WHERE id=$4`,
						r.Username, r.Name, string(r.role), r.ID)
				}
				if err != nil {
					return err
				}
				st.Updated++
			} else {
				if r.hash == nil {
					return passwordRequired(r.Username)
				}
				if _, err = tx.ExecContext(ctx,
					`INSERT INTO learners (id, username, name, role, password_hash, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
					r.ID, r.Username, r.Name, string(r.role), string(r.hash), now); err != nil {
					return err
				}
				st.Inserted++
			}
			// Existing learners imported before progress tracking get their row here too.
			if err := progress.CreateTx(ctx, tx, r.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return UpsertStats{}, asStorageFailure("bulk upsert learners", err)
	}
	return st, nil
}
