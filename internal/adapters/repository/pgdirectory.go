package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/skillswap/internal/domain/model"
)

const profileSchema = `
CREATE TABLE IF NOT EXISTS skill_profiles (
	user_id      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	location     TEXT NOT NULL DEFAULT '',
	bio          TEXT NOT NULL DEFAULT '',
	offered      JSONB NOT NULL DEFAULT '[]',
	wanted       JSONB NOT NULL DEFAULT '[]',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 5.0,
	rating_count INTEGER NOT NULL DEFAULT 0
)`

const profileColumns = `user_id, name, location, bio, offered, wanted, rating, rating_count`

// pgxConn is the subset of *pgxpool.Pool the directory uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ pgxConn = (*pgxpool.Pool)(nil)

// PostgresDirectory stores profiles in Postgres. Skill lists are JSONB.
type PostgresDirectory struct {
	db pgxConn
}

// NewPostgresDirectory wraps an open pool.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// OpenPostgresDirectory connects to dsn, pings and ensures the schema.
func OpenPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	d := NewPostgresDirectory(pool)
	if err := d.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return d, pool.Close, nil
}

// EnsureSchema creates the profile table if it does not exist.
func (d *PostgresDirectory) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, profileSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a profile.
func (d *PostgresDirectory) Upsert(ctx context.Context, p model.SkillProfile) error {
	if err := validateProfile("directory.upsert", p); err != nil {
		return err
	}
	p = p.Normalize()
	offered, wanted, err := encodeSkills(p)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO skill_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			bio = EXCLUDED.bio,
			offered = EXCLUDED.offered,
			wanted = EXCLUDED.wanted,
			rating = EXCLUDED.rating,
			rating_count = EXCLUDED.rating_count
	`
	_, err = d.db.Exec(ctx, query, p.UserID, p.Name, p.Location, p.Bio, offered, wanted, p.Rating, p.RatingCount)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Put is Upsert; it lets seed loading treat both directories alike.
func (d *PostgresDirectory) Put(ctx context.Context, p model.SkillProfile) error {
	return d.Upsert(ctx, p)
}

// Get retrieves a profile by user id.
func (d *PostgresDirectory) Get(ctx context.Context, userID string) (model.SkillProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM skill_profiles WHERE user_id = $1`
	p, err := scanProfile(d.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SkillProfile{}, model.WrapKind("directory.get", model.ErrNotFound, fmt.Errorf("user %q", userID))
		}
		return model.SkillProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns every profile ordered by user id.
func (d *PostgresDirectory) List(ctx context.Context) ([]model.SkillProfile, error) {
	rows, err := d.db.Query(ctx, `SELECT `+profileColumns+` FROM skill_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []model.SkillProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return out, nil
}

// UpdateRating locks the row, applies fn and writes the result in one
// transaction.
func (d *PostgresDirectory) UpdateRating(ctx context.Context, userID string, fn func(float64, int) (float64, int)) (model.SkillProfile, error) {
	const op = "directory.update_rating"
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return model.SkillProfile{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + profileColumns + ` FROM skill_profiles WHERE user_id = $1 FOR UPDATE`
	p, err := scanProfile(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SkillProfile{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("user %q", userID))
		}
		return model.SkillProfile{}, fmt.Errorf("failed to lock profile: %w", err)
	}

	p.Rating, p.RatingCount = fn(p.Rating, p.RatingCount)
	if _, err := tx.Exec(ctx, `UPDATE skill_profiles SET rating = $1, rating_count = $2 WHERE user_id = $3`,
		p.Rating, p.RatingCount, userID); err != nil {
		return model.SkillProfile{}, fmt.Errorf("failed to update rating: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.SkillProfile{}, fmt.Errorf("failed to commit rating: %w", err)
	}
	return p, nil
}

func encodeSkills(p model.SkillProfile) ([]byte, []byte, error) {
	offered := p.Offered
	if offered == nil {
		offered = []model.Skill{}
	}
	wanted := p.Wanted
	if wanted == nil {
		wanted = []string{}
	}
	o, err := json.Marshal(offered)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode offered skills: %w", err)
	}
	w, err := json.Marshal(wanted)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode wanted skills: %w", err)
	}
	return o, w, nil
}

func scanProfile(row pgx.Row) (model.SkillProfile, error) {
	var (
		p               model.SkillProfile
		offered, wanted []byte
	)
	if err := row.Scan(&p.UserID, &p.Name, &p.Location, &p.Bio, &offered, &wanted, &p.Rating, &p.RatingCount); err != nil {
		return model.SkillProfile{}, err
	}
	if err := json.Unmarshal(offered, &p.Offered); err != nil {
		return model.SkillProfile{}, fmt.Errorf("decode offered skills: %w", err)
	}
	if err := json.Unmarshal(wanted, &p.Wanted); err != nil {
		return model.SkillProfile{}, fmt.Errorf("decode wanted skills: %w", err)
	}
	return p.Normalize(), nil
}
