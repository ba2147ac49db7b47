package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/edita-ar/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUserRepository(db *sql.DB, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: queryTimeout}
}

// Create inserts the user and returns it with its generated ID. Uniqueness of
// the username is enforced by the database, so concurrent inserts for the same
// username fail with ErrDuplicateUsername rather than racing a prior lookup.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	badgesJSON, err := marshalList(user.Badges)
	if err != nil {
		return types.User{}, err
	}
	completedJSON, err := marshalList(user.CompletedProjects)
	if err != nil {
		return types.User{}, err
	}
	savedJSON, err := marshalList(user.SavedItems)
	if err != nil {
		return types.User{}, err
	}
	activityJSON, err := marshalList(user.ActivityFeed)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now().UTC()
	const query = `
		INSERT INTO users (
			username, name, password_hash, bio, avatar, level,
			projects, followers, following, joined_date,
			badges, completed_projects, saved_items, activity_feed,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	err = r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.Bio,
		user.Avatar,
		user.Level,
		user.Projects,
		user.Followers,
		user.Following,
		user.JoinedDate,
		badgesJSON,
		completedJSON,
		savedJSON,
		activityJSON,
		now,
		now,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, classify(ctx, err)
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, username, name, password_hash, bio, avatar, level,
		       projects, followers, following, joined_date,
		       badges, completed_projects, saved_items, activity_feed
		FROM users
		WHERE username = $1`
	var user types.User
	var badgesJSON, completedJSON, savedJSON, activityJSON []byte
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.PasswordHash,
		&user.Bio,
		&user.Avatar,
		&user.Level,
		&user.Projects,
		&user.Followers,
		&user.Following,
		&user.JoinedDate,
		&badgesJSON,
		&completedJSON,
		&savedJSON,
		&activityJSON,
	)
	if err != nil {
		return types.User{}, classify(ctx, err)
	}

	_ = json.Unmarshal(badgesJSON, &user.Badges)
	_ = json.Unmarshal(completedJSON, &user.CompletedProjects)
	_ = json.Unmarshal(savedJSON, &user.SavedItems)
	_ = json.Unmarshal(activityJSON, &user.ActivityFeed)
	return user, nil
}

// RecordProjectPublished bumps the user's project counter and appends the
// activity to their feed in a single statement.
func (r *UserRepository) RecordProjectPublished(ctx context.Context, username string, activity types.Activity) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	entryJSON, err := json.Marshal([]types.Activity{activity})
	if err != nil {
		return err
	}

	const query = `
		UPDATE users
		SET projects = projects + 1,
			activity_feed = activity_feed || $2::jsonb,
			updated_at = $3
		WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username, entryJSON, time.Now().UTC())
	if err != nil {
		return classify(ctx, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(ctx, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
