package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SriHarishb/edith/internal/core"
)

// CreateUser writes an empty profile, replacing any existing profile and its
// videos.
func (s *Store) CreateUser(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE user_id = ?`, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, video_count, created_at) VALUES (?, 0, ?)
			ON CONFLICT(id) DO UPDATE SET video_count = 0`,
			userID, time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		return fmt.Errorf("create user %q: %w", userID, err)
	}

	return nil
}

// User loads a profile and its videos in insertion order.
func (s *Store) User(ctx context.Context, userID string) (core.User, error) {
	var user core.User

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		count, err := videoCount(ctx, tx, userID)
		if err != nil {
			return err
		}
		videos, err := userVideos(ctx, tx, userID)
		if err != nil {
			return err
		}
		user = core.User{ID: userID, VideoCount: count, Videos: videos}
		return nil
	})
	if err != nil {
		return core.User{}, fmt.Errorf("load user %q: %w", userID, err)
	}

	return user, nil
}

// NextVideoNumber returns the user's current video count and increments the
// stored count, so the first video of a user is number 0.
func (s *Store) NextVideoNumber(ctx context.Context, userID string) (int, error) {
	var current int

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		count, err := videoCount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET video_count = video_count + 1 WHERE id = ?`, userID); err != nil {
			return err
		}
		current = count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next video number for %q: %w", userID, err)
	}

	return current, nil
}

// AppendVideo adds a video to the user's list and returns the updated list.
func (s *Store) AppendVideo(ctx context.Context, userID string, video core.Video) ([]core.Video, error) {
	var videos []core.Video

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := videoCount(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO videos (user_id, link, title, views) VALUES (?, ?, ?, ?)`,
			userID, video.Link, video.Title, video.Views); err != nil {
			return err
		}
		list, err := userVideos(ctx, tx, userID)
		if err != nil {
			return err
		}
		videos = list
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append video for %q: %w", userID, err)
	}

	return videos, nil
}

// IncrementViews adds one view to the first of the user's videos with the
// given link. An unknown link leaves the profile unchanged.
func (s *Store) IncrementViews(ctx context.Context, userID, link string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := videoCount(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE videos SET views = views + 1
			WHERE id = (SELECT id FROM videos WHERE user_id = ? AND link = ? ORDER BY id LIMIT 1)`,
			userID, link)
		return err
	})
	if err != nil {
		return fmt.Errorf("increment views for %q: %w", userID, err)
	}

	return nil
}

// AllVideos returns every user's videos, grouped by user and in insertion
// order within a user.
func (s *Store) AllVideos(ctx context.Context) ([]core.Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link, title, views FROM videos ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos, err := scanVideos(rows)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	return videos, nil
}

func videoCount(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}

	var count int
	err := tx.QueryRowContext(ctx, `SELECT video_count FROM users WHERE id = ?`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return count, err
}

func userVideos(ctx context.Context, tx *sql.Tx, userID string) ([]core.Video, error) {
	rows, err := tx.QueryContext(ctx, `SELECT link, title, views FROM videos WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVideos(rows)
}

func scanVideos(rows *sql.Rows) ([]core.Video, error) {
	videos := make([]core.Video, 0)
	for rows.Next() {
		var video core.Video
		if err := rows.Scan(&video.Link, &video.Title, &video.Views); err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
