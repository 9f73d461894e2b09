package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
)

// StatsRepo maintains lifetime delivery stats and unlocked
// achievements.  It is driven exclusively by the order.delivered
// consumer; request handlers only read.
type StatsRepo struct{ DB *sql.DB }

// NewStatsRepo returns a new StatsRepo bound to the provided database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// GetByUser fetches the user's lifetime stats.  A missing row reads as
// zeroed stats.
func (r *StatsRepo) GetByUser(ctx context.Context, userID uint64) (model.DeliveryStats, error) {
	var (
		s       model.DeliveryStats
		streets string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, total_deliveries, total_tips_cents, total_distance_km, unique_streets, updated_at
		 FROM delivery_stats WHERE user_id=? LIMIT 1`, userID).
		Scan(&s.UserID, &s.TotalDeliveries, &s.TotalTipsCents, &s.TotalDistanceKM, &streets, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.DeliveryStats{UserID: userID}, nil
	}
	if err != nil {
		return model.DeliveryStats{}, err
	}
	if streets != "" {
		if err := json.Unmarshal([]byte(streets), &s.UniqueStreets); err != nil {
			return model.DeliveryStats{}, err
		}
	}
	return s, nil
}

// Save upserts the user's lifetime stats row.
func (r *StatsRepo) Save(ctx context.Context, s model.DeliveryStats) error {
	streets, err := json.Marshal(s.UniqueStreets)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO delivery_stats (user_id, total_deliveries, total_tips_cents, total_distance_km, unique_streets)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   total_deliveries=VALUES(total_deliveries),
		   total_tips_cents=VALUES(total_tips_cents),
		   total_distance_km=VALUES(total_distance_km),
		   unique_streets=VALUES(unique_streets)`,
		s.UserID, s.TotalDeliveries, s.TotalTipsCents, s.TotalDistanceKM, string(streets))
	return err
}

// UnlockedCodes returns the achievement codes the user already holds.
func (r *StatsRepo) UnlockedCodes(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT code FROM achievements WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// Unlock records a newly earned achievement.  Inserting an already
// unlocked code is ignored.
func (r *StatsRepo) Unlock(ctx context.Context, a model.Achievement) error {
	at := a.UnlockedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO achievements (user_id, code, title, descr, unlocked_at) VALUES (?,?,?,?,?)",
		a.UserID, a.Code, a.Title, a.Descr, at)
	return err
}

// ListByUser returns the user's unlocked achievements, newest first.
func (r *StatsRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Achievement, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, code, title, descr, unlocked_at FROM achievements WHERE user_id=? ORDER BY unlocked_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Code, &a.Title, &a.Descr, &a.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
