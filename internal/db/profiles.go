package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// defaultMonthlyLimit applies to users whose profile does not set one.
const defaultMonthlyLimit = 100

// Profile holds the per-user configuration needed to route extraction
// results: the Google refresh token and the target spreadsheet.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	GoogleRefreshToken string    `json:"-"`
	TargetSheetID      string    `json:"target_sheet_id"`
	MonthlyLimit       int       `json:"monthly_limit"`
}

// GetProfile returns the profile for a user, or nil when none exists.
func GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, COALESCE(email, ''), COALESCE(google_refresh_token, ''),
		       COALESCE(target_sheet_id, ''), COALESCE(monthly_limit, 0)
		FROM profiles
		WHERE id = $1
	`
	var p Profile
	err := Pool.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.Email, &p.GoogleRefreshToken, &p.TargetSheetID, &p.MonthlyLimit,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.MonthlyLimit == 0 {
		p.MonthlyLimit = defaultMonthlyLimit
	}
	return &p, nil
}

// UpsertTargetSheet sets the spreadsheet extraction results are written to.
func UpsertTargetSheet(ctx context.Context, userID uuid.UUID, email, sheetID string) error {
	query := `
		INSERT INTO profiles (id, email, target_sheet_id)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (id) DO UPDATE
		SET target_sheet_id = EXCLUDED.target_sheet_id,
		    email = COALESCE(EXCLUDED.email, profiles.email)
	`
	_, err := Pool.Exec(ctx, query, userID, email, sheetID)
	return err
}

// UpsertRefreshToken stores the Google OAuth refresh token obtained
// after the user authorizes spreadsheet access.
func UpsertRefreshToken(ctx context.Context, userID uuid.UUID, email, refreshToken string) error {
	query := `
		INSERT INTO profiles (id, email, google_refresh_token)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (id) DO UPDATE
		SET google_refresh_token = EXCLUDED.google_refresh_token,
		    email = COALESCE(EXCLUDED.email, profiles.email)
	`
	_, err := Pool.Exec(ctx, query, userID, email, refreshToken)
	return err
}
