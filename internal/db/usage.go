package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UsageLog is one processing attempt. A row is created in "processing"
// state before extraction starts and finalized once the run ends, so
// failed runs are visible too.
type UsageLog struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	FileName         string     `json:"file_name"`
	FileSize         int64      `json:"file_size"`
	Status           string     `json:"status"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	ProcessingTimeMS int64      `json:"processing_time_ms"`
	TokensUsed       int        `json:"tokens_used,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// UsageSummary is the monthly usage rollup for one user.
type UsageSummary struct {
	MonthlyLimit int `json:"monthly_limit"`
	CurrentUsage int `json:"current_usage"`
	Failed       int `json:"failed"`
	Remaining    int `json:"remaining"`
}

// CreateUsageLog inserts a new log row in "processing" state and
// returns its id.
func CreateUsageLog(ctx context.Context, userID uuid.UUID, fileName string, fileSize int64) (uuid.UUID, error) {
	logID := uuid.New()

	query := `
		INSERT INTO usage_logs (id, user_id, file_name, file_size, status)
		VALUES ($1, $2, $3, $4, 'processing')
	`
	_, err := Pool.Exec(ctx, query, logID, userID, fileName, fileSize)
	if err != nil {
		return uuid.Nil, err
	}
	return logID, nil
}

// MarkUsageSuccess finalizes a log row with the extracted record and
// run timings.
func MarkUsageSuccess(ctx context.Context, logID uuid.UUID, extractedJSON string, processingTimeMS int64, tokensUsed int) error {
	query := `
		UPDATE usage_logs
		SET status = 'success', extracted_data = $2::jsonb,
		    processing_time_ms = $3, tokens_used = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := Pool.Exec(ctx, query, logID, extractedJSON, processingTimeMS, tokensUsed)
	return err
}

// MarkUsageFailed finalizes a log row with the failure message.
func MarkUsageFailed(ctx context.Context, logID uuid.UUID, errorMessage string, processingTimeMS int64) error {
	query := `
		UPDATE usage_logs
		SET status = 'failed', error_message = $2,
		    processing_time_ms = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := Pool.Exec(ctx, query, logID, errorMessage, processingTimeMS)
	return err
}

// MonthlyUsage counts this calendar month's successful and failed runs
// against the user's limit.
func MonthlyUsage(ctx context.Context, userID uuid.UUID) (*UsageSummary, error) {
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM usage_logs
		WHERE user_id = $1 AND created_at >= $2
	`
	var used, failed int
	if err := Pool.QueryRow(ctx, query, userID, startOfMonth).Scan(&used, &failed); err != nil {
		return nil, err
	}

	limit, err := monthlyLimit(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UsageSummary{
		MonthlyLimit: limit,
		CurrentUsage: used,
		Failed:       failed,
		Remaining:    limit - used,
	}, nil
}

func monthlyLimit(ctx context.Context, userID uuid.UUID) (int, error) {
	profile, err := GetProfile(ctx, userID)
	if err != nil {
		return 0, err
	}
	if profile == nil || profile.MonthlyLimit == 0 {
		return defaultMonthlyLimit, nil
	}
	return profile.MonthlyLimit, nil
}
