package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/learnmarket/backend/internal/models"
)

type payoutRepository struct {
	db *sql.DB
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sql.DB) *payoutRepository {
	return &payoutRepository{
		db: db,
	}
}

// SettleCreator pays out every completed, unpaid payment of the creator's courses in one transaction.
// The selected payments are locked until commit, so a concurrent settlement cannot pay them twice.
// An empty batch returns a zero payout without writing a row.
func (r *payoutRepository) SettleCreator(ctx context.Context, creatorID int, processedAt time.Time) (*models.Payout, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT p.id, p.creator_payout
		FROM payments p
		JOIN courses c ON c.id = p.course_id
		WHERE c.creator_id = ? AND p.status = ? AND p.creator_paid = 0
		ORDER BY p.id
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, selectQuery, creatorID, models.PaymentStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to select unpaid earnings: %w", err)
	}

	earnings := []models.UnpaidEarning{}
	for rows.Next() {
		var earning models.UnpaidEarning
		if err := rows.Scan(&earning.PaymentID, &earning.CreatorPayout); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan unpaid earning: %w", err)
		}
		earnings = append(earnings, earning)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	payout := &models.Payout{
		CreatorID:   creatorID,
		Amount:      decimal.Zero,
		PaymentIDs:  []int{},
		ProcessedAt: processedAt,
	}
	if len(earnings) == 0 {
		return payout, nil
	}

	placeholders := make([]string, len(earnings))
	for i, earning := range earnings {
		payout.Amount = payout.Amount.Add(earning.CreatorPayout)
		payout.PaymentIDs = append(payout.PaymentIDs, earning.PaymentID)
		placeholders[i] = "?"
	}
	payout.PaymentCount = len(earnings)

	insertQuery := `INSERT INTO payouts (creator_id, amount, payment_count, processed_at) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertQuery, creatorID, payout.Amount, payout.PaymentCount, processedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	payout.ID = int(id)

	args := []any{payout.ID}
	for _, paymentID := range payout.PaymentIDs {
		args = append(args, paymentID)
	}
	args = append(args, models.PaymentStatusCompleted)

	updateQuery := fmt.Sprintf(`
		UPDATE payments
		SET creator_paid = 1, payout_id = ?
		WHERE id IN (%s) AND creator_paid = 0 AND status = ?
	`, strings.Join(placeholders, ", "))
	result, err = tx.ExecContext(ctx, updateQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payments paid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != int64(len(earnings)) {
		return nil, fmt.Errorf("failed to mark payments paid: expected %d rows, updated %d", len(earnings), rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return payout, nil
}

// ListCreatorsWithUnpaid lists creators that have completed payments awaiting payout
func (r *payoutRepository) ListCreatorsWithUnpaid(ctx context.Context) ([]int, error) {
	query := `
		SELECT DISTINCT c.creator_id
		FROM payments p
		JOIN courses c ON c.id = p.course_id
		WHERE p.status = ? AND p.creator_paid = 0
		ORDER BY c.creator_id
	`

	rows, err := r.db.QueryContext(ctx, query, models.PaymentStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query creators: %w", err)
	}
	defer rows.Close()

	creatorIDs := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan creator id: %w", err)
		}
		creatorIDs = append(creatorIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return creatorIDs, nil
}
