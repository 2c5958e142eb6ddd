package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coupn-app/coupn/internal/common"
	"github.com/coupn-app/coupn/internal/model"
)

const upsertPromotionSQL = `
	INSERT INTO promotions (
		user_id, company, category, promo_message, promo_code,
		expiration_date, promo_link, barcode, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, company, promo_message) DO UPDATE SET
		category = excluded.category,
		promo_code = excluded.promo_code,
		expiration_date = excluded.expiration_date,
		promo_link = excluded.promo_link,
		barcode = excluded.barcode`

// UpsertPromotions saves promotions for a user. A promotion whose company and
// message already exist for the user overwrites the stored one.
func (s *SQLiteStorage) UpsertPromotions(ctx context.Context, userID string, promotions []model.Promotion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validatePromotions(promotions); err != nil {
		return err
	}
	if len(promotions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertPromotionSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, p := range promotions {
		p = model.NormalizePromotion(p)
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err := stmt.ExecContext(ctx,
			userID,
			p.Company,
			string(p.Category),
			p.Message,
			nullString(p.Code),
			p.ExpirationDate,
			nullString(p.Link),
			nullString(p.Barcode),
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert promotion %s: %w", p.Company, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promotions: %w", err)
	}
	return nil
}

// ListPromotions returns a user's promotions in insertion order.
func (s *SQLiteStorage) ListPromotions(ctx context.Context, userID string) ([]model.Promotion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, company, category, promo_message, promo_code,
			expiration_date, promo_link, barcode, created_at
		FROM promotions
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query promotions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	promotions := []model.Promotion{}
	for rows.Next() {
		var (
			p         model.Promotion
			category  string
			code      sql.NullString
			link      sql.NullString
			barcode   sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&p.UserID, &p.Company, &category, &p.Message, &code,
			&p.ExpirationDate, &link, &barcode, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		p.Category = model.ParseCategory(category)
		p.Code = code.String
		p.Link = link.String
		p.Barcode = barcode.String
		if createdAt.Valid {
			p.CreatedAt = createdAt.Time
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promotions: %w", err)
	}

	return promotions, nil
}

// DeletePromotion removes the promotion identified by key.
func (s *SQLiteStorage) DeletePromotion(ctx context.Context, userID string, key model.PromotionKey) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM promotions WHERE user_id = ? AND company = ? AND promo_message = ?`,
		userID, key.Company, key.Message)
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("promotion %s: %w", key.Company, common.ErrNotFound)
	}
	return nil
}

// CountPromotions returns how many promotions a user has.
func (s *SQLiteStorage) CountPromotions(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promotions WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count promotions: %w", err)
	}
	return count, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CategoryCounts returns the number of stored promotions per category across
// all users.
func (s *SQLiteStorage) CategoryCounts(ctx context.Context) (map[model.Category]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM promotions GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Category]int)
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[model.ParseCategory(category)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}
	return counts, nil
}
