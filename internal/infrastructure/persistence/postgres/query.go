package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"
)

// first returns the first row matching query, or (nil, nil) when none does.
func first[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func exists[T any](ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Limit(1).Count(&count).Error
	return count > 0, err
}

// updateByID applies fields and returns the updated row, or nil when id does
// not exist.
func updateByID[T any](ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*T, error) {
	var updated *T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(new(T)).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
		}
		row, err := first[T](ctx, tx, "id = ?", id)
		updated = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
