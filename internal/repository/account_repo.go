package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/recipebox/internal/db"
)

// AccountRepository owns the pending and verified account tables.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(database *gorm.DB) *AccountRepository {
	return &AccountRepository{db: database}
}

// CreatePending inserts a signup after checking that neither the username
// nor the email is held by a pending or a verified account.
//
// Behavior:
//   - Runs as one transaction; nothing is written on a conflict.
//   - Returns ErrUsernameTaken / ErrEmailTaken (username is checked first).
//   - A unique index race surfaces as gorm.ErrDuplicatedKey.
func (r *AccountRepository) CreatePending(ctx context.Context, p *db.PendingAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := existsInEither(tx, "username", p.Username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		if taken, err = existsInEither(tx, "email", p.Email); err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		return tx.Create(p).Error
	})
}

func existsInEither(tx *gorm.DB, column, value string) (bool, error) {
	for _, model := range []any{&db.Account{}, &db.PendingAccount{}} {
		var n int64
		if err := tx.Model(model).Where(column+" = ?", value).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// CodeInUse reports whether a still-valid pending row carries code.
func (r *AccountRepository) CodeInUse(ctx context.Context, code string, now time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.PendingAccount{}).
		Where("verification_code = ? AND code_expires_at > ?", code, now).
		Count(&n).Error
	return n > 0, err
}

// ConsumeCode promotes the pending account holding code to a verified one.
//
// Behavior:
//   - Matches exactly and only while code_expires_at > now.
//   - The pending row is removed with a conditional DELETE first, so of two
//     concurrent calls with one code only the one that deleted it creates
//     the account.
//   - Returns (nil, nil) when nothing matched; no rows change in that case.
func (r *AccountRepository) ConsumeCode(ctx context.Context, code string, now time.Time, defaults db.Account) (*db.Account, error) {
	var created *db.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p db.PendingAccount
		err := tx.Where("verification_code = ? AND code_expires_at > ?", code, now).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		res := tx.Where("id = ? AND verification_code = ?", p.ID, code).Delete(&db.PendingAccount{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}

		acct := defaults
		acct.ID = 0
		acct.Username = p.Username
		acct.Email = p.Email
		acct.PasswordHash = p.PasswordHash
		acct.DisplayName = p.Username
		if err := tx.Create(&acct).Error; err != nil {
			return err
		}
		created = &acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RefreshCode replaces the code and expiry of the pending account with email.
// Returns false when no pending account has that email.
func (r *AccountRepository) RefreshCode(ctx context.Context, email, code string, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.PendingAccount{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"verification_code": code,
			"code_expires_at":   expiresAt,
		})
	return res.RowsAffected > 0, res.Error
}

// DeleteStalePending removes pending accounts created before cutoff,
// whether or not their code is still valid.
func (r *AccountRepository) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&db.PendingAccount{})
	return res.RowsAffected, res.Error
}

// FindAccountByUsername returns ErrUserNotFound when absent.
func (r *AccountRepository) FindAccountByUsername(ctx context.Context, username string) (*db.Account, error) {
	var a db.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindPendingByUsername returns ErrUserNotFound when absent.
func (r *AccountRepository) FindPendingByUsername(ctx context.Context, username string) (*db.PendingAccount, error) {
	var p db.PendingAccount
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateSettings writes the given columns on one account. Callers pass only
// profile and preference columns; counters are never accepted here.
func (r *AccountRepository) UpdateSettings(ctx context.Context, accountID uint64, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where("id = ?", accountID).
		Updates(cols).Error
}

// UsernamesByID maps account ids to usernames. Unknown ids are omitted.
func (r *AccountRepository) UsernamesByID(ctx context.Context, ids ...uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []db.Account
	if err := r.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.ID] = a.Username
	}
	return out, nil
}
