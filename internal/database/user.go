package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateUser creates a user. A nil hash creates an account without a password.
func (c *Client) CreateUser(ctx context.Context, username string, passwordHash []byte, isAdmin bool) (*User, error) {
	user := User{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	}
	if user.IsPublicAccount() && (passwordHash != nil || isAdmin) {
		return nil, ErrPublicAccount
	}
	if err := c.db.WithContext(ctx).Create(&user).Error; err != nil {
		log.Error("failed to create user", "error", err)
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by ID", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by username", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUser returns the named user, creating an external account
// (no password) if it does not exist yet.
func (c *Client) GetOrCreateUser(ctx context.Context, username string) (*User, error) {
	user, err := c.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return c.CreateUser(ctx, username, nil, false)
}

// EnsurePublicAccount returns the public account, creating it when missing.
func (c *Client) EnsurePublicAccount(ctx context.Context) (*User, error) {
	public := User{Username: PublicAccountUsername}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&public).Error
	if err != nil {
		log.Error("failed to create public account", "error", err)
		return nil, err
	}
	return c.GetUserByUsername(ctx, PublicAccountUsername)
}

func (c *Client) GetAllUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		log.Error("failed to get all users", "error", err)
		return nil, err
	}
	return users, nil
}

// SetUserPassword replaces the password hash of a user.
func (c *Client) SetUserPassword(ctx context.Context, id uint, hash []byte) error {
	user, err := c.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(hash); err != nil {
		return err
	}
	if err := c.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		log.Error("failed to update user password", "error", err)
		return err
	}
	return nil
}

// SetUserAdmin changes the admin flag of a user. The public account can never be promoted.
func (c *Client) SetUserAdmin(ctx context.Context, id uint, isAdmin bool) error {
	user, err := c.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsPublicAccount() && isAdmin {
		return ErrPublicAccount
	}
	if err := c.db.WithContext(ctx).Model(user).Update("is_admin", isAdmin).Error; err != nil {
		log.Error("failed to update user admin flag", "error", err)
		return err
	}
	return nil
}

// DeleteUser removes a user together with their dashboard. The public account is never removed.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	user, err := c.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsPublicAccount() {
		return ErrPublicAccount
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteDashboardTx(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Delete(&User{}, user.ID).Error; err != nil {
			log.Error("failed to delete user", "error", err)
			return err
		}
		return nil
	})
}
