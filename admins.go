package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
)

const adminColumns = "id, name, email, password_hash"

func scanAdmin(row interface{ Scan(...any) error }) (*Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAdmin validates the form and stores an admin with a bcrypt hash of
// the password.
func (s *Store) CreateAdmin(ctx context.Context, form AdminForm) (*Admin, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if errs := form.Validate(); errs != nil {
		return nil, errs
	}

	hash, err := hashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin := &Admin{Name: form.Name, Email: form.Email, PasswordHash: hash}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM admins WHERE name = ?`), admin.Name).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Field: "name", Value: admin.Name}
		}

		err = tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM admins WHERE email = ?`), admin.Email).Scan(&count)
		if err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Field: "email", Value: admin.Email}
		}

		err = tx.QueryRowContext(ctx, s.q(`
			INSERT INTO admins (name, email, password_hash)
			VALUES (?, ?, ?)
			RETURNING id`), admin.Name, admin.Email, admin.PasswordHash).Scan(&admin.ID)
		if isUniqueViolation(err) {
			return &ConflictError{Field: "name", Value: admin.Name}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return admin, nil
}

func (s *Store) GetAdminByID(ctx context.Context, id int64) (*Admin, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+adminColumns+` FROM admins WHERE id = ?`), id)
	admin, err := scanAdmin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting admin %d: %w", id, err)
	}
	return admin, nil
}

func (s *Store) GetAdminByName(ctx context.Context, name string) (*Admin, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+adminColumns+` FROM admins WHERE name = ?`), name)
	admin, err := scanAdmin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting admin %q: %w", name, err)
	}
	return admin, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// seedAdmin creates the configured admin when the table is empty.
func (s *Store) seedAdmin(ctx context.Context, cfg Config) error {
	if cfg.AdminName == "" || cfg.AdminPassword == "" {
		return nil
	}

	count, err := s.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin, err := s.CreateAdmin(ctx, AdminForm{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	log.Printf("seeded admin %q", admin.Name)
	return nil
}
