package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/billora/billora/internal/organization/domain"
	"github.com/billora/billora/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct{}

func NewRepository() *Repository { return &Repository{} }

// Lock takes a row lock on the organization. Finalize and numbering use this
// to serialize number assignment per account.
func (r *Repository) Lock(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	query := tx.WithContext(ctx)
	if db.SupportsRowLocking(tx) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var org orgdomain.Organization
	err := query.Select("id").Where("id = ?", orgID).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orgdomain.ErrInvalidOrganization
		}
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*orgdomain.Organization, error) {
	var org orgdomain.Organization
	err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}
