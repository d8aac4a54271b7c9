package repository

import (
	listingdomain "mailroom-backend/internal/listing/domain"
	maildomain "mailroom-backend/internal/mail/domain"

	"gorm.io/gorm"
)

// PropertyRepository reads an owner's listings; the pipeline never writes
// them.
type PropertyRepository interface {
	ActiveByOwner(ownerID string, kind maildomain.OwnerKind, limit int) ([]*listingdomain.Property, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) ActiveByOwner(ownerID string, kind maildomain.OwnerKind, limit int) ([]*listingdomain.Property, error) {
	ownerColumn := "user_id"
	if kind == maildomain.OwnerTeam {
		ownerColumn = "team_id"
	}

	var properties []*listingdomain.Property
	err := r.db.Where(ownerColumn+" = ? AND status = ?", ownerID, listingdomain.PropertyListed).
		Order("updated_at DESC").Limit(limit).Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}
