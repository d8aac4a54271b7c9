package repository

import (
	"errors"
	"fmt"

	maildomain "mailroom-backend/internal/mail/domain"

	"gorm.io/gorm"
)

var (
	// ErrAddressNotFound indicates the destination mailbox is unknown or inactive
	ErrAddressNotFound = errors.New("destination address not found")
	// ErrAmbiguousOwner indicates an address row violating the team-XOR-user invariant
	ErrAmbiguousOwner = errors.New("address has ambiguous ownership")
)

// AddressRepository maps a destination mailbox address to its owner.
type AddressRepository interface {
	Resolve(address string) (maildomain.Owner, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

// Resolve looks the destination up among active mailboxes. A row with both
// or neither of team/user set breaks a core invariant and is surfaced as
// ErrAmbiguousOwner rather than silently tolerated.
func (r *addressRepository) Resolve(address string) (maildomain.Owner, error) {
	var row maildomain.EmailAddress
	err := r.db.Where("address = ? AND is_active = ?", address, true).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return maildomain.Owner{}, fmt.Errorf("%w: %s", ErrAddressNotFound, address)
		}
		return maildomain.Owner{}, err
	}

	hasTeam := row.TeamID != nil && *row.TeamID != ""
	hasUser := row.UserID != nil && *row.UserID != ""
	switch {
	case hasTeam && hasUser, !hasTeam && !hasUser:
		return maildomain.Owner{}, fmt.Errorf("%w: %s", ErrAmbiguousOwner, address)
	case hasTeam:
		return maildomain.Owner{ID: *row.TeamID, Kind: maildomain.OwnerTeam, Mailbox: row.Address}, nil
	default:
		return maildomain.Owner{ID: *row.UserID, Kind: maildomain.OwnerUser, Mailbox: row.Address}, nil
	}
}
