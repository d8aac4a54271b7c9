package domain

import "time"

// Property listing status values.
const (
	PropertyListed    = "listed"
	PropertyLeased    = "leased"
	PropertyOffMarket = "off_market"
)

// Property is an owner's rental listing. The pipeline only reads these to
// give the drafting agent business context.
type Property struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	TeamID      *string   `json:"team_id,omitempty" gorm:"index"`
	UserID      *string   `json:"user_id,omitempty" gorm:"index"`
	Address     string    `json:"address"`
	RentMonthly float64   `json:"rent_monthly"`
	Bedrooms    int       `json:"bedrooms"`
	Status      string    `json:"status" gorm:"index;default:listed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Property) TableName() string {
	return "properties"
}
