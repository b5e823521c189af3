package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is owned by exactly one freelancer and tied to exactly one client.
// Both columns reference users; the role invariants (owner must be a
// freelancer, client must be a client) are enforced in the handlers, not by
// the schema.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`

	OwnerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner  *User  `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	Client *User  `gorm:"foreignKey:ClientID;references:ID" json:"client,omitempty"`
	Files  []File `gorm:"foreignKey:ProjectID;references:ID" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
