package model

import (
	"fmt"
	"time"

	"github.com/storefront/commerce-backend/pkg/util"
	"gorm.io/gorm"
)

type KYCStatus string      // verification state of a business
type BusinessStatus string // operating state of a business
type MemberRole string     // a staff user's role inside one business

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"

	BusinessActive   BusinessStatus = "active"
	BusinessInactive BusinessStatus = "inactive"

	MemberOwner MemberRole = "owner"
	MemberAdmin MemberRole = "admin"
)

// maxSlugProbe bounds the numeric-suffix search for a free slug.
const maxSlugProbe = 1000

// BusinessEntity is a tenant. Every catalog, customer, cart, order and
// invoice row belongs to exactly one. OwnerID is the staff user who created
// it and Slug is the public storefront path segment.
type BusinessEntity struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`
	Slug           string         `gorm:"type:varchar(220);uniqueIndex;not null" json:"slug"`
	BusinessType   string         `gorm:"type:varchar(100)" json:"business_type"`
	Description    string         `gorm:"type:text" json:"description"`
	Address        string         `gorm:"type:text" json:"address"`
	Phone          string         `gorm:"type:varchar(20)" json:"phone"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	GSTIN          string         `gorm:"column:gstin;type:varchar(20)" json:"gstin"`
	ImageURL       string         `gorm:"type:text" json:"image_url"`
	KYCStatus      KYCStatus      `gorm:"column:kyc_status;type:varchar(20)" json:"kyc_status"`
	KYCDocumentURL string         `gorm:"column:kyc_document_url;type:text" json:"kyc_document_url"`
	Status         BusinessStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (BusinessEntity) TableName() string {
	return "business_entities"
}

// BusinessMember links staff users to the businesses they may administer.
type BusinessMember struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_member_user_business" json:"user_id"`
	BusinessID uint       `gorm:"not null;uniqueIndex:idx_member_user_business;index" json:"business_id"`
	Role       MemberRole `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt  time.Time  `json:"created_at"`

	Business BusinessEntity `gorm:"foreignKey:BusinessID" json:"business,omitempty"`
}

func (BusinessMember) TableName() string {
	return "business_members"
}

// BeforeCreate derives the slug from the name when none is set.
func (b *BusinessEntity) BeforeCreate(tx *gorm.DB) error {
	if b.Slug != "" {
		return nil
	}
	slug, err := nextFreeSlug(tx, b.Name, 0)
	if err != nil {
		return err
	}
	b.Slug = slug
	return nil
}

// RegenerateSlug recomputes the slug after a rename, ignoring the row itself.
func (b *BusinessEntity) RegenerateSlug(tx *gorm.DB) error {
	slug, err := nextFreeSlug(tx, b.Name, b.ID)
	if err != nil {
		return err
	}
	b.Slug = slug
	return nil
}

func nextFreeSlug(tx *gorm.DB, name string, selfID uint) (string, error) {
	base := util.Slugify(name)
	if base == "" {
		base = "business"
	}

	slug := base
	for counter := 1; counter <= maxSlugProbe; counter++ {
		if counter > 1 {
			slug = fmt.Sprintf("%s-%d", base, counter)
		}

		var count int64
		q := tx.Session(&gorm.Session{NewDB: true}).Unscoped().Model(&BusinessEntity{}).Where("slug = ?", slug)
		if selfID != 0 {
			q = q.Where("id <> ?", selfID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugProbe)
}
