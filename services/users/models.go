package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "IN_ACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Provider string

const (
	ProviderGoogle   Provider = "GOOGLE"
	ProviderFacebook Provider = "FACEBOOK"
)

func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

type User struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Name            string     `gorm:"size:255" json:"name"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string     `json:"-"`
	Image           string     `json:"image,omitempty"`
	Role            Role       `gorm:"size:16;not null;default:STUDENT" json:"role"`
	Status          Status     `gorm:"size:16;not null;default:IN_ACTIVE" json:"status"`
	EmailVerified   *time.Time `json:"emailVerified"`
	RefreshToken    *string    `json:"-"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginDevice string     `json:"lastLoginDevice,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	Teacher  *Teacher  `gorm:"constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
	Student  *Student  `gorm:"constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Parent   *Parent   `gorm:"constraint:OnDelete:CASCADE" json:"parent,omitempty"`
	Accounts []Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsVerified() bool {
	return u.EmailVerified != nil
}

type Teacher struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"size:36;index;not null" json:"userId"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
	BloodType string         `json:"bloodType,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (p *Teacher) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Student struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"size:36;index;not null" json:"userId"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
	BloodType string         `json:"bloodType,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (p *Student) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Parent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"size:36;index;not null" json:"userId"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (p *Parent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Account links a user to an external identity provider.
type Account struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"size:36;not null;uniqueIndex:idx_accounts_user_provider" json:"userId"`
	Provider          Provider  `gorm:"size:16;not null;uniqueIndex:idx_accounts_user_provider" json:"provider"`
	ProviderAccountID string    `gorm:"not null" json:"providerAccountId"`
	ByUser            string    `json:"byUser"`
	Type              string    `gorm:"size:32" json:"type"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// SocialLink is the public view of an Account.
type SocialLink struct {
	Provider          Provider `json:"provider"`
	ProviderAccountID string   `json:"providerAccountId"`
	ByUser            string   `json:"byUser"`
}

// Models lists every table owned by this package, for migrations.
func Models() []any {
	return []any{&User{}, &Teacher{}, &Student{}, &Parent{}, &Account{}}
}
