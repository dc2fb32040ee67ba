package models

import "time"

// Club and ClubMember mirror tables owned by the membership subsystem.
// The ledger only reads them.
type Club struct {
	ID        uint `gorm:"primarykey"`
	Name      string
	DeletedAt *time.Time
}

func (Club) TableName() string {
	return "clubs"
}

type ClubMember struct {
	ID     uint   `gorm:"primarykey"`
	ClubID uint   `gorm:"index"`
	UserID uint   `gorm:"index"`
	Role   string `gorm:"type:varchar(32)"`
	Status string `gorm:"type:varchar(16)"`
}

func (ClubMember) TableName() string {
	return "club_members"
}

// MemberStatusActive is the membership status that carries role privileges.
const MemberStatusActive = "ACTIVE"
