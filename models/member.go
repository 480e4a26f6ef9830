package models

import "time"

type TeamRole string

const (
	TeamRoleKetua   TeamRole = "KETUA"
	TeamRoleAnggota TeamRole = "ANGGOTA"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "PENDING"
	MemberApproved MemberStatus = "APPROVED"
	MemberRejected MemberStatus = "REJECTED"
)

// Member represents the proposal_members table
type Member struct {
	MemberID    uint         `gorm:"primaryKey;column:member_id" json:"member_id"`
	ProposalID  uint         `gorm:"column:proposal_id;not null;uniqueIndex:idx_member_proposal_user" json:"proposal_id"`
	UserID      uint         `gorm:"column:user_id;not null;uniqueIndex:idx_member_proposal_user;index" json:"user_id"`
	Role        TeamRole     `gorm:"column:role;size:20" json:"role"`
	Status      MemberStatus `gorm:"column:status;size:20" json:"status"`
	CanEdit     bool         `gorm:"column:can_edit" json:"can_edit"`
	CreatedAt   time.Time    `gorm:"column:created_at" json:"created_at"`
	RespondedAt *time.Time   `gorm:"column:responded_at" json:"responded_at"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (Member) TableName() string {
	return "proposal_members"
}

func (m Member) IsKetua() bool {
	return m.Role == TeamRoleKetua
}

// EffectiveStatus treats the KETUA as approved regardless of the stored value.
func (m Member) EffectiveStatus() MemberStatus {
	if m.IsKetua() {
		return MemberApproved
	}
	return m.Status
}
