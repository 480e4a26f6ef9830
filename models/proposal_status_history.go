package models

import "time"

// ProposalStatusHistory tracks historical status changes for proposals.
type ProposalStatusHistory struct {
	HistoryID  uint            `gorm:"primaryKey;column:history_id" json:"history_id"`
	ProposalID uint            `gorm:"column:proposal_id;index" json:"proposal_id"`
	OldStatus  *ProposalStatus `gorm:"column:old_status;size:20" json:"old_status"`
	NewStatus  ProposalStatus  `gorm:"column:new_status;size:20" json:"new_status"`
	ChangedBy  uint            `gorm:"column:changed_by" json:"changed_by"`
	Cycle      int             `gorm:"column:cycle" json:"cycle"`
	Comment    *string         `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ProposalStatusHistory.
func (ProposalStatusHistory) TableName() string {
	return "proposal_status_history"
}
