package models

import (
	"time"
)

// RoleID mirrors roles.role_id.
type RoleID int

const (
	RoleDosen     RoleID = 1
	RoleMahasiswa RoleID = 2
	RoleAdmin     RoleID = 3
	RoleReviewer  RoleID = 4
)

func (r RoleID) Valid() bool {
	switch r {
	case RoleDosen, RoleMahasiswa, RoleAdmin, RoleReviewer:
		return true
	}
	return false
}

func (r RoleID) String() string {
	switch r {
	case RoleDosen:
		return "dosen"
	case RoleMahasiswa:
		return "mahasiswa"
	case RoleAdmin:
		return "admin"
	case RoleReviewer:
		return "reviewer"
	}
	return "unknown"
}

// User is read-only to this service; accounts are managed by the directory.
type User struct {
	UserID       uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname    string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname    string     `gorm:"column:user_lname" json:"user_lname"`
	Email        string     `gorm:"column:email;unique;size:191" json:"email"`
	Password     string     `gorm:"column:password" json:"-"`
	RoleID       RoleID     `gorm:"column:role_id" json:"role_id"`
	DepartmentID *uint      `gorm:"column:department_id" json:"department_id,omitempty"`
	ProgramID    *uint      `gorm:"column:program_id" json:"program_id,omitempty"`
	IsActive     bool       `gorm:"column:is_active;default:true" json:"is_active"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   RoleID     `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.UserLname == "" {
		return u.UserFname
	}
	return u.UserFname + " " + u.UserLname
}
