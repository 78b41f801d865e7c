package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CreatedBy    *int64     `json:"created_by"`
	UpdatedBy    *int64     `json:"updated_by"`
}

// HasUsablePassword is false for accounts created without a password.
func (u User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// NewUser is the writable part of a user at creation time.
type NewUser struct {
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
}

type ListFilter struct {
	Search   *string
	IsActive *bool
	IsStaff  *bool
	Limit    int
	Offset   int
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=30"`
	Password string `json:"password" binding:"required,min=5,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LogoutRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}

type PasswordResetRequest struct {
	OldPassword string `json:"old_password" binding:"required,max=128"`
	NewPassword string `json:"new_password" binding:"required,min=5,max=128"`
}

type CreateUserRequest struct {
	Email       string `json:"email" binding:"required,email,max=30"`
	Password    string `json:"password" binding:"omitempty,min=5,max=128"`
	IsActive    *bool  `json:"is_active"`
	IsStaff     *bool  `json:"is_staff"`
	IsSuperuser *bool  `json:"is_superuser"`
}

// UpdateUserRequest is a full (PUT) update; omitted flags take their defaults.
type UpdateUserRequest struct {
	Email       string `json:"email" binding:"required,email,max=30"`
	IsActive    *bool  `json:"is_active"`
	IsStaff     *bool  `json:"is_staff"`
	IsSuperuser *bool  `json:"is_superuser"`
}

type PatchUserRequest struct {
	Email       *string `json:"email" binding:"omitnil,email,max=30"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// ProfileUpdateRequest is what a caller may change on their own account.
type ProfileUpdateRequest struct {
	Email    *string `json:"email" binding:"omitnil,email,max=30"`
	Password *string `json:"password" binding:"omitnil,min=5,max=128"`
}

// NormalizeEmail lower-cases the domain part and trims surrounding space.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func (r CreateUserRequest) ToNewUser(passwordHash string) NewUser {
	return NewUser{
		Email:        NormalizeEmail(r.Email),
		PasswordHash: passwordHash,
		IsActive:     boolOr(r.IsActive, true),
		IsStaff:      boolOr(r.IsStaff, false),
		IsSuperuser:  boolOr(r.IsSuperuser, false),
	}
}

// ApplyUpdate replaces every writable field of u.
func (u User) ApplyUpdate(req UpdateUserRequest) User {
	u.Email = NormalizeEmail(req.Email)
	u.IsActive = boolOr(req.IsActive, true)
	u.IsStaff = boolOr(req.IsStaff, false)
	u.IsSuperuser = boolOr(req.IsSuperuser, false)
	return u
}

func (u User) ApplyPatch(req PatchUserRequest) User {
	if req.Email != nil {
		u.Email = NormalizeEmail(*req.Email)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.IsStaff != nil {
		u.IsStaff = *req.IsStaff
	}
	if req.IsSuperuser != nil {
		u.IsSuperuser = *req.IsSuperuser
	}
	return u
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
