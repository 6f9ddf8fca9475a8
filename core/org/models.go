package org

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("organization not found")
	ErrParentNotFound = errors.New("parent profile not found")
)

type (
	// Organization is a tenant (a school) in the platform.
	Organization struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Parent is a pre-existing guardian profile. Profiles are owned by the
	// identity system; this engine only looks them up and links them.
	Parent struct {
		ID        string    `json:"id"`
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		Email     string    `json:"email"`
		Phone     string    `json:"phone"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Repository interface {
		GetOrganization(ctx context.Context, id string) (Organization, error)
		// GetParentByEmail does a case-insensitive match on Parent.Email.
		GetParentByEmail(ctx context.Context, email string) (Parent, error)
		IsParentLinked(ctx context.Context, parentID, orgID string) (bool, error)
	}
)

// FullName joins the parent's first and last names; empty parts are skipped.
func (p Parent) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
