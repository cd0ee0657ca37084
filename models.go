package session

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleViewer can look at dashboards and call records
	RoleViewer UserRole = "viewer"
	// RoleAgent handles calls and owns their own records
	RoleAgent UserRole = "agent"
	// RoleManager administers campaigns and users inside one organization
	RoleManager UserRole = "manager"
	// RoleAdmin administers everything, across organizations
	RoleAdmin UserRole = "admin"
)

// User is the authenticated user as returned by the identity service.
// It is owned by the session and replaced wholesale on every successful
// restore, login, or refetch; nothing mutates it field by field.
type User struct {
	ID                    uuid.UUID   `json:"id,omitempty"`
	Email                 string      `json:"email,omitempty"`
	Role                  UserRole    `json:"role,omitempty"`
	OrganizationID        *uuid.UUID  `json:"organizationId,omitempty"`
	CampaignIDs           []uuid.UUID `json:"campaignIds,omitempty"`
	FirstName             string      `json:"firstName,omitempty"`
	LastName              string      `json:"lastName,omitempty"`
	ProfilePicture        string      `json:"profilePicture,omitempty"`
	OnboardingCompletedAt *time.Time  `json:"onboardingCompletedAt,omitempty"`
}

// FullName joins the optional display name fields.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// OnboardingRequired reports whether the onboarding flow must be shown.
func (u *User) OnboardingRequired() bool {
	return u.OnboardingCompletedAt == nil
}

// HasCampaign reports whether the user is assigned to the given campaign.
func (u *User) HasCampaign(id uuid.UUID) bool {
	for _, c := range u.CampaignIDs {
		if c == id {
			return true
		}
	}
	return false
}

// PendingLogin marks a login attempt that passed the password check but
// still needs a one-time-passcode step-up. It exists only in the window
// between "password accepted" and "OTP verified".
type PendingLogin struct {
	Email string `json:"email"`
}

// ProfileUpdate carries the partial fields accepted by the profile-update
// endpoint. Nil pointers are omitted from the request.
type ProfileUpdate struct {
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.ProfilePicture == nil
}

// MeResponse is the wire format for GET /session/me. A missing user means
// "not logged in"; a non-empty access token means the service rotated it.
type MeResponse struct {
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// LoginResponse is the wire format for POST /session/login. Either
// RequiresOTP is set, or both AccessToken and User are.
type LoginResponse struct {
	RequiresOTP bool   `json:"requiresOtp,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// CredentialResponse is the wire format shared by OTP verification and
// invite activation: a token plus a (possibly minimal) user payload.
type CredentialResponse struct {
	AccessToken string `json:"accessToken,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// Complete reports whether the response carries both required fields.
func (r *CredentialResponse) Complete() bool {
	return r != nil && r.AccessToken != "" && r.User != nil
}

// RefreshResponse is the wire format for POST /session/refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken,omitempty"`
}
