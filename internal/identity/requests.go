package identity

import (
	"net/mail"
	"strings"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/model"
)

// DefaultPassword is assigned to accounts created by an administrator
// without an explicit password.
const DefaultPassword = "demo"

const (
	maxNameLength     = 200
	maxPasswordLength = 1024
)

// SignupRequest is the self-service registration input.
type SignupRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Name        string     `json:"name"`
	AccountType model.Role `json:"accountType"`
	Company     string     `json:"company"`
}

// Validate normalizes the request and checks required fields.
func (r *SignupRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Company = strings.TrimSpace(r.Company)
	if r.AccountType == "" {
		r.AccountType = model.RoleConsumer
	}

	if r.Email == "" || r.Password == "" || r.Name == "" {
		return apperr.Validation("name, email, password required")
	}
	if !isValidEmail(r.Email) {
		return apperr.Validation("invalid email")
	}
	if len(r.Name) > maxNameLength || len(r.Password) > maxPasswordLength {
		return apperr.Validation("field too long")
	}
	switch r.AccountType {
	case model.RoleConsumer:
	case model.RoleBusiness:
		if r.Company == "" {
			return apperr.Validation("company required for business accounts")
		}
	default:
		return apperr.Validation("accountType must be consumer or business")
	}
	return nil
}

// CreateUserRequest is the administrative account creation input.
type CreateUserRequest struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
	TenantID string     `json:"tenantId"`
	Password string     `json:"password"`
}

// Validate normalizes the request and checks required fields.
func (r *CreateUserRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.Password == "" {
		r.Password = DefaultPassword
	}

	if r.Email == "" || r.Name == "" || r.Role == "" {
		return apperr.Validation("email, name, role required")
	}
	if !r.Role.Valid() {
		return apperr.Validation("invalid role")
	}
	if !isValidEmail(r.Email) {
		return apperr.Validation("invalid email")
	}
	if len(r.Name) > maxNameLength || len(r.Password) > maxPasswordLength {
		return apperr.Validation("field too long")
	}
	return nil
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
