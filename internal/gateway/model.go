package gateway

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"rdv-gateway/internal/session"
)

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type ProfilePayload struct {
	Firstname   *string `json:"firstname,omitempty"`
	Lastname    *string `json:"lastname,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty"`
	Specialite  *string `json:"specialite,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
}

func (payload *ProfilePayload) toPartial() *session.Partial {
	return &session.Partial{
		Firstname:   payload.Firstname,
		Lastname:    payload.Lastname,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Specialite:  payload.Specialite,
		DateOfBirth: payload.DateOfBirth,
	}
}

// IdentityPayload is what the browser sees. Tokens never leave the gateway.
type IdentityPayload struct {
	Id          string `json:"id"`
	Role        string `json:"role"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Specialite  string `json:"specialite,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

func toIdentityPayload(identity *session.Identity) *IdentityPayload {
	return &IdentityPayload{
		Id:          identity.Id,
		Role:        identity.Role,
		Firstname:   identity.Firstname,
		Lastname:    identity.Lastname,
		Email:       identity.Email,
		Phone:       identity.Phone,
		Specialite:  identity.Specialite,
		DateOfBirth: identity.DateOfBirth,
	}
}

// profilePath picks the upstream resource holding the caller's own record.
func profilePath(identity *session.Identity) string {
	if identity.Role == session.RoleMedecin {
		return "/api/medecin/" + identity.Id
	}

	return "/api/users/" + identity.Id
}

func jsonHeader() http.Header {
	header := http.Header{}
	header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return header
}
