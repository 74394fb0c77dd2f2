package upstream

import (
	"rdv-gateway/internal/session"
	"rdv-gateway/pkg/cerror"
)

const (
	loginPath        = "/api/auth/login"
	medecinLoginPath = "/api/auth/medecin/login"
	refreshPath      = "/api/auth/refresh-token"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityPayload struct {
	Id           string `json:"id"`
	Role         string `json:"role"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Specialite   string `json:"specialite"`
	DateOfBirth  string `json:"dateOfBirth"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// toIdentity fails loudly on a success body missing required fields rather
// than constructing a partial identity.
func (payload *identityPayload) toIdentity() (*session.Identity, error) {
	identity := &session.Identity{
		Id:           payload.Id,
		Role:         payload.Role,
		Firstname:    payload.Firstname,
		Lastname:     payload.Lastname,
		Email:        payload.Email,
		Phone:        payload.Phone,
		Specialite:   payload.Specialite,
		DateOfBirth:  payload.DateOfBirth,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}

	if !identity.Valid() {
		return nil, cerror.ErrorMalformedUpstreamResponse
	}

	return identity, nil
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponsePayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
