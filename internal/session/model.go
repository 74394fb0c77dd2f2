package session

import "time"

const (
	RoleAdmin   = "admin"
	RoleMedecin = "medecin"
	RoleUser    = "user"
)

// Identity is the authenticated principal as returned by the upstream
// authentication endpoints. It is either fully absent or fully present with a
// non-empty access token and a known role.
type Identity struct {
	Id           string `json:"id" bson:"id"`
	Role         string `json:"role" bson:"role"`
	Firstname    string `json:"firstname" bson:"firstname"`
	Lastname     string `json:"lastname" bson:"lastname"`
	Email        string `json:"email" bson:"email"`
	Phone        string `json:"phone,omitempty" bson:"phone,omitempty"`
	Specialite   string `json:"specialite,omitempty" bson:"specialite,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	AccessToken  string `json:"accessToken" bson:"accessToken"`
	RefreshToken string `json:"refreshToken" bson:"refreshToken"`
}

func (identity *Identity) Valid() bool {
	if identity.Id == "" || identity.AccessToken == "" {
		return false
	}

	switch identity.Role {
	case RoleAdmin, RoleMedecin, RoleUser:
		return true
	default:
		return false
	}
}

// Record binds an Identity to a browser session. Remember mirrors the
// remember-me choice made at login and decides which storage scope holds the
// record. CreatedAt is a bson date so the durable scope can hang a ttl index
// off it.
type Record struct {
	Id        string    `bson:"_id"`
	Identity  Identity  `bson:"identity"`
	Remember  bool      `bson:"remember"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Partial carries the fields a session mutation may replace. Id and Role are
// deliberately not part of it: they never change for the lifetime of a
// session.
type Partial struct {
	Firstname    *string `json:"firstname,omitempty"`
	Lastname     *string `json:"lastname,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Specialite   *string `json:"specialite,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	AccessToken  *string `json:"accessToken,omitempty"`
	RefreshToken *string `json:"refreshToken,omitempty"`
}

func (identity *Identity) merge(partial *Partial) {
	if partial.Firstname != nil {
		identity.Firstname = *partial.Firstname
	}
	if partial.Lastname != nil {
		identity.Lastname = *partial.Lastname
	}
	if partial.Email != nil {
		identity.Email = *partial.Email
	}
	if partial.Phone != nil {
		identity.Phone = *partial.Phone
	}
	if partial.Specialite != nil {
		identity.Specialite = *partial.Specialite
	}
	if partial.DateOfBirth != nil {
		identity.DateOfBirth = *partial.DateOfBirth
	}
	if partial.AccessToken != nil {
		identity.AccessToken = *partial.AccessToken
	}
	if partial.RefreshToken != nil {
		identity.RefreshToken = *partial.RefreshToken
	}
}
