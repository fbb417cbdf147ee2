package models

// Principal is the identity carried inside both access and refresh tokens.
// It must never hold secrets: token payloads are only signed, not encrypted.
type Principal struct {
	Email  string `json:"email"`
	UserID string `json:"user_uid"`
	Role   Role   `json:"role"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
