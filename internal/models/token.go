package models

import "time"

// Token is one OAuth2 access/refresh pair. Rows are append-only: a refresh
// inserts a new row and the newest row is the current credential.
type Token struct {
	ID           int64     `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	InsertedAt   time.Time `json:"inserted_at"`
}

// AuthorizationHeader renders the header value sent with every data API call.
func (t *Token) AuthorizationHeader() string {
	typ := t.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}
