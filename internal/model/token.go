package model

// TokenManager issues and validates the bearer tokens of signed-in users.
// Tokens are minted by the social-login collaborator after the provider exchange.
type TokenManager interface {
	GenerateAccessToken(userID string) (string, error)
	ParseAccessToken(token string) (string, error)
}
