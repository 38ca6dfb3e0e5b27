package domain

// TokenPurpose tags a token with the single operation it may redeem.
type TokenPurpose string

const (
	PurposeConfirmEmail  TokenPurpose = "confirm-email"
	PurposeResetPassword TokenPurpose = "reset-password"
)
