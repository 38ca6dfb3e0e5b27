package auth

// Notifier delivers confirmation and reset links out of band. The core
// only ever asks "send this link to this address"; delivery failures
// are reported back but never rolled back against the account or token.
type Notifier interface {
	SendConfirmationEmail(to, link string) error
	SendPasswordResetEmail(to, link string) error
}
