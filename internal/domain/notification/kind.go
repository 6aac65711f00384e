// internal/domain/notification/kind.go
package notification

// Kind identifies which obligation a notification is about.
type Kind string

const (
	KindContractExpiry Kind = "contract_expiry" // Natural end of the contract, no year
	KindAnnuityExpiry  Kind = "annuity_expiry"  // One intermediate-year annuity, keyed by year
)

func (k Kind) Valid() bool {
	return k == KindContractExpiry || k == KindAnnuityExpiry
}
