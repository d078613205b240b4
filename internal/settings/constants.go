package settings

import "github.com/shopspring/decimal"

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Prio"
	// ReferralCommissionPercentKey sets the referrer's share of each approved payment.
	ReferralCommissionPercentKey = "REFERRAL_COMMISSION_PERCENT"
	// WithdrawRejectRestoresKey returns reserved earnings when a withdrawal is rejected.
	WithdrawRejectRestoresKey = "WITHDRAW_REJECT_RESTORES_EARNINGS"
	// PaymentNumberKey is the merchant number shown on the top-up screen.
	PaymentNumberKey = "PAYMENT_NUMBER"
	// WebAuthnRPNameKey overrides the passkey relying party display name.
	WebAuthnRPNameKey = "WEB_AUTHN_RP_NAME"
	// WebAuthnOriginKey is the console origin passkeys are bound to.
	WebAuthnOriginKey = "WEB_AUTHN_ORIGIN"
	// WebAuthnRPIDKey overrides the relying party id derived from the origin.
	WebAuthnRPIDKey = "WEB_AUTHN_RPID"
	// DefaultWithdrawRejectRestores keeps reserved earnings on rejection.
	DefaultWithdrawRejectRestores = false
)

// DefaultReferralCommissionPercent is applied when no setting is stored.
var DefaultReferralCommissionPercent = decimal.NewFromInt(10)

// Keys lists the settings an admin may edit.
var Keys = []string{
	SiteNameKey,
	ReferralCommissionPercentKey,
	WithdrawRejectRestoresKey,
	PaymentNumberKey,
	WebAuthnRPNameKey,
	WebAuthnOriginKey,
	WebAuthnRPIDKey,
}

// IsKnownKey reports whether key is an editable setting.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
