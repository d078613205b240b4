// Package catalog holds the fixed commercial constants: credit packages,
// per-action prices, the coupon discount and the withdrawal threshold.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Level ranks a subscription package for display.
type Level string

// Package levels.
const (
	LevelBasic   Level = "BASIC"
	LevelPopular Level = "POPULAR"
	LevelPremium Level = "PREMIUM"
)

// Package is a purchasable bundle of credits.
type Package struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	Credits int64  `json:"credits"`
	Price   int64  `json:"price"`
	Level   Level  `json:"level"`
}

var packages = []Package{
	{ID: "starter", Name: "Starter Spark", Tagline: "Say hello without holding back", Credits: 100, Price: 199, Level: LevelBasic},
	{ID: "popular", Name: "Late Night", Tagline: "Long talks and a few secrets", Credits: 300, Price: 500, Level: LevelPopular},
	{ID: "premium", Name: "Inner Circle", Tagline: "Everything, for as long as you want", Credits: 1000, Price: 1499, Level: LevelPremium},
}

// Packages returns a copy of the package catalog.
func Packages() []Package {
	return append([]Package(nil), packages...)
}

// FindPackage looks up a package by id.
func FindPackage(id string) (Package, bool) {
	id = strings.TrimSpace(id)
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// MessageKind is the kind of chat message a user sends.
type MessageKind string

// Chat message kinds.
const (
	MessageText  MessageKind = "text"
	MessageAudio MessageKind = "audio"
	MessageImage MessageKind = "image"
)

// Fixed prices and thresholds.
const (
	VaultUnlockPrice int64 = 100
	CouponDiscount   int64 = 49
	// MinCouponLength is exclusive: a code must be longer than this to apply.
	MinCouponLength = 3
)

// MinWithdrawAmount is the lowest referral balance that can be withdrawn.
var MinWithdrawAmount = decimal.NewFromInt(200)

var messageCosts = map[MessageKind]int64{
	MessageText:  1,
	MessageAudio: 3,
	MessageImage: 5,
}

// MessageCost returns the credit cost of a chat message kind.
func MessageCost(kind MessageKind) (int64, bool) {
	cost, ok := messageCosts[kind]
	return cost, ok
}

// ApplyCoupon returns the payable amount for price and whether code was applied.
// Any code longer than MinCouponLength after trimming earns the flat discount.
func ApplyCoupon(price int64, code string) (int64, bool) {
	if len(strings.TrimSpace(code)) <= MinCouponLength {
		return price, false
	}
	amount := price - CouponDiscount
	if amount < 0 {
		amount = 0
	}
	return amount, true
}

// Payment and payout methods accepted for manual transfers.
const (
	MethodBKash = "bKash"
	MethodNagad = "Nagad"
)

// IsPaymentMethod reports whether method may be used to pay for a package.
func IsPaymentMethod(method string) bool {
	return method == MethodBKash
}

// IsPayoutMethod reports whether method may receive a withdrawal.
func IsPayoutMethod(method string) bool {
	return method == MethodBKash || method == MethodNagad
}
