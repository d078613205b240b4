package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const fallbackCodeBase = "PRIO"

// GenerateReferralCode builds a code from the first word of name plus up to three random digits.
func GenerateReferralCode(name string) (string, error) {
	base := codeBase(firstWord(name), 0)
	n, err := randomInt(999)
	if err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return fmt.Sprintf("%s%d", base, n), nil
}

// GenerateCouponCode builds a personal coupon from up to five letters of name plus four digits.
func GenerateCouponCode(name string) (string, error) {
	base := codeBase(name, 5)
	n, err := randomInt(9000)
	if err != nil {
		return "", fmt.Errorf("generate coupon code: %w", err)
	}
	return fmt.Sprintf("%s%d", base, 1000+n), nil
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func firstWord(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// codeBase keeps ASCII letters and digits, upper-cased, truncated to limit when limit > 0.
func codeBase(name string, limit int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(r)
		if limit > 0 && b.Len() >= limit {
			break
		}
	}
	if b.Len() == 0 {
		return fallbackCodeBase
	}
	return b.String()
}

func randomInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
