package security

import (
	"net/url"
	"strings"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/priointimate/PrioBusiness/internal/settings"
)

// Relying party defaults, overridable through settings.
const (
	webAuthnRPName = "Prio Admin"
	webAuthnOrigin = "http://localhost:8080"
)

// NewWebAuthn builds a WebAuthn configuration from the current settings snapshot.
func NewWebAuthn() (*webauthn.WebAuthn, error) {
	rpName := webAuthnRPName
	if override := settings.String(settings.WebAuthnRPNameKey); override != "" {
		rpName = override
	}
	origin := webAuthnOrigin
	if override := settings.String(settings.WebAuthnOriginKey); override != "" {
		origin = override
	}
	rpID := settings.String(settings.WebAuthnRPIDKey)
	if rpID == "" {
		rpID = originHost(origin)
	}
	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: rpName,
		RPOrigins:     []string{origin},
	})
}

func originHost(origin string) string {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
