package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/pquerna/otp/totp"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const totpIssuer = "Prio"

// MFAHandler manages TOTP and passkey enrollment for the signed-in admin.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

// Ceremony state lives in memory; a restart only forces the admin to retry.
var (
	passkeyRegistrationSessions = security.NewTTLStore[webauthn.SessionData](5 * time.Minute)
	passkeyLoginSessions        = security.NewTTLStore[webauthn.SessionData](5 * time.Minute)
	totpPendingSecrets          = security.NewTTLStore[string](10 * time.Minute)
)

func storeSession(store *security.TTLStore[webauthn.SessionData], key string, session webauthn.SessionData) {
	store.SetUntil(key, session, session.Expires)
}

func adminKey(id uint64) string { return strconv.FormatUint(id, 10) }

// adminWebAuthnUser adapts an admin to the webauthn.User interface.
type adminWebAuthnUser struct {
	id          uint64
	username    string
	credentials []webauthn.Credential
}

func (u adminWebAuthnUser) WebAuthnID() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, u.id)
	return buf
}

func (u adminWebAuthnUser) WebAuthnName() string { return u.username }

func (u adminWebAuthnUser) WebAuthnDisplayName() string { return u.username }

func (u adminWebAuthnUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func newAdminWebAuthnUser(admin models.Admin) adminWebAuthnUser {
	user := adminWebAuthnUser{id: admin.ID, username: admin.Username}
	if !admin.HasPasskey() {
		return user
	}
	credential := webauthn.Credential{ID: admin.PasskeyID, PublicKey: admin.PasskeyPublicKey}
	if admin.PasskeySignCount != nil {
		credential.Authenticator.SignCount = *admin.PasskeySignCount
	}
	if admin.PasskeyBackupEligible != nil {
		credential.Flags.BackupEligible = *admin.PasskeyBackupEligible
	}
	if admin.PasskeyBackupState != nil {
		credential.Flags.BackupState = *admin.PasskeyBackupState
	}
	user.credentials = []webauthn.Credential{credential}
	return user
}

func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// loadCurrentAdmin reads the signed-in admin and writes the error response on failure.
func (h *MFAHandler) loadCurrentAdmin(c *gin.Context) (models.Admin, bool) {
	var admin models.Admin
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return admin, false
	}
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return admin, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return admin, false
	}
	return admin, true
}

func (h *MFAHandler) updateAdmin(c *gin.Context, adminID uint64, values map[string]any) bool {
	values["updated_at"] = time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", adminID).Updates(values)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return false
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return false
	}
	return true
}

// Status reports which MFA factors are enrolled.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.loadCurrentAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totp_enabled":    admin.HasTOTP(),
		"passkey_enabled": admin.HasPasskey(),
	})
}

// PrepareTOTP generates a pending secret and its QR code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.loadCurrentAdmin(c)
	if !ok {
		return
	}

	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: admin.Username})
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	totpPendingSecrets.Set(adminKey(admin.ID), key.Secret())

	qrImage := ""
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_image":    qrImage,
	})
}

type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP enables TOTP once the pending secret produces a valid code.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	secret, ok := totpPendingSecrets.Get(adminKey(adminID))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !totp.Validate(code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	if !h.updateAdmin(c, adminID, map[string]any{"totp_secret": secret}) {
		return
	}

	totpPendingSecrets.Delete(adminKey(adminID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the TOTP secret.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	if !h.updateAdmin(c, adminID, map[string]any{"totp_secret": ""}) {
		return
	}
	totpPendingSecrets.Delete(adminKey(adminID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisablePasskey clears the stored passkey credential.
func (h *MFAHandler) DisablePasskey(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	if !h.updateAdmin(c, adminID, map[string]any{
		"passkey_id":              nil,
		"passkey_public_key":      nil,
		"passkey_sign_count":      nil,
		"passkey_backup_eligible": nil,
		"passkey_backup_state":    nil,
	}) {
		return
	}
	passkeyRegistrationSessions.Delete(adminKey(adminID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// BeginPasskeyRegistration starts a registration ceremony.
func (h *MFAHandler) BeginPasskeyRegistration(c *gin.Context) {
	webAuthn, errWebAuthn := security.NewWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}
	admin, ok := h.loadCurrentAdmin(c)
	if !ok {
		return
	}

	user := newAdminWebAuthnUser(admin)
	options := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationPreferred,
		}),
	}
	if len(user.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(user.credentials).CredentialDescriptors()))
	}

	creation, session, errBegin := webAuthn.BeginRegistration(user, options...)
	if errBegin != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "begin passkey registration failed"})
		return
	}
	storeSession(passkeyRegistrationSessions, adminKey(admin.ID), *session)
	c.JSON(http.StatusOK, creation)
}

// FinishPasskeyRegistration verifies the attestation and stores the credential.
func (h *MFAHandler) FinishPasskeyRegistration(c *gin.Context) {
	webAuthn, errWebAuthn := security.NewWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}
	admin, ok := h.loadCurrentAdmin(c)
	if !ok {
		return
	}

	session, ok := passkeyRegistrationSessions.Get(adminKey(admin.ID))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration expired"})
		return
	}
	credential, errFinish := webAuthn.FinishRegistration(newAdminWebAuthnUser(admin), session, c.Request)
	if errFinish != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration failed"})
		return
	}

	if !h.updateAdmin(c, admin.ID, map[string]any{
		"passkey_id":              credential.ID,
		"passkey_public_key":      credential.PublicKey,
		"passkey_sign_count":      credential.Authenticator.SignCount,
		"passkey_backup_eligible": credential.Flags.BackupEligible,
		"passkey_backup_state":    credential.Flags.BackupState,
	}) {
		return
	}
	passkeyRegistrationSessions.Delete(adminKey(admin.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// LoginPrepare tells the console which login step to show.
func (h *AuthHandler) LoginPrepare(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	admin, ok := h.findActiveAdmin(c, username)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mfa_enabled":     admin.HasTOTP() || admin.HasPasskey(),
		"totp_enabled":    admin.HasTOTP(),
		"passkey_enabled": admin.HasPasskey(),
	})
}

type loginTotpRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates with a TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	code := strings.TrimSpace(body.Code)
	if username == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and code are required"})
		return
	}

	admin, ok := h.findActiveAdmin(c, username)
	if !ok {
		return
	}
	if !admin.HasTOTP() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "totp not enabled"})
		return
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	h.respondWithAdminToken(c, admin)
}

type loginPasskeyRequest struct {
	Username string `json:"username"`
}

// LoginPasskeyOptions starts a passkey login ceremony.
func (h *AuthHandler) LoginPasskeyOptions(c *gin.Context) {
	webAuthn, errWebAuthn := security.NewWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}
	var body loginPasskeyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	admin, ok := h.findActiveAdmin(c, username)
	if !ok {
		return
	}
	if !admin.HasPasskey() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "passkey not enabled"})
		return
	}

	assertion, session, errBegin := webAuthn.BeginLogin(newAdminWebAuthnUser(admin), webauthn.WithUserVerification(protocol.VerificationPreferred))
	if errBegin != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "begin passkey login failed"})
		return
	}
	storeSession(passkeyLoginSessions, username, *session)
	c.JSON(http.StatusOK, assertion)
}

// LoginPasskeyVerify completes a passkey login ceremony.
func (h *AuthHandler) LoginPasskeyVerify(c *gin.Context) {
	webAuthn, errWebAuthn := security.NewWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	admin, ok := h.findActiveAdmin(c, username)
	if !ok {
		return
	}
	if !admin.HasPasskey() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "passkey not enabled"})
		return
	}
	session, ok := passkeyLoginSessions.Get(username)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login expired"})
		return
	}

	rawBody, errRead := io.ReadAll(c.Request.Body)
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

	user := newAdminWebAuthnUser(admin)
	// Credentials enrolled before backup flags were stored take them from the assertion.
	if admin.PasskeyBackupEligible == nil || admin.PasskeyBackupState == nil {
		parsed, errParse := protocol.ParseCredentialRequestResponseBytes(rawBody)
		if errParse != nil {
			log.WithError(errParse).WithField("username", username).Warn("passkey login parse failed")
		} else if len(user.credentials) > 0 {
			user.credentials[0].Flags.BackupEligible = parsed.Response.AuthenticatorData.Flags.HasBackupEligible()
			user.credentials[0].Flags.BackupState = parsed.Response.AuthenticatorData.Flags.HasBackupState()
		}
	}

	credential, errFinish := webAuthn.FinishLogin(user, session, c.Request)
	if errFinish != nil {
		log.WithError(errFinish).WithField("username", username).Warn("passkey login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{
			"passkey_sign_count":      credential.Authenticator.SignCount,
			"passkey_backup_eligible": credential.Flags.BackupEligible,
			"passkey_backup_state":    credential.Flags.BackupState,
			"updated_at":              time.Now().UTC(),
		}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("admin_id", admin.ID).Warn("passkey sign count update failed")
	}

	passkeyLoginSessions.Delete(username)
	h.respondWithAdminToken(c, admin)
}
