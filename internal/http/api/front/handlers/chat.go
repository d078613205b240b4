package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/catalog"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxMediaBytes caps decoded chat attachments.
const maxMediaBytes = 8 << 20

// ChatHandler answers user messages in a model's persona.
type ChatHandler struct {
	db        *gorm.DB
	ledger    *ledger.Service
	generator ai.Generator
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(db *gorm.DB, ledgerSvc *ledger.Service, generator ai.Generator) *ChatHandler {
	return &ChatHandler{db: db, ledger: ledgerSvc, generator: generator}
}

type chatMedia struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type chatRequest struct {
	ModelID uint64     `json:"model_id"`
	Kind    string     `json:"kind"`
	Text    string     `json:"text"`
	Media   *chatMedia `json:"media"`
}

// Send charges the message cost, then asks the AI service for a reply.
// The charge stands even when the AI call fails.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body chatRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	kind := catalog.MessageKind(strings.TrimSpace(body.Kind))
	if kind == "" {
		kind = catalog.MessageText
	}
	cost, ok := catalog.MessageCost(kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be text, audio or image"})
		return
	}
	var media []ai.Media
	if kind == catalog.MessageText {
		if strings.TrimSpace(body.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
	} else {
		decoded, errMedia := decodeMedia(body.Media)
		if errMedia != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errMedia.Error()})
			return
		}
		media = append(media, decoded)
	}

	var model models.ModelProfile
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "name", "age", "bio").First(&model, body.ModelID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			api.WriteError(c, ledger.ErrNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	balance, errDebit := h.ledger.Debit(c.Request.Context(), userID, cost, models.CreditKindChat, fmt.Sprintf("chat:%d:%s", model.ID, kind))
	if errDebit != nil {
		api.WriteError(c, errDebit)
		return
	}

	if h.generator == nil {
		api.WriteError(c, ai.ErrGenerationFailed)
		return
	}
	prompt := ai.PersonaPrompt(ai.Persona{Name: model.Name, Age: model.Age, Bio: model.Bio}, string(kind), body.Text)
	reply, errGenerate := h.generator.Generate(c.Request.Context(), prompt, media)
	if errGenerate != nil {
		log.WithError(errGenerate).WithFields(log.Fields{"user_id": userID, "model_id": model.ID}).Warn("chat reply failed after debit")
		api.WriteError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "cost": cost, "credits": balance})
}

func decodeMedia(m *chatMedia) (ai.Media, error) {
	if m == nil || strings.TrimSpace(m.Data) == "" {
		return ai.Media{}, errors.New("media is required")
	}
	mimeType := strings.TrimSpace(m.MimeType)
	if mimeType == "" {
		return ai.Media{}, errors.New("media mime_type is required")
	}
	data := strings.TrimSpace(m.Data)
	// Browsers send data URLs; keep only the payload.
	if idx := strings.Index(data, ","); strings.HasPrefix(data, "data:") && idx >= 0 {
		data = data[idx+1:]
	}
	raw, errDecode := base64.StdEncoding.DecodeString(data)
	if errDecode != nil {
		return ai.Media{}, errors.New("media data must be base64")
	}
	if len(raw) > maxMediaBytes {
		return ai.Media{}, errors.New("media too large")
	}
	return ai.Media{MimeType: mimeType, Data: raw}, nil
}
