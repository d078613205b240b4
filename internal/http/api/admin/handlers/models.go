package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/catalog"
	dbutil "github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ModelHandler manages model profiles and their vaults.
type ModelHandler struct {
	db        *gorm.DB
	generator ai.Generator
	publisher realtime.Publisher
}

// NewModelHandler constructs a ModelHandler. generator and publisher may be nil.
func NewModelHandler(db *gorm.DB, generator ai.Generator, publisher realtime.Publisher) *ModelHandler {
	return &ModelHandler{db: db, generator: generator, publisher: publisher}
}

type vaultItemRequest struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Teaser string `json:"teaser"`
	Kind   string `json:"kind"`
}

type modelRequest struct {
	Name         string             `json:"name"`
	Age          int                `json:"age"`
	Bio          string             `json:"bio"`
	ProfilePic   string             `json:"profile_pic"`
	Gallery      []string           `json:"gallery"`
	ExclusiveCTA string             `json:"exclusive_cta"`
	Vault        []vaultItemRequest `json:"vault"`
}

// validate normalizes the request and returns the first problem found.
func (r *modelRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.ProfilePic = strings.TrimSpace(r.ProfilePic)
	if r.Name == "" {
		return "name is required"
	}
	if r.ProfilePic == "" {
		return "profile_pic is required"
	}
	if r.Age < 0 {
		return "age must not be negative"
	}
	gallery := make([]string, 0, len(r.Gallery))
	for _, url := range r.Gallery {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			gallery = append(gallery, trimmed)
		}
	}
	r.Gallery = gallery
	for i := range r.Vault {
		item := &r.Vault[i]
		item.ID = strings.TrimSpace(item.ID)
		item.URL = strings.TrimSpace(item.URL)
		if item.URL == "" {
			return "vault item url is required"
		}
		switch models.VaultKind(item.Kind) {
		case models.VaultKindImage, models.VaultKindVideo:
		case "":
			item.Kind = string(models.VaultKindImage)
		default:
			return "vault item kind must be image or video"
		}
	}
	return ""
}

func (r *modelRequest) columns() (map[string]any, error) {
	gallery, errMarshal := json.Marshal(r.Gallery)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return map[string]any{
		"name":                    r.Name,
		"age":                     r.Age,
		"bio":                     strings.TrimSpace(r.Bio),
		"profile_pic":             r.ProfilePic,
		"gallery":                 datatypes.JSON(gallery),
		"exclusive_cta":           strings.TrimSpace(r.ExclusiveCTA),
		"exclusive_content_price": catalog.VaultUnlockPrice,
	}, nil
}

func modelView(m models.ModelProfile) gin.H {
	var gallery []string
	_ = json.Unmarshal(m.Gallery, &gallery)
	if gallery == nil {
		gallery = []string{}
	}
	vault := make([]gin.H, 0, len(m.Vault))
	for _, item := range m.Vault {
		vault = append(vault, gin.H{
			"id":       item.ID,
			"url":      item.URL,
			"teaser":   item.Teaser,
			"kind":     item.Kind,
			"position": item.Position,
		})
	}
	return gin.H{
		"id":                      m.ID,
		"name":                    m.Name,
		"age":                     m.Age,
		"bio":                     m.Bio,
		"profile_pic":             m.ProfilePic,
		"gallery":                 gallery,
		"exclusive_cta":           m.ExclusiveCTA,
		"exclusive_content_price": m.ExclusiveContentPrice,
		"vault":                   vault,
		"created_at":              m.CreatedAt,
		"updated_at":              m.UpdatedAt,
	}
}

func preloadVault(db *gorm.DB) *gorm.DB {
	return db.Preload("Vault", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") })
}

// List returns all model profiles with their vaults.
func (h *ModelHandler) List(c *gin.Context) {
	q := preloadVault(h.db.WithContext(c.Request.Context()))
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), dbutil.LikePattern(h.db, name))
	}
	var rows []models.ModelProfile
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list models failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, modelView(row))
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

// Get returns one model profile.
func (h *ModelHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var model models.ModelProfile
	if errFind := preloadVault(h.db.WithContext(c.Request.Context())).First(&model, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, modelView(model))
}

// Create adds a model profile. Vault items get fresh ids.
func (h *ModelHandler) Create(c *gin.Context) {
	var body modelRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if problem := body.validate(); problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	gallery, errMarshal := json.Marshal(body.Gallery)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode gallery failed"})
		return
	}

	model := models.ModelProfile{
		Name:                  body.Name,
		Age:                   body.Age,
		Bio:                   strings.TrimSpace(body.Bio),
		ProfilePic:            body.ProfilePic,
		Gallery:               datatypes.JSON(gallery),
		ExclusiveCTA:          strings.TrimSpace(body.ExclusiveCTA),
		ExclusiveContentPrice: catalog.VaultUnlockPrice,
	}
	for i, item := range body.Vault {
		model.Vault = append(model.Vault, models.VaultItem{
			ID:       uuid.NewString(),
			URL:      item.URL,
			Teaser:   strings.TrimSpace(item.Teaser),
			Kind:     models.VaultKind(item.Kind),
			Position: i,
		})
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&model).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create model failed"})
		return
	}
	h.publish(c, "created", model.ID)
	c.JSON(http.StatusCreated, modelView(model))
}

// Update replaces a profile and its vault. Items sent with a known id keep it,
// so existing unlocks stay valid; new items get fresh ids; omitted items are removed.
func (h *ModelHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body modelRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if problem := body.validate(); problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	columns, errColumns := body.columns()
	if errColumns != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode gallery failed"})
		return
	}
	columns["updated_at"] = time.Now().UTC()

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ModelProfile{}).Where("id = ?", id).Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var existingIDs []string
		if errPluck := tx.Model(&models.VaultItem{}).Where("model_profile_id = ?", id).Pluck("id", &existingIDs).Error; errPluck != nil {
			return errPluck
		}
		known := make(map[string]bool, len(existingIDs))
		for _, existing := range existingIDs {
			known[existing] = true
		}

		kept := make([]string, 0, len(body.Vault))
		for i, item := range body.Vault {
			row := models.VaultItem{
				ID:             item.ID,
				ModelProfileID: id,
				URL:            item.URL,
				Teaser:         strings.TrimSpace(item.Teaser),
				Kind:           models.VaultKind(item.Kind),
				Position:       i,
			}
			if known[row.ID] {
				if errSave := tx.Model(&models.VaultItem{}).Where("id = ?", row.ID).Updates(map[string]any{
					"url": row.URL, "teaser": row.Teaser, "kind": row.Kind, "position": row.Position,
				}).Error; errSave != nil {
					return errSave
				}
			} else {
				row.ID = uuid.NewString()
				if errCreate := tx.Create(&row).Error; errCreate != nil {
					return errCreate
				}
			}
			kept = append(kept, row.ID)
		}

		removed := tx.Where("model_profile_id = ?", id)
		if len(kept) > 0 {
			removed = removed.Where("id NOT IN ?", kept)
		}
		return removed.Delete(&models.VaultItem{}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.publish(c, "updated", id)
	h.Get(c)
}

// Delete removes a profile and its vault. Unlock rows stay as history.
func (h *ModelHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var affected int64
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errItems := tx.Where("model_profile_id = ?", id).Delete(&models.VaultItem{}).Error; errItems != nil {
			return errItems
		}
		res := tx.Delete(&models.ModelProfile{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.publish(c, "deleted", id)
	c.Status(http.StatusNoContent)
}

type generateBioRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// GenerateBio drafts a persona bio with the AI service.
func (h *ModelHandler) GenerateBio(c *gin.Context) {
	var body generateBioRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	text, ok := h.generate(c, ai.BioPrompt(name, body.Age))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"bio": text})
}

type generateTeaserRequest struct {
	Name string `json:"name"`
}

// GenerateTeaser drafts a locked-vault teaser line with the AI service.
func (h *ModelHandler) GenerateTeaser(c *gin.Context) {
	var body generateTeaserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	text, ok := h.generate(c, ai.TeaserPrompt(name))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"teaser": text})
}

func (h *ModelHandler) generate(c *gin.Context, prompt string) (string, bool) {
	if h.generator == nil {
		api.WriteError(c, ai.ErrGenerationFailed)
		return "", false
	}
	text, errGenerate := h.generator.Generate(c.Request.Context(), prompt, nil)
	if errGenerate != nil {
		api.WriteError(c, errGenerate)
		return "", false
	}
	return text, true
}

func (h *ModelHandler) publish(c *gin.Context, kind string, id uint64) {
	event := realtime.Event{Topic: realtime.TopicModels, Type: kind, ID: id}
	if errPublish := realtime.PublishAll(c.Request.Context(), h.publisher, event); errPublish != nil {
		log.WithError(errPublish).Warn("publish model event failed")
	}
}
