package models

import (
	"time"

	"gorm.io/datatypes"
)

// VaultKind enumerates media kinds stored in a vault.
type VaultKind string

// Vault media kinds.
const (
	VaultKindImage VaultKind = "image"
	VaultKindVideo VaultKind = "video"
)

// ModelProfile is a persona users browse, chat with and unlock media from.
type ModelProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name       string         `gorm:"type:text;not null;index"`         // Display name.
	Age        int            `gorm:"not null;default:0"`               // Displayed age.
	Bio        string         `gorm:"type:text"`                        // Persona description fed to the AI.
	ProfilePic string         `gorm:"type:text;not null"`               // Avatar URL.
	Gallery    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Freely viewable media URLs.

	ExclusiveCTA          string `gorm:"type:text"`            // Call to action shown above the vault.
	ExclusiveContentPrice int64  `gorm:"not null;default:100"` // Stored unlock price; unlocks use the fixed catalog price.

	Vault []VaultItem `gorm:"foreignKey:ModelProfileID"` // Paywalled media.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// VaultItem is a paywalled media asset of a model profile.
type VaultItem struct {
	ID             string    `gorm:"type:varchar(64);primaryKey"` // Stable UUID, generated once.
	ModelProfileID uint64    `gorm:"not null;index"`              // Owning model profile.
	URL            string    `gorm:"type:text;not null"`          // Media URL, revealed once unlocked.
	Teaser         string    `gorm:"type:text"`                   // Teaser text shown while locked.
	Kind           VaultKind `gorm:"type:varchar(16);not null"`   // Media kind.
	Position       int       `gorm:"not null;default:0"`          // Display order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// VaultUnlock records that a user paid to reveal a vault item.
type VaultUnlock struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;uniqueIndex:idx_vault_unlocks_user_item,priority:1"`                  // Unlocking user.
	VaultItemID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_vault_unlocks_user_item,priority:2"` // Unlocked item.
	CreditsPaid int64  `gorm:"not null"`                                                                     // Credits charged.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Unlock timestamp.
}
