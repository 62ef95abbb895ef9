package model

import (
	"strings"
	"time"
)

// Link types.
const (
	LinkTypeDocument = "DOCUMENT_LINK"
	LinkTypeDataroom = "DATAROOM_LINK"
)

// WatermarkConfig controls the overlay rendered on top of viewed pages.
type WatermarkConfig struct {
	Text     string  `json:"text"`
	IsTiled  bool    `json:"isTiled"`
	Position string  `json:"position"`
	Rotation int     `json:"rotation"`
	Color    string  `json:"color"`
	FontSize int     `json:"fontSize"`
	Opacity  float64 `json:"opacity"`
}

// WantsIPAddress reports whether the watermark text embeds the viewer's ip.
func (w *WatermarkConfig) WantsIPAddress() bool {
	return w != nil && strings.Contains(w.Text, "{{ipAddress}}")
}

// Link is a shareable entry point to a document or a dataroom together with
// the access rules a visitor has to satisfy.
type Link struct {
	ID         string  `gorm:"primaryKey;size:64" json:"id"`
	Name       *string `gorm:"size:255" json:"name"`
	Slug       *string `gorm:"size:255;uniqueIndex:idx_link_domain_slug" json:"slug"`
	DomainSlug *string `gorm:"size:255;uniqueIndex:idx_link_domain_slug" json:"domainSlug"`
	LinkType   string  `gorm:"size:16;not null;default:DOCUMENT_LINK" json:"linkType"`
	DocumentID *string `gorm:"size:64;index" json:"documentId"`
	DataroomID *string `gorm:"size:64;index" json:"dataroomId"`
	TeamID     string  `gorm:"size:64;index;not null" json:"teamId"`

	EmailProtected     bool     `gorm:"not null;default:false" json:"emailProtected"`
	EmailAuthenticated bool     `gorm:"not null;default:false" json:"emailAuthenticated"`
	Password           *string  `gorm:"type:text" json:"-"`
	EnableAgreement    bool     `gorm:"not null;default:false" json:"enableAgreement"`
	AgreementID        *string  `gorm:"size:64" json:"agreementId"`
	AllowList          []string `gorm:"type:jsonb;serializer:json" json:"allowList"`
	DenyList           []string `gorm:"type:jsonb;serializer:json" json:"denyList"`
	AllowDownload      bool     `gorm:"not null;default:false" json:"allowDownload"`

	EnableNotification bool             `gorm:"not null;default:false" json:"enableNotification"`
	EnableWatermark    bool             `gorm:"not null;default:false" json:"enableWatermark"`
	WatermarkConfig    *WatermarkConfig `gorm:"type:jsonb;serializer:json" json:"watermarkConfig"`

	IsArchived bool       `gorm:"not null;default:false" json:"isArchived"`
	ExpiresAt  *time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Team         *Team             `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	CustomFields []LinkCustomField `gorm:"foreignKey:LinkID" json:"customFields,omitempty"`
}

// HasPassword reports whether the link is password protected.
func (l *Link) HasPassword() bool {
	return l.Password != nil && *l.Password != ""
}

// LinkCustomField is an extra question the visitor answers before viewing.
type LinkCustomField struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	LinkID      string `gorm:"size:64;index;not null" json:"linkId"`
	Identifier  string `gorm:"size:64;not null" json:"identifier"`
	Label       string `gorm:"size:255;not null" json:"label"`
	Type        string `gorm:"size:32;not null;default:SHORT_TEXT" json:"type"`
	Placeholder string `gorm:"size:255" json:"placeholder"`
	Required    bool   `gorm:"not null;default:false" json:"required"`
	OrderIndex  int    `gorm:"not null;default:0" json:"orderIndex"`
}
