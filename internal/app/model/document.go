package model

import "time"

// Storage types for DocumentVersion.File and DocumentPage.File.
const (
	StorageS3Path     = "S3_PATH"
	StorageVercelBlob = "VERCEL_BLOB"
)

// Document version types.
const (
	FileTypePDF    = "pdf"
	FileTypeImage  = "image"
	FileTypeVideo  = "video"
	FileTypeSheet  = "sheet"
	FileTypeZip    = "zip"
	FileTypeDocs   = "docs"
	FileTypeSlides = "slides"
	FileTypeCAD    = "cad"
)

type Document struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	TeamID    string    `gorm:"size:64;index;not null" json:"teamId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

type Dataroom struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	TeamID    string    `gorm:"size:64;index;not null" json:"teamId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// DocumentVersion is one uploaded revision of a document. File holds a storage
// reference whose meaning depends on StorageType.
type DocumentVersion struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	DocumentID    string    `gorm:"size:64;index;not null" json:"documentId"`
	VersionNumber int       `gorm:"not null;default:1" json:"versionNumber"`
	File          string    `gorm:"type:text;not null" json:"file"`
	StorageType   string    `gorm:"size:16;not null;default:VERCEL_BLOB" json:"storageType"`
	Type          string    `gorm:"size:16" json:"type"`
	HasPages      bool      `gorm:"not null;default:false" json:"hasPages"`
	IsPrimary     bool      `gorm:"not null;default:false" json:"isPrimary"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// PageLink is a clickable region extracted from a rendered page.
type PageLink struct {
	Href   string `json:"href"`
	Coords string `json:"coords"`
}

// DocumentPage is a pre-rendered page image of a paginated version.
type DocumentPage struct {
	ID            string         `gorm:"primaryKey;size:64" json:"id"`
	VersionID     string         `gorm:"size:64;index;not null" json:"versionId"`
	PageNumber    int            `gorm:"not null" json:"pageNumber"`
	File          string         `gorm:"type:text;not null" json:"file"`
	StorageType   string         `gorm:"size:16;not null;default:VERCEL_BLOB" json:"storageType"`
	EmbeddedLinks []string       `gorm:"type:jsonb;serializer:json" json:"embeddedLinks"`
	PageLinks     []PageLink     `gorm:"type:jsonb;serializer:json" json:"pageLinks"`
	Metadata      map[string]any `gorm:"type:jsonb;serializer:json" json:"metadata"`
}
