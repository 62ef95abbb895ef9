package model

import "time"

// View types.
const (
	ViewTypeDocument = "DOCUMENT_VIEW"
	ViewTypeDataroom = "DATAROOM_VIEW"
)

// Viewer is a per-team identity keyed by email.
type Viewer struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	TeamID    string    `gorm:"size:64;not null;uniqueIndex:idx_viewer_team_email" json:"teamId"`
	Email     string    `gorm:"size:320;not null;uniqueIndex:idx_viewer_team_email" json:"email"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// View is one recorded visit to a link.
type View struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	LinkID      string    `gorm:"size:64;index;not null" json:"linkId"`
	DocumentID  *string   `gorm:"size:64;index" json:"documentId"`
	DataroomID  *string   `gorm:"size:64;index" json:"dataroomId"`
	TeamID      string    `gorm:"size:64;index;not null" json:"teamId"`
	ViewerID    *string   `gorm:"size:64;index" json:"viewerId"`
	ViewerEmail *string   `gorm:"size:320" json:"viewerEmail"`
	ViewerName  *string   `gorm:"size:255" json:"viewerName"`
	Verified    bool      `gorm:"not null;default:false" json:"verified"`
	ViewType    string    `gorm:"size:16;not null;default:DOCUMENT_VIEW" json:"viewType"`
	ViewedAt    time.Time `gorm:"autoCreateTime;index" json:"viewedAt"`

	AgreementResponse   *AgreementResponse   `gorm:"foreignKey:ViewID" json:"agreementResponse,omitempty"`
	CustomFieldResponse *CustomFieldResponse `gorm:"foreignKey:ViewID" json:"customFieldResponse,omitempty"`

	Link     *Link     `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	Document *Document `gorm:"foreignKey:DocumentID" json:"document,omitempty"`
	Dataroom *Dataroom `gorm:"foreignKey:DataroomID" json:"dataroom,omitempty"`
	Team     *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// AgreementResponse records that the visitor accepted the link's NDA.
type AgreementResponse struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	ViewID      string    `gorm:"size:64;uniqueIndex;not null" json:"viewId"`
	AgreementID string    `gorm:"size:64;index;not null" json:"agreementId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// CustomFieldAnswer is the visitor's answer to one LinkCustomField.
type CustomFieldAnswer struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Response   string `json:"response"`
}

// CustomFieldResponse holds every custom field answer for a view.
type CustomFieldResponse struct {
	ID        string              `gorm:"primaryKey;size:64" json:"id"`
	ViewID    string              `gorm:"size:64;uniqueIndex;not null" json:"viewId"`
	Data      []CustomFieldAnswer `gorm:"type:jsonb;serializer:json" json:"data"`
	CreatedAt time.Time           `gorm:"autoCreateTime" json:"createdAt"`
}

// Reaction is an emoji reaction left on a page during a view.
type Reaction struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	ViewID     string    `gorm:"size:64;index;not null" json:"viewId"`
	PageNumber int       `gorm:"not null" json:"pageNumber"`
	Type       string    `gorm:"size:32;not null" json:"type"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
