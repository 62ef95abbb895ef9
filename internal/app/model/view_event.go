package model

import "time"

// LinkViewEvent is the analytics record of a view, written by the analytics consumer.
type LinkViewEvent struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	ViewID     string    `gorm:"size:64;index;not null" json:"viewId"`
	LinkID     string    `gorm:"size:64;index;not null" json:"linkId"`
	DocumentID string    `gorm:"size:64;index" json:"documentId"`
	DataroomID string    `gorm:"size:64;index" json:"dataroomId"`
	TeamID     string    `gorm:"size:64;index" json:"teamId"`
	IP         string    `gorm:"size:64" json:"ip"`
	UserAgent  string    `gorm:"type:text" json:"userAgent"`
	Referer    string    `gorm:"type:text" json:"referer"`
	Country    string    `gorm:"size:8" json:"country"`
	City       string    `gorm:"size:128" json:"city"`
	Region     string    `gorm:"size:128" json:"region"`
	Continent  string    `gorm:"size:8" json:"continent"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
}

// Location is the coarse geo information attached to a visit.
type Location struct {
	Continent string `json:"continent"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
}

// ViewRecorded is the message published once per recorded view.
type ViewRecorded struct {
	ClickID    string    `json:"clickId"`
	ViewID     string    `json:"viewId"`
	LinkID     string    `json:"linkId"`
	TeamID     string    `json:"teamId"`
	DocumentID string    `json:"documentId,omitempty"`
	DataroomID string    `json:"dataroomId,omitempty"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Referer    string    `json:"referer"`
	Location   Location  `json:"location"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	ViewStreamName          = "VIEWS"
	ViewStreamSubjects      = "views.>"
	ViewAnalyticsSubject    = "views.analytics"
	ViewNotificationSubject = "views.notification"
	ViewWebhookSubject      = "views.webhook"
	ViewConsumerName        = "view-recorder"
	ViewStreamMaxBytes      = 1024 * 1024 * 100 // 100MB
)

// AllModels lists every persisted model, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Team{}, &TeamMember{},
		&Document{}, &Dataroom{}, &DocumentVersion{}, &DocumentPage{},
		&Link{}, &LinkCustomField{},
		&Viewer{}, &View{}, &AgreementResponse{}, &CustomFieldResponse{}, &Reaction{},
		&VerificationToken{}, &Webhook{}, &LinkViewEvent{},
	}
}
