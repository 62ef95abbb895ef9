package model

import (
	"slices"
	"time"
)

// Webhook triggers.
const (
	TriggerLinkViewed = "link_viewed"
)

// Webhook is a team-configured HTTP endpoint receiving event callbacks.
type Webhook struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	TeamID    string    `gorm:"size:64;index;not null" json:"teamId"`
	Name      string    `gorm:"size:255" json:"name"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Secret    string    `gorm:"size:128;not null" json:"-"`
	Triggers  []string  `gorm:"type:jsonb;serializer:json" json:"triggers"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Subscribes reports whether the webhook listens for trigger.
func (w *Webhook) Subscribes(trigger string) bool {
	return slices.Contains(w.Triggers, trigger)
}
