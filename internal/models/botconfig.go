package models

import "gorm.io/gorm"

// BotConfig binds the deployment to one gateway instance. A single row
// is active at a time; activating a new one deactivates the previous in
// the same transaction.
type BotConfig struct {
	gorm.Model
	InstanceID    string `json:"instance_id" gorm:"uniqueIndex"`
	InstanceToken string `json:"-"`
	WebhookURL    string `json:"webhook_url"`
	IsActive      bool   `json:"is_active"`
}
