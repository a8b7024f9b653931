// internal/domain/models/usersettings.go
package models

import "time"

// NotificationSettings controls which messages a user receives.
type NotificationSettings struct {
	EmailNotifications bool `bson:"email_notifications" json:"email_notifications"`
	PushNotifications  bool `bson:"push_notifications" json:"push_notifications"`
	MarketingEmails    bool `bson:"marketing_emails" json:"marketing_emails"`
	NewMessage         bool `bson:"new_message" json:"new_message"`
	ProductUpdates     bool `bson:"product_updates" json:"product_updates"`
}

// PrivacySettings controls what other users see.
type PrivacySettings struct {
	ProfileVisibility string `bson:"profile_visibility" json:"profile_visibility"` // public | registered | private
	ShowPhoneNumber   bool   `bson:"show_phone_number" json:"show_phone_number"`
	ShowEmail         bool   `bson:"show_email" json:"show_email"`
}

// InterfaceSettings holds display preferences.
type InterfaceSettings struct {
	Language string `bson:"language" json:"language"`   // ar | fr | en
	Theme    string `bson:"theme" json:"theme"`         // light | dark | system
	FontSize string `bson:"font_size" json:"font_size"` // small | medium | large
}

// UserSettings is the per-user settings record (one document per user).
type UserSettings struct {
	UserID        string               `bson:"_id" json:"user_id"`
	Notifications NotificationSettings `bson:"notifications" json:"notifications"`
	Privacy       PrivacySettings      `bson:"privacy" json:"privacy"`
	Interface     InterfaceSettings    `bson:"interface" json:"interface"`
	UpdatedAt     *time.Time           `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DefaultUserSettings returns the settings a user starts with.
func DefaultUserSettings(userID string) UserSettings {
	return UserSettings{
		UserID: userID,
		Notifications: NotificationSettings{
			EmailNotifications: true,
			PushNotifications:  true,
			MarketingEmails:    false,
			NewMessage:         true,
			ProductUpdates:     true,
		},
		Privacy: PrivacySettings{
			ProfileVisibility: "public",
		},
		Interface: InterfaceSettings{
			Language: "ar",
			Theme:    "light",
			FontSize: "medium",
		},
	}
}

// Allowed values for the enumerated settings fields.
var (
	ProfileVisibilities = []string{"public", "registered", "private"}
	Languages           = []string{"ar", "fr", "en"}
	Themes              = []string{"light", "dark", "system"}
	FontSizes           = []string{"small", "medium", "large"}
)
