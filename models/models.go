package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is an authenticated admin session, keyed by its bearer token.
type Session struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Location is the geolocation resolved for a visitor IP.
type Location struct {
	City        string `json:"city"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	ISP         string `json:"isp,omitempty"`
}

// IsZero reports whether no field has been resolved.
func (l Location) IsZero() bool {
	return l == Location{}
}

// Visitor is one entry of the visitor log; at most one per IP.
type Visitor struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Path      string    `json:"path"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// IPCount is one row of the topIPs analytics table.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// Analytics is the admin view of the visitor log.
type Analytics struct {
	TotalVisits    int       `json:"totalVisits"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	Visitors       []Visitor `json:"visitors"` // most recent first
	TopIPs         []IPCount `json:"topIPs"`
}

// Notification types
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// Notification is a site banner message managed by the admin.
type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// NotificationPatch holds the fields of a partial notification update; nil means unchanged.
type NotificationPatch struct {
	Title    *string `json:"title"`
	Message  *string `json:"message"`
	Type     *string `json:"type" binding:"omitempty,oneof=info success warning error"`
	IsActive *bool   `json:"isActive"`
}

// Document is a named JSON document for the SQLite storage backend.
type Document struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Body      string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}
