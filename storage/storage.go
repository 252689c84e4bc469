// Package storage persists the service's JSON documents (sessions,
// notifications, analytics). Every Save rewrites the whole document.
package storage

// Document names
const (
	Sessions      = "sessions"
	Notifications = "notifications"
	Analytics     = "analytics"
)

// DocumentStore loads and saves whole named documents.
type DocumentStore interface {
	// Load decodes the named document into v. found is false when the
	// document has never been saved; v is left untouched in that case.
	Load(name string, v any) (found bool, err error)
	Save(name string, v any) error
}
