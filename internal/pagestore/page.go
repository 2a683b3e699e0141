package pagestore

import (
	"fmt"
	"strings"
	"time"
)

// Category selects one of the independent record tables.
// The same URL may be stored in every category, each row with its own id.
type Category uint8

// Page categories.
const (
	History Category = iota
	Favorite
	Active
)

// Table names. These are the only identifiers ever interpolated into SQL.
const (
	tableHistory  = "history"
	tableFavorite = "favorite"
	tableActive   = "active"
)

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{History, Favorite, Active}
}

// table maps the category to its table name.
func (c Category) table() (string, error) {
	switch c {
	case History:
		return tableHistory, nil
	case Favorite:
		return tableFavorite, nil
	case Active:
		return tableActive, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
}

// String returns the table name, or "category(N)" for unknown values.
func (c Category) String() string {
	name, err := c.table()
	if err != nil {
		return fmt.Sprintf("category(%d)", uint8(c))
	}

	return name
}

// ParseCategory accepts a table name or one of the aliases
// "favorites", "bookmarks", "tab" and "tabs".
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case tableHistory:
		return History, nil
	case tableFavorite, "favorites", "bookmarks":
		return Favorite, nil
	case tableActive, "tab", "tabs":
		return Active, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// Page is one stored page reference.
type Page struct {
	// ID is assigned by the store. Zero means "not yet persisted"; saving a
	// page with ID 0 always inserts a new row.
	ID int64 `json:"id"`

	// URL is empty for a blank page.
	URL string `json:"url"`

	// Title is empty until the page finishes loading. Empty titles are stored as NULL.
	Title string `json:"title,omitempty"`

	// Date orders loads (newest first). A zero Date is replaced with the
	// store clock on save; otherwise it is stored as given.
	Date time.Time `json:"date"`
}

// NewPage returns an unsaved page dated now.
func NewPage(url, title string) Page {
	return Page{URL: url, Title: title, Date: time.Now()}
}
