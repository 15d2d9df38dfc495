package model

import "time"

// Item is a single lost or found report.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	Location    string    `json:"location"`
	Date        string    `json:"date"`
	ImageURL    string    `json:"imageUrl"`
	ImageHint   string    `json:"imageHint"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Status classifies an item as lost or found. It never changes after creation.
type Status string

// Item statuses, as stored and sent on the wire.
const (
	StatusLost  Status = "lost"
	StatusFound Status = "found"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusLost, StatusFound}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusLost || s == StatusFound
}

// Category is the kind of item being reported.
type Category string

// Item categories.
const (
	CategoryElectronics Category = "electronics"
	CategoryKeys        Category = "keys"
	CategoryWallets     Category = "wallets"
	CategoryBags        Category = "bags"
	CategoryClothing    Category = "clothing"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryKeys,
	CategoryWallets,
	CategoryBags,
	CategoryClothing,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DateLayout is the wire format of Item.Date.
const DateLayout = "2006-01-02"

// Placeholder image used when a report is submitted without a photo.
const (
	PlaceholderImageURL  = "https://picsum.photos/seed/placeholder/400/300"
	PlaceholderImageHint = "placeholder"
)

// Filter selects a subset of items by status. The zero value selects all items.
type Filter struct {
	Status Status
}

// All reports whether the filter matches every item.
func (f Filter) All() bool {
	return f.Status == ""
}

// Matches reports whether item passes the filter.
func (f Filter) Matches(item Item) bool {
	return f.All() || item.Status == f.Status
}

// String returns a stable key for the filter.
func (f Filter) String() string {
	if f.All() {
		return "all"
	}
	return string(f.Status)
}
