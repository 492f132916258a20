package links

import "time"

// Link is a row of the links table. Empty OwnerID means no owner.
type Link struct {
	Code        string
	TargetURL   string
	CreatedAt   time.Time
	DeletedAt   *time.Time
	TotalClicks int64
	LastClicked *time.Time
	OwnerID     string
	IsActive    bool
}

type CreateStatus string

const (
	StatusCreated     CreateStatus = "created"
	StatusReactivated CreateStatus = "reactivated"
)

type CreateLinkInput struct {
	Code      string
	TargetURL string
	OwnerID   string
}

type CreateResult struct {
	Link   *Link
	Status CreateStatus
}

// ClickInput carries the request metadata stored with a click. Empty fields
// are persisted as NULL.
type ClickInput struct {
	Referrer  string
	UserAgent string
	IPAddress string
}
