package model

import "time"

const DefaultMaxDbUsersPerCluster = 5

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusActive    EventStatus = "active"
	EventStatusConcluded EventStatus = "concluded"
)

// Event domain object defining a hackathon event. Event CRUD lives in another
// service; the fields mirrored here gate provisioning, quota and cleanup.
type Event struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Name      string      `gorm:"index;unique" json:"name"`
	Status    EventStatus `json:"status"`

	ProvisioningEnabled   bool `json:"provisioningEnabled"`
	AutoCleanupOnEventEnd bool `json:"autoCleanupOnEventEnd"`
	MaxDbUsersPerCluster  uint `json:"maxDbUsersPerCluster"`
}

// MaxDbUsers returns the configured database user quota, falling back to the
// default when the event was created without one.
func (e Event) MaxDbUsers() uint {
	if e.MaxDbUsersPerCluster == 0 {
		return DefaultMaxDbUsersPerCluster
	}
	return e.MaxDbUsersPerCluster
}
