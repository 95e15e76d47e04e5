package model

import "time"

// Team domain object defining a hackathon team. Team CRUD itself lives in
// another service; this mirror is what cluster ownership and naming hang off.
type Team struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"index:idx_team_name_and_event,unique" json:"name"`
	EventID   uint      `gorm:"index:idx_team_name_and_event,unique" json:"eventId"`
	Event     *Event    `json:"event,omitempty"`
	Users     []User    `gorm:"many2many:user_teams;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"users,omitempty"`
}
