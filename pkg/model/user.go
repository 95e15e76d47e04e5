package model

import (
	"context"
	"time"
)

const AdministratorTeamName = "administrators"

// User domain object defining a caller. Team memberships and leaderships are
// carried in the token claims and materialized here by the authentication
// middleware.
type User struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Email       string    `gorm:"index;unique" json:"email"`
	Teams       []Team    `gorm:"many2many:user_teams;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teams"`
	LeaderTeams []Team    `gorm:"many2many:user_teams_leader;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"leaderTeams"`
}

func (u *User) IsMemberOf(teamID uint) bool {
	return u.contains(teamID, u.Teams)
}

func (u *User) IsLeaderOf(teamID uint) bool {
	return u.contains(teamID, u.LeaderTeams)
}

func (u *User) contains(teamID uint, teams []Team) bool {
	for _, t := range teams {
		if teamID == t.ID {
			return true
		}
	}
	return false
}

func (u *User) IsAdministrator() bool {
	for _, t := range u.Teams {
		if t.Name == AdministratorTeamName {
			return true
		}
	}
	return false
}

type userContextKey int

var userKey userContextKey

// NewContextWithUser returns a new [context.Context] that carries the user.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext returns the user stored in the ctx, if any.
func GetUserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok
}
