package sessions

import (
	"time"

	"github.com/jrsteele09/go-classroom-client/users"
)

// Status is the position of the session in its lifecycle:
//
//	Uninitialized -> LoggedOut                      (nothing stored)
//	Uninitialized -> Optimistic -> LoggedIn|LoggedOut (stored session re-validated)
//	LoggedIn -> LoggedOut                          (Logout, failed validation, 401)
//	LoggedOut -> LoggedIn                          (Login)
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusOptimistic    Status = "optimistic"
	StatusLoggedIn      Status = "logged_in"
	StatusLoggedOut     Status = "logged_out"
)

// State is a snapshot of the session. User and Roles are copies.
type State struct {
	Status          Status
	Initialized     bool // false means auth state is not yet decidable
	User            *users.User
	Roles           users.Roles
	LastValidatedAt time.Time
}

func (s State) LoggedIn() bool {
	return s.Status == StatusLoggedIn || s.Status == StatusOptimistic
}

func (s State) clone() State {
	c := s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Roles = append(users.Roles(nil), s.Roles...)
	return c
}
