package service

import (
	"fmt"

	"shopmaster/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID   uuid.UUID  `json:"id"`
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

func (a Actor) IsOwner() bool {
	return a.Role == model.RoleOwner
}

func (a Actor) idPtr() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func requireOwner(a Actor, action string) error {
	if !a.IsOwner() {
		return fmt.Errorf("%w: only an owner can %s", ErrPermission, action)
	}
	return nil
}
