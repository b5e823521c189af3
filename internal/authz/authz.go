// Package authz is the single place where the role/ownership matrix lives.
// Handlers resolve the target entity first (missing rows are 404 before any
// permission check) and then ask this package; nothing here ever touches a
// bare id or the database.
package authz

import (
	"github.com/freelafacility/backend/internal/apperr"
	"github.com/freelafacility/backend/internal/models"
)

type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionUpload     Action = "upload"
	ActionList       Action = "list"
	ActionChangeRole Action = "change_role"
)

// Resource is the tagged set of things the matrix knows about.
type Resource interface{ isResource() }

// Project wraps a resolved project. Model may be nil for ActionCreate,
// where only the actor's role matters.
type Project struct {
	Model *models.Project
}

// File authorization is derived from the parent project, so the resolved
// project always rides along. A file is never independently ownable.
type File struct {
	Model   *models.File
	Project *models.Project
}

// User wraps the target of a user operation.
type User struct {
	Target *models.User
}

// Clients is the client directory (GET /users/clients).
type Clients struct{}

// RoleGrant is the role a new user account would be created with.
type RoleGrant struct {
	Role models.Role
}

func (Project) isResource()   {}
func (File) isResource()      {}
func (User) isResource()      {}
func (Clients) isResource()   {}
func (RoleGrant) isResource() {}

// Can evaluates the role/ownership matrix.
func Can(actor *models.User, action Action, res Resource) bool {
	if actor == nil {
		return false
	}
	switch r := res.(type) {
	case Project:
		return canProject(actor, action, r.Model)
	case File:
		return canFile(actor, action, r.Model, r.Project)
	case User:
		return canUser(actor, action, r.Target)
	case Clients:
		return action == ActionList &&
			(actor.Role == models.RoleFreelancer || actor.Role == models.RoleAdmin)
	case RoleGrant:
		return r.Role != models.RoleAdmin || actor.Role == models.RoleAdmin
	}
	return false
}

// Require is Can with a Forbidden error for direct use in handlers.
func Require(actor *models.User, action Action, res Resource) error {
	if !Can(actor, action, res) {
		return apperr.Forbidden("")
	}
	return nil
}

func canProject(actor *models.User, action Action, p *models.Project) bool {
	switch action {
	case ActionCreate:
		return actor.Role == models.RoleFreelancer
	case ActionRead:
		return isProjectMember(actor, p)
	case ActionUpdate, ActionDelete:
		// only the owning freelancer mutates; the client never does
		return p != nil && actor.Role == models.RoleFreelancer && actor.ID == p.OwnerID
	}
	return false
}

func isProjectMember(actor *models.User, p *models.Project) bool {
	if p == nil {
		return false
	}
	switch actor.Role {
	case models.RoleFreelancer:
		return actor.ID == p.OwnerID
	case models.RoleClient:
		return actor.ID == p.ClientID
	}
	return false
}

func canFile(actor *models.User, action Action, f *models.File, p *models.Project) bool {
	switch action {
	case ActionUpload, ActionRead:
		return isProjectMember(actor, p)
	case ActionDelete:
		if f == nil || p == nil {
			return false
		}
		return actor.ID == p.OwnerID || actor.ID == f.UploaderID
	}
	return false
}

func canUser(actor *models.User, action Action, target *models.User) bool {
	if target == nil {
		return false
	}
	switch action {
	case ActionRead, ActionUpdate:
		return actor.Role == models.RoleAdmin || actor.ID == target.ID
	case ActionChangeRole:
		// nobody edits their own role, admins edit everyone else's
		return actor.Role == models.RoleAdmin && actor.ID != target.ID
	case ActionDelete:
		return actor.Role == models.RoleAdmin && actor.ID != target.ID
	}
	return false
}
