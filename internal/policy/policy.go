// Package policy maps roles to the operations they may perform.
package policy

import (
	"errors"
	"strings"

	"backoffice/backend/internal/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type Resource string

const (
	ResourceProduct    Resource = "product"
	ResourceClient     Resource = "client"
	ResourceSale       Resource = "sale"
	ResourceDepartment Resource = "department"
	ResourceExpense    Resource = "expense"
	ResourceUser       Resource = "user"
	ResourceLicense    Resource = "license"
	ResourceRanking    Resource = "ranking"
	ResourceReport     Resource = "report"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// Permission is "resource:action". Either side may be "*".
type Permission string

const wildcard = "*"

func NewPermission(resource Resource, action Action) Permission {
	return Permission(string(resource) + ":" + string(action))
}

func (p Permission) parse() (string, string) {
	resource, action, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return resource, action
}

// Matches reports whether the granted permission p covers requested.
func (p Permission) Matches(requested Permission) bool {
	if p == requested {
		return true
	}
	res, act := p.parse()
	reqRes, reqAct := requested.parse()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == wildcard || res == reqRes) && (act == wildcard || act == reqAct)
}

// Policy holds the permissions granted to each role.
type Policy struct {
	grants map[string][]Permission
}

// Default grants ADMIN everything. USER may run the day-to-day back office
// but cannot manage departments, users or award ranking points.
func Default() *Policy {
	user := []Permission{
		NewPermission(ResourceProduct, wildcard),
		NewPermission(ResourceClient, wildcard),
		NewPermission(ResourceSale, wildcard),
		NewPermission(ResourceExpense, wildcard),
		NewPermission(ResourceReport, wildcard),
		NewPermission(ResourceDepartment, ActionView),
		NewPermission(ResourceLicense, ActionView),
		NewPermission(ResourceRanking, ActionView),
	}
	return &Policy{grants: map[string][]Permission{
		domain.RoleAdmin: {Permission("*:*")},
		domain.RoleUser:  user,
	}}
}

// Authorize returns ErrUnauthorized without an actor and ErrForbidden when
// the actor's role lacks the permission.
func (p *Policy) Authorize(actor *domain.Actor, resource Resource, action Action) error {
	if actor == nil || actor.UserID == "" {
		return ErrUnauthorized
	}
	requested := NewPermission(resource, action)
	for _, granted := range p.grants[actor.Role] {
		if granted.Matches(requested) {
			return nil
		}
	}
	return ErrForbidden
}
