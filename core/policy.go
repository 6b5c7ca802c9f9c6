package core

import "strings"

// RoleAdmin is the role granted access by AdminOnly and SelfOrAdmin
const RoleAdmin = "ADMIN"

// Resource describes what a request is trying to reach
type Resource struct {
	OwnerSubject string // Subject owning the resource, empty when not user-owned
}

// Policy decides whether an identity may access a resource
type Policy func(id Identity, res Resource) bool

// Public allows every authenticated identity
func Public(Identity, Resource) bool {
	return true
}

// AdminOnly allows identities with the admin role
func AdminOnly(id Identity, _ Resource) bool {
	return IsAdmin(id)
}

// SelfOrAdmin allows the owner of the resource or an admin
func SelfOrAdmin(id Identity, res Resource) bool {
	if IsAdmin(id) {
		return true
	}
	return res.OwnerSubject != "" && id.Subject == res.OwnerSubject
}

// IsAdmin reports whether the identity carries the admin role
func IsAdmin(id Identity) bool {
	return strings.EqualFold(id.Role(), RoleAdmin)
}

// CanAccess evaluates policy for the identity and resource. A nil policy denies.
func CanAccess(id Identity, res Resource, policy Policy) bool {
	if policy == nil {
		return false
	}
	return policy(id, res)
}
