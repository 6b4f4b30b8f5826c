// Package role holds the closed set of account roles and the capability
// table used by every authorization decision in the gateway.
package role

import (
	"fmt"
	"strings"
)

// Role is the tag stored on every account. Only the constants below are valid.
type Role string

const (
	Instructor Role = "instrutor"
	Student    Role = "aluno"
	Driver     Role = "motorista"
	Passenger  Role = "passageiro"
	Both       Role = "ambos"
	Manager    Role = "gerente"
	Mechanic   Role = "mecanico"
	Client     Role = "cliente"
)

// Capability is a single permission bit. A role grants a set of them.
type Capability uint16

const (
	CapTeach Capability = 1 << iota
	CapEnroll
	CapDrive
	CapRide
	CapManageOrders
	CapServiceOrders
	CapRequestService
)

var capabilities = map[Role]Capability{
	Instructor: CapTeach,
	Student:    CapEnroll,
	Driver:     CapDrive,
	Passenger:  CapRide,
	Both:       CapDrive | CapRide,
	Manager:    CapManageOrders,
	Mechanic:   CapServiceOrders,
	Client:     CapRequestService,
}

var capNames = map[Capability]string{
	CapTeach:          "teach",
	CapEnroll:         "enroll",
	CapDrive:          "drive",
	CapRide:           "ride",
	CapManageOrders:   "manage_orders",
	CapServiceOrders:  "service_orders",
	CapRequestService: "request_service",
}

func (c Capability) String() string {
	if n, ok := capNames[c]; ok {
		return n
	}
	return fmt.Sprintf("capability(%d)", uint16(c))
}

// All lists every valid role in a stable order.
func All() []Role {
	return []Role{Instructor, Student, Driver, Passenger, Both, Manager, Mechanic, Client}
}

// Parse normalises s and returns the matching role.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

// Capabilities returns the capability set granted to r. Unknown roles get none.
func (r Role) Capabilities() Capability { return capabilities[r] }

// Has reports whether r grants c. A role holding several capabilities
// satisfies each of them individually.
func (r Role) Has(c Capability) bool {
	return c != 0 && capabilities[r]&c == c
}

// Principal is the authenticated caller of a request.
type Principal struct {
	AccountID uint64
	Role      Role
}

// Can reports whether p holds c and, when ownerID is non-zero, owns the resource.
func Can(p Principal, c Capability, ownerID uint64) bool {
	if !p.Role.Has(c) {
		return false
	}
	return ownerID == 0 || ownerID == p.AccountID
}

// CapabilityNames lists the names of the capabilities r grants.
func (r Role) CapabilityNames() []string {
	out := []string{}
	for c := CapTeach; c <= CapRequestService; c <<= 1 {
		if r.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}
