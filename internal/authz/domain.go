package authz

import "github.com/meridian-logistics/backoffice/internal/resources"

// Op is an operation code from the closed wire enumeration.
type Op uint8

const (
	OpRead   Op = 1
	OpCreate Op = 2
	OpUpdate Op = 3
	OpDelete Op = 4
)

// Valid reports whether the code is part of the enumeration.
func (o Op) Valid() bool {
	return o >= OpRead && o <= OpDelete
}

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// OpMask is a fixed-width bitmask over operation codes. The zero mask means
// no access, never full access.
type OpMask uint8

// MaskOf folds operation codes into a mask, ignoring invalid codes.
func MaskOf(ops ...Op) OpMask {
	var m OpMask
	for _, op := range ops {
		if op.Valid() {
			m |= 1 << (op - 1)
		}
	}
	return m
}

// Has reports whether the mask allows the given operation.
func (m OpMask) Has(op Op) bool {
	if !op.Valid() {
		return false
	}
	return m&(1<<(op-1)) != 0
}

// Ops expands the mask back into operation codes in wire order.
func (m OpMask) Ops() []Op {
	var out []Op
	for op := OpRead; op <= OpDelete; op++ {
		if m.Has(op) {
			out = append(out, op)
		}
	}
	return out
}

// Grants maps each resource to the operations the current role may perform
// on it. Loaded once per session and replaced wholesale on login or role
// change; never mutated in place.
type Grants map[resources.Resource]OpMask

// Identity describes the authenticated actor for the current session.
type Identity struct {
	RoleID      int64
	DisplayName string
	// Super marks the role that bypasses all grant checks.
	Super bool
}

// Check pairs a resource with the operation a guard wants to perform on it.
type Check struct {
	Resource  resources.Resource
	Operation Op
}
