package models

import (
	"strings"
)

type HandleKind int

const (
	HandleEmail HandleKind = iota
	HandlePhone
)

func (k HandleKind) String() string {
	switch k {
	case HandleEmail:
		return "email"
	default:
		return "phone"
	}
}

// Login identifier user supplies: email or phone
type Handle struct {
	Kind  HandleKind
	Value string
}

// ParseHandle treats value with '@' as email and anything else as phone.
// Only shape is checked here; format validation happens at request binding.
func ParseHandle(value string) Handle {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "@") {
		return Handle{Kind: HandleEmail, Value: strings.ToLower(value)}
	}
	return Handle{Kind: HandlePhone, Value: value}
}
