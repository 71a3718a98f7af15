package myuuid

import (
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=uuid.go -package myuuid -destination uuider_mock.go UUIDer
type UUIDer interface {
	Create() string
}

type RealUUIDer struct{}

func (u RealUUIDer) Create() string {
	return uuid.New().String()
}

// InstructionUUIDer creates ids in the compact upper-case hex form that Swish demands.
type InstructionUUIDer struct{}

func (u InstructionUUIDer) Create() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
