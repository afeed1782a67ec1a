package generator

import (
	"fmt"

	"github.com/google/uuid"
)

type IDGenerator struct{}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) ListingID() string {
	return fmt.Sprintf("lst-%s", uuid.NewString())
}

func (g *IDGenerator) AttemptID() string {
	return fmt.Sprintf("att-%s", uuid.NewString())
}

func (g *IDGenerator) ChatID() string {
	return fmt.Sprintf("cht-%s", uuid.NewString())
}

func (g *IDGenerator) SessionID() string {
	return fmt.Sprintf("ses-%s", uuid.NewString())
}
