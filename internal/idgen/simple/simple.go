package simple

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	referencePrefix = "BK"
	referenceLen    = 8
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) GetID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate booking id: %w", err)
	}

	return id.String(), nil
}

// GetReference returns a short human-facing code such as BK3F9A0C12.
func (g *Generator) GetReference(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate booking reference: %w", err)
	}

	hex := strings.ReplaceAll(id.String(), "-", "")

	return referencePrefix + strings.ToUpper(hex[:referenceLen]), nil
}
