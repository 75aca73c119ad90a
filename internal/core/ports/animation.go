package ports

import (
	"context"

	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
)

// AnimationSource supplies the raw animation definitions keyed by id.
type AnimationSource interface {
	Load(ctx context.Context) (map[string]animation.RawDefinition, error)
}

// AnimationEngine advances frame sequences and resolves animation placeholders.
type AnimationEngine interface {
	Load(defs map[string]animation.RawDefinition) animation.LoadReport
	Resolve(text string) string
	Advance()
	Reset(id string) bool
	ResetAll()
	Validate() []string

	IDs() []string
	Count() int
	Has(id string) bool
	Info(id string) (animation.Info, bool)
}
