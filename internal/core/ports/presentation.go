package ports

import (
	"context"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
)

// PresentationSurface consumes fully resolved presentation fragments.
// Implementations never receive templates or placeholders.
type PresentationSurface interface {
	Apply(ctx context.Context, client identity.Client, field presentation.Field, value string) error
}
