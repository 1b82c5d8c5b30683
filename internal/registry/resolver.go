package registry

import (
	"context"

	"github.com/conneroisu/sitezone/internal/components"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/logging"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

// Modules builds the frozen registry of every module component the site
// ships.
func Modules() *Registry[components.Renderer] {
	r := New[components.Renderer]("module")
	for _, c := range []components.Renderer{
		components.RichTextArea,
		components.Heading,
		components.FeaturedPost,
		components.PostsListing,
		components.PostDetails,
		components.TextBlockWithImage,
	} {
		r.Register(c.Kind().String(), c)
	}
	return r.Freeze()
}

// Templates builds the frozen registry of page templates.
func Templates() *Registry[components.Template] {
	return New[components.Template]("template").
		Register("MainTemplate", components.MainTemplate).
		Freeze()
}

// Resolver picks the component for a module type name, falling back to the
// diagnostic component when drafts are visible.
type Resolver struct {
	modules  *Registry[components.Renderer]
	fallback components.Renderer
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewResolver(modules *Registry[components.Renderer], m *metrics.Metrics, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{
		modules:  modules,
		fallback: components.Diagnostic,
		metrics:  m,
		logger:   logger.WithComponent("registry"),
	}
}

// Resolve looks typeName up without any fallback.
func (r *Resolver) Resolve(typeName string) (components.Renderer, bool) {
	return r.modules.Get(typeName)
}

// ResolveFor resolves typeName for a request. An unregistered name yields
// the diagnostic component in preview or development and a component
// resolution error on the live site.
func (r *Resolver) ResolveFor(ctx context.Context, typeName string, rc requestctx.Context) (components.Renderer, error) {
	if c, ok := r.modules.Get(typeName); ok {
		return c, nil
	}

	r.metrics.UnresolvedComponent(rc.Mode())
	if rc.Preview() {
		r.logger.Warn(ctx, nil, "No component registered, showing diagnostic", "module", typeName)
		return r.fallback, nil
	}

	err := siteerrors.ErrComponentNotFound(typeName)
	r.logger.Error(ctx, err, "No component registered", "module", typeName)
	return nil, err
}
