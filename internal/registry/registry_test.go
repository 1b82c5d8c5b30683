package registry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitezone/internal/components"
	siteerrors "github.com/conneroisu/sitezone/internal/errors"
	"github.com/conneroisu/sitezone/internal/metrics"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := New[int]("module").Register("RichTextArea", 1).Register("Heading", 2).Freeze()

	for _, name := range []string{"RichTextArea", "richtextarea", "RICHTEXTAREA", " richTextArea "} {
		v, ok := r.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, 1, v, name)
	}
	_, ok := r.Get("RichText")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"Heading", "RichTextArea"}, r.Names())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := New[int]("module").Register("Heading", 1)
	assert.PanicsWithValue(t, `registry: module "heading" collides with "Heading"`, func() {
		r.Register("heading", 2)
	})
}

func TestRegistry_FrozenPanics(t *testing.T) {
	r := New[int]("template").Freeze()
	assert.True(t, r.Frozen())
	assert.Panics(t, func() { r.Register("MainTemplate", 1) })
}

func TestRegistry_EmptyNamePanics(t *testing.T) {
	assert.Panics(t, func() { New[int]("module").Register("  ", 1) })
}

func TestModules(t *testing.T) {
	r := Modules()
	assert.True(t, r.Frozen())
	assert.Equal(t, 6, r.Count())

	c, ok := r.Get("textblockwithimage")
	require.True(t, ok)
	assert.Equal(t, components.KindTextBlockWithImage, c.Kind())

	_, ok = r.Get("Diagnostic")
	assert.False(t, ok, "the fallback is not addressable by name")
}

func TestTemplates(t *testing.T) {
	r := Templates()
	_, ok := r.Get("maintemplate")
	assert.True(t, ok)
	_, ok = r.Get("OtherTemplate")
	assert.False(t, ok)
}

func TestResolver_ResolveFor(t *testing.T) {
	m := metrics.New()
	r := NewResolver(Modules(), m, nil)
	ctx := context.Background()

	live := requestctx.Context{Locale: "en-us"}
	preview := requestctx.Context{Locale: "en-us", IsPreview: true}
	dev := requestctx.Context{Locale: "en-us", IsDevelopmentMode: true}

	for _, rc := range []requestctx.Context{live, preview, dev} {
		c, err := r.ResolveFor(ctx, "heading", rc)
		require.NoError(t, err)
		assert.Equal(t, components.KindHeading, c.Kind())
	}

	c, err := r.ResolveFor(ctx, "CarouselWidget", preview)
	require.NoError(t, err)
	assert.Equal(t, components.KindDiagnostic, c.Kind())

	c, err = r.ResolveFor(ctx, "CarouselWidget", dev)
	require.NoError(t, err)
	assert.Equal(t, components.KindDiagnostic, c.Kind())

	c, err = r.ResolveFor(ctx, "CarouselWidget", live)
	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, siteerrors.IsComponentResolution(err))
	assert.Contains(t, err.Error(), "component for CarouselWidget was not found in the module registry")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentUnresolved.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentUnresolved.WithLabelValues("preview")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentUnresolved.WithLabelValues("development")))
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(Modules(), nil, nil)
	a, ok := r.Resolve("RichTextArea")
	require.True(t, ok)
	b, ok := r.Resolve("richtextarea")
	require.True(t, ok)
	assert.Equal(t, a.Kind(), b.Kind())
}
