package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/importer"
)

type stubHolder struct{ cat *catalog.Catalog }

func (h *stubHolder) FrameworkName() string { return "stub" }
func (h *stubHolder) Extensions() []string  { return []string{".stub"} }

func (h *stubHolder) CreateImportGraph(opts ...importer.Option) (*importer.ImportGraph, error) {
	return importer.New("stub", nil, h.cat, nil, opts...), nil
}

func (h *stubHolder) LoadGraph(string) (importer.Graph, error) { return nil, context.Canceled }

func TestRegistry(t *testing.T) {
	Register("stub", func(cat *catalog.Catalog) (Holder, error) { return &stubHolder{cat: cat}, nil })

	assert.Contains(t, Frameworks(), "stub")
	assert.Panics(t, func() {
		Register("stub", func(*catalog.Catalog) (Holder, error) { return nil, nil })
	})
	assert.Panics(t, func() { Register("nil", nil) })

	h, err := New("STUB", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", h.FrameworkName())

	p1, err := h.CreateImportGraph()
	require.NoError(t, err)
	p2, err := h.CreateImportGraph()
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)

	name, err := ForFile("/models/net.STUB")
	require.NoError(t, err)
	assert.Equal(t, "stub", name)

	_, err = ForFile("model.caffemodel")
	assert.Error(t, err)

	_, err = New("caffe", nil)
	assert.Error(t, err)
}
