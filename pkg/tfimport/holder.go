// Package tfimport imports frozen TensorFlow graphs. Importing it registers
// the "tensorflow" framework with the registry package.
package tfimport

import (
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/importer"
	"github.com/zerfoo/zimport/pkg/mapping"
	"github.com/zerfoo/zimport/pkg/registry"
)

// FrameworkName is the registry name of the TensorFlow framework.
const FrameworkName = "tensorflow"

func init() {
	registry.Register(FrameworkName, func(cat *catalog.Catalog) (registry.Holder, error) {
		h, err := New(cat)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

// Holder builds TensorFlow import pipelines.
type Holder struct {
	catalog   *catalog.Catalog
	foreign   *catalog.ForeignCatalog
	processes *mapping.ProcessRegistry
}

// New returns a holder resolving against cat, or the built-in target
// catalog when cat is nil.
func New(cat *catalog.Catalog) (*Holder, error) {
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, err
		}
	}
	foreign, err := catalog.DefaultForeign(FrameworkName)
	if err != nil {
		return nil, err
	}
	procs, err := Processes(cat)
	if err != nil {
		return nil, err
	}
	return &Holder{catalog: cat, foreign: foreign, processes: procs}, nil
}

func (h *Holder) FrameworkName() string { return FrameworkName }

func (h *Holder) Extensions() []string { return []string{".pb"} }

// Processes returns the op mappings of the holder.
func (h *Holder) Processes() *mapping.ProcessRegistry { return h.processes }

// CreateImportGraph returns a new pipeline for TensorFlow graphs.
func (h *Holder) CreateImportGraph(opts ...importer.Option) (*importer.ImportGraph, error) {
	return importer.New(FrameworkName, h.processes, h.catalog, h.foreign, opts...), nil
}

// LoadGraph reads a frozen GraphDef file.
func (h *Holder) LoadGraph(path string) (importer.Graph, error) {
	return LoadGraph(path, h.foreign)
}
