// Package registry maps framework names to the holders that build their
// import pipelines. Framework packages register themselves from init, the
// way database drivers do.
package registry

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/importer"
)

// Holder builds import pipelines for one source framework. Every call to
// CreateImportGraph returns an independent pipeline.
type Holder interface {
	FrameworkName() string
	// Extensions lists the file extensions of the framework's graph files,
	// including the dot.
	Extensions() []string
	CreateImportGraph(opts ...importer.Option) (*importer.ImportGraph, error)
	LoadGraph(path string) (importer.Graph, error)
}

// Factory creates a Holder resolving against cat. A nil cat selects the
// built-in target catalog.
type Factory func(cat *catalog.Catalog) (Holder, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a framework available by name. It panics if the name is
// registered twice or f is nil.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("registry: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("registry: Register called twice for framework " + name)
	}
	factories[name] = f
}

// New returns the holder of the named framework.
func New(name string, cat *catalog.Catalog) (Holder, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown framework %q (registered: %s)", name, strings.Join(Frameworks(), ", "))
	}
	return f(cat)
}

// Frameworks returns the registered framework names in sorted order.
func Frameworks() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForFile returns the framework whose holder claims the extension of path.
func ForFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, name := range Frameworks() {
		h, err := New(name, nil)
		if err != nil {
			return "", err
		}
		for _, e := range h.Extensions() {
			if e == ext {
				return name, nil
			}
		}
	}
	return "", errors.Errorf("no framework handles %q files", ext)
}
