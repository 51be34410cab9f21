package importer

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zerfoo/zimport/pkg/ir"
)

// ImportAll imports graphs concurrently with at most workers imports in
// flight. Every graph gets its own pipeline from newPipeline. Results are in
// the order of graphs; the first failure cancels the remaining imports.
func ImportAll(ctx context.Context, newPipeline func() (*ImportGraph, error), graphs []Graph, workers int) ([]*ir.Graph, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*ir.Graph, len(graphs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, graph := range graphs {
		eg.Go(func() error {
			p, err := newPipeline()
			if err != nil {
				return errors.Wrapf(err, "failed to create pipeline for %q", graph.Name())
			}
			out, err := p.Import(ctx, graph)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
