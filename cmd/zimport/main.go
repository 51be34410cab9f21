// Command zimport translates ONNX and TensorFlow graphs into ZMF models.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/zerfoo/zimport/internal/config"
	"github.com/zerfoo/zimport/internal/metrics"
	"github.com/zerfoo/zimport/pkg/catalog"
	"github.com/zerfoo/zimport/pkg/converter"
	"github.com/zerfoo/zimport/pkg/importer"
	"github.com/zerfoo/zimport/pkg/inspector"
	"github.com/zerfoo/zimport/pkg/ir"
	"github.com/zerfoo/zimport/pkg/registry"

	_ "github.com/zerfoo/zimport/pkg/onnximport"
	_ "github.com/zerfoo/zimport/pkg/tfimport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "import":
		err = handleImport(ctx, args[1:], stdout, stderr)
	case "batch":
		err = handleBatch(ctx, args[1:], stdout, stderr)
	case "inspect":
		err = handleInspect(args[1:], stdout, stderr)
	case "frameworks":
		err = handleFrameworks(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// env is the state shared by the import commands.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	catalog *catalog.Catalog
	metrics *metrics.Recorder
	reg     *prometheus.Registry
	close   func()
}

func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // log path from config
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}
	log := logrus.New()
	log.SetOutput(logFile)
	log.SetLevel(cfg.LogLevel())

	e := &env{cfg: cfg, log: log, reg: prometheus.NewRegistry()}
	e.close = func() {
		if cerr := logFile.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", cerr)
		}
	}
	if cfg.Import.Catalog != "" {
		if e.catalog, err = catalog.LoadFile(cfg.Import.Catalog); err != nil {
			e.close()
			return nil, err
		}
	}
	if e.metrics, err = metrics.New(e.reg); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) options(skip bool) []importer.Option {
	opts := []importer.Option{importer.WithLogger(e.log), importer.WithMetrics(e.metrics)}
	if skip {
		opts = append(opts, importer.WithNodeErrorHandler(importer.SkipNodes))
	}
	return opts
}

func (e *env) save(g *ir.Graph, output string) (int, error) {
	m, err := converter.ToZMF(g, converter.Options{
		ProducerName:    e.cfg.Producer.Name,
		ProducerVersion: e.cfg.Producer.Version,
	})
	if err != nil {
		return 0, err
	}
	if err := converter.Save(output, m); err != nil {
		return 0, err
	}
	return len(m.GetGraph().GetParameters()), nil
}

func (e *env) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, e.reg), "failed to write metrics")
}

func outputName(dir, input string) string {
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".zmf")
}

func frameworkFor(name, path string) (string, error) {
	if name != "" {
		return strings.ToLower(name), nil
	}
	return registry.ForFile(path)
}

func handleImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	framework := fs.String("framework", "", "Source framework (default: detected from the file extension)")
	outputFile := fs.String("output", "", "Path for the ZMF file (default: <input>.zmf in the current directory)")
	configPath := fs.String("config", "", "Path to a YAML config file")
	skip := fs.Bool("skip-failed", false, "Skip nodes that cannot be translated instead of aborting")
	metricsFile := fs.String("metrics", "", "Write import metrics in Prometheus text format to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputFile := fs.Arg(0)
	if inputFile == "" {
		fs.Usage()
		return errors.New("input file is required for 'import' command")
	}
	if *outputFile == "" {
		*outputFile = outputName(".", inputFile)
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	fw, err := frameworkFor(*framework, inputFile)
	if err != nil {
		return err
	}
	h, err := registry.New(fw, e.catalog)
	if err != nil {
		return err
	}
	graph, err := h.LoadGraph(inputFile)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", inputFile)
	}
	p, err := h.CreateImportGraph(e.options(*skip)...)
	if err != nil {
		return err
	}
	out, err := p.Import(ctx, graph)
	if err != nil {
		return err
	}
	params, err := e.save(out, *outputFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Imported %s graph %q: %d nodes, %d parameters -> %s\n", fw, out.Name, len(out.Nodes), params, *outputFile)
	return e.writeMetrics(*metricsFile)
}

func handleBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	framework := fs.String("framework", "", "Source framework of every input (default: detected per file)")
	outDir := fs.String("outdir", ".", "Directory for the ZMF files")
	workers := fs.Int("workers", 0, "Concurrent imports (default: from config)")
	configPath := fs.String("config", "", "Path to a YAML config file")
	skip := fs.Bool("skip-failed", false, "Skip nodes that cannot be translated instead of aborting")
	metricsFile := fs.String("metrics", "", "Write import metrics in Prometheus text format to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return errors.New("at least one input file is required for 'batch' command")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()
	if *workers < 1 {
		*workers = e.cfg.Import.Workers
	}

	// ImportAll runs one framework's pipelines, so inputs are grouped.
	groups := make(map[string][]string)
	for _, in := range inputs {
		fw, err := frameworkFor(*framework, in)
		if err != nil {
			return err
		}
		groups[fw] = append(groups[fw], in)
	}
	names := make([]string, 0, len(groups))
	for fw := range groups {
		names = append(names, fw)
	}
	sort.Strings(names)

	for _, fw := range names {
		h, err := registry.New(fw, e.catalog)
		if err != nil {
			return err
		}
		files := groups[fw]
		graphs := make([]importer.Graph, len(files))
		for i, f := range files {
			if graphs[i], err = h.LoadGraph(f); err != nil {
				return errors.Wrapf(err, "failed to load %s", f)
			}
		}
		newPipeline := func() (*importer.ImportGraph, error) { return h.CreateImportGraph(e.options(*skip)...) }
		results, err := importer.ImportAll(ctx, newPipeline, graphs, *workers)
		if err != nil {
			return err
		}
		for i, out := range results {
			output := outputName(*outDir, files[i])
			if _, err := e.save(out, output); err != nil {
				return errors.Wrapf(err, "failed to save %s", output)
			}
			fmt.Fprintf(stdout, "%s -> %s (%d nodes)\n", files[i], output, len(out.Nodes))
		}
	}
	return e.writeMetrics(*metricsFile)
}

func handleInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fileType := fs.String("type", "", "Type of model to inspect: 'onnx', 'tensorflow' or 'zmf'")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputFile := fs.Arg(0)
	if inputFile == "" {
		fs.Usage()
		return errors.New("input file is required for 'inspect' command")
	}

	detected := strings.ToLower(*fileType)
	if detected == "" {
		switch strings.ToLower(filepath.Ext(inputFile)) {
		case ".onnx":
			detected = "onnx"
		case ".pb":
			detected = "tensorflow"
		case ".zmf":
			detected = "zmf"
		default:
			return errors.Errorf("could not determine model type from extension of %q; use -type", inputFile)
		}
	}

	switch detected {
	case "onnx":
		return inspector.InspectONNX(stdout, inputFile)
	case "tensorflow":
		return inspector.InspectTensorFlow(stdout, inputFile)
	case "zmf":
		return inspector.InspectZMF(stdout, inputFile)
	}
	return errors.Errorf("unsupported model type %q; must be 'onnx', 'tensorflow' or 'zmf'", detected)
}

func handleFrameworks(stdout io.Writer) error {
	for _, name := range registry.Frameworks() {
		h, err := registry.New(name, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\t%s\n", name, strings.Join(h.Extensions(), ", "))
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zimport <command> [arguments]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  import <model> [-framework <name>] [-output <file.zmf>] [-config <file>] [-skip-failed] [-metrics <file>]")
	fmt.Fprintln(w, "  batch [-workers <n>] [-outdir <dir>] [-framework <name>] [-config <file>] <models...>")
	fmt.Fprintln(w, "  inspect <file> [-type <onnx|tensorflow|zmf>]")
	fmt.Fprintln(w, "  frameworks")
}
