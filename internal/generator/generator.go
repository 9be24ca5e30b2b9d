// Package generator turns configured template sources into Go files.
package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/opencode-ai/tmplbind/internal/codegen"
	"github.com/opencode-ai/tmplbind/internal/config"
	"github.com/opencode-ai/tmplbind/internal/db"
	"github.com/opencode-ai/tmplbind/internal/events"
	"github.com/opencode-ai/tmplbind/internal/logging"
	"github.com/opencode-ai/tmplbind/internal/models"
	"github.com/opencode-ai/tmplbind/internal/templates"
	"github.com/opencode-ai/tmplbind/pkg/binding"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

// Generator errors.
var (
	ErrDuplicateIdentifier = errors.New("duplicate generated identifier")
	ErrDuplicateOutput     = errors.New("duplicate output file")
	ErrGenerateFailed      = errors.New("generation failed")
)

// cacheVersion invalidates cached artifacts when emitted code changes shape.
const cacheVersion = "tmplbind/1"

// Status is the outcome of one template in a run.
type Status string

const (
	StatusCompiled Status = "compiled"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// ArtifactStore persists what was generated from each source.
type ArtifactStore interface {
	GetBySource(ctx context.Context, sourcePath string) (*models.Artifact, error)
	Upsert(ctx context.Context, artifact *models.Artifact) error
	List(ctx context.Context) ([]*models.Artifact, error)
	DeleteBySource(ctx context.Context, sourcePath string) error
}

// Target is one template scheduled for generation.
type Target struct {
	Template   *templates.Template
	Package    string
	Exported   bool
	OutputPath string
}

// Result is the outcome for one target.
type Result struct {
	Name       string
	SourcePath string
	OutputPath string
	Status     Status
	Reason     string
	Err        error
	Variables  []binding.Variable
	Shapes     int
	Unused     []string
	// Code is the emitted source; set for compiled targets.
	Code []byte
}

// Report summarizes a run. Results follow target order.
type Report struct {
	RunID    string
	Results  []Result
	Pruned   []string
	Duration time.Duration
}

// Counts returns the number of compiled, skipped and failed targets.
func (r *Report) Counts() (compiled, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusCompiled:
			compiled++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return compiled, skipped, failed
}

// Err joins the errors of failed targets.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrGenerateFailed, errors.Join(errs...))
}

// Option configures a Generator.
type Option func(*Generator)

// WithArtifacts enables the build cache.
func WithArtifacts(store ArtifactStore) Option {
	return func(g *Generator) { g.artifacts = store }
}

// WithEvents records run events.
func WithEvents(repo events.Repository) Option {
	return func(g *Generator) { g.events = repo }
}

// WithForce regenerates every target regardless of the cache.
func WithForce(force bool) Option {
	return func(g *Generator) { g.force = force }
}

// WithDryRun emits code without writing files or recording anything.
func WithDryRun(dryRun bool) Option {
	return func(g *Generator) { g.dryRun = dryRun }
}

// WithPrune removes outputs whose source no longer exists.
func WithPrune(prune bool) Option {
	return func(g *Generator) { g.prune = prune }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// Generator runs template generation for a configuration.
type Generator struct {
	cfg       *config.Config
	artifacts ArtifactStore
	events    events.Repository
	force     bool
	dryRun    bool
	prune     bool
	logger    zerolog.Logger
}

// New creates a Generator.
func New(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		logger: logging.Component("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Discover loads every configured source and plans its output. Identifier
// or output collisions are configuration errors and nothing is generated.
func (g *Generator) Discover() ([]Target, error) {
	seen := make(map[string]struct{})
	var targets []Target

	for i, src := range g.cfg.Sources {
		dir := src.Dir
		if dir == "" {
			dir = "."
		}
		dir = g.cfg.Resolve(dir)

		found, err := templates.LoadTemplatesFromDir(dir, src.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}

		outDir := dir
		if src.Output != "" {
			outDir = g.cfg.Resolve(src.Output)
		}

		for _, tmpl := range found {
			if _, dup := seen[tmpl.Source]; dup {
				continue
			}
			seen[tmpl.Source] = struct{}{}

			visibility := firstNonEmpty(tmpl.Visibility, src.Visibility, g.cfg.Visibility)
			targets = append(targets, Target{
				Template:   tmpl,
				Package:    firstNonEmpty(tmpl.Package, src.Package, g.cfg.Package),
				Exported:   visibility != config.VisibilityUnexported,
				OutputPath: filepath.Join(outDir, codegen.FileName(tmpl.Name, g.cfg.Output.Suffix)),
			})
		}
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].OutputPath < targets[j].OutputPath
	})

	if err := g.checkCollisions(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// checkCollisions rejects targets that would write the same file or
// declare the same identifier in one package. Templates that do not compile
// contribute no constructors; they fail on their own later.
func (g *Generator) checkCollisions(targets []Target) error {
	outputs := make(map[string]string, len(targets))
	idents := make(map[string]string)
	var errs []error

	for _, t := range targets {
		if other, dup := outputs[t.OutputPath]; dup {
			errs = append(errs, fmt.Errorf("%w: %s is generated from both %s and %s", ErrDuplicateOutput, t.OutputPath, other, t.Template.Source))
			continue
		}
		outputs[t.OutputPath] = t.Template.Source

		var shapes []tmplbind.InputShape
		if compiled, err := g.compile(t.Template); err == nil {
			shapes = compiled.Shapes()
		}
		names, err := codegen.Identifiers(t.Template.Name, t.Exported, shapes)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Template.Source, err))
			continue
		}
		scope := filepath.Dir(t.OutputPath) + "\x00" + t.Package
		for _, name := range names {
			key := scope + "\x00" + name
			if other, dup := idents[key]; dup {
				errs = append(errs, fmt.Errorf("%w: %s in package %s is declared by both %s and %s", ErrDuplicateIdentifier, name, t.Package, other, t.Template.Source))
				break
			}
			idents[key] = t.Template.Source
		}
	}
	return errors.Join(errs...)
}

// Run generates every target with up to cfg.Generate.Jobs templates in
// flight. A failing template does not stop the others; its error is in
// the report.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	targets, err := g.Discover()
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.New().String(),
		Results: make([]Result, len(targets)),
	}
	g.logger.Info().Str("run_id", report.RunID).Int("templates", len(targets)).Msg("generate started")

	jobs := g.cfg.Generate.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(jobs)
	for i, target := range targets {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Results[i] = g.process(gctx, report.RunID, target)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if g.prune && !g.dryRun {
		report.Pruned = g.pruneStale(ctx, targets)
	}

	report.Duration = time.Since(start)
	compiled, skipped, failed := report.Counts()
	if g.events != nil && !g.dryRun {
		if err := events.LogGenerateCompleted(ctx, g.events, report.RunID, compiled, skipped, failed, report.Duration); err != nil {
			g.logger.Warn().Err(err).Msg("failed to record run event")
		}
	}
	g.logger.Info().
		Str("run_id", report.RunID).
		Int("compiled", compiled).
		Int("skipped", skipped).
		Int("failed", failed).
		Dur("took", report.Duration).
		Msg("generate finished")

	return report, nil
}

func (g *Generator) process(ctx context.Context, runID string, target Target) Result {
	tmpl := target.Template
	res := Result{
		Name:       tmpl.Name,
		SourcePath: tmpl.Source,
		OutputPath: target.OutputPath,
	}
	logger := g.logger.With().Str("template", tmpl.Name).Logger()
	sourceHash := g.sourceHash(target)

	if reason, ok := g.upToDate(ctx, target, sourceHash); ok {
		res.Status = StatusSkipped
		res.Reason = reason
		logger.Debug().Msg("up to date")
		g.record(ctx, func(repo events.Repository) error {
			return events.LogTemplateSkipped(ctx, repo, tmpl.Name, models.TemplateSkippedPayload{
				RunID: runID, SourcePath: tmpl.Source, Reason: reason,
			})
		})
		return res
	}

	code, compiled, err := g.emit(target)
	if err == nil && !g.dryRun {
		err = writeFile(target.OutputPath, code)
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logger.Error().Err(err).Msg("generation failed")
		g.record(ctx, func(repo events.Repository) error {
			return events.LogTemplateFailed(ctx, repo, tmpl.Name, models.TemplateFailedPayload{
				RunID: runID, SourcePath: tmpl.Source, Error: err.Error(),
			})
		})
		return res
	}

	res.Status = StatusCompiled
	res.Code = code
	res.Variables = compiled.Variables()
	res.Shapes = len(compiled.Shapes())
	res.Unused = tmpl.UnusedVariables(compiled)
	for _, name := range res.Unused {
		logger.Warn().Str("variable", name).Msg("declared variable is not used")
	}
	logger.Debug().Str("output", target.OutputPath).Int("shapes", res.Shapes).Msg("generated")

	if g.dryRun {
		return res
	}

	if g.artifacts != nil {
		artifact := &models.Artifact{
			LogicalName: tmpl.Name,
			SourcePath:  tmpl.Source,
			SourceHash:  sourceHash,
			OutputPath:  target.OutputPath,
			OutputHash:  hashBytes(code),
			Variables:   res.Variables,
		}
		if err := g.artifacts.Upsert(ctx, artifact); err != nil {
			logger.Warn().Err(err).Msg("failed to update build cache")
		}
	}
	g.record(ctx, func(repo events.Repository) error {
		return events.LogTemplateCompiled(ctx, repo, tmpl.Name, models.TemplateCompiledPayload{
			RunID:      runID,
			SourcePath: tmpl.Source,
			OutputPath: target.OutputPath,
			Variables:  len(res.Variables),
			Shapes:     res.Shapes,
		})
	})
	return res
}

func (g *Generator) compile(tmpl *templates.Template) (*tmplbind.Template, error) {
	return tmpl.Compile(
		tmplbind.WithDefaultKind(g.cfg.Kind()),
		tmplbind.WithOptionalMode(g.cfg.Mode()),
	)
}

func (g *Generator) emit(target Target) ([]byte, *tmplbind.Template, error) {
	tmpl := target.Template
	compiled, err := g.compile(tmpl)
	if err != nil {
		return nil, nil, err
	}

	code, err := codegen.Generate(codegen.Input{
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Source:      g.relative(tmpl.Source),
		Template:    compiled,
		Describe:    tmpl.Describe,
	}, codegen.Options{
		Package:  target.Package,
		Exported: target.Exported,
		Header:   g.cfg.Output.Header,
	})
	if err != nil {
		return nil, nil, err
	}
	return code, compiled, nil
}

// upToDate reports whether the cached artifact still matches the source,
// the generation options and the file on disk.
func (g *Generator) upToDate(ctx context.Context, target Target, sourceHash string) (string, bool) {
	if g.artifacts == nil || g.force || !g.cfg.Generate.Cache {
		return "", false
	}
	artifact, err := g.artifacts.GetBySource(ctx, target.Template.Source)
	if err != nil {
		if !errors.Is(err, db.ErrArtifactNotFound) {
			g.logger.Warn().Err(err).Str("source", target.Template.Source).Msg("build cache lookup failed")
		}
		return "", false
	}
	if artifact.SourceHash != sourceHash || artifact.OutputPath != target.OutputPath {
		return "", false
	}
	data, err := os.ReadFile(target.OutputPath)
	if err != nil || hashBytes(data) != artifact.OutputHash {
		return "", false
	}
	return "source and output unchanged", true
}

func (g *Generator) sourceHash(target Target) string {
	tmpl := target.Template
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	write(cacheVersion, tmpl.Name, tmpl.Description, tmpl.Body)
	for _, v := range tmpl.Variables {
		write(v.Name, v.Kind, v.Description)
	}
	write(target.Package, fmt.Sprint(target.Exported), g.cfg.Output.Header, string(g.cfg.Kind()), string(g.cfg.Mode()))
	return hex.EncodeToString(h.Sum(nil))
}

// pruneStale deletes outputs recorded for sources that are no longer
// configured. Files not carrying the generated-code marker are kept.
func (g *Generator) pruneStale(ctx context.Context, targets []Target) []string {
	if g.artifacts == nil {
		return nil
	}
	artifacts, err := g.artifacts.List(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to list build cache")
		return nil
	}

	live := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		live[t.Template.Source] = struct{}{}
	}

	var pruned []string
	for _, artifact := range artifacts {
		if _, ok := live[artifact.SourcePath]; ok {
			continue
		}
		// Sources outside this run's directories may still exist.
		if _, err := os.Stat(g.cfg.Resolve(artifact.SourcePath)); !os.IsNotExist(err) {
			continue
		}
		if isGenerated(artifact.OutputPath) {
			if err := os.Remove(artifact.OutputPath); err != nil && !os.IsNotExist(err) {
				g.logger.Warn().Err(err).Str("output", artifact.OutputPath).Msg("failed to remove stale output")
				continue
			}
		}
		if err := g.artifacts.DeleteBySource(ctx, artifact.SourcePath); err != nil && !errors.Is(err, db.ErrArtifactNotFound) {
			g.logger.Warn().Err(err).Str("source", artifact.SourcePath).Msg("failed to drop stale artifact")
			continue
		}
		g.logger.Info().Str("output", artifact.OutputPath).Msg("pruned stale output")
		pruned = append(pruned, artifact.OutputPath)
	}
	return pruned
}

func (g *Generator) record(ctx context.Context, fn func(events.Repository) error) {
	if g.events == nil || g.dryRun {
		return
	}
	if err := fn(g.events); err != nil {
		g.logger.Warn().Err(err).Msg("failed to record event")
	}
}

func (g *Generator) relative(path string) string {
	if path == "" || path == templates.SourceBuiltin {
		return path
	}
	rel, err := filepath.Rel(g.cfg.ProjectDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func isGenerated(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(data, []byte("// Code generated by tmplbind"))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
