package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/classify"
	"github.com/JakeFAU/wayback-journey/internal/clock/system"
	"github.com/JakeFAU/wayback-journey/internal/id/uuid"
	"github.com/JakeFAU/wayback-journey/internal/metrics"
	"github.com/JakeFAU/wayback-journey/internal/orderedset"
	"github.com/JakeFAU/wayback-journey/internal/scenario"
	"github.com/JakeFAU/wayback-journey/internal/selection"
	"github.com/JakeFAU/wayback-journey/internal/taxonomy"
	"github.com/JakeFAU/wayback-journey/internal/wayback"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultConcurrency  = 1
	DefaultDesiredCount = 15
	DefaultSampleLimit  = 2000
)

// Collaborator names used in metrics and logs.
const (
	collabDiscoverer = "discoverer"
	collabTaxonomy   = "taxonomy_generator"
	collabSelector   = "selector"
	collabPages      = "page_fetcher"
	collabPublisher  = "publisher"
)

// Discoverer returns the deduplicated same-site links of an anchor page, the
// anchor first.
type Discoverer interface {
	Discover(ctx context.Context, anchorURL string) ([]string, error)
}

// TaxonomyGenerator derives page types from a sample of URLs.
type TaxonomyGenerator interface {
	GenerateTaxonomy(ctx context.Context, sampleURLs []string) (taxonomy.Taxonomy, error)
}

// Selector picks up to desired core URLs among the classified links.
type Selector interface {
	SelectCore(ctx context.Context, classified []classify.Link, desired int) ([]string, error)
}

// PageFetcher returns the visible text of a page.
type PageFetcher interface {
	FetchPageText(ctx context.Context, url string) (string, error)
}

// Tagger finds scenarios in page text.
type Tagger interface {
	Tag(text string) []string
	StageDistribution(tags []string) map[string]int
}

// Publisher delivers completion notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PageArchiver keeps a copy of the text of every tagged page.
type PageArchiver interface {
	Archive(ctx context.Context, period, url, text string) error
}

// Clock supplies document timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// modelNamer is implemented by collaborators backed by a named model.
type modelNamer interface {
	Model() string
}

// Config tunes a run.
type Config struct {
	Target            string
	Concurrency       int
	DesiredCount      int
	EnforceMembership bool
	SampleLimit       int
	// Topic receives completion notifications; empty disables publishing.
	Topic string
}

// Deps are the collaborators of an Orchestrator. Publisher, Archiver, Clock,
// IDs and Logger are optional.
type Deps struct {
	Store      checkpoint.Store
	Discoverer Discoverer
	Taxonomy   TaxonomyGenerator
	Selector   Selector
	Pages      PageFetcher
	Tagger     Tagger
	Publisher  Publisher
	Archiver   PageArchiver
	Clock      Clock
	IDs        IDGenerator
	Logger     *zap.Logger
}

// Orchestrator runs the pipeline for one target.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New validates deps and fills in defaults.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("checkpoint store is required")
	case deps.Discoverer == nil:
		return nil, fmt.Errorf("discoverer is required")
	case deps.Taxonomy == nil:
		return nil, fmt.Errorf("taxonomy generator is required")
	case deps.Selector == nil:
		return nil, fmt.Errorf("selector is required")
	case deps.Pages == nil:
		return nil, fmt.Errorf("page fetcher is required")
	case deps.Tagger == nil:
		return nil, fmt.Errorf("tagger is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DesiredCount <= 0 {
		cfg.DesiredCount = DefaultDesiredCount
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = DefaultSampleLimit
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.IDs == nil {
		deps.IDs = uuid.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.Named("pipeline"),
	}, nil
}

// periodRun is owned by exactly one goroutine at a time.
type periodRun struct {
	period     string
	anchor     string
	state      PeriodState
	links      *LinksDocument
	classified *ClassificationDocument
	selected   *SelectionDocument
	scenarios  *ScenarioDocument
	err        *StageError
}

// Run drives every period of snapshots as far as it can go and returns the
// run summary. Period failures are reported in the summary, not as an error.
// The error is non-nil when ctx ends, when the input has no periods, or when
// the taxonomy could be neither loaded nor generated.
func (o *Orchestrator) Run(ctx context.Context, snapshots []wayback.Snapshot) (Summary, error) {
	anchors := wayback.Anchors(snapshots)
	if len(anchors) == 0 {
		return Summary{}, ErrNoPeriods
	}
	runID, err := o.deps.IDs.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := o.logger.With(zap.String("run_id", runID), zap.String("target", o.cfg.Target))
	logger.Info("pipeline run starting",
		zap.Int("periods", len(anchors)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	runs := make([]*periodRun, len(anchors))
	for i, a := range anchors {
		runs[i] = &periodRun{period: a.Period, anchor: a.URL}
	}

	o.forEach(logger, runs, func(pr *periodRun) {
		o.resume(ctx, logger, pr)
		if pr.err == nil && pr.state == NotStarted {
			o.discover(ctx, logger, pr)
		}
	})

	tax, taxErr := o.prepareTaxonomy(ctx, logger, runs)

	o.forEach(logger, runs, func(pr *periodRun) {
		o.advance(ctx, logger, runID, pr, tax, taxErr)
	})

	summary := o.summarize(ctx, runs)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	if err := o.deps.Store.Save(ctx, checkpoint.StageSummary, checkpoint.RunKey, summary); err != nil {
		metrics.ObservePersistenceFailure()
		logger.Error("checkpoint persistence failed",
			zap.String("stage", string(checkpoint.StageSummary)),
			zap.Error(err),
		)
	}
	logger.Info("pipeline run finished",
		zap.Int("analyzed_periods", summary.AnalyzedPeriods),
		zap.Int("failed_periods", summary.FailedPeriods),
		zap.Int("total_scenarios", summary.TotalScenarios),
	)
	if taxErr != nil {
		return summary, taxErr
	}
	return summary, nil
}

// forEach runs fn for every period on the worker pool. A panic inside fn
// fails that period only.
func (o *Orchestrator) forEach(logger *zap.Logger, runs []*periodRun, fn func(*periodRun)) {
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, pr := range runs {
		g.Go(func() error {
			metrics.IncActivePeriods()
			defer metrics.DecActivePeriods()
			defer func() {
				if rec := recover(); rec != nil {
					stage := pendingStage(pr.state)
					pr.err = internalError(pr.period, stage, rec)
					metrics.ObserveStage(string(stage), metrics.OutcomeFailure, 0)
					logger.Error("period step panicked",
						zap.String("period", pr.period),
						zap.String("stage", string(stage)),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
				}
			}()
			fn(pr)
			return nil
		})
	}
	_ = g.Wait()
}

// pendingStage names the stage that follows state.
func pendingStage(state PeriodState) checkpoint.Stage {
	switch state {
	case NotStarted:
		return checkpoint.StageLinks
	case LinksDiscovered:
		return checkpoint.StageClassified
	case Classified:
		return checkpoint.StageSelected
	default:
		return checkpoint.StageScenarios
	}
}

// periodDocument is a checkpoint scoped to one period.
type periodDocument interface {
	checkpoint.Validator
	periodKey() string
}

// resume loads the longest valid prefix of documents for pr. A read failure
// other than an incomplete document fails pr where it stands.
func (o *Orchestrator) resume(ctx context.Context, logger *zap.Logger, pr *periodRun) {
	defer func() {
		if pr.state > NotStarted {
			logger.Info("period resumed",
				zap.String("period", pr.period),
				zap.Stringer("state", pr.state),
			)
		}
	}()

	links := &LinksDocument{}
	if !o.load(ctx, logger, pr, checkpoint.StageLinks, links) {
		return
	}
	pr.links, pr.state = links, LinksDiscovered

	classified := &ClassificationDocument{}
	if !o.load(ctx, logger, pr, checkpoint.StageClassified, classified) {
		return
	}
	pr.classified, pr.state = classified, Classified

	selected := &SelectionDocument{}
	if !o.load(ctx, logger, pr, checkpoint.StageSelected, selected) {
		return
	}
	pr.selected, pr.state = selected, Selected

	scenarios := &ScenarioDocument{}
	if !o.load(ctx, logger, pr, checkpoint.StageScenarios, scenarios) {
		return
	}
	pr.scenarios, pr.state = scenarios, Done
}

func (o *Orchestrator) load(
	ctx context.Context,
	logger *zap.Logger,
	pr *periodRun,
	stage checkpoint.Stage,
	dst periodDocument,
) bool {
	period := pr.period
	ok, err := o.deps.Store.Load(ctx, stage, period, dst)
	switch {
	case errors.Is(err, checkpoint.ErrIncomplete):
		logger.Warn("discarding incomplete checkpoint",
			zap.String("period", period),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		return false
	case err != nil:
		o.fail(logger, pr, persistenceError(period, stage, fmt.Errorf("read checkpoint: %w", err)), time.Now())
		return false
	case !ok:
		return false
	case dst.periodKey() != period:
		logger.Warn("discarding checkpoint of another period",
			zap.String("period", period),
			zap.String("stage", string(stage)),
			zap.String("stored_period", dst.periodKey()),
		)
		return false
	}
	metrics.ObserveStage(string(stage), metrics.OutcomeResumed, 0)
	return true
}

// fail records err on pr and logs it.
func (o *Orchestrator) fail(logger *zap.Logger, pr *periodRun, err *StageError, started time.Time) {
	pr.err = err
	metrics.ObserveStage(string(err.Stage), metrics.OutcomeFailure, time.Since(started))
	if err.Kind == KindPersistence {
		metrics.ObservePersistenceFailure()
		logger.Error("checkpoint persistence failed",
			zap.String("period", pr.period),
			zap.String("stage", string(err.Stage)),
			zap.Error(err.Err),
		)
		return
	}
	logger.Warn("period step failed",
		zap.String("period", pr.period),
		zap.String("stage", string(err.Stage)),
		zap.String("kind", string(err.Kind)),
		zap.Error(err.Err),
	)
}

// save persists doc; on failure it records a persistence error on pr.
func (o *Orchestrator) save(
	ctx context.Context,
	logger *zap.Logger,
	pr *periodRun,
	stage checkpoint.Stage,
	doc any,
	started time.Time,
) bool {
	if err := o.deps.Store.Save(ctx, stage, pr.period, doc); err != nil {
		o.fail(logger, pr, persistenceError(pr.period, stage, err), started)
		return false
	}
	metrics.ObserveStage(string(stage), metrics.OutcomeSuccess, time.Since(started))
	return true
}

func (o *Orchestrator) discover(ctx context.Context, logger *zap.Logger, pr *periodRun) {
	started := time.Now()
	links, err := o.deps.Discoverer.Discover(ctx, pr.anchor)
	metrics.ObserveCollaborator(collabDiscoverer, err)
	if err != nil {
		o.fail(logger, pr, collaboratorError(pr.period, checkpoint.StageLinks, err), started)
		return
	}
	doc := &LinksDocument{
		Period:      pr.period,
		AnchorURL:   pr.anchor,
		Links:       orderedset.New(links...).Items(),
		GeneratedAt: o.deps.Clock.Now(),
	}
	if !o.save(ctx, logger, pr, checkpoint.StageLinks, doc, started) {
		return
	}
	pr.links, pr.state = doc, LinksDiscovered
	logger.Info("links discovered",
		zap.String("period", pr.period),
		zap.Int("links", len(doc.Links)),
	)
}

// prepareTaxonomy loads or generates the taxonomy when some period still needs
// to be classified. A nil set with a nil error means no period needs it.
func (o *Orchestrator) prepareTaxonomy(
	ctx context.Context,
	logger *zap.Logger,
	runs []*periodRun,
) (*taxonomy.MatcherSet, error) {
	needed := false
	sample := orderedset.New()
	for _, pr := range runs {
		if pr.err == nil && pr.state == LinksDiscovered {
			needed = true
		}
		if pr.links != nil {
			sample.AddAll(pr.links.Links...)
		}
	}
	if !needed {
		return nil, nil
	}

	doc := &TaxonomyDocument{}
	ok, err := o.deps.Store.Load(ctx, checkpoint.StageTaxonomy, checkpoint.RunKey, doc)
	switch {
	case errors.Is(err, checkpoint.ErrIncomplete):
		logger.Warn("discarding incomplete taxonomy checkpoint", zap.Error(err))
		ok = false
	case err != nil:
		metrics.ObservePersistenceFailure()
		readErr := fmt.Errorf("read checkpoint: %w", err)
		return o.taxonomyFailed(logger, persistenceError("", checkpoint.StageTaxonomy, readErr), time.Now())
	}
	if ok {
		metrics.ObserveStage(string(checkpoint.StageTaxonomy), metrics.OutcomeResumed, 0)
		logger.Info("taxonomy resumed", zap.Int("types", doc.TotalTypes))
		return taxonomy.Compile(doc.CorePageTypes, logger), nil
	}

	started := time.Now()
	urls := sample.Items()
	if len(urls) > o.cfg.SampleLimit {
		urls = urls[:o.cfg.SampleLimit]
	}
	tax, err := o.deps.Taxonomy.GenerateTaxonomy(ctx, urls)
	metrics.ObserveCollaborator(collabTaxonomy, err)
	if err != nil {
		return o.taxonomyFailed(logger, collaboratorError("", checkpoint.StageTaxonomy, err), started)
	}
	if err := tax.Validate(); err != nil {
		return o.taxonomyFailed(logger, collaboratorError("", checkpoint.StageTaxonomy, err), started)
	}

	doc = &TaxonomyDocument{
		CorePageTypes: tax,
		TotalTypes:    tax.TypeCount(),
		SampleSize:    len(urls),
		Model:         modelOf(o.deps.Taxonomy),
		GeneratedAt:   o.deps.Clock.Now(),
	}
	if err := o.deps.Store.Save(ctx, checkpoint.StageTaxonomy, checkpoint.RunKey, doc); err != nil {
		metrics.ObservePersistenceFailure()
		return o.taxonomyFailed(logger, persistenceError("", checkpoint.StageTaxonomy, err), started)
	}
	metrics.ObserveStage(string(checkpoint.StageTaxonomy), metrics.OutcomeSuccess, time.Since(started))
	logger.Info("taxonomy generated",
		zap.Int("types", doc.TotalTypes),
		zap.Int("sample_size", doc.SampleSize),
	)
	return taxonomy.Compile(tax, logger), nil
}

func (o *Orchestrator) taxonomyFailed(
	logger *zap.Logger,
	err *StageError,
	started time.Time,
) (*taxonomy.MatcherSet, error) {
	metrics.ObserveStage(string(checkpoint.StageTaxonomy), metrics.OutcomeFailure, time.Since(started))
	logger.Error("taxonomy step failed", zap.String("kind", string(err.Kind)), zap.Error(err.Err))
	return nil, fmt.Errorf("%w: %w", ErrTaxonomyUnavailable, err)
}

// advance moves pr from its current state to Done, stopping at the first
// failure.
func (o *Orchestrator) advance(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	pr *periodRun,
	tax *taxonomy.MatcherSet,
	taxErr error,
) {
	if pr.err != nil || pr.state == NotStarted || pr.state == Done {
		return
	}
	if pr.state == LinksDiscovered {
		if taxErr != nil {
			pr.err = &StageError{
				Period: pr.period,
				Stage:  checkpoint.StageTaxonomy,
				Kind:   kindOf(taxErr, KindCollaborator),
				Err:    taxErr,
			}
			return
		}
		if !o.classify(ctx, logger, pr, tax) {
			return
		}
	}
	if pr.state == Classified && !o.selectCore(ctx, logger, pr) {
		return
	}
	if pr.state == Selected && !o.tagScenarios(ctx, logger, pr) {
		return
	}
	if pr.state == ScenariosTagged {
		o.notify(ctx, logger, runID, pr)
		pr.state = Done
	}
}

func (o *Orchestrator) classify(
	ctx context.Context,
	logger *zap.Logger,
	pr *periodRun,
	tax *taxonomy.MatcherSet,
) bool {
	started := time.Now()
	links := classify.New(tax).Classify(pr.links.Links, pr.anchor)
	doc := &ClassificationDocument{
		Period:          pr.period,
		ClassifiedURLs:  links,
		DiscoveredCount: len(pr.links.Links),
		GeneratedAt:     o.deps.Clock.Now(),
	}
	if !o.save(ctx, logger, pr, checkpoint.StageClassified, doc, started) {
		return false
	}
	metrics.AddClassifiedLinks(len(links))
	pr.classified, pr.state = doc, Classified
	logger.Info("links classified",
		zap.String("period", pr.period),
		zap.Int("discovered", doc.DiscoveredCount),
		zap.Int("classified", len(links)),
	)
	return true
}

func (o *Orchestrator) selectCore(ctx context.Context, logger *zap.Logger, pr *periodRun) bool {
	started := time.Now()
	var candidates []string
	if len(pr.classified.ClassifiedURLs) > 0 {
		var err error
		candidates, err = o.deps.Selector.SelectCore(ctx, pr.classified.ClassifiedURLs, o.cfg.DesiredCount)
		metrics.ObserveCollaborator(collabSelector, err)
		if err != nil {
			o.fail(logger, pr, collaboratorError(pr.period, checkpoint.StageSelected, err), started)
			return false
		}
	}

	var valid []string
	if pr.links != nil {
		valid = pr.links.Links
	}
	result := selection.Reconcile(candidates, valid, o.cfg.EnforceMembership)
	doc := &SelectionDocument{
		Period:            pr.period,
		RecommendedURLs:   result.URLs,
		OverlapCount:      result.OverlapCount,
		EnforceMembership: result.EnforceMembership,
		FallbackUsed:      result.FallbackUsed,
		ClassifiedCount:   len(pr.classified.ClassifiedURLs),
		DiscoveredCount:   len(valid),
		Model:             modelOf(o.deps.Selector),
		GeneratedAt:       o.deps.Clock.Now(),
	}
	if !o.save(ctx, logger, pr, checkpoint.StageSelected, doc, started) {
		return false
	}
	pr.selected, pr.state = doc, Selected
	if result.FallbackUsed {
		logger.Warn("no recommended url survived, using fallback",
			zap.String("period", pr.period),
			zap.Int("fallback", len(result.URLs)),
		)
	}
	logger.Info("core urls selected",
		zap.String("period", pr.period),
		zap.Int("recommended", len(result.URLs)),
		zap.Int("overlap", result.OverlapCount),
	)
	return true
}

func (o *Orchestrator) tagScenarios(ctx context.Context, logger *zap.Logger, pr *periodRun) bool {
	started := time.Now()
	found := orderedset.New()
	attempted, succeeded := 0, 0
	var lastErr error
	for _, url := range pr.selected.RecommendedURLs {
		if err := ctx.Err(); err != nil {
			o.fail(logger, pr, collaboratorError(pr.period, checkpoint.StageScenarios, err), started)
			return false
		}
		attempted++
		text, err := o.deps.Pages.FetchPageText(ctx, url)
		metrics.ObserveCollaborator(collabPages, err)
		if err != nil {
			lastErr = err
			logger.Warn("page text unavailable",
				zap.String("period", pr.period),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		succeeded++
		if o.deps.Archiver != nil && text != "" {
			if err := o.deps.Archiver.Archive(ctx, pr.period, url, text); err != nil {
				logger.Warn("page text not archived", zap.String("url", url), zap.Error(err))
			}
		}
		found.AddAll(o.deps.Tagger.Tag(text)...)
	}
	if attempted > 0 && succeeded == 0 {
		err := fmt.Errorf("%w (%d attempted): %w", ErrAllPagesFailed, attempted, lastErr)
		o.fail(logger, pr, collaboratorError(pr.period, checkpoint.StageScenarios, err), started)
		return false
	}

	tags := found.Items()
	scenario.SortTags(tags)
	doc := &ScenarioDocument{
		Period:              pr.period,
		IdentifiedScenarios: tags,
		StageDistribution:   o.deps.Tagger.StageDistribution(tags),
		TotalScenarioCount:  len(tags),
		PagesAttempted:      attempted,
		PagesSucceeded:      succeeded,
		GeneratedAt:         o.deps.Clock.Now(),
	}
	if doc.StageDistribution == nil {
		doc.StageDistribution = map[string]int{}
	}
	if !o.save(ctx, logger, pr, checkpoint.StageScenarios, doc, started) {
		return false
	}
	pr.scenarios, pr.state = doc, ScenariosTagged
	logger.Info("scenarios tagged",
		zap.String("period", pr.period),
		zap.Int("scenarios", len(tags)),
		zap.Int("pages_succeeded", succeeded),
		zap.Int("pages_attempted", attempted),
	)
	return true
}

// notify publishes the completion notification. Failures are logged only.
func (o *Orchestrator) notify(ctx context.Context, logger *zap.Logger, runID string, pr *periodRun) {
	if o.deps.Publisher == nil || o.cfg.Topic == "" {
		return
	}
	msg := Notification{
		Target:              o.cfg.Target,
		Period:              pr.period,
		RunID:               runID,
		RecommendedURLs:     pr.selected.RecommendedURLs,
		IdentifiedScenarios: pr.scenarios.IdentifiedScenarios,
		Timestamp:           o.deps.Clock.Now(),
	}
	id, err := o.deps.Publisher.Publish(ctx, o.cfg.Topic, msg)
	metrics.ObserveCollaborator(collabPublisher, err)
	if err != nil {
		logger.Warn("completion notification failed",
			zap.String("period", pr.period),
			zap.String("topic", o.cfg.Topic),
			zap.Error(err),
		)
		return
	}
	logger.Debug("completion notification published",
		zap.String("period", pr.period),
		zap.String("message_id", id),
	)
}

func modelOf(v any) string {
	if m, ok := v.(modelNamer); ok {
		return m.Model()
	}
	return ""
}
