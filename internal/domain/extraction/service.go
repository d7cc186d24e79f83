package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/ocr"
	"github.com/cbclab/cbclab/internal/platform/sheet"
)

// recordTimeout bounds the extraction-log insert, which outlives the request.
const recordTimeout = 5 * time.Second

// Config tunes the pipeline.
type Config struct {
	Tuning  cbc.Tuning
	Image   ImageConfig
	Timeout time.Duration // per call; zero leaves the caller's deadline alone
}

// Service dispatches documents to the extractor for their kind, imputes the
// winning candidate and logs each call.
type Service struct {
	tabular  *TabularExtractor
	document *DocumentExtractor
	image    *ImageExtractor
	text     *TextExtractor
	imputer  *cbc.Imputer
	repo     ExtractionRepository
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewService wires the extractors. engine and repo may be nil: image kinds
// then fail with engine_unavailable and calls are not logged.
func NewService(cfg Config, engine ocr.Engine, repo ExtractionRepository, logger zerolog.Logger) *Service {
	norm := cbc.NewNormalizer(cfg.Tuning, logger)
	text := NewTextExtractor(norm, logger)
	rows := NewRowTableReader(norm, logger)
	return &Service{
		tabular:  NewTabularExtractor(norm, logger),
		document: NewDocumentExtractor(rows, text, logger),
		image:    NewImageExtractor(engine, text, cfg.Image, logger),
		text:     text,
		imputer:  cbc.NewImputer(cfg.Tuning, logger),
		repo:     repo,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Process extracts CBC parameters from data of the declared kind.
func (s *Service) Process(ctx context.Context, data []byte, kind Kind, opts Options) Result {
	start := time.Now()
	res := s.process(ctx, data, kind, opts)
	res.Kind = kind
	res.Duration = time.Since(start)

	ev := s.logger.Info()
	if res.Failure != nil {
		ev = s.logger.Warn().Str("reason", string(res.Failure.Reason))
	}
	ev.Str("kind", string(kind)).Str("outcome", res.Outcome()).Dur("duration", res.Duration)
	if res.Candidate != nil {
		ev.Str("method", res.Candidate.Method).Int("parameters_found", res.Candidate.ParametersFound)
	}
	ev.Msg("extraction finished")

	s.record(ctx, res, opts.Filename)
	return res
}

func (s *Service) process(ctx context.Context, data []byte, kind Kind, opts Options) Result {
	if !kind.Supported() {
		return failed(cbc.Failf(cbc.ReasonUnsupportedKind, "unsupported file kind %q", kind))
	}
	if opts.Row != nil && !kind.Tabular() {
		return failed(cbc.Failf(cbc.ReasonUnsupportedKind, "row selection requires csv or spreadsheet input"))
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		c       *cbc.Candidate
		listing *cbc.Listing
		err     error
	)
	switch kind.Family() {
	case FamilyDocument:
		c, err = s.document.Extract(ctx, data)
	case FamilyImage:
		c, err = s.image.Extract(ctx, data)
	case FamilyDelimited, FamilySpreadsheet:
		c, listing, err = s.extractTabular(data, kind, opts.Row)
	case FamilyText:
		c, err = s.extractText(data)
	}
	if err != nil {
		return failed(s.classify(ctx, err))
	}
	if listing != nil {
		return Result{Listing: listing}
	}
	if c.Empty() {
		return failed(cbc.Failf(cbc.ReasonNoParameters, "no CBC parameters found"))
	}
	s.imputer.Apply(c)
	return Result{Candidate: c}
}

func (s *Service) extractTabular(data []byte, kind Kind, row *int) (c *cbc.Candidate, l *cbc.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, l, err = nil, nil, fmt.Errorf("tabular extraction panicked: %v", r)
		}
	}()
	t, err := s.tabular.ReadTable(data, kind)
	if errors.Is(err, sheet.ErrNoRows) {
		return nil, nil, cbc.Failf(cbc.ReasonNoParameters, "document has no data rows")
	}
	if err != nil {
		return nil, nil, cbc.Failf(cbc.ReasonUnreadable, "could not parse %s: %v", kind, err)
	}
	return s.tabular.Extract(t, row)
}

func (s *Service) extractText(data []byte) (*cbc.Candidate, error) {
	text, enc := sheet.DecodeText(data)
	if strings.TrimSpace(text) == "" {
		return nil, cbc.Failf(cbc.ReasonUnreadable, "text document is empty")
	}
	s.logger.Debug().Str("encoding", enc).Msg("text decoded")
	return runMethod("text", func() (*cbc.Candidate, error) { return s.text.Extract(text), nil })
}

// classify maps an extractor error to a structured failure.
func (s *Service) classify(ctx context.Context, err error) *cbc.Failure {
	if f, ok := cbc.AsFailure(err); ok {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return cbc.Failf(cbc.ReasonTimeout, "extraction did not finish in time")
	}
	if errors.Is(err, ocr.ErrEngineUnavailable) {
		return cbc.Failf(cbc.ReasonEngineUnavailable, "%v", err)
	}
	return cbc.Failf(cbc.ReasonUnreadable, "%v", err)
}

// runMethod calls fn, turning a panic into an error so the next method can run.
func runMethod(name string, fn func() (*cbc.Candidate, error)) (c *cbc.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}

func (s *Service) record(ctx context.Context, res Result, filename string) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, NewRecord(res, filename)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record extraction")
	}
}

// ListExtractions pages through the extraction log.
func (s *Service) ListExtractions(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	if s.repo == nil {
		return nil, 0, ErrNoLog
	}
	return s.repo.List(ctx, limit, offset)
}

// ErrNoLog is returned when no extraction log is configured.
var ErrNoLog = errors.New("extraction log not configured")
