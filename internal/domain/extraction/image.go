package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/imaging"
	"github.com/cbclab/cbclab/internal/platform/ocr"
)

// MethodOCR prefixes image candidates, followed by variant and mode.
const MethodOCR = "ocr"

// ImageConfig bounds the OCR fan-out.
type ImageConfig struct {
	Workers    int // concurrent recognitions
	MinTextLen int // shorter recognized text is ignored
}

func (c ImageConfig) orDefault() ImageConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 50
	}
	return c
}

// ImageExtractor runs every preprocessing variant through every page
// segmentation mode and keeps the candidate with the most parameters.
type ImageExtractor struct {
	engine ocr.Engine
	text   *TextExtractor
	cfg    ImageConfig
	logger zerolog.Logger
}

func NewImageExtractor(engine ocr.Engine, text *TextExtractor, cfg ImageConfig, logger zerolog.Logger) *ImageExtractor {
	return &ImageExtractor{engine: engine, text: text, cfg: cfg.orDefault(), logger: logger}
}

type ocrJob struct {
	variant int
	mode    ocr.PageSegMode
}

// Extract recognizes data. Jobs are enumerated variant-major; equal scores go
// to the earlier job. When ctx expires the best candidate so far is returned.
func (x *ImageExtractor) Extract(ctx context.Context, data []byte) (*cbc.Candidate, error) {
	if x.engine == nil {
		return nil, cbc.Failf(cbc.ReasonEngineUnavailable, "no OCR engine configured")
	}
	img, format, err := imaging.Decode(data)
	if err != nil {
		return nil, cbc.Failf(cbc.ReasonUnreadable, "could not decode image: %v", err)
	}

	variants := imaging.Variants(img)
	pngs := make([][]byte, len(variants))
	for i, v := range variants {
		if pngs[i], err = imaging.EncodePNG(v.Image); err != nil {
			return nil, cbc.Failf(cbc.ReasonUnreadable, "could not prepare image: %v", err)
		}
	}
	x.logger.Debug().Str("format", format).Int("variants", len(variants)).Msg("image decoded")

	var jobs []ocrJob
	for vi := range variants {
		for _, mode := range ocr.SegModes {
			jobs = append(jobs, ocrJob{variant: vi, mode: mode})
		}
	}

	results := make([]*cbc.Candidate, len(jobs))
	var readable atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.cfg.Workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			text, err := x.engine.Recognize(gctx, pngs[job.variant], job.mode)
			if errors.Is(err, ocr.ErrEngineUnavailable) {
				return err
			}
			if err != nil {
				x.logger.Debug().Err(err).Str("variant", variants[job.variant].Name).Stringer("mode", job.mode).Msg("ocr failed")
				return nil
			}
			if utf8.RuneCountInString(strings.TrimSpace(text)) <= x.cfg.MinTextLen {
				return nil
			}
			readable.Store(true)
			c := x.text.Extract(text)
			c.Method = fmt.Sprintf("%s:%s:psm%d", MethodOCR, variants[job.variant].Name, int(job.mode))
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); errors.Is(err, ocr.ErrEngineUnavailable) {
		return nil, cbc.Failf(cbc.ReasonEngineUnavailable, "%v", err)
	}

	var best *cbc.Candidate
	for _, c := range results {
		if c.Len() > best.Len() {
			best = c
		}
	}
	if !best.Empty() {
		return best, nil
	}
	if ctx.Err() != nil {
		return nil, cbc.Failf(cbc.ReasonTimeout, "image recognition did not finish in time")
	}
	if readable.Load() {
		return nil, cbc.Failf(cbc.ReasonNoParameters, "no CBC parameters found in recognized text")
	}
	return nil, cbc.Failf(cbc.ReasonUnreadable, "no text recognized in image")
}
