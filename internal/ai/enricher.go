package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/railmadad/backend/internal/models"
)

// Recorder receives one observation per provider call. Implemented by the metrics package.
type Recorder interface {
	ObserveAI(kind, outcome string, d time.Duration)
}

type Enricher struct {
	Adapter Adapter
	Timeout time.Duration
	Logger  zerolog.Logger
	Metrics Recorder
}

type Result struct {
	Text      models.Analysis
	Media     []models.Analysis
	Aggregate models.Analysis
}

type outcome struct {
	analysis models.Analysis
	err      error
}

// Analyze runs the text analysis and one analysis per attachment concurrently.
// The whole call is bounded by Timeout; a call that errors or does not finish in
// time is replaced by Fallback. Analyze never returns an error.
func (e *Enricher) Analyze(ctx context.Context, description string, atts []Attachment) Result {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Media: make([]models.Analysis, len(atts))}
	var wg sync.WaitGroup
	wg.Add(1 + len(atts))
	go func() {
		defer wg.Done()
		res.Text = e.call(ctx, "text", func(ctx context.Context) (models.Analysis, error) {
			return e.Adapter.AnalyzeText(ctx, description)
		})
	}()
	for i, att := range atts {
		i, att := i, att
		go func() {
			defer wg.Done()
			res.Media[i] = e.call(ctx, "media", func(ctx context.Context) (models.Analysis, error) {
				return e.Adapter.AnalyzeMedia(ctx, att)
			})
		}()
	}
	wg.Wait()

	res.Aggregate = Aggregate(res.Text, res.Media)
	return res
}

func (e *Enricher) call(ctx context.Context, kind string, fn func(context.Context) (models.Analysis, error)) models.Analysis {
	start := time.Now()
	ch := make(chan outcome, 1)
	go func() {
		a, err := fn(ctx)
		ch <- outcome{analysis: a, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			e.observe(kind, "error", start)
			e.Logger.Warn().Err(o.err).Str("kind", kind).Msg("ai analysis failed, using fallback")
			return Fallback()
		}
		e.observe(kind, "ok", start)
		return normalize(o.analysis)
	case <-ctx.Done():
		e.observe(kind, "timeout", start)
		e.Logger.Warn().Str("kind", kind).Dur("elapsed", time.Since(start)).Msg("ai analysis timed out, using fallback")
		return Fallback()
	}
}

func (e *Enricher) observe(kind, result string, start time.Time) {
	if e.Metrics != nil {
		e.Metrics.ObserveAI(kind, result, time.Since(start))
	}
}

// Aggregate combines the text result with per-attachment results.
// Confidence is the mean over attachments when there are any; categories and
// keywords are the ordered union; priority is the most urgent non-fallback value.
func Aggregate(text models.Analysis, media []models.Analysis) models.Analysis {
	all := append([]models.Analysis{text}, media...)

	out := models.Analysis{
		Summary:      text.Summary,
		ModelVersion: text.ModelVersion,
		Confidence:   text.Confidence,
		Fallback:     true,
		Categories:   []string{},
		Keywords:     []string{},
	}
	if len(media) > 0 {
		var sum float64
		for _, m := range media {
			sum += m.Confidence
		}
		out.Confidence = sum / float64(len(media))
	}

	seenCat := map[string]bool{}
	seenKw := map[string]bool{}
	for _, a := range all {
		if !a.Fallback {
			out.Fallback = false
			if out.Priority == "" || a.Priority.Rank() < out.Priority.Rank() {
				out.Priority = a.Priority
			}
		}
		cats := a.Categories
		if len(cats) == 0 && a.Category != "" {
			cats = []string{a.Category}
		}
		for _, c := range cats {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" || seenCat[key] {
				continue
			}
			seenCat[key] = true
			out.Categories = append(out.Categories, strings.TrimSpace(c))
		}
		for _, k := range a.Keywords {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" || seenKw[key] {
				continue
			}
			seenKw[key] = true
			out.Keywords = append(out.Keywords, strings.TrimSpace(k))
		}
	}
	if out.Priority == "" {
		out.Priority = models.PriorityMedium
	}

	out.Category = FallbackCategory
	if !text.Fallback && !strings.EqualFold(text.Category, FallbackCategory) && text.Category != "" {
		out.Category = text.Category
	} else {
		for _, m := range media {
			if !m.Fallback && m.Category != "" && !strings.EqualFold(m.Category, FallbackCategory) {
				out.Category = m.Category
				break
			}
		}
	}
	return out
}
