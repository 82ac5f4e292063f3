// Package aggregate fetches the news and phrase feeds concurrently and folds
// each outcome into PageData. A failed source only blanks its own field.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsdesk/internal/fetch"
	"github.com/jonathan/newsdesk/internal/schemas"
)

// Source names, also used in failure records ("no news", "no phrases").
const (
	SourceNews    = "news"
	SourcePhrases = "phrases"
)

// Failure stages.
const (
	StageFetch  = "fetch"
	StageParse  = "parse"
	StageSchema = "schema"
)

// PageData is what the page template receives. A nil field means that feed
// could not be fetched or decoded for this request.
type PageData struct {
	News    interface{}
	Phrases interface{}
}

// Fetcher performs one timed upstream GET.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// FailureRecorder receives exactly one record per failed source.
type FailureRecorder interface {
	RecordFailure(source, stage, url string, err error)
}

// Source describes one upstream feed.
type Source struct {
	URL     string
	Timeout time.Duration
	// Schema, when set, must accept the decoded document.
	Schema *schemas.Schema
}

// Aggregator combines the two feeds. It holds only configuration and is safe
// for concurrent use by many requests.
type Aggregator struct {
	fetcher  Fetcher
	recorder FailureRecorder
	news     Source
	phrases  Source
}

// New creates an Aggregator. A nil recorder discards failure records.
func New(fetcher Fetcher, recorder FailureRecorder, news, phrases Source) *Aggregator {
	if recorder == nil {
		recorder = discard{}
	}
	return &Aggregator{
		fetcher:  fetcher,
		recorder: recorder,
		news:     news,
		phrases:  phrases,
	}
}

// Aggregate starts both fetches before waiting on either and returns whatever
// succeeded. It never fails; absent fields carry the failures.
func (a *Aggregator) Aggregate(ctx context.Context) PageData {
	var data PageData
	var g errgroup.Group

	// Each goroutine owns exactly one field, so no lock is needed.
	g.Go(func() error {
		data.News = a.load(ctx, SourceNews, a.news)
		return nil
	})
	g.Go(func() error {
		data.Phrases = a.load(ctx, SourcePhrases, a.phrases)
		return nil
	})
	_ = g.Wait()

	return data
}

// load fetches and decodes one source, recording a failure when it yields nothing.
func (a *Aggregator) load(ctx context.Context, name string, src Source) interface{} {
	doc, stage, err := a.resolve(ctx, src)
	if err == nil {
		return doc
	}

	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("source", name).
		Str("stage", stage).
		Str("url", src.URL).
		Msg("no " + name)
	a.recorder.RecordFailure(name, stage, src.URL, err)
	return nil
}

func (a *Aggregator) resolve(ctx context.Context, src Source) (interface{}, string, error) {
	result, err := a.fetcher.Fetch(ctx, fetch.Request{URL: src.URL, Timeout: src.Timeout})
	if err != nil {
		return nil, StageFetch, err
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(result.Body), &doc); err != nil {
		return nil, StageParse, fmt.Errorf("failed to decode feed JSON: %w", err)
	}
	// A literal null decodes fine but would be indistinguishable from absence.
	if doc == nil {
		return nil, StageParse, fmt.Errorf("feed body is JSON null")
	}

	if src.Schema != nil {
		if err := src.Schema.Validate(doc); err != nil {
			return nil, StageSchema, err
		}
	}

	return doc, "", nil
}

type discard struct{}

func (discard) RecordFailure(string, string, string, error) {}
