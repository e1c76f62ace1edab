// Package batch runs a worker over a list of message ids in bounded
// concurrent chunks with pacing between chunks, converting every
// failure into a per-item result so one bad message never aborts the
// rest of a chunk.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/emailzen/emailzen/internal/retry"
)

// Defaults match the Gmail quota posture of the processing engine.
const (
	DefaultSize  = 10
	DefaultPause = 100 * time.Millisecond
)

// Result is the outcome for a single item.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Error  string `json:"error,omitempty"`
}

// Summary aggregates a batch run.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// Options tunes chunk size and inter-chunk pacing. Zero values take the
// defaults.
type Options struct {
	Size  int
	Pause time.Duration
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Pause <= 0 {
		o.Pause = DefaultPause
	}
	return o
}

// Run processes ids chunk by chunk: items within a chunk run
// concurrently, chunks run strictly in sequence with a pause between
// them. Every id yields exactly one Result. Run returns early only when
// the context is cancelled between chunks.
func Run(ctx context.Context, ids []string, worker func(ctx context.Context, id string) error, opts Options) ([]Result, error) {
	opts = opts.withDefaults()
	results := make([]Result, len(ids))

	for start := 0; start < len(ids); start += opts.Size {
		if err := ctx.Err(); err != nil {
			return results[:start], err
		}

		end := start + opts.Size
		if end > len(ids) {
			end = len(ids)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = runOne(ctx, ids[i], worker)
			}(i)
		}
		wg.Wait()

		if end < len(ids) {
			if err := retry.Sleep(ctx, opts.Pause); err != nil {
				return results[:end], err
			}
		}
	}

	return results, nil
}

func runOne(ctx context.Context, id string, worker func(ctx context.Context, id string) error) (res Result) {
	res = Result{ID: id, Status: "success"}
	defer func() {
		if r := recover(); r != nil {
			res.Status = "error"
			res.Error = fmt.Sprintf("worker panicked: %v", r)
		}
	}()
	if err := worker(ctx, id); err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}

// Summarize rolls results up into a Summary.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == "success" {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// FormatSummary renders a summary as indented JSON for tool responses.
func FormatSummary(results []Result) string {
	data, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(data)
}
