package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/emailzen/emailzen/internal/address"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/retry"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/storage"
)

// ErrAborted signals a user-cancelled analysis. It is a neutral
// outcome, not a failure.
var ErrAborted = errors.New("analysis aborted")

// Defaults for Options zero values.
const (
	DefaultMinTotal   = 2
	DefaultMaxResults = 20
	DefaultPageLimit  = 5
)

const (
	listPageSize = 100

	scanBatchSize     = 10
	messagePause      = 200 * time.Millisecond
	batchPause        = 500 * time.Millisecond
	rateLimitCooldown = 5 * time.Second
)

// Progress reports scan advancement. Returning false aborts the
// analysis after the current unit of work.
type Progress func(processed, total int, stage string) bool

// Options tunes a Run. Zero values take the defaults; a nil Progress
// disables reporting.
type Options struct {
	MinTotal   int
	MaxResults int
	PageLimit  int
	Progress   Progress
}

func (o Options) withDefaults() Options {
	if o.MinTotal <= 0 {
		o.MinTotal = DefaultMinTotal
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.PageLimit <= 0 {
		o.PageLimit = DefaultPageLimit
	}
	return o
}

// Suggestion is one recommended rule target. Field names match the
// extension's stored suggestion schema.
type Suggestion struct {
	Domain         string   `json:"dominio"`
	FullDomain     string   `json:"dominioCompleto"`
	Count          int64    `json:"quantidade"`
	Percent        float64  `json:"porcentagem"`
	HasSubdomains  bool     `json:"temSubdominios"`
	Subdomains     []string `json:"subdominios,omitempty"`
	SuggestedLabel string   `json:"sugestaoLabel"`
}

// Analyzer scans the mailbox for ungoverned frequent senders.
type Analyzer struct {
	svc    gmail.Service
	rules  *rules.Store
	store  storage.Store
	logger *slog.Logger

	// Pacing, overridable in tests.
	messagePause time.Duration
	batchPause   time.Duration
	cooldown     time.Duration
}

// New wires an Analyzer.
func New(svc gmail.Service, ruleStore *rules.Store, store storage.Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		svc:          svc,
		rules:        ruleStore,
		store:        store,
		logger:       logger,
		messagePause: messagePause,
		batchPause:   batchPause,
		cooldown:     rateLimitCooldown,
	}
}

// senderStats aggregates what was seen for one root domain.
type senderStats struct {
	root        string
	unread      int64
	total       int64
	lastID      string
	fullDomains map[string]int64
}

// Run executes one full analysis and caches the resulting suggestions.
func (a *Analyzer) Run(ctx context.Context, opts Options) ([]Suggestion, error) {
	opts = opts.withDefaults()

	a.logger.InfoContext(ctx, "sender analysis started")

	ids, err := a.listUnread(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		a.logger.InfoContext(ctx, "no unread messages to analyze")
		return nil, a.cache(nil)
	}

	bySender, err := a.scan(ctx, ids, opts)
	if err != nil {
		return nil, err
	}

	governed, err := a.governedDomains()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	if err := a.fillTotals(ctx, bySender, governed); err != nil {
		return nil, err
	}

	if !a.report(opts, len(ids), len(ids), "ranking") {
		return nil, ErrAborted
	}

	suggestions := rank(bySender, governed, len(ids), opts)

	a.logger.InfoContext(ctx, "sender analysis finished", logging.Count(len(suggestions)))
	return suggestions, a.cache(suggestions)
}

// Cached returns the suggestions from the last completed run.
func (a *Analyzer) Cached() ([]Suggestion, error) {
	var suggestions []Suggestion
	if _, err := a.store.Get(storage.KeySuggestions, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Clear discards cached suggestions.
func (a *Analyzer) Clear() error {
	return a.store.Remove(storage.KeySuggestions, storage.KeySuggestionsStamp)
}

func (a *Analyzer) cache(suggestions []Suggestion) error {
	if err := a.store.Set(storage.KeySuggestions, suggestions); err != nil {
		return fmt.Errorf("failed to cache suggestions: %w", err)
	}
	return a.store.Set(storage.KeySuggestionsStamp, time.Now().UnixMilli())
}

// listUnread pages through the unread inbox up to the page limit.
func (a *Analyzer) listUnread(ctx context.Context, opts Options) ([]string, error) {
	var ids []string
	pageToken := ""
	for page := 0; page < opts.PageLimit; page++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrAborted
		}
		res, err := a.svc.ListMessages(ctx, "in:inbox is:unread", pageToken, listPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list inbox: %w", err)
		}
		ids = append(ids, res.IDs...)
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	return ids, nil
}

// scan fetches each message's From header and aggregates counts by root
// domain, pacing itself and reporting progress once per batch.
func (a *Analyzer) scan(ctx context.Context, ids []string, opts Options) (map[string]*senderStats, error) {
	bySender := make(map[string]*senderStats)

	for start := 0; start < len(ids); start += scanBatchSize {
		end := min(start+scanBatchSize, len(ids))

		for _, id := range ids[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, ErrAborted
			}
			a.scanMessage(ctx, id, bySender)
			if err := retry.Sleep(ctx, a.messagePause); err != nil {
				return nil, ErrAborted
			}
		}

		if !a.report(opts, end, len(ids), "scanning") {
			return nil, ErrAborted
		}
		if end < len(ids) {
			if err := retry.Sleep(ctx, a.batchPause); err != nil {
				return nil, ErrAborted
			}
		}
	}

	return bySender, nil
}

func (a *Analyzer) scanMessage(ctx context.Context, id string, bySender map[string]*senderStats) {
	msg, err := a.getWithCooldown(ctx, id)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to fetch message during analysis",
			logging.MessageID(id), logging.Err(err))
		return
	}

	full := address.ExtractDomain(msg.From, false)
	if full == "" {
		a.logger.DebugContext(ctx, "could not extract sender domain", logging.MessageID(id))
		return
	}
	root := address.RootDomain(full)

	stats := bySender[root]
	if stats == nil {
		stats = &senderStats{root: root, fullDomains: map[string]int64{}}
		bySender[root] = stats
	}
	stats.unread++
	stats.fullDomains[full]++
	if id > stats.lastID {
		stats.lastID = id
	}
}

// getWithCooldown retries one 429 after a fixed cooldown; rate limits
// mid-scan are an expected condition, not a failure.
func (a *Analyzer) getWithCooldown(ctx context.Context, id string) (gmail.Message, error) {
	msg, err := a.svc.GetMessage(ctx, id)
	if err == nil || gmail.StatusOf(err) != 429 {
		return msg, err
	}

	a.logger.WarnContext(ctx, "rate limited during analysis, cooling down",
		slog.Duration("cooldown", a.cooldown))
	if serr := retry.Sleep(ctx, a.cooldown); serr != nil {
		return gmail.Message{}, serr
	}
	return a.svc.GetMessage(ctx, id)
}

// governedDomains collects the domains and root domains already covered
// by active rules' sender conditions.
func (a *Analyzer) governedDomains() (map[string]bool, error) {
	active, err := a.rules.ListActive()
	if err != nil {
		return nil, err
	}

	governed := make(map[string]bool)
	add := func(domain string) {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			return
		}
		governed[domain] = true
		governed[address.RootDomain(domain)] = true
	}

	for _, rule := range active {
		for _, entry := range rule.Conditions.Senders {
			entry = strings.TrimSpace(entry)
			switch {
			case strings.HasPrefix(entry, "@"):
				add(entry[1:])
			case strings.Contains(entry, "@"):
				if at := strings.LastIndex(entry, "@"); at < len(entry)-1 {
					add(entry[at+1:])
				}
			default:
				add(entry)
			}
		}
	}
	return governed, nil
}

// fillTotals estimates the total (read plus unread) count per ungoverned
// sender with one bounded query each. Governed senders keep the unread
// count, saving the extra quota; errors fall back to it too.
func (a *Analyzer) fillTotals(ctx context.Context, bySender map[string]*senderStats, governed map[string]bool) error {
	for root, stats := range bySender {
		stats.total = stats.unread
		if governed[root] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return ErrAborted
		}

		page, err := a.svc.ListMessages(ctx, "in:inbox from:"+root, "", 1)
		if err != nil {
			a.logger.WarnContext(ctx, "failed to estimate sender total",
				slog.String(logging.KeyDomain, root), logging.Err(err))
			continue
		}
		if page.SizeEstimate > stats.unread {
			stats.total = page.SizeEstimate
		}
	}
	return nil
}

// rank filters, orders and shapes the aggregated senders into
// suggestions.
func rank(bySender map[string]*senderStats, governed map[string]bool, sampleSize int, opts Options) []Suggestion {
	kept := make([]*senderStats, 0, len(bySender))
	for root, stats := range bySender {
		if governed[root] || stats.total < int64(opts.MinTotal) {
			continue
		}
		kept = append(kept, stats)
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].total != kept[j].total {
			return kept[i].total > kept[j].total
		}
		return kept[i].root < kept[j].root
	})
	if len(kept) > opts.MaxResults {
		kept = kept[:opts.MaxResults]
	}

	suggestions := make([]Suggestion, 0, len(kept))
	for _, stats := range kept {
		suggestions = append(suggestions, toSuggestion(stats, sampleSize))
	}
	return suggestions
}

func toSuggestion(stats *senderStats, sampleSize int) Suggestion {
	s := Suggestion{
		Domain:         stats.root,
		FullDomain:     dominantDomain(stats.fullDomains),
		Count:          stats.total,
		SuggestedLabel: suggestLabel(stats.root),
	}
	if sampleSize > 0 {
		s.Percent = math.Round(float64(stats.unread)/float64(sampleSize)*1000) / 10
	}
	if len(stats.fullDomains) > 1 {
		s.HasSubdomains = true
		s.Subdomains = sortedDomains(stats.fullDomains)
	}
	return s
}

// dominantDomain picks the most frequent full domain as the example,
// ties broken alphabetically.
func dominantDomain(counts map[string]int64) string {
	best := ""
	var bestCount int64 = -1
	for domain, count := range counts {
		if count > bestCount || (count == bestCount && domain < best) {
			best = domain
			bestCount = count
		}
	}
	return best
}

func sortedDomains(counts map[string]int64) []string {
	out := make([]string, 0, len(counts))
	for domain := range counts {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// suggestLabel derives a label name from a root domain: "shop.com"
// becomes "Shop".
func suggestLabel(root string) string {
	name, _, _ := strings.Cut(root, ".")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (a *Analyzer) report(opts Options, processed, total int, stage string) bool {
	if opts.Progress == nil {
		return true
	}
	return opts.Progress(processed, total, stage)
}
