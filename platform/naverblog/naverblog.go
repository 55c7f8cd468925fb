// Package naverblog implements the Naver blog-tab searcher: it fetches
// the blog search results for a keyword, inspects the top-ranked posts,
// and reports which of the task's target posts appear among them.
package naverblog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/backoff"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/platform"
)

const (
	// DefaultBaseURL is the Naver integrated-search endpoint, blog tab.
	DefaultBaseURL = "https://search.naver.com/search.naver"

	// adRedirectHost serves tracking links that 307 to the real post.
	adRedirectHost = "ader.naver.com"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	defaultTopResults = 10
	defaultAttempts   = 3
)

// errTransient marks fetch failures worth retrying: network errors and
// throttled or failing responses (429, 5xx).
var errTransient = errors.New("transient fetch failure")

// Searcher looks up keywords on the Naver blog tab.
type Searcher struct {
	client   *http.Client
	resolver *http.Client // redirects disabled, reads Location headers
	limiter  *rate.Limiter
	backoff  backoff.Strategy
	baseURL  string
	adHost   string
	topN     int
	attempts int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithHTTPClient replaces the result-page client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) { s.client = c }
}

// WithBaseURL points the searcher at a different search endpoint.
func WithBaseURL(u string) Option {
	return func(s *Searcher) { s.baseURL = u }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Searcher) { s.limiter = l }
}

// WithTopResults sets how many leading results are inspected.
func WithTopResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithAttempts sets how many times a transient fetch failure is tried
// in total before giving up.
func WithAttempts(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithBackoff replaces the retry delay strategy.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *Searcher) { s.backoff = b }
}

// New creates a Searcher. The default limiter allows one request per
// second with a burst of two, which keeps batch runs under Naver's
// abuse threshold.
func New(opts ...Option) *Searcher {
	s := &Searcher{
		client:   &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
		backoff:  backoff.DefaultStrategy(),
		baseURL:  DefaultBaseURL,
		adHost:   adRedirectHost,
		topN:     defaultTopResults,
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = &http.Client{
		Timeout: s.client.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return s
}

// Search fetches the blog tab for the keyword, inspects the top results,
// and matches them against the task's target posts. When a target is
// found, or when in.CaptureAll is set, it writes an annotated capture of
// the inspected results under in.OutputDir.
func (s *Searcher) Search(ctx context.Context, in platform.Input) (domain.SearchResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.SearchResult{}, err
	}

	posts, err := s.fetchTopPosts(ctx, in.Keyword.Text)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("naverblog: search %q: %w", in.Keyword.Text, err)
	}

	targets := make(map[string]struct{}, len(in.Targets))
	for _, t := range in.Targets {
		targets[normalizeURL(t)] = struct{}{}
	}

	var found []domain.Post
	matched := make(map[int]bool, len(posts))
	for i, p := range posts {
		if _, ok := targets[normalizeURL(p.URL)]; ok {
			found = append(found, p)
			matched[i] = true
		}
	}

	res := domain.SearchResult{FoundPosts: found}
	if len(found) > 0 || in.CaptureAll {
		path, err := writeCapture(in, posts, matched)
		if err != nil {
			return domain.SearchResult{}, fmt.Errorf("naverblog: capture %q: %w", in.Keyword.Text, err)
		}
		res.Screenshot = &domain.Screenshot{Path: path}
	}
	return res, nil
}

// fetchTopPosts retries transient failures with backoff; parse errors
// and client bugs fail immediately.
func (s *Searcher) fetchTopPosts(ctx context.Context, keyword string) ([]domain.Post, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff.Delay(attempt)):
			}
		}
		posts, err := s.fetchOnce(ctx, keyword)
		if err == nil {
			return posts, nil
		}
		if !errors.Is(err, errTransient) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Searcher) fetchOnce(ctx context.Context, keyword string) ([]domain.Post, error) {
	q := url.Values{}
	q.Set("ssc", "tab.blog.all")
	q.Set("sm", "tab_jum")
	q.Set("query", keyword)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: search page returned %s", errTransient, resp.Status)
		}
		return nil, fmt.Errorf("search page returned %s", resp.Status)
	}

	posts, err := parsePosts(resp.Body, s.topN)
	if err != nil {
		return nil, err
	}

	for i, p := range posts {
		resolved, err := s.resolveAdLink(ctx, p.URL)
		if err != nil {
			return nil, err
		}
		posts[i].URL = resolved
	}
	return posts, nil
}

// resolveAdLink follows a single ader.naver.com tracking hop and
// returns the Location it points at. Non-ad links pass through.
func (s *Searcher) resolveAdLink(ctx context.Context, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != s.adHost {
		return raw, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.resolver.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return raw, nil
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return raw, nil
	}
	if ref, err := url.Parse(loc); err == nil {
		return resp.Request.URL.ResolveReference(ref).String(), nil
	}
	return loc, nil
}
