package hilo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/singleflight"
)

var log = logger.GetLogger("hilo")

const (
	// DefaultCapacity is the size of the first range a generator asks for.
	DefaultCapacity int64 = 32
	// DefaultMaxCapacity caps the doubling of the range size.
	DefaultMaxCapacity int64 = 1 << 20
	// DefaultSeparator is placed between the collection tag and the numeric part.
	DefaultSeparator = "/"
	// DefaultMaxConflictRetries bounds how often one fetch retries after a token conflict.
	DefaultMaxConflictRetries = 10
	// DefaultConflictBackoff is the first pause between conflict retries, it grows exponentially.
	DefaultConflictBackoff = 10 * time.Millisecond

	maxConflictBackoff = time.Second

	fetchKey = "range"
)

// Options configure a generator.
type Options struct {
	// Capacity is the size of the first range. Every later fetch caused by an exhausted range doubles it.
	Capacity int64
	// MaxCapacity is the upper bound for the doubling.
	MaxCapacity int64
	// Separator is sent to the server, which builds the ID prefix from it.
	Separator string
	// MaxConflictRetries bounds the retries of one fetch after token conflicts. Zero means the default.
	MaxConflictRetries int
	// ConflictBackoff is the initial pause between conflict retries. Zero means the default.
	ConflictBackoff time.Duration
}

// DefaultOptions returns the default generator options.
func DefaultOptions() *Options {
	return &Options{
		Capacity:    DefaultCapacity,
		MaxCapacity: DefaultMaxCapacity,
		Separator:   DefaultSeparator,

		MaxConflictRetries: DefaultMaxConflictRetries,
		ConflictBackoff:    DefaultConflictBackoff,
	}
}

// validate checks the options and fills zero conflict settings with the defaults.
func (o *Options) validate() error {
	if o.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidArgument, o.Capacity)
	}
	if o.MaxCapacity < o.Capacity {
		return fmt.Errorf("%w: max capacity %d is below capacity %d", ErrInvalidArgument, o.MaxCapacity, o.Capacity)
	}
	if o.Separator == "" {
		return fmt.Errorf("%w: separator must not be empty", ErrInvalidArgument)
	}
	if o.MaxConflictRetries < 0 {
		return fmt.Errorf("%w: max conflict retries must not be negative, got %d", ErrInvalidArgument, o.MaxConflictRetries)
	}
	if o.ConflictBackoff < 0 {
		return fmt.Errorf("%w: conflict backoff must not be negative, got %s", ErrInvalidArgument, o.ConflictBackoff)
	}
	if o.MaxConflictRetries == 0 {
		o.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if o.ConflictBackoff == 0 {
		o.ConflictBackoff = DefaultConflictBackoff
	}
	return nil
}

// resolveOptions copies opts, or the defaults if opts is nil, and validates them.
func resolveOptions(opts *Options) (Options, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	err := o.validate()
	return o, err
}

// Generator hands out unique IDs for one collection tag of one database.
//
// IDs are taken from the current range without locking. When the range runs out,
// exactly one request for the next range is sent to the server and every caller
// that needs a value waits for that request.
type Generator struct {
	client   IRangeClient
	database string
	tag      string
	opts     Options
	metrics  *generatorMetrics

	state   atomic.Pointer[rangeState]
	fetches singleflight.Group

	// mu guards the fields below and serializes fetches with returns
	mu          sync.Mutex
	capacity    int64
	lastMax     int64
	token       string
	lastRangeAt time.Time
}

// NewGenerator creates a generator for the given database and collection tag.
// A nil opts uses DefaultOptions.
func NewGenerator(client IRangeClient, database, tag string, opts *Options) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: range client is nil", ErrInvalidArgument)
	}
	if database == "" {
		return nil, fmt.Errorf("%w: database must not be empty", ErrInvalidArgument)
	}
	if tag == "" {
		return nil, fmt.Errorf("%w: collection tag must not be empty", ErrInvalidArgument)
	}
	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return newGenerator(client, database, tag, o), nil
}

// newGenerator expects validated arguments.
func newGenerator(client IRangeClient, database, tag string, opts Options) *Generator {
	return &Generator{
		client:   client,
		database: database,
		tag:      tag,
		opts:     opts,
		metrics:  newGeneratorMetrics(database, tag),
		capacity: opts.Capacity,
	}
}

// Database returns the database the generator belongs to.
func (g *Generator) Database() string { return g.database }

// Tag returns the collection tag.
func (g *Generator) Tag() string { return g.tag }

// Capacity returns the size of the most recently requested range.
func (g *Generator) Capacity() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capacity
}

// Range returns the current range and the value the next call would issue.
// ok is false if the generator holds no range.
func (g *Generator) Range() (value RangeValue, next int64, ok bool) {
	s := g.state.Load()
	if s == nil {
		return RangeValue{}, 0, false
	}
	return s.value, s.next(), true
}

// NextID returns the next unique value.
// Network errors of the range fetch are returned to every caller waiting on it.
func (g *Generator) NextID(ctx context.Context) (int64, error) {
	id, _, err := g.next(ctx)
	return id, err
}

// GenerateDocumentID returns the next document ID, e.g. "users/65-A".
func (g *Generator) GenerateDocumentID(ctx context.Context) (string, error) {
	id, s, err := g.next(ctx)
	if err != nil {
		return "", err
	}
	return s.documentID(id), nil
}

func (g *Generator) next(ctx context.Context) (int64, *rangeState, error) {
	for {
		s := g.state.Load()
		if s != nil {
			if id, ok := s.take(); ok {
				g.metrics.issued.Inc()
				return id, s, nil
			}
		}
		if err := g.awaitRange(ctx, s); err != nil {
			return 0, nil, err
		}
	}
}

// awaitRange joins the pending fetch or starts one.
// The fetch itself is not bound to the caller's context, so one caller giving up
// does not fail the others. Each caller still stops waiting when its own context ends.
func (g *Generator) awaitRange(ctx context.Context, observed *rangeState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	detached := context.WithoutCancel(ctx)
	ch := g.fetches.DoChan(fetchKey, func() (interface{}, error) {
		return nil, g.fetchRange(detached, observed)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchRange replaces the observed range with a new one from the server.
func (g *Generator) fetchRange(ctx context.Context, observed *rangeState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// someone installed a fresh range after the caller looked
	if cur := g.state.Load(); cur != nil && cur != observed && !cur.exhausted() {
		return nil
	}

	capacity := g.capacity
	if observed != nil {
		capacity = min(capacity*2, g.opts.MaxCapacity)
	}

	req := NextRangeRequest{
		Tag:         g.tag,
		Capacity:    capacity,
		LastMax:     g.lastMax,
		LastToken:   g.token,
		LastRangeAt: g.lastRangeAt,
		Separator:   g.opts.Separator,
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.opts.ConflictBackoff
	exp.MaxInterval = maxConflictBackoff
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.opts.MaxConflictRetries)), ctx)

	var grant RangeGrant
	conflicts := 0
	err := backoff.Retry(func() error {
		var err error
		grant, err = g.client.NextRange(ctx, g.database, req)

		var conflict *ConflictError
		if errors.As(err, &conflict) {
			if conflict.Token == req.LastToken {
				return backoff.Permanent(fmt.Errorf("server rejected its own token %q for %s/%s: %w", conflict.Token, g.database, g.tag, err))
			}
			conflicts++
			g.metrics.conflicts.Inc()
			log.Debugf("counter of %s/%s changed (server max %d), retrying with fresh token", g.database, g.tag, conflict.Max)
			req.LastToken = conflict.Token
			req.LastMax = max(req.LastMax, conflict.Max)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, b)

	// the floor only grows, so the observed state is kept even if the fetch fails
	g.lastMax = req.LastMax
	g.token = req.LastToken

	if err != nil {
		if errors.Is(err, ErrConflict) && conflicts > g.opts.MaxConflictRetries {
			log.Warningf("giving up on %s/%s after %d conflicts in a row", g.database, g.tag, conflicts)
			return fmt.Errorf("%w: counter of %s/%s changed %d times in a row: %w", ErrTooManyConflicts, g.database, g.tag, conflicts, err)
		}
		return err
	}

	if grant.Range.IsEmpty() || grant.Range.Low <= req.LastMax {
		return fmt.Errorf("%w: got [%d, %d] for %s/%s with floor %d",
			ErrInvalidRange, grant.Range.Low, grant.Range.High, g.database, g.tag, req.LastMax)
	}

	prefix := grant.Prefix
	if prefix == "" {
		prefix = g.tag + g.opts.Separator
	}

	g.capacity = capacity
	g.lastMax = grant.Range.High
	g.token = grant.Token
	g.lastRangeAt = grant.RangeAt
	g.state.Store(newRangeState(grant.Range, prefix, grant.ServerTag))
	g.metrics.fetched.Inc()

	log.Debugf("fetched range [%d, %d] for %s/%s", grant.Range.Low, grant.Range.High, g.database, g.tag)
	return nil
}

// ReturnUnusedRange hands the unissued tail of the current range back to the server.
// After it the generator no longer issues from that range. It is a no-op when no
// values are left. A later NextID fetches a new range.
func (g *Generator) ReturnUnusedRange(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.state.Swap(nil)
	if s == nil {
		return nil
	}
	unused, ok := s.close()
	if !ok {
		return nil
	}

	err := g.client.ReturnRange(ctx, g.database, ReturnRangeRequest{
		Tag:         g.tag,
		Low:         unused.Low,
		High:        unused.High,
		LastRangeAt: g.lastRangeAt,
	})
	if err != nil {
		return fmt.Errorf("failed to return range [%d, %d] of %s/%s: %w", unused.Low, unused.High, g.database, g.tag, err)
	}

	g.lastMax = unused.Low - 1
	g.token = ""
	g.metrics.returned.Inc()
	log.Debugf("returned range [%d, %d] of %s/%s", unused.Low, unused.High, g.database, g.tag)
	return nil
}
