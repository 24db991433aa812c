// Package batch drives a list of addresses through the geocoder one at a
// time, backing off on rate limits and checkpointing the accumulated results.
package batch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-geocode/internal/cache"
	"github.com/sells-group/census-geocode/internal/metrics"
	"github.com/sells-group/census-geocode/internal/resilience"
	"github.com/sells-group/census-geocode/pkg/geocode"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultBackoff            = 30 * time.Minute
	DefaultProgressInterval   = 1000
	DefaultCheckpointInterval = 10000
	DefaultExpectedStateCode  = "36"
	BackupSuffix              = "_bak"
)

// Sink persists the full result set to a path, replacing what was there.
type Sink interface {
	Write(path string, results []geocode.Result) error
}

// Options configures a Runner.
type Options struct {
	OutputPath         string
	BackupPath         string // defaults to OutputPath + "_bak"
	Backoff            time.Duration
	ProgressInterval   int
	CheckpointInterval int
	ExpectedStateCode  string
}

// Option customizes optional Runner collaborators.
type Option func(*Runner)

// WithCache consults c before each request and stores finished results in it.
func WithCache(c cache.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithSleeper replaces the wall-clock sleeper used for rate-limit backoff.
func WithSleeper(s resilience.Sleeper) Option {
	return func(r *Runner) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// WithMetrics records per-address outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// Runner processes addresses sequentially. It is not safe for concurrent use.
type Runner struct {
	client  geocode.Client
	sink    Sink
	cache   cache.Cache
	sleeper resilience.Sleeper
	metrics *metrics.Metrics
	log     *zap.Logger
	opts    Options
}

// New validates opts, fills defaults, and returns a Runner.
func New(client geocode.Client, sink Sink, opts Options, options ...Option) (*Runner, error) {
	if client == nil {
		return nil, eris.New("batch: geocode client is required")
	}
	if sink == nil {
		return nil, eris.New("batch: output sink is required")
	}
	if opts.OutputPath == "" {
		return nil, eris.New("batch: output path is required")
	}
	if opts.BackupPath == "" {
		opts.BackupPath = opts.OutputPath + BackupSuffix
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.ExpectedStateCode == "" {
		opts.ExpectedStateCode = DefaultExpectedStateCode
	}

	r := &Runner{
		client:  client,
		sink:    sink,
		sleeper: resilience.TimerSleeper{},
		log:     zap.NewNop(),
		opts:    opts,
	}
	for _, o := range options {
		o(r)
	}
	return r, nil
}

// Options returns the effective options after defaults.
func (r *Runner) Options() Options {
	return r.opts
}

// Run geocodes addresses in order and writes the result set to the output
// path. Addresses that fail are skipped and never retried; rate-limited
// addresses are retried after the backoff until they succeed.
//
// If ctx is cancelled the results gathered so far are written to the backup
// path and ctx's error is returned.
func (r *Runner) Run(ctx context.Context, addresses []string) ([]geocode.Result, Summary, error) {
	start := time.Now()
	total := len(addresses)
	results := make([]geocode.Result, 0, total)
	sum := Summary{Total: total}

	r.log.Info("batch: started",
		zap.Int("total", total),
		zap.String("output", r.opts.OutputPath),
		zap.String("backup", r.opts.BackupPath),
	)
	if r.metrics != nil {
		r.metrics.Pending.Set(float64(total))
	}

	for i, address := range addresses {
		res, err := r.process(ctx, i, address, &sum)
		if err != nil {
			sum.Elapsed = time.Since(start)
			r.interrupt(results, err)
			return results, sum, err
		}
		if r.metrics != nil {
			r.metrics.Pending.Dec()
		}
		if res == nil {
			continue
		}

		r.checkRegion(res, &sum)
		results = append(results, *res)
		sum.Done++
		if r.metrics != nil {
			r.metrics.Addresses.WithLabelValues(Done.String()).Inc()
		}

		if err := r.afterAppend(results, total); err != nil {
			sum.Elapsed = time.Since(start)
			return results, sum, err
		}
	}

	if err := r.sink.Write(r.opts.OutputPath, results); err != nil {
		sum.Elapsed = time.Since(start)
		return results, sum, eris.Wrapf(err, "batch: write output %s", r.opts.OutputPath)
	}

	sum.Elapsed = time.Since(start)
	r.log.Info("batch: complete",
		zap.Int("total", sum.Total),
		zap.Int("done", sum.Done),
		zap.Int("skipped", sum.Skipped),
		zap.Int("rate_limited", sum.RateLimited),
		zap.Int("cache_hits", sum.CacheHits),
		zap.Int("region_mismatches", sum.RegionMismatches),
		zap.Duration("elapsed", sum.Elapsed),
		zap.String("output", r.opts.OutputPath),
	)
	return results, sum, nil
}

// process moves one address from Pending to Done or Skipped. It returns a nil
// result for Skipped and a non-nil error only when ctx is done.
func (r *Runner) process(ctx context.Context, idx int, address string, sum *Summary) (*geocode.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res := r.cached(ctx, idx, address); res != nil {
		sum.CacheHits++
		return res, nil
	}

	for {
		r.transition(idx, address, InFlight)

		reqStart := time.Now()
		res, err := r.client.Geocode(ctx, address)
		if r.metrics != nil {
			r.metrics.RequestDuration.Observe(time.Since(reqStart).Seconds())
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.log.Error("batch: geocode failed, skipping address",
				zap.Int("index", idx),
				zap.String("address", address),
				zap.Bool("transient", resilience.IsTransient(err)),
				zap.Error(err),
			)
			sum.Skipped++
			if r.metrics != nil {
				r.metrics.Addresses.WithLabelValues(Skipped.String()).Inc()
			}
			return nil, nil
		}

		if rateLimited(res) {
			sum.RateLimited++
			if r.metrics != nil {
				r.metrics.RateLimited.Inc()
			}
			r.transition(idx, address, RateLimited)
			r.log.Warn("batch: rate limited, backing off",
				zap.Int("index", idx),
				zap.String("address", address),
				zap.Duration("backoff", r.opts.Backoff),
			)
			if err := r.sleeper.Sleep(ctx, r.opts.Backoff); err != nil {
				return nil, err
			}
			continue
		}

		r.store(ctx, res)
		return res, nil
	}
}

// rateLimited reports the service's throttling signal: a match that came back
// without a state code.
func rateLimited(res *geocode.Result) bool {
	return res.Matched() && res.StateCode() == ""
}

func (r *Runner) cached(ctx context.Context, idx int, address string) *geocode.Result {
	if r.cache == nil {
		return nil
	}
	res, ok, err := r.cache.Get(ctx, address)
	if err != nil {
		r.log.Warn("batch: cache lookup failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	if r.metrics != nil {
		r.metrics.CacheHits.Inc()
	}
	r.log.Debug("batch: cache hit", zap.Int("index", idx), zap.String("address", address))
	return res
}

func (r *Runner) store(ctx context.Context, res *geocode.Result) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, res); err != nil {
		r.log.Warn("batch: cache store failed", zap.String("address", res.InputAddress), zap.Error(err))
	}
}

// checkRegion warns when a result falls outside the expected state. Unmatched
// results carry no state code and are reported too.
func (r *Runner) checkRegion(res *geocode.Result, sum *Summary) {
	if res.StateCode() == r.opts.ExpectedStateCode {
		return
	}
	sum.RegionMismatches++
	if r.metrics != nil {
		r.metrics.RegionMismatch.Inc()
	}
	r.log.Warn("batch: result outside expected region",
		zap.String("address", res.InputAddress),
		zap.String("state_code", res.StateCode()),
		zap.String("expected_state_code", r.opts.ExpectedStateCode),
	)
}

// afterAppend runs the checkpoint and progress hooks for the new length.
func (r *Runner) afterAppend(results []geocode.Result, total int) error {
	n := len(results)
	if n%r.opts.CheckpointInterval == 0 {
		if err := r.sink.Write(r.opts.BackupPath, results); err != nil {
			return eris.Wrapf(err, "batch: write checkpoint %s", r.opts.BackupPath)
		}
		r.log.Info("batch: checkpoint written", zap.Int("rows", n), zap.String("path", r.opts.BackupPath))
	}
	if n%r.opts.ProgressInterval == 0 {
		r.log.Info("batch: progress", zap.Int("completed", n), zap.Int("total", total))
	}
	return nil
}

// interrupt saves partial results after cancellation.
func (r *Runner) interrupt(results []geocode.Result, cause error) {
	r.log.Warn("batch: interrupted, writing backup",
		zap.Int("rows", len(results)),
		zap.String("path", r.opts.BackupPath),
		zap.Error(cause),
	)
	if err := r.sink.Write(r.opts.BackupPath, results); err != nil {
		r.log.Error("batch: write backup after interrupt", zap.Error(err))
	}
}

func (r *Runner) transition(idx int, address string, s State) {
	if ce := r.log.Check(zap.DebugLevel, "batch: state"); ce != nil {
		ce.Write(zap.Int("index", idx), zap.String("address", address), zap.Stringer("state", s))
	}
}
