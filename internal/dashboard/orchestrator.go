package dashboard

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	// DefaultTimeout bounds a whole fetch, request and aggregation included.
	DefaultTimeout = 15 * time.Second

	statusReady  = "Ready"
	statusFailed = "Error occurred"

	taskQueueSize = 64
)

var (
	// ErrSuperseded resolves a fetch whose result was dropped because a newer
	// fetch was started before it completed.
	ErrSuperseded = errors.New("superseded by a newer fetch")
	// ErrStopped resolves fetches issued to, or still running in, a stopped orchestrator.
	ErrStopped = errors.New("dashboard stopped")
)

// Result is the outcome of one Get call.
type Result struct {
	Query string
	Model *weather.PresentationModel
	Err   error
}

// History receives every applied model.
type History interface {
	Save(m *weather.PresentationModel)
}

// Options configures an Orchestrator. Zero values are valid.
type Options struct {
	Timeout time.Duration
	History History

	// OnBusy and OnStatus run on the event loop on every change.
	OnBusy   func(busy bool)
	OnStatus func(text string)
}

// Orchestrator runs forecast fetches in the background and applies their
// results on a single event loop, which is the only writer of the current
// model, the busy flag and the status text.
//
// Fetches may overlap. Only the most recently started one may update the
// current model; older completions resolve with ErrSuperseded.
type Orchestrator struct {
	source weather.ForecastSource
	opts   Options
	now    func() time.Time

	tasks chan func()
	// stopping wakes posters blocked on a full queue; stopped, guarded by
	// mu, tells them the queue will not be drained again.
	stopping chan struct{}
	mu       sync.RWMutex
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc

	latest atomic.Uint64

	busy     atomic.Bool
	status   atomic.Value // string
	selected atomic.Value // string
	current  atomic.Pointer[weather.PresentationModel]
}

// New creates an Orchestrator. Run must be running for Get to make progress.
func New(source weather.ForecastSource, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		source:   source,
		opts:     opts,
		now:      time.Now,
		tasks:    make(chan func(), taskQueueSize),
		stopping: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	o.status.Store(statusReady)
	o.selected.Store("")
	return o
}

// Run executes loop tasks until ctx is done. It must be called once.
// Fetches still in flight when it returns are canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.cancel()

	for {
		select {
		case <-ctx.Done():
			close(o.stopping)
			o.mu.Lock()
			o.stopped = true
			o.mu.Unlock()
			// No post can enqueue past this point; resolve what is queued.
			for {
				select {
				case task := <-o.tasks:
					task()
				default:
					return ctx.Err()
				}
			}
		case task := <-o.tasks:
			task()
		}
	}
}

// Get starts a fetch for a user query such as "London, GB". The returned
// channel receives exactly one Result once the outcome has been applied.
func (o *Orchestrator) Get(query string) <-chan Result {
	out := make(chan Result, 1)

	query = strings.TrimSpace(query)
	if query == "" {
		out <- Result{Err: weather.NewFetchError(weather.ErrEmptyQuery, query, nil)}
		return out
	}

	gen := o.latest.Add(1)
	id := uuid.NewString()

	if !o.post(func() { o.begin(gen, query) }) {
		out <- Result{Query: query, Err: ErrStopped}
		return out
	}

	go o.fetch(gen, id, query, out)
	return out
}

// Refresh re-fetches the city of the current model. It does nothing before
// the first successful fetch.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	city := o.Selected()
	if city == "" {
		return nil
	}
	select {
	case res := <-o.Get(city):
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Announce replaces the status text, e.g. with catalog or export progress.
func (o *Orchestrator) Announce(text string) {
	o.post(func() { o.setStatus(text) })
}

// Current returns the last applied model, or nil before the first success.
// The model is shared and must be treated as read-only.
func (o *Orchestrator) Current() *weather.PresentationModel {
	return o.current.Load()
}

// Busy reports whether the latest started fetch is still in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Status returns the current status text.
func (o *Orchestrator) Status() string {
	return o.status.Load().(string)
}

// Selected returns the display key of the current model, or "".
func (o *Orchestrator) Selected() string {
	return o.selected.Load().(string)
}

func (o *Orchestrator) post(task func()) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.stopped {
		return false
	}
	select {
	case o.tasks <- task:
		return true
	case <-o.stopping:
		return false
	}
}

func (o *Orchestrator) fetch(gen uint64, id, query string, out chan<- Result) {
	ctx, cancel := context.WithTimeout(o.ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	model, err := o.load(ctx, id, query)
	if err != nil {
		log.Printf("DEBUG: %s fetch %s for %q failed after %s: %v", o.source.Name(), id, query, time.Since(start), err)
	} else {
		log.Printf("DEBUG: %s fetch %s for %q done in %s", o.source.Name(), id, query, time.Since(start))
	}

	if !o.post(func() { o.complete(gen, query, model, err, out) }) {
		out <- Result{Query: query, Err: ErrStopped}
	}
}

func (o *Orchestrator) load(ctx context.Context, id, query string) (*weather.PresentationModel, error) {
	payload, err := o.source.FetchForecast(ctx, weather.UpstreamQuery(query))
	if err != nil {
		var fe *weather.FetchError
		switch {
		case errors.As(err, &fe):
		case errors.Is(err, context.DeadlineExceeded):
			err = weather.NewFetchError(weather.ErrNetwork, query, errors.Join(weather.ErrTimeout, err))
		default:
			err = weather.NewFetchError(weather.ErrNetwork, query, err)
		}
		return nil, err
	}

	model, err := weather.Aggregate(payload, query, o.now())
	if err != nil {
		return nil, err
	}
	model.FetchID = id
	return model, nil
}

// begin runs on the loop.
func (o *Orchestrator) begin(gen uint64, query string) {
	if gen != o.latest.Load() {
		return
	}
	o.setStatus("Getting weather data for " + query + "...")
	o.setBusy(true)
}

// complete runs on the loop and is the only place the current model changes.
func (o *Orchestrator) complete(gen uint64, query string, model *weather.PresentationModel, err error, out chan<- Result) {
	if gen != o.latest.Load() {
		log.Printf("INFO: dropping stale result for %q", query)
		out <- Result{Query: query, Err: ErrSuperseded}
		return
	}

	o.setBusy(false)

	if err != nil {
		if errors.Is(err, weather.ErrNotFound) {
			o.setStatus(statusReady)
		} else {
			o.setStatus(statusFailed)
		}
		out <- Result{Query: query, Err: err}
		return
	}

	o.current.Store(model)
	o.selected.Store(query)
	if o.opts.History != nil {
		o.opts.History.Save(model)
	}
	o.setStatus("Weather data loaded for " + query)

	out <- Result{Query: query, Model: model}
}

func (o *Orchestrator) setBusy(busy bool) {
	if o.busy.Swap(busy) == busy {
		return
	}
	if o.opts.OnBusy != nil {
		o.opts.OnBusy(busy)
	}
}

func (o *Orchestrator) setStatus(text string) {
	o.status.Store(text)
	if o.opts.OnStatus != nil {
		o.opts.OnStatus(text)
	}
}
