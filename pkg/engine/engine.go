package engine

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/entrhq/waypoint/pkg/logging"
	"github.com/entrhq/waypoint/pkg/safety"
)

// Execution defaults.
const (
	// DefaultScrollStep is the fixed-magnitude offset one logical scroll
	// moves the viewport by.
	DefaultScrollStep = 500.0

	// DefaultRetryDelay is the settle time between the scroll-and-retry
	// scroll and the second resolution pass.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultWaitDelay is the pause for wait actions with no explicit
	// duration.
	DefaultWaitDelay = 500 * time.Millisecond

	// Overlay durations. The click ripple grows then fades; the outline
	// highlight holds for its whole duration. Overlays are always removed.
	DefaultRippleGrow      = 300 * time.Millisecond
	DefaultRippleFade      = 300 * time.Millisecond
	DefaultOutlineDuration = 900 * time.Millisecond

	// DefaultScrapeLimit caps scrape output.
	DefaultScrapeLimit = 10000

	// resolutionCacheSize bounds the descriptor → scope-path cache.
	resolutionCacheSize = 128
)

// Options configures an Engine. Zero values take the defaults above.
type Options struct {
	FloorConfidence float64
	ScrollStep      float64
	RetryDelay      time.Duration
	WaitDelay       time.Duration
	RippleGrow      time.Duration
	RippleFade      time.Duration
	OutlineDuration time.Duration
	ScrapeLimit     int

	// FrameAllow and FrameDeny are glob patterns gating frame descent by
	// URL during traversal.
	FrameAllow []string
	FrameDeny  []string
}

func (o *Options) applyDefaults() {
	if o.ScrollStep <= 0 {
		o.ScrollStep = DefaultScrollStep
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.WaitDelay <= 0 {
		o.WaitDelay = DefaultWaitDelay
	}
	if o.RippleGrow <= 0 {
		o.RippleGrow = DefaultRippleGrow
	}
	if o.RippleFade <= 0 {
		o.RippleFade = DefaultRippleFade
	}
	if o.OutlineDuration <= 0 {
		o.OutlineDuration = DefaultOutlineDuration
	}
	if o.ScrapeLimit <= 0 {
		o.ScrapeLimit = DefaultScrapeLimit
	}
}

// Engine resolves descriptors and executes actions against a document
// tree. It holds no tree state itself; callers pass the root scope per
// call. The safety registry is injected so every consumer in the hosting
// context observes the same stop flag.
type Engine struct {
	opts     Options
	trav     *Traverser
	registry *safety.Registry
	logger   *logging.Logger

	// paths remembers where a descriptor last resolved so a later action
	// in the same sequence re-enters the same frame first.
	paths *lru.Cache[string, []string]
}

// New builds an engine bound to a safety registry.
func New(registry *safety.Registry, opts Options, logger *logging.Logger) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	opts.applyDefaults()

	trav, err := NewTraverser(opts.FloorConfidence, opts.FrameAllow, opts.FrameDeny, logger)
	if err != nil {
		return nil, err
	}
	paths, err := lru.New[string, []string](resolutionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:     opts,
		trav:     trav,
		registry: registry,
		logger:   logger,
		paths:    paths,
	}, nil
}

// Registry returns the injected safety registry.
func (e *Engine) Registry() *safety.Registry { return e.registry }
