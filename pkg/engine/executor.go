package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/waypoint/pkg/dom"
	"github.com/entrhq/waypoint/pkg/safety"
)

// Execute resolves the descriptor against root and performs its action.
// The returned error is non-nil only for malformed descriptors, before any
// resolution is attempted; every runtime outcome, absence of a match
// included, comes back inside the Result.
func (e *Engine) Execute(ctx context.Context, root dom.Scope, d Descriptor) (Result, error) {
	if err := d.Validate(); err != nil {
		return Result{}, err
	}

	// Every action is gated by the emergency stop before anything else
	// happens, resolution included.
	if e.registry.Stopped() {
		return failure(safety.ErrStopped), nil
	}

	switch d.Action {
	case ActionFinish:
		return Result{Success: true, Finished: true}, nil
	case ActionWait:
		return e.executeWait(ctx, d), nil
	case ActionScroll:
		return e.executeScroll(root, d), nil
	case ActionSummarize:
		return Result{Success: true, Content: Summarize(root).String()}, nil
	case ActionScrape:
		if !d.needsTarget() {
			return Result{Success: true, Content: root.VisibleText(e.opts.ScrapeLimit)}, nil
		}
	}

	res, err := e.resolveTarget(ctx, root, d)
	if err != nil {
		return failure(err), nil
	}
	return e.perform(d, res), nil
}

// resolveTarget runs the cached-path fast path, the full traversal, and the
// single scroll-and-retry pass.
func (e *Engine) resolveTarget(ctx context.Context, root dom.Scope, d Descriptor) (*Resolution, error) {
	key := d.cacheKey()

	var res *Resolution
	var err error
	if path, ok := e.paths.Get(key); ok {
		res, err = e.trav.ResolveAt(d, root, path)
	} else {
		res, err = e.trav.Resolve(d, root)
	}

	if err != nil && errors.Is(err, ErrNotFound) && retryable(d.Action) {
		res, err = e.scrollAndRetry(ctx, root, d, err)
	}
	if err != nil {
		return nil, err
	}

	e.paths.Add(key, res.ScopePath)
	return res, nil
}

func retryable(action ActionKind) bool {
	return action == ActionClick || action == ActionType
}

// scrollAndRetry nudges the root scope one scroll step, lets the page
// settle, and re-runs the partial-text strategies once. The original
// not-found error is returned when the retry also misses, keeping the
// attempted-strategy diagnostics from the full pass.
func (e *Engine) scrollAndRetry(ctx context.Context, root dom.Scope, d Descriptor, notFound error) (*Resolution, error) {
	e.logger.Debugf("no match for %q, scrolling and retrying once", d.Text)
	if err := root.ScrollBy(0, e.opts.ScrollStep); err != nil {
		return nil, notFound
	}
	if err := sleep(ctx, e.registry, e.opts.RetryDelay); err != nil {
		return nil, err
	}
	res, err := e.trav.ResolveRetry(d, root)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return res, nil
}

// perform applies the resolved action and attaches the resolution metadata
// to the result.
func (e *Engine) perform(d Descriptor, res *Resolution) Result {
	// State may have changed between resolution and execution; re-check
	// the stop flag and the node.
	if e.registry.Stopped() {
		return failure(safety.ErrStopped)
	}

	var err error
	switch d.Action {
	case ActionClick:
		err = e.performClick(res)
	case ActionType:
		err = e.performType(res, d.Value)
	case ActionHighlight:
		err = e.performHighlight(res)
	case ActionScrape:
		text := clip(res.Node.Text(), e.opts.ScrapeLimit)
		return e.resolved(d, res, Result{Success: true, Content: text})
	default:
		err = fmt.Errorf("%w: action %q cannot execute on a node", ErrExecution, d.Action)
	}

	if err != nil {
		r := failure(err)
		r.Strategy = res.Strategy
		r.Confidence = res.Confidence
		r.ScopePath = res.ScopePath
		return r
	}
	return e.resolved(d, res, Result{Success: true})
}

func (e *Engine) resolved(d Descriptor, res *Resolution, r Result) Result {
	r.Strategy = res.Strategy
	r.Confidence = res.Confidence
	r.ScopePath = res.ScopePath
	e.logger.Infof("%s via %s (%.2f) at %v", d.Action, res.Strategy, res.Confidence, res.ScopePath)
	return r
}

func (e *Engine) performClick(res *Resolution) error {
	if res.Node.Disabled() {
		return ErrDisabled
	}
	if !Visible(res.Node) {
		return fmt.Errorf("%w: element is no longer visible", ErrExecution)
	}

	e.showOverlay(res.Scope, dom.OverlaySpec{
		Kind:   dom.OverlayRipple,
		Target: res.Node.Box(),
	}, e.opts.RippleGrow+e.opts.RippleFade)

	if err := res.Node.Click(); err != nil {
		return fmt.Errorf("%w: %v", ErrExecution, err)
	}
	return nil
}

func (e *Engine) performType(res *Resolution, value string) error {
	if res.Node.Disabled() {
		return ErrDisabled
	}
	if !Visible(res.Node) {
		return fmt.Errorf("%w: element is no longer visible", ErrExecution)
	}

	e.showOverlay(res.Scope, dom.OverlaySpec{
		Kind:   dom.OverlayOutline,
		Target: res.Node.Box(),
	}, e.opts.OutlineDuration)

	if err := res.Node.SetValue(value); err != nil {
		return fmt.Errorf("%w: %v", ErrExecution, err)
	}
	return nil
}

func (e *Engine) performHighlight(res *Resolution) error {
	e.showOverlay(res.Scope, dom.OverlaySpec{
		Kind:   dom.OverlayOutline,
		Target: res.Node.Box(),
	}, e.opts.OutlineDuration)
	return nil
}

// showOverlay renders a transient acknowledgment and schedules its removal.
// The overlay is owned here; it is removed after its duration no matter
// what the action did. A scope that cannot host overlays doesn't fail the
// action, the acknowledgment is cosmetic.
func (e *Engine) showOverlay(sc dom.Scope, spec dom.OverlaySpec, lifetime time.Duration) {
	remove, err := sc.ShowOverlay(spec)
	if err != nil {
		e.logger.Debugf("overlay not rendered: %v", err)
		return
	}
	time.AfterFunc(lifetime, remove)
}

func (e *Engine) executeWait(ctx context.Context, d Descriptor) Result {
	delay := e.opts.WaitDelay
	if d.WaitMillis > 0 {
		delay = time.Duration(d.WaitMillis) * time.Millisecond
	}
	if err := sleep(ctx, e.registry, delay); err != nil {
		return failure(err)
	}
	return Result{Success: true}
}

func (e *Engine) executeScroll(root dom.Scope, d Descriptor) Result {
	step := e.opts.ScrollStep
	if d.Direction == DirectionUp {
		step = -step
	}
	if err := root.ScrollBy(0, step); err != nil {
		return failure(fmt.Errorf("%w: %v", ErrExecution, err))
	}
	return Result{Success: true}
}
