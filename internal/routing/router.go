// Package routing builds filter trees from route declarations.
package routing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"labelbus/internal/config"
	"labelbus/internal/constants"
	"labelbus/internal/logger"
	"labelbus/pkg/cel"
	"labelbus/pkg/errors"
	"labelbus/pkg/guard"
	"labelbus/pkg/intercept"
	"labelbus/pkg/logging"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/sink"
	"labelbus/pkg/stream"
)

// Deps are the shared services routes are built with. Zero values get
// defaults.
type Deps struct {
	Logger         logger.Logger
	Evaluator      *cel.Evaluator
	Retry          config.RetryConfig
	CircuitBreaker config.CircuitBreakerConfig
	Stdout         io.Writer
	Stderr         io.Writer
}

// Route is one built filter node and the receivers attached to it.
type Route struct {
	Name      string
	Parent    string
	Stream    *stream.Stream
	Collector *sink.Collector
	Breakers  []*guard.Breaker

	sinks []string
}

// RouteInfo describes a route for inspection.
type RouteInfo struct {
	Name      string   `json:"name"`
	Parent    string   `json:"parent,omitempty"`
	Filter    string   `json:"filter"`
	MinLevel  *int     `json:"min_level,omitempty"`
	Attached  bool     `json:"attached"`
	Receivers int      `json:"receivers"`
	Sinks     []string `json:"sinks"`
	Collected int      `json:"collected,omitempty"`
}

func (r *Route) Info() RouteInfo {
	info := RouteInfo{
		Name:      r.Name,
		Parent:    r.Parent,
		Filter:    r.Stream.String(),
		Attached:  r.Stream.Attached(),
		Receivers: r.Stream.ReceiverCount(),
		Sinks:     append([]string(nil), r.sinks...),
	}
	if level, ok := r.Stream.LogLevel(); ok {
		info.MinLevel = &level
	}
	if r.Collector != nil {
		info.Collected = r.Collector.Len()
	}
	return info
}

type Router struct {
	mu     sync.RWMutex
	routes []*Route
	byName map[string]*Route
	closed bool
}

// Build attaches one filter node per route to root, or to the node of the
// route named as parent. Nothing stays attached when an error is returned.
func Build(root *stream.Stream, routes []config.RouteConfig, deps Deps) (*Router, error) {
	if errs := config.ValidateRoutes(routes); len(errs) > 0 {
		return nil, errors.ErrInvalidFilterConfig.WithCause(joinErrors(errs)).WithMessage("invalid routes")
	}

	deps = withDefaults(deps)
	r := &Router{byName: make(map[string]*Route, len(routes))}

	for _, rc := range routes {
		parent := root
		if rc.Parent != "" {
			parent = r.byName[rc.Parent].Stream
		}

		route, err := buildRoute(parent, rc, deps)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.routes = append(r.routes, route)
		r.byName[route.Name] = route
	}

	metrics.SetActiveRoutes(len(r.routes))
	deps.Logger.Infow("Routes built", "count", len(r.routes))
	return r, nil
}

func withDefaults(deps Deps) Deps {
	if deps.Logger == nil {
		deps.Logger = logger.NopLogger()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return deps
}

func buildRoute(parent *stream.Stream, rc config.RouteConfig, deps Deps) (*Route, error) {
	node, err := newNode(parent, rc.Match, deps)
	if err != nil {
		return nil, errors.ErrInvalidFilterConfig.
			WithCause(err).
			WithDetail("route", rc.Name).
			WithMessage(fmt.Sprintf("invalid route %q", rc.Name))
	}

	if rc.MinLevel != nil {
		node.SetLogLevel(*rc.MinLevel)
	}

	route := &Route{Name: rc.Name, Parent: rc.Parent, Stream: node}
	addInterceptors(node, rc)

	for i, sc := range rc.Sinks {
		receiver, collector := newSink(sc, deps)
		if collector != nil {
			route.Collector = collector
		}

		name := fmt.Sprintf("%s/%s[%d]", rc.Name, sc.Type, i)
		receiver, breaker := applyGuards(name, receiver, rc.Guard, deps)
		if breaker != nil {
			route.Breakers = append(route.Breakers, breaker)
		}

		node.AddReceiver(instrument(rc.Name, receiver))
		route.sinks = append(route.sinks, sc.Type)
	}

	return route, nil
}

func newNode(parent *stream.Stream, m config.MatchConfig, deps Deps) (*stream.Stream, error) {
	switch m.Kind {
	case constants.MatchAll, "":
		return parent.MatchAll(), nil
	case constants.MatchLabels:
		return parent.MatchLabels(normalizeLabels(m.Labels))
	case constants.MatchCondition:
		return parent.MatchCondition(m.Key, m.Operator, Normalize(m.Value))
	case constants.MatchExpression:
		evaluator := deps.Evaluator
		if evaluator == nil {
			var err error
			if evaluator, err = cel.NewEvaluator(); err != nil {
				return nil, err
			}
		}
		return cel.MatchExpression(parent, evaluator, m.Expression, m.OnError)
	default:
		return nil, errors.InvalidFilterConfig("unknown match kind: %s", m.Kind)
	}
}

func addInterceptors(node *stream.Stream, rc config.RouteConfig) {
	ic := rc.Interceptors

	node.AddInterceptor(intercept.Count(rc.Name))

	if ic.RateLimit.Enabled {
		node.AddInterceptor(intercept.RateLimit(rc.Name, intercept.NewLimiter(ic.RateLimit.RPS, ic.RateLimit.Burst)))
	}
	if len(ic.AddLabels) > 0 {
		node.AddInterceptor(intercept.WithLabels(normalizeLabels(ic.AddLabels)))
	}

	replacement := ic.Redact.Replacement
	if replacement == "" {
		replacement = constants.DefaultRedaction
	}
	if len(ic.Redact.Labels) > 0 {
		node.AddInterceptor(intercept.Redact(replacement, ic.Redact.Labels...))
	}
	if ic.Redact.Value {
		node.AddInterceptor(intercept.Redact(replacement))
	}
}

func newSink(sc config.SinkConfig, deps Deps) (stream.Receiver, *sink.Collector) {
	switch sc.Type {
	case constants.SinkLog:
		return sink.Log(deps.Logger), nil
	case constants.SinkJSON:
		if sc.Output == "stderr" {
			return sink.JSON(deps.Stderr), nil
		}
		return sink.JSON(deps.Stdout), nil
	case constants.SinkCollector:
		capacity := sc.Capacity
		if capacity == 0 {
			capacity = constants.DefaultCollectorCapacity
		}
		c := sink.NewCollector(capacity)
		return c.Receive, c
	default:
		return sink.Discard, nil
	}
}

// applyGuards wraps r from the inside out: recover, retry, circuit breaker,
// isolate.
func applyGuards(name string, r stream.Receiver, g config.GuardConfig, deps Deps) (stream.Receiver, *guard.Breaker) {
	if g.Recover {
		r = guard.Recover(r)
	}

	if g.Retry {
		log := deps.Logger
		r = guard.Retry(name, retryPolicy(deps.Retry), r, func(attempt int, err error, next time.Duration) {
			log.Warnw("Retrying receiver", "receiver", name, "attempt", attempt, "next_delay", next, "error", err)
		})
	}

	var breaker *guard.Breaker
	if g.CircuitBreaker {
		breaker = guard.NewBreaker(breakerConfig(name, deps.CircuitBreaker, deps.Logger))
		r = breaker.Wrap(r)
	}

	if g.Isolate {
		r = guard.Isolate(deps.Logger, name, r)
	}
	return r, breaker
}

func instrument(route string, r stream.Receiver) stream.Receiver {
	return func(ctx context.Context, msg *models.Message) error {
		ctx = logging.WithRoute(ctx, route)
		start := time.Now()
		err := r(ctx, msg)
		metrics.ObserveRouteDelivery(route, time.Since(start))
		if err != nil {
			metrics.IncRouteMessages(route, constants.RouteStatusFailed)
			return err
		}
		metrics.IncRouteMessages(route, constants.RouteStatusDelivered)
		return nil
	}
}

// Routes describes every route in declaration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RouteInfo, 0, len(r.routes))
	for _, route := range r.routes {
		infos = append(infos, route.Info())
	}
	return infos
}

func (r *Router) Route(name string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.byName[name]
	return route, ok
}

// Collector returns the collector sink of a route, if it has one.
func (r *Router) Collector(name string) (*sink.Collector, bool) {
	route, ok := r.Route(name)
	if !ok || route.Collector == nil {
		return nil, false
	}
	return route.Collector, true
}

// Close detaches every route, children first. It is safe to call twice.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for i := len(r.routes) - 1; i >= 0; i-- {
		r.routes[i].Stream.Dispose()
	}
	metrics.SetActiveRoutes(0)
}
