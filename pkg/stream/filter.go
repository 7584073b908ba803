package stream

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"labelbus/pkg/errors"
	"labelbus/pkg/models"
)

// Filter decides whether a parent message is forwarded to a child node.
type Filter interface {
	Match(ctx context.Context, msg *models.Message) (bool, error)
	String() string
}

// Predicate is the function form of Filter.Match.
type Predicate func(ctx context.Context, msg *models.Message) (bool, error)

type matchAll struct{}

func (matchAll) Match(context.Context, *models.Message) (bool, error) {
	return true, nil
}

func (matchAll) String() string {
	return "all"
}

type labelsFilter struct {
	labels models.Labels
	keys   []string
}

func newLabelsFilter(labels models.Labels) (*labelsFilter, error) {
	if len(labels) == 0 {
		return nil, errors.InvalidFilterConfig("no labels were provided to match on")
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &labelsFilter{labels: labels.Clone(), keys: keys}, nil
}

func (f *labelsFilter) Match(_ context.Context, msg *models.Message) (bool, error) {
	for _, k := range f.keys {
		if !Equal(lookup(msg, k), f.labels[k]) {
			return false, nil
		}
	}
	return true, nil
}

func (f *labelsFilter) String() string {
	parts := make([]string, 0, len(f.keys))
	for _, k := range f.keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f.labels[k]))
	}
	return "labels{" + strings.Join(parts, ",") + "}"
}

type funcFilter struct {
	name string
	pred Predicate
}

func (f funcFilter) Match(ctx context.Context, msg *models.Message) (bool, error) {
	return f.pred(ctx, msg)
}

func (f funcFilter) String() string {
	return "func(" + f.name + ")"
}
