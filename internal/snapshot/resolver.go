// Package snapshot resolves the reference-data snapshot for one generation call.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"innerbloom-server/internal/candidates"
	"innerbloom-server/internal/model"

	"go.uber.org/zap"
)

// Options configures candidate paths. Relative paths are resolved against AppRoot.
type Options struct {
	AppRoot      string
	SnapshotPath string // live snapshot override, probed first
	FixturePath  string // static fixture override, probed first
}

// Resolution is the snapshot actually used. Source may differ from the
// requested one and callers must use Source, not what they asked for.
type Resolution struct {
	Snapshot       *model.Snapshot
	Requested      model.Source
	Source         model.Source
	Path           string
	FixturePayload *model.TaskPayload
}

// Resolver picks and loads one snapshot per call. It keeps no state between calls.
type Resolver struct {
	opts Options
	log  *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{opts: opts, log: log.Named("SnapshotResolver")}
}

// LiveCandidates lists live snapshot files in priority order.
func (r *Resolver) LiveCandidates() candidates.List {
	return candidates.Paths(r.opts.AppRoot,
		r.opts.SnapshotPath,
		"data/snapshot.json",
		"data/live_snapshot.json",
		"../data/snapshot.json",
	)
}

// SampleCandidates lists the lower-fidelity sample snapshot files.
func (r *Resolver) SampleCandidates() candidates.List {
	return candidates.Paths(r.opts.AppRoot,
		"data/snapshot.sample.json",
		"../data/snapshot.sample.json",
	)
}

// FixtureCandidates lists static fixture bundles in priority order.
func (r *Resolver) FixtureCandidates() candidates.List {
	return candidates.Paths(r.opts.AppRoot,
		r.opts.FixturePath,
		"data/fixtures/static_bundle.json",
		"fixtures/static_bundle.json",
		"../data/fixtures/static_bundle.json",
	)
}

// Resolve loads the snapshot for source. A missing file moves on to the next
// candidate; any other read or parse failure is returned.
func (r *Resolver) Resolve(ctx context.Context, source model.Source, userID string) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch source {
	case model.SourceMock:
		return r.mock(source, userID), nil
	case model.SourceStatic:
		return r.resolveStatic(userID)
	default:
		return r.resolveLive(source, userID)
	}
}

func (r *Resolver) mock(requested model.Source, userID string) *Resolution {
	return &Resolution{
		Snapshot:  Mock(userID),
		Requested: requested,
		Source:    model.SourceMock,
	}
}

func (r *Resolver) resolveStatic(userID string) (*Resolution, error) {
	hit, err := candidates.FirstExisting(r.FixtureCandidates(), loadFixture)
	if err != nil {
		if errors.Is(err, candidates.ErrNoCandidate) {
			r.log.Warn("No static fixture found, falling back to mock snapshot", zap.Error(err))
			return r.mock(model.SourceStatic, userID), nil
		}
		return nil, err
	}

	r.log.Info("Static fixture loaded", zap.String("path", hit.Path))
	snap := hit.Value.Snapshot.Samples
	return &Resolution{
		Snapshot:       &snap,
		Requested:      model.SourceStatic,
		Source:         model.SourceStatic,
		Path:           hit.Path,
		FixturePayload: hit.Value.Payload,
	}, nil
}

func (r *Resolver) resolveLive(requested model.Source, userID string) (*Resolution, error) {
	hit, err := candidates.FirstExisting(r.LiveCandidates(), loadSnapshot)
	if err == nil {
		r.log.Info("Live snapshot loaded", zap.String("path", hit.Path))
		return &Resolution{Snapshot: hit.Value, Requested: requested, Source: model.SourceLive, Path: hit.Path}, nil
	}
	if !errors.Is(err, candidates.ErrNoCandidate) {
		return nil, err
	}
	r.log.Warn("No live snapshot found, trying sample snapshot", zap.Error(err))

	hit, err = candidates.FirstExisting(r.SampleCandidates(), loadSnapshot)
	if err == nil {
		r.log.Info("Sample snapshot loaded", zap.String("path", hit.Path))
		return &Resolution{Snapshot: hit.Value, Requested: requested, Source: model.SourceLive, Path: hit.Path}, nil
	}
	if !errors.Is(err, candidates.ErrNoCandidate) {
		return nil, err
	}

	r.log.Warn("No sample snapshot found, falling back to mock snapshot", zap.Error(err))
	return r.mock(requested, userID), nil
}

func loadSnapshot(path string) (*model.Snapshot, error) {
	data, err := candidates.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file model.SnapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &file.Samples, nil
}

func loadFixture(path string) (*model.FixtureBundle, error) {
	data, err := candidates.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bundle model.FixtureBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse fixture bundle %s: %w", path, err)
	}
	return &bundle, nil
}
