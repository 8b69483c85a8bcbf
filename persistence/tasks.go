package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// SaveOutcome is the result of one SaveFragmentTask.
type SaveOutcome struct {
	Metadata interfaces.FragmentMetadata
	Err      error
}

// Ok reports whether both the fragment and its metadata were stored.
func (o SaveOutcome) Ok() bool { return o.Err == nil }

// LoadOutcome is the result of one LoadFragmentTask.
type LoadOutcome struct {
	Metadata interfaces.FragmentMetadata
	Data     []byte
	Err      error
}

// Ok reports whether the fragment bytes were read.
func (o LoadOutcome) Ok() bool { return o.Err == nil }

// Fragment returns the loaded bytes tagged with their fragment number.
func (o LoadOutcome) Fragment() interfaces.Fragment {
	return interfaces.Fragment{Number: o.Metadata.FragmentNumber, Data: o.Data}
}

// DeleteOutcome is the result of one DeleteFragmentTask.
type DeleteOutcome struct {
	Metadata interfaces.FragmentMetadata
	Deleted  bool
	Err      error
}

// Ok reports whether both the metadata record and the fragment bytes were removed.
func (o DeleteOutcome) Ok() bool { return o.Err == nil && o.Deleted }

// SaveFragmentTask stores one fragment and then records its metadata.
type SaveFragmentTask struct {
	Fragment      []byte
	Metadata      interfaces.FragmentMetadata
	Repository    interfaces.FragmentRepository
	MetadataStore interfaces.FragmentMetadataStore
	Log           *slog.Logger
}

// Run never panics on repository failures, every error ends up in the outcome.
// Metadata is written only after the fragment bytes were stored.
func (t *SaveFragmentTask) Run(ctx context.Context) SaveOutcome {
	start := time.Now()
	name := interfaces.FragmentName(t.Metadata.DataID)

	if err := t.Repository.SaveFragment(ctx, name, t.Fragment); err != nil {
		logTaskFailure(t.Log, "Failed to save fragment", t.Metadata, err)
		return SaveOutcome{Metadata: t.Metadata, Err: err}
	}

	if err := t.MetadataStore.SaveFragmentMetadata(ctx, t.Metadata); err != nil {
		err = interfaces.NewRepositoryError("SaveFragmentMetadata", t.Metadata.RepositoryLocation,
			fmt.Sprintf("fragment %d stored but its metadata was not", t.Metadata.FragmentNumber), err)
		logTaskFailure(t.Log, "Failed to save fragment metadata", t.Metadata, err)
		return SaveOutcome{Metadata: t.Metadata, Err: err}
	}

	t.Log.Debug("Saved fragment",
		slog.String("data_id", t.Metadata.DataID),
		slog.Int("fragment", t.Metadata.FragmentNumber),
		slog.String("repository", t.Metadata.RepositoryLocation),
		slog.Int("size", len(t.Fragment)),
		slog.Duration("duration", time.Since(start)))
	return SaveOutcome{Metadata: t.Metadata}
}

// LoadFragmentTask reads one fragment from the repository its metadata points at.
type LoadFragmentTask struct {
	Metadata   interfaces.FragmentMetadata
	Repository interfaces.FragmentRepository
	Log        *slog.Logger
}

func (t *LoadFragmentTask) Run(ctx context.Context) LoadOutcome {
	start := time.Now()

	data, err := t.Repository.LoadFragment(ctx, interfaces.FragmentName(t.Metadata.DataID))
	if err != nil {
		logTaskFailure(t.Log, "Failed to load fragment", t.Metadata, err)
		return LoadOutcome{Metadata: t.Metadata, Err: err}
	}

	t.Log.Debug("Loaded fragment",
		slog.String("data_id", t.Metadata.DataID),
		slog.Int("fragment", t.Metadata.FragmentNumber),
		slog.String("repository", t.Metadata.RepositoryLocation),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return LoadOutcome{Metadata: t.Metadata, Data: data}
}

// DeleteFragmentTask removes one metadata record and then the fragment bytes.
// A failure in between leaves an unreferenced fragment, never a record
// pointing at missing bytes.
type DeleteFragmentTask struct {
	Metadata      interfaces.FragmentMetadata
	Repository    interfaces.FragmentRepository
	MetadataStore interfaces.FragmentMetadataStore
	Log           *slog.Logger
}

func (t *DeleteFragmentTask) Run(ctx context.Context) DeleteOutcome {
	if err := t.MetadataStore.DeleteFragmentMetadata(ctx, t.Metadata); err != nil {
		logTaskFailure(t.Log, "Failed to delete fragment metadata", t.Metadata, err)
		return DeleteOutcome{Metadata: t.Metadata, Err: err}
	}

	deleted, err := t.Repository.DeleteFragment(ctx, interfaces.FragmentName(t.Metadata.DataID))
	if err != nil {
		logTaskFailure(t.Log, "Failed to delete fragment", t.Metadata, err)
		return DeleteOutcome{Metadata: t.Metadata, Err: err}
	}

	if !deleted {
		t.Log.Warn("Fragment was not deleted, it may not have existed",
			slog.String("data_id", t.Metadata.DataID),
			slog.Int("fragment", t.Metadata.FragmentNumber),
			slog.String("repository", t.Metadata.RepositoryLocation))
		return DeleteOutcome{Metadata: t.Metadata}
	}

	t.Log.Debug("Deleted fragment",
		slog.String("data_id", t.Metadata.DataID),
		slog.Int("fragment", t.Metadata.FragmentNumber),
		slog.String("repository", t.Metadata.RepositoryLocation))
	return DeleteOutcome{Metadata: t.Metadata, Deleted: true}
}

func logTaskFailure(log *slog.Logger, msg string, md interfaces.FragmentMetadata, err error) {
	log.Error(msg,
		slog.String("data_id", md.DataID),
		slog.Int("fragment", md.FragmentNumber),
		slog.String("repository", md.RepositoryLocation),
		"err", err)
}
