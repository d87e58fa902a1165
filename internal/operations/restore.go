package operations

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kebairia/reseed/internal/artifact"
	"github.com/kebairia/reseed/internal/config"
	"github.com/kebairia/reseed/internal/crypto"
	"github.com/kebairia/reseed/internal/destination"
)

// loadArtifact acquires and decodes the dump for one instance. The whole
// artifact is in memory before any destination work starts, so a broken
// source can never leave a half-wiped database behind.
func (o *Operator) loadArtifact(art config.ArtifactConfig) ([]byte, string, error) {
	source, err := artifact.NewSourceFromConfig(art)
	if err != nil {
		return nil, "", err
	}

	stream, err := source.Acquire(o.ctx)
	if err != nil {
		return nil, source.Identifier(), err
	}
	defer stream.Close()

	var reader io.Reader = stream
	if art.AgeKeyPath != "" {
		decryptor, err := crypto.NewAgeDecryptor(art.AgeKeyPath)
		if err != nil {
			return nil, source.Identifier(), err
		}
		reader, err = decryptor.Decrypt(reader)
		if err != nil {
			return nil, source.Identifier(), err
		}
	}
	if art.Compression == "zstd" {
		decoder, err := DecompressZstd(reader)
		if err != nil {
			return nil, source.Identifier(), err
		}
		defer decoder.Close()
		reader = decoder
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, source.Identifier(), fmt.Errorf("read artifact: %w", err)
	}
	return data, source.Identifier(), nil
}

// restoreInstance runs the full pipeline for one destination: load the
// artifact, initialize the target, stream the dump in, and report the
// outcome as a run record.
func (o *Operator) restoreInstance(dest destination.Destination, inst config.DBInstance) Record {
	log := o.log
	record := Record{
		RunID:     uuid.NewString(),
		Engine:    dest.GetEngine(),
		Database:  dest.GetName(),
		StartedAt: time.Now(),
	}

	data, identifier, err := o.loadArtifact(inst.Artifact)
	record.Artifact = identifier
	if err != nil {
		return record.finish(fmt.Errorf("load artifact: %w", err))
	}
	record.SizeBytes = int64(len(data))

	log.Info("restore run started",
		"database", dest.GetName(),
		"engine", dest.GetEngine(),
		"artifact", identifier,
		"bytes", len(data),
	)

	if err := dest.Init(); err != nil {
		return record.finish(fmt.Errorf("initialize destination: %w", err))
	}
	if err := dest.Write(data); err != nil {
		return record.finish(err)
	}

	record = record.finish(nil)
	log.Info("restore run completed",
		"database", dest.GetName(),
		"engine", dest.GetEngine(),
		"duration", record.Duration.String(),
	)
	return record
}

// runRecord writes the record and logs instead of failing the restore when
// the write goes wrong; the restore outcome stands on its own.
func (o *Operator) runRecord(record Record) {
	if err := record.Write(o.cfg.Restore.RunDir); err != nil {
		o.log.Warn("run record write failed",
			"database", record.Database,
			"error", err.Error(),
		)
	}
}

// RestoreAll restores every configured database in parallel and writes one
// run record per database. The first failure is returned after all runs
// finish.
func RestoreAll(ctx context.Context, configPath string) error {
	operator, err := NewOperator(ctx, configPath)
	if err != nil {
		return err
	}
	jobs, err := operator.jobs()
	if err != nil {
		return err
	}
	log := operator.log

	var (
		wg   sync.WaitGroup
		errs = make(chan error, len(jobs)) // buffered to avoid deadlock
	)

	for _, j := range jobs {
		wg.Add(1)

		go func(j job) {
			defer wg.Done()

			record := operator.restoreInstance(j.dest, j.inst)
			operator.runRecord(record)
			// in case of error, add this error to the error channel
			if record.Status != "success" {
				log.Error("restore failed",
					"database", j.dest.GetName(),
					"error", record.Error,
				)
				errs <- fmt.Errorf("restore failed for %q: %s", j.dest.GetName(), record.Error)
			}
		}(j)
	}
	wg.Wait()
	close(errs)

	// Surface the first failure
	for err := range errs {
		return err
	}
	return nil
}

// RestoreOne restores a single database selected by its instance name.
func RestoreOne(ctx context.Context, configPath, name string) error {
	operator, err := NewOperator(ctx, configPath)
	if err != nil {
		return err
	}
	jobs, err := operator.jobs()
	if err != nil {
		return err
	}

	for _, j := range jobs {
		if j.inst.Name != name {
			continue
		}
		record := operator.restoreInstance(j.dest, j.inst)
		operator.runRecord(record)
		if record.Status != "success" {
			return fmt.Errorf("restore failed for %q: %s", name, record.Error)
		}
		return nil
	}
	return fmt.Errorf("no database named %q in config", name)
}
