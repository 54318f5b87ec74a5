package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gridpreview/pkg/grid"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/storage"
)

// File is one selected upload
type File struct {
	Name string
	Data io.Reader
}

// Uploader validates selected files, stores them and hands their blob
// references to the grid engine
type Uploader struct {
	validator *Validator
	store     *storage.BlobStore
	engine    *grid.Engine
	logger    logger.Logger
}

// NewUploader wires a validator, blob store and engine together
func NewUploader(validator *Validator, store *storage.BlobStore, engine *grid.Engine, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Uploader{
		validator: validator,
		store:     store,
		engine:    engine,
		logger:    log.WithField("component", "upload"),
	}
}

// Add admits up to the engine's per-call limit of files. Either every
// admitted file is valid and stored, or nothing changes. Files past the
// limit are ignored, as the grid would.
func (u *Uploader) Add(files []File) (grid.State, int, error) {
	if !u.engine.CanUpload() {
		return u.engine.State(), 0, grid.ErrQuotaExceeded
	}

	if max := u.engine.MaxPerCall(); len(files) > max {
		u.logger.DebugWithFields("Ignoring uploads past the per-call limit", map[string]interface{}{
			"selected": len(files),
			"limit":    max,
		})
		files = files[:max]
	}

	type accepted struct {
		data []byte
		info *Info
	}
	valid := make([]accepted, 0, len(files))
	for _, f := range files {
		data, info, err := u.validator.ReadAndValidate(f.Data)
		if err != nil {
			return u.engine.State(), 0, fmt.Errorf("%s: %w", f.Name, err)
		}
		valid = append(valid, accepted{data: data, info: info})
	}

	refs := make([]string, 0, len(valid))
	for _, a := range valid {
		ref, err := u.store.Save(bytes.NewReader(a.data), a.info.Ext())
		if err != nil {
			u.rollback(refs)
			return u.engine.State(), 0, err
		}
		refs = append(refs, ref)
	}

	state, admitted, err := u.engine.AddUploads(refs)
	if err != nil {
		u.rollback(refs)
		return state, 0, err
	}

	u.logger.InfoWithFields("Uploads added", map[string]interface{}{
		"admitted":    admitted,
		"quota_count": state.Quota.Count,
	})
	return state, admitted, nil
}

// AddPaths opens the files at paths and adds them
func (u *Uploader) AddPaths(paths []string) (grid.State, int, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, opened := range files {
				opened.Data.(io.Closer).Close()
			}
			return u.engine.State(), 0, fmt.Errorf("failed to open upload: %w", err)
		}
		files = append(files, File{Name: filepath.Base(p), Data: f})
	}
	defer func() {
		for _, f := range files {
			f.Data.(io.Closer).Close()
		}
	}()

	return u.Add(files)
}

// Prune drops stored uploads referenced neither by the grid nor by keep
func (u *Uploader) Prune(keep ...string) (int, error) {
	live := append([]string(nil), keep...)
	for _, c := range u.engine.State().Uploaded() {
		live = append(live, c.ImageURL)
	}
	return u.store.Prune(live)
}

func (u *Uploader) rollback(refs []string) {
	var errs []error
	for _, ref := range refs {
		if err := u.store.Remove(ref); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		u.logger.WithError(err).Warn("Failed to remove rejected uploads")
	}
}
