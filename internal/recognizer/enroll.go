package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
)

var sampleExts = map[string]bool{
	".wav":  true,
	".flac": true,
	".mp3":  true,
}

// SpeakerNameFromFile derives a speaker name from a sample filename: the part
// before the first "_", then before the first ".". "alice_01.wav" and
// "alice.wav" both yield "alice".
func SpeakerNameFromFile(filename string) string {
	name := filepath.Base(filename)
	name, _, _ = strings.Cut(name, "_")
	name, _, _ = strings.Cut(name, ".")
	return name
}

func (r *implRecognizer) EnrollSpeaker(ctx context.Context, name string, files []string, force bool) bool {
	return r.EnrollDetailed(ctx, name, files, force).Enrolled
}

func (r *implRecognizer) EnrollDetailed(ctx context.Context, name string, files []string, force bool) EnrollResult {
	return r.enroll(ctx, name, files, force, true)
}

// enroll stores the mean embedding of files under name. persist controls
// whether the database is saved afterwards.
func (r *implRecognizer) enroll(ctx context.Context, name string, files []string, force, persist bool) EnrollResult {
	res := EnrollResult{Name: name}

	if r.db.HasSpeaker(name) && !force {
		r.logger.Info(ctx, "Speaker '%s' already enrolled. Use force to re-enroll", name)
		res.Exists = true
		return res
	}

	r.logger.Info(ctx, "Enrolling speaker '%s' from %d files", name, len(files))

	var vecs []speakerdb.Embedding
	for _, f := range files {
		vec, err := r.ComputeEmbedding(ctx, f)
		if err == nil && len(vecs) > 0 && len(vec) != len(vecs[0]) {
			err = &DimensionMismatchError{Speaker: name, Got: len(vec), Want: len(vecs[0])}
		}
		if err != nil {
			r.logger.Warn(ctx, "Skipping sample %s: %v", f, err)
			res.Failures = append(res.Failures, ItemError{Path: f, Err: err})
			continue
		}
		vecs = append(vecs, vec)
	}

	if len(vecs) == 0 {
		r.logger.Error(ctx, "No valid samples for speaker '%s'", name)
		return res
	}

	r.db.AddSpeaker(name, mean(vecs))
	res.Enrolled = true
	res.Samples = len(vecs)

	if persist && !r.db.Save() {
		r.logger.Warn(ctx, "Speaker '%s' enrolled in memory but not persisted", name)
	}
	r.logger.Info(ctx, "Enrolled '%s' from %d samples", name, len(vecs))
	return res
}

func (r *implRecognizer) EnrollSpeakersFromDirectory(ctx context.Context, dir string, force bool) (int, error) {
	res, err := r.EnrollDirectoryDetailed(ctx, dir, force)
	return len(res.Enrolled), err
}

// EnrollDirectoryDetailed enrolls every speaker with samples in dir, grouping
// files by SpeakerNameFromFile. Groups run in name order.
func (r *implRecognizer) EnrollDirectoryDetailed(ctx context.Context, dir string, force bool) (DirectoryEnrollResult, error) {
	var res DirectoryEnrollResult

	if fi, err := os.Stat(dir); (err != nil && errors.Is(err, fs.ErrNotExist)) || (err == nil && !fi.IsDir()) {
		return res, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("read enrollment dir: %w", err)
	}

	groups := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !sampleExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		name := SpeakerNameFromFile(e.Name())
		groups[name] = append(groups[name], filepath.Join(dir, e.Name()))
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	r.logger.Info(ctx, "Found %d speakers in %s", len(names), dir)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.db.HasSpeaker(name) && !force {
			r.logger.Info(ctx, "Skipping '%s' (already enrolled)", name)
			res.Skipped = append(res.Skipped, name)
			continue
		}

		files := groups[name]
		sort.Strings(files)
		er := r.enroll(ctx, name, files, true, false)
		res.Failures = append(res.Failures, er.Failures...)
		if er.Enrolled {
			res.Enrolled = append(res.Enrolled, name)
		} else {
			res.Failed = append(res.Failed, name)
		}
	}

	if len(res.Enrolled) > 0 && !r.db.Save() {
		r.logger.Warn(ctx, "Enrolled %d speakers in memory but not persisted", len(res.Enrolled))
	}
	r.logger.Info(ctx, "Enrolled %d new speakers, skipped %d existing", len(res.Enrolled), len(res.Skipped))
	return res, nil
}
