// Package jobstore keeps meeting job records in BadgerDB.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

var jobPrefix = []byte("job:")

// Options configures the store.
type Options struct {
	// Dir holds the badger data files. Required unless InMemory.
	Dir string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
}

type implStore struct {
	db  *badger.DB
	now func() time.Time
}

// New opens a badger-backed Store.
func New(opts Options, log logger.Logger) (Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("jobstore: dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log: log})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	return &implStore{db: db, now: time.Now}, nil
}

func jobKey(id string) []byte {
	return append(append([]byte{}, jobPrefix...), id...)
}

func (s *implStore) Create(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}
	now := s.now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	data, err := msgpack.Marshal(&job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
	if err != nil {
		return Job{}, fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return job, nil
}

func (s *implStore) Update(ctx context.Context, id string, fn func(*Job)) (Job, error) {
	var job Job
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if job, err = getJob(txn, id); err != nil {
			return err
		}
		fn(&job)
		job.ID = id
		job.UpdatedAt = s.now().UTC()

		data, err := msgpack.Marshal(&job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		return txn.Set(jobKey(id), data)
	})
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

func (s *implStore) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = getJob(txn, id)
		return err
	})
	return job, err
}

func getJob(txn *badger.Txn, id string) (Job, error) {
	item, err := txn.Get(jobKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Job{}, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := msgpack.Unmarshal(val, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *implStore) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = jobPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(jobPrefix); it.ValidForPrefix(jobPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var job Job
			if err := msgpack.Unmarshal(val, &job); err != nil {
				return fmt.Errorf("decode job: %w", err)
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (s *implStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(jobKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return txn.Delete(jobKey(id))
	})
}

func (s *implStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger output through the application logger, dropping
// its chatty info and debug lines.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error(context.Background(), "[badger] "+f, v...)
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn(context.Background(), "[badger] "+f, v...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
