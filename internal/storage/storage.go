package storage

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/config"
	"code.sztanpet.net/zvpsz/frame-text/internal/file"
	"github.com/go-sql-driver/mysql"
	"github.com/juju/loggo"
)

// Storage persists display Events to disk before inserting them into a database
type Storage struct {
	ctx    context.Context
	path   string
	db     *sql.DB
	insert chan inData

	stmtMu sync.RWMutex
	inStmt *sql.Stmt

	bufMu sync.Mutex
	inBuf map[[20]byte]Event
}

type inData struct {
	path string
	data Event
}

// Event is one completed display request
type Event struct {
	Source    string
	Mode      string
	Color     string
	Text      string
	Elapsed   time.Duration
	CreatedAt time.Time
}

var logger = loggo.GetLogger("main.storage")
var pathProcessDurr = 1 * time.Minute

// dsn options: ?loc=UTC&parseTime=true&strict=true&timeout=1s&time_zone="+00:00"

// New spools into STATE_PATH/storage, the directory is created if missing.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	// Open doesn't open a connection to validate the DSN!
	db, err := sql.Open("mysql", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(30 * time.Second)
	db.SetMaxIdleConns(3)
	db.SetMaxOpenConns(3)

	return newWithDB(ctx, filepath.Join(cfg.StatePath, "storage"), db)
}

func newWithDB(ctx context.Context, path string, db *sql.DB) (*Storage, error) {
	err := os.MkdirAll(path, 0700)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		ctx:    ctx,
		path:   path,
		db:     db,
		inBuf:  map[[20]byte]Event{},
		insert: make(chan inData, 1),
	}

	go s.consumeData()

	return s, nil
}

// TestConnection can be used to test whether the provided DSN actually works
// and to make sure the connection to the database is alive
func (s *Storage) TestConnection() error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	return s.db.PingContext(ctx)
}

func (s *Storage) pathFor(data Event) string {
	return filepath.Join(s.path, strconv.FormatInt(data.CreatedAt.UnixNano(), 10))
}

// Insert persists the Event to disk for resilience
// and tries to insert it into the DB.
func (s *Storage) Insert(data Event) {
	if data.CreatedAt.IsZero() {
		panic("Event.CreatedAt cannot be zero")
	}

	// the spool file name is derived from CreatedAt, keep it unique
	s.bufMu.Lock()
	dp := s.pathFor(data)
	ix := sha1.Sum([]byte(dp))
	for _, ok := s.inBuf[ix]; ok; _, ok = s.inBuf[ix] {
		data.CreatedAt = data.CreatedAt.Add(time.Nanosecond)
		dp = s.pathFor(data)
		ix = sha1.Sum([]byte(dp))
	}
	s.inBuf[ix] = data
	s.bufMu.Unlock()

	if err := file.Serialize(dp, &data); err != nil {
		logger.Warningf("Insert: spooling %v failed, keeping it in memory only: %v", dp, err)
	}

	// try to send the data up to the DB asap, on success the serialized file will be deleted
	select {
	case <-s.ctx.Done():
	case s.insert <- inData{path: dp, data: data}:
	default:
		logger.Debugf("Insert: sending on storage.insert would have blocked, event buffered")
	}
}

// consumeData listens on the Storage.insert channel for things to insert.
// If successful, it tries to remove the persisted data file.
// It regularly processes any persisted data files and tries to insert them.
func (s *Storage) consumeData() {
	t := time.NewTicker(pathProcessDurr)
	defer t.Stop()
	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("consumeData: context cancelled, exiting")
			return

		case in := <-s.insert:
			err := s.dbInsert(in.data)
			if err != nil {
				// processPath and processBuf will retry the insert later
				logger.Debugf("consumeData: insert failed: %v", err)
				continue
			}

			err = os.Remove(in.path)
			if err != nil && !os.IsNotExist(err) {
				// re-inserting is harmless thanks to the unique index on created_at
				logger.Errorf("Failed to remove path: %v error was: %v", in.path, err)
			}

			s.bufMu.Lock()
			delete(s.inBuf, sha1.Sum([]byte(in.path)))
			s.bufMu.Unlock()

		case <-t.C:
			if cancel != nil {
				cancel()
				cancel = nil
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(s.ctx)
			go func() {
				s.processBuf(ctx)
				s.processPath(ctx)
			}()
		}
	}
}

func (s *Storage) processBuf(ctx context.Context) {
	s.bufMu.Lock()
	now := time.Now()
	var toInsert []inData
	for _, data := range s.inBuf {
		if diff := now.Sub(data.CreatedAt); diff < time.Second {
			continue
		}

		toInsert = append(toInsert, inData{
			path: s.pathFor(data),
			data: data,
		})
	}
	s.bufMu.Unlock()

	if len(toInsert) == 0 {
		return
	}

	logger.Tracef("number of events buffered: %v", len(toInsert))
	for _, in := range toInsert {
		select {
		case <-ctx.Done():
			return
		case s.insert <- in:
		}
	}
}

// processPath retries inserting the events spooled in Storage.path
// that are not buffered in memory anymore, e.g. from a previous run.
func (s *Storage) processPath(ctx context.Context) {
	files, err := ioutil.ReadDir(s.path)
	if err != nil {
		logger.Errorf("listing s.path failed (%v), skipping processing", err)
		return
	}

	logger.Tracef("number of files to insert: %v", len(files))
	for _, f := range files {
		if file.IsTemp(f.Name()) {
			continue
		}

		id := inData{
			path: filepath.Join(s.path, f.Name()),
		}

		s.bufMu.Lock()
		_, buffered := s.inBuf[sha1.Sum([]byte(id.path))]
		s.bufMu.Unlock()
		if buffered {
			continue
		}

		err := file.Unserialize(id.path, &id.data)
		if err != nil {
			logger.Errorf("failed unserializing %v, error was: %v", id.path, err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case s.insert <- id:
		}
	}
}

func (s *Storage) dbInsert(row Event) error {
	err := s.ensureStatement()
	if err != nil {
		return err
	}

	s.stmtMu.RLock()
	defer s.stmtMu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	// the result is irrelevant, only the error matters
	_, err = s.inStmt.ExecContext(
		ctx,
		row.Source,
		row.Mode,
		row.Color,
		row.Text,
		row.Elapsed.Milliseconds(),
		row.CreatedAt.UnixNano(),
	)

	if err != nil {
		var me *mysql.MySQLError
		if !errors.As(err, &me) {
			return err
		}

		// unique error codes from:
		// https://dev.mysql.com/doc/refman/5.7/en/server-error-reference.html
		switch me.Number {
		case 1062, 1586:
			return nil
		}

		return err
	}

	return nil
}

func (s *Storage) ensureStatement() error {
	// take read lock first to check if inStmt is nil or not
	// and if it is, take a write lock to set it
	s.stmtMu.RLock()
	if s.inStmt != nil {
		s.stmtMu.RUnlock()
		return nil
	}
	s.stmtMu.RUnlock()

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if s.inStmt != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO display_events (source, mode, color, text, elapsed_ms, created_at, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`)
	if err != nil {
		return err
	}
	s.inStmt = stmt

	return nil
}
