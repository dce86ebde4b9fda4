package storage

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQuery = `INSERT INTO display_events`

func newTestStorage(t *testing.T) (*Storage, sqlmock.Sqlmock, string) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = db.Close()
	})

	dir := filepath.Join(t.TempDir(), "storage")
	s, err := newWithDB(ctx, dir, db)
	require.NoError(t, err)
	return s, mock, dir
}

func spooled(t *testing.T, dir string) int {
	files, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	return len(files)
}

func testEvent() Event {
	return Event{
		Source:    "frame-fifo",
		Mode:      "scroll",
		Color:     "YELLOW",
		Text:      "Hello World",
		Elapsed:   1500 * time.Millisecond,
		CreatedAt: time.Unix(1700000000, 42),
	}
}

func TestInsertRemovesSpoolOnSuccess(t *testing.T) {
	s, mock, dir := newTestStorage(t)

	ev := testEvent()
	mock.ExpectPrepare(insertQuery).
		ExpectExec().
		WithArgs(ev.Source, ev.Mode, ev.Color, ev.Text, int64(1500), ev.CreatedAt.UnixNano()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s.Insert(ev)

	require.Eventually(t, func() bool {
		return spooled(t, dir) == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, mock.ExpectationsWereMet())

	s.bufMu.Lock()
	assert.Empty(t, s.inBuf)
	s.bufMu.Unlock()
}

func TestInsertDuplicateCountsAsSuccess(t *testing.T) {
	s, mock, dir := newTestStorage(t)

	mock.ExpectPrepare(insertQuery).
		ExpectExec().
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	s.Insert(testEvent())

	require.Eventually(t, func() bool {
		return spooled(t, dir) == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertKeepsSpoolOnFailure(t *testing.T) {
	s, mock, dir := newTestStorage(t)

	mock.ExpectPrepare(insertQuery).
		ExpectExec().
		WillReturnError(errors.New("connection refused"))

	s.Insert(testEvent())

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, spooled(t, dir))

	s.bufMu.Lock()
	assert.Len(t, s.inBuf, 1)
	s.bufMu.Unlock()
}

func TestInsertKeepsSpoolNamesUnique(t *testing.T) {
	s, mock, dir := newTestStorage(t)
	mock.ExpectPrepare(insertQuery).
		ExpectExec().
		WillReturnError(errors.New("connection refused"))
	mock.ExpectExec(insertQuery).
		WillReturnError(errors.New("connection refused"))

	s.Insert(testEvent())
	s.Insert(testEvent())

	s.bufMu.Lock()
	assert.Len(t, s.inBuf, 2)
	s.bufMu.Unlock()
	assert.Equal(t, 2, spooled(t, dir))
}

func TestInsertZeroTimePanics(t *testing.T) {
	s, _, _ := newTestStorage(t)
	assert.Panics(t, func() {
		s.Insert(Event{Text: "no time"})
	})
}
