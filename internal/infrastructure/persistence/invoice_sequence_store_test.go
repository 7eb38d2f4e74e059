package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockSequenceStore(t *testing.T) (*PostgresSequenceStore, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewPostgresSequenceStore(gormDB), mock, mockDB
}

func expectSequenceUpsert(mock sqlmock.Sqlmock, year, month, returned int) {
	rows := sqlmock.NewRows([]string{"last_seq"}).AddRow(returned)
	mock.ExpectQuery(`INSERT INTO invoice_sequences .* ON CONFLICT \(year, month\).*RETURNING last_seq`).
		WithArgs(year, month, sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func TestPostgresSequenceStoreNext(t *testing.T) {
	store, mock, mockDB := newMockSequenceStore(t)
	defer mockDB.Close()

	expectSequenceUpsert(mock, 2025, 8, 1)

	seq, wrapped, err := store.Next(context.Background(), 2025, time.August)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.False(t, wrapped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSequenceStoreNextMidMonth(t *testing.T) {
	store, mock, mockDB := newMockSequenceStore(t)
	defer mockDB.Close()

	expectSequenceUpsert(mock, 2025, 8, 457)

	seq, wrapped, err := store.Next(context.Background(), 2025, time.August)
	require.NoError(t, err)
	assert.Equal(t, 457, seq)
	assert.False(t, wrapped)
}

func TestPostgresSequenceStoreWrapsPastMax(t *testing.T) {
	store, mock, mockDB := newMockSequenceStore(t)
	defer mockDB.Close()

	// Counter 1000 presents as sequence 1 with the wrap flagged
	expectSequenceUpsert(mock, 2025, 8, 1000)

	seq, wrapped, err := store.Next(context.Background(), 2025, time.August)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.True(t, wrapped)
}

func TestPostgresSequenceStoreSecondLap(t *testing.T) {
	store, mock, mockDB := newMockSequenceStore(t)
	defer mockDB.Close()

	// Counter 1001 is sequence 2 on the second lap, no wrap event
	expectSequenceUpsert(mock, 2025, 8, 1001)

	seq, wrapped, err := store.Next(context.Background(), 2025, time.August)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
	assert.False(t, wrapped)
}

func TestPostgresSequenceStoreError(t *testing.T) {
	store, mock, mockDB := newMockSequenceStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`INSERT INTO invoice_sequences`).
		WillReturnError(sql.ErrConnDone)

	_, _, err := store.Next(context.Background(), 2025, time.August)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next invoice sequence")
}
