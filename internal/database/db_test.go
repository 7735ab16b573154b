package database

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection_MigrationFailureIsReturned(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	// nothing listens on port 1, so the migration is the call that fails
	dsn := "host=127.0.0.1 port=1 user=catalog password=catalog dbname=catalog sslmode=disable connect_timeout=2"
	db, err := NewConnection(dsn, logrus.NewEntry(l))
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to auto-migrate models")
}
