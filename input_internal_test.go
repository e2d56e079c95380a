package ircbot

import (
	"context"
	"sync"
	"testing"

	"github.com/gissleh/ircbot/isupport"
	"github.com/gissleh/ircbot/state"
	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type recordLog struct {
	mutex   sync.Mutex
	records []*log15.Record
}

func (l *recordLog) handler() log15.Handler {
	return log15.FuncHandler(func(r *log15.Record) error {
		l.mutex.Lock()
		l.records = append(l.records, r)
		l.mutex.Unlock()

		return nil
	})
}

// find gets the records with the message, and the value of key in each.
func (l *recordLog) find(msg, key string) []interface{} {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	values := make([]interface{}, 0, len(l.records))
	for _, record := range l.records {
		if record.Msg != msg {
			continue
		}

		for i := 0; i+1 < len(record.Ctx); i += 2 {
			if record.Ctx[i] == key {
				values = append(values, record.Ctx[i+1])
			}
		}
	}

	return values
}

func TestConnection_LogFailure(t *testing.T) {
	log := &recordLog{}
	logger := log15.New()
	logger.SetHandler(log.handler())

	client, err := New(context.Background(), Config{Nick: "Test", DisableCAP: true, Logger: logger})
	require.NoError(t, err)
	defer client.Destroy()

	conn, err := newConnection(client, nil)
	require.NoError(t, err)

	channel, err := conn.dir.GetOrCreateChannel("#test")
	require.NoError(t, err)

	stranger, err := state.NewDirectory(isupport.New(), language.Und).GetOrCreateUser("Stranger")
	require.NoError(t, err)

	conn.logFailure("SetAway", nil)
	conn.logFailure("AddMembership", conn.dir.AddMembership(stranger, channel, state.LevelNormal))
	assert.Nil(t, conn.snapshotUser(stranger))
	assert.NotNil(t, conn.snapshotChannel(channel))

	assert.Equal(t, []interface{}{"AddMembership", "SnapshotUser"}, log.find("directory update failed", "operation"))

	errs := log.find("directory update failed", "err")
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, state.IsUnknown(err.(error), state.UnknownUser), "%v", err)
	}
}
