package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type mockConn struct {
	msgs       []published
	publishErr error
	flushErr   error
	drained    bool
}

func (m *mockConn) Publish(subject string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.msgs = append(m.msgs, published{subject: subject, data: data})
	return nil
}

func (m *mockConn) FlushWithContext(context.Context) error { return m.flushErr }

func (m *mockConn) Drain() error {
	m.drained = true
	return nil
}

func testAlert() domain.Alert {
	return domain.Alert{
		ID:    "alert-7",
		Class: domain.ClassLongPeriod,
		Text:  "長周期地震動を観測しました。",
		Cue:   domain.CueSeismicWarning,
	}
}

func TestPublisher_Publish(t *testing.T) {
	mc := &mockConn{}
	p := &Publisher{conn: mc, subject: "quake.alerts", logger: slog.Default()}

	require.NoError(t, p.Publish(context.Background(), testAlert()))
	require.Len(t, mc.msgs, 1)
	assert.Equal(t, "quake.alerts", mc.msgs[0].subject)

	var got domain.Alert
	require.NoError(t, json.Unmarshal(mc.msgs[0].data, &got))
	assert.Equal(t, "alert-7", got.ID)
	assert.Equal(t, domain.CueSeismicWarning, got.Cue)
	assert.Equal(t, "nats", p.Name())

	require.NoError(t, p.Close())
	assert.True(t, mc.drained)
}

func TestPublisher_Errors(t *testing.T) {
	tests := []struct {
		name string
		conn *mockConn
		want string
	}{
		{name: "publish fails", conn: &mockConn{publishErr: errors.New("nats: connection closed")}, want: "publish alert alert-7"},
		{name: "flush fails", conn: &mockConn{flushErr: context.DeadlineExceeded}, want: "flush alert alert-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Publisher{conn: tt.conn, subject: "quake.alerts", logger: slog.Default()}
			err := p.Publish(context.Background(), testAlert())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Config{
		URL:            "nats://127.0.0.1:1",
		Subject:        "quake.alerts",
		MaxReconnects:  1,
		ReconnectWait:  10 * time.Millisecond,
		ConnectTimeout: 100 * time.Millisecond,
	}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to connect to NATS")
}
