package jsonbin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"boss_alert_bot/internal/domain/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBin struct {
	record  string
	status  int
	lastKey string
	puts    []string
}

func (b *fakeBin) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/b/bin1/latest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		b.lastKey = r.Header.Get("X-Master-Key")
		if b.status != 0 {
			w.WriteHeader(b.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}
		_, _ = w.Write([]byte(`{"record":` + b.record + `,"metadata":{"id":"bin1"}}`))
	})
	mux.HandleFunc("/b/bin1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b.lastKey = r.Header.Get("X-Master-Key")
		body, _ := io.ReadAll(r.Body)
		b.puts = append(b.puts, string(body))
		b.record = string(body)
		_, _ = w.Write([]byte(`{"record":` + string(body) + `}`))
	})
	return mux
}

func newTestStore(t *testing.T, bin *fakeBin) *Store {
	srv := httptest.NewServer(bin.handler(t))
	t.Cleanup(srv.Close)
	return NewStore(srv.URL+"/", "bin1", "secret", srv.Client())
}

func TestGetReturnsGuildID(t *testing.T) {
	bin := &fakeBin{record: `{"g1":"1234567890","g2":"999"}`}
	store := newTestStore(t, bin)

	msg, err := store.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, &tracker.Message{GuildID: "g1", MessageID: "1234567890"}, msg)
	assert.Equal(t, "secret", bin.lastKey)
}

func TestGetAcceptsNumericID(t *testing.T) {
	store := newTestStore(t, &fakeBin{record: `{"g1":1234567890123456789}`})

	msg, err := store.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456789", msg.MessageID)
}

func TestGetTreatsMissingAsAbsent(t *testing.T) {
	for name, bin := range map[string]*fakeBin{
		"empty record": {record: `{}`},
		"other guild":  {record: `{"g2":"999"}`},
		"null id":      {record: `{"g1":null}`},
		"blank id":     {record: `{"g1":""}`},
		"null record":  {record: `null`},
		"no bin":       {status: http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			msg, err := newTestStore(t, bin).Get(context.Background(), "g1")
			require.NoError(t, err)
			assert.Nil(t, msg)
		})
	}
}

func TestGetSurfacesServerErrors(t *testing.T) {
	store := newTestStore(t, &fakeBin{status: http.StatusUnauthorized})

	_, err := store.Get(context.Background(), "g1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSetKeepsOtherGuilds(t *testing.T) {
	bin := &fakeBin{record: `{"g1":"old","g2":"other"}`}
	store := newTestStore(t, bin)

	require.NoError(t, store.Set(context.Background(), tracker.Message{GuildID: "g1", ChannelID: "c1", MessageID: "new"}))

	require.Len(t, bin.puts, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(bin.puts[0]), &body))
	assert.Equal(t, map[string]any{"g1": "new", "g2": "other"}, body)

	msg, err := store.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "new", msg.MessageID)
	other, err := store.Get(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, "other", other.MessageID)
}

func TestSetSurfacesReadErrors(t *testing.T) {
	bin := &fakeBin{status: http.StatusUnauthorized}
	store := newTestStore(t, bin)

	require.Error(t, store.Set(context.Background(), tracker.Message{GuildID: "g1", MessageID: "new"}))
	assert.Empty(t, bin.puts)
}
