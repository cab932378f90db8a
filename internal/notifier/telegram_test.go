package notifier

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	require.NoError(t, n.Send(context.Background(), "A&B <5%"))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<pre>A&amp;B &lt;5%</pre>", got["text"])
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "42", "")
	n.APIBase = srv.URL
	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTelegramNotifier_OKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramNotifier_LongReportIsSplit(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		texts = append(texts, got["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	line := strings.Repeat("x", 99) + "\n"
	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	require.NoError(t, n.Send(context.Background(), strings.Repeat(line, 100)))

	require.Len(t, texts, 3)
	var joined strings.Builder
	for _, txt := range texts {
		assert.True(t, strings.HasPrefix(txt, "<pre>"))
		assert.True(t, strings.HasSuffix(txt, "</pre>"))
		joined.WriteString(strings.TrimSuffix(strings.TrimPrefix(txt, "<pre>"), "</pre>"))
	}
	assert.Equal(t, strings.Repeat(line, 100), joined.String())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\n", "bbbb\n", "cc"}, splitMessage("aaaa\nbbbb\ncc", 6))
	assert.Equal(t, []string{"abcde", "fgh"}, splitMessage("abcdefgh", 5))
	assert.Equal(t, []string{"ab", "çd"}, splitMessage("abçd", 3), "a rune is never cut")
}

func TestTelegramNotifier_SplitKeepsEntitiesWhole(t *testing.T) {
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		texts = append(texts, got["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	// One long line of ampersands would split mid-entity if escaped first.
	raw := strings.Repeat("x&", 3000)
	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	require.NoError(t, n.Send(context.Background(), raw))

	require.Len(t, texts, 2)
	var joined strings.Builder
	for _, txt := range texts {
		body := strings.TrimSuffix(strings.TrimPrefix(txt, "<pre>"), "</pre>")
		assert.Equal(t, strings.Count(body, "&"), strings.Count(body, "&amp;"), "every & starts a whole entity")
		assert.LessOrEqual(t, len(html.UnescapeString(body)), maxMessageLen)
		joined.WriteString(html.UnescapeString(body))
	}
	assert.Equal(t, raw, joined.String())
}
