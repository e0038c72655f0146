package coretools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/senja/pkg/tools"
)

func newRegistry(t *testing.T, opts Options) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, Register(r, opts))
	return r
}

func TestRegister(t *testing.T) {
	t.Run("should register the baseline tools", func(t *testing.T) {
		r := newRegistry(t, Options{})
		assert.Equal(t, []string{"echo", "current_time", "calc", "fetch_url"}, r.List())
	})

	t.Run("should require a registry", func(t *testing.T) {
		assert.Error(t, Register(nil, Options{}))
	})
}

func TestEchoTool(t *testing.T) {
	r := newRegistry(t, Options{})

	t.Run("should echo text back", func(t *testing.T) {
		res := r.Execute(context.Background(), "echo", map[string]interface{}{"text": "hello"}, time.Second)
		require.True(t, res.Success)
		assert.Equal(t, "hello", res.Output)
	})

	t.Run("should require the text argument", func(t *testing.T) {
		res := r.Execute(context.Background(), "echo", map[string]interface{}{}, time.Second)
		assert.False(t, res.Success)
	})
}

func TestCurrentTimeTool(t *testing.T) {
	r := newRegistry(t, Options{})

	t.Run("should default to UTC", func(t *testing.T) {
		res := r.Execute(context.Background(), "current_time", nil, time.Second)
		require.True(t, res.Success)

		out, ok := res.Output.(string)
		require.True(t, ok)
		parsed, err := time.Parse(time.RFC3339, out)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), parsed, time.Minute)
	})

	t.Run("should honor a named timezone", func(t *testing.T) {
		res := r.Execute(context.Background(), "current_time", map[string]interface{}{"timezone": "Asia/Jakarta"}, time.Second)
		require.True(t, res.Success)

		out := res.Output.(string)
		parsed, err := time.Parse(time.RFC3339, out)
		require.NoError(t, err)
		_, offset := parsed.Zone()
		assert.Equal(t, 7*60*60, offset)
	})

	t.Run("should reject unknown timezones", func(t *testing.T) {
		res := r.Execute(context.Background(), "current_time", map[string]interface{}{"timezone": "Mars/Olympus"}, time.Second)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "unknown timezone")
	})
}

func TestCalcTool(t *testing.T) {
	r := newRegistry(t, Options{})

	run := func(op string, a, b float64) tools.Result {
		return r.Execute(context.Background(), "calc", map[string]interface{}{
			"op": op, "a": a, "b": b,
		}, time.Second)
	}

	t.Run("should apply the four operations", func(t *testing.T) {
		cases := []struct {
			op   string
			a, b float64
			want float64
		}{
			{"add", 2, 3, 5},
			{"sub", 10, 4, 6},
			{"mul", 6, 7, 42},
			{"div", 9, 3, 3},
		}
		for _, tc := range cases {
			res := run(tc.op, tc.a, tc.b)
			require.True(t, res.Success, tc.op)
			assert.Equal(t, tc.want, res.Output, tc.op)
		}
	})

	t.Run("should reject division by zero", func(t *testing.T) {
		res := run("div", 1, 0)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "division by zero")
	})

	t.Run("should reject unknown operations via the schema", func(t *testing.T) {
		res := run("pow", 2, 3)
		assert.False(t, res.Success)
	})
}

func TestFetchURLTool(t *testing.T) {
	t.Run("should fetch a URL and return status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("hello from upstream"))
		}))
		defer srv.Close()

		r := newRegistry(t, Options{HTTPClient: srv.Client()})
		res := r.Execute(context.Background(), "fetch_url", map[string]interface{}{"url": srv.URL}, 5*time.Second)
		require.True(t, res.Success)

		out, ok := res.Output.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, http.StatusOK, out["status"])
		assert.Equal(t, "hello from upstream", out["body"])
	})

	t.Run("should truncate oversized bodies", func(t *testing.T) {
		big := make([]byte, fetchBodyLimit+1000)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(big)
		}))
		defer srv.Close()

		r := newRegistry(t, Options{HTTPClient: srv.Client()})
		res := r.Execute(context.Background(), "fetch_url", map[string]interface{}{"url": srv.URL}, 5*time.Second)
		require.True(t, res.Success)

		out := res.Output.(map[string]interface{})
		assert.Len(t, out["body"], fetchBodyLimit)
	})

	t.Run("should reject non-http schemes", func(t *testing.T) {
		r := newRegistry(t, Options{})
		res := r.Execute(context.Background(), "fetch_url", map[string]interface{}{"url": "file:///etc/passwd"}, time.Second)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "unsupported URL scheme")
	})
}
