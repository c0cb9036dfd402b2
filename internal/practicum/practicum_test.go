package practicum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL + "/api/user_api/homework_statuses/", Token: "secret"}, testLogger(), opts...)
	require.NoError(t, err)
	return c
}

func TestFetchSendsAuthAndCursor(t *testing.T) {
	t.Parallel()
	var gotAuth, gotFrom, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"homeworks":[],"current_date":1000}`))
	})

	v, err := c.Fetch(context.Background(), 900)
	require.NoError(t, err)
	assert.Equal(t, "OAuth secret", gotAuth)
	assert.Equal(t, "900", gotFrom)
	assert.Equal(t, "/api/user_api/homework_statuses/", gotPath)

	b, err := CheckResponse(v)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.CurrentDate)
	assert.Empty(t, b.Homeworks)
}

func TestFetchZeroCursorUsesNow(t *testing.T) {
	t.Parallel()
	var gotFrom string
	now := time.Unix(1_700_000_000, 0)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from_date")
		_, _ = w.Write([]byte(`{}`))
	}, WithClock(func() time.Time { return now }))

	_, err := c.Fetch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", gotFrom)
}

func TestFetchFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusServiceUnavailable)
			},
			want: ErrUnexpectedStatus,
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":"not_authenticated"}`))
			},
			want: ErrUnexpectedStatus,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>oops</html>`))
			},
			want: ErrDecode,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, tt.handler)
			_, err := c.Fetch(context.Background(), 1)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchErrorBodyCutOnRuneBoundary(t *testing.T) {
	t.Parallel()
	body := `{"detail":"` + strings.Repeat("Ж", 200) + `"}`
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})
	_, err := c.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), "ЖЖЖ...")
	assert.NotContains(t, err.Error(), `"}`)
}

func TestFetchTransportFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{Endpoint: url, Token: "x"}, testLogger())
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), 1)
	require.ErrorIs(t, err, ErrRequest)
}

func TestFetchHonorsContext(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, 1)
	require.ErrorIs(t, err, ErrRequest)
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	_, err := NewClient(Config{Endpoint: "https://example.com/", Token: ""}, testLogger())
	assert.Error(t, err)
	_, err = NewClient(Config{Endpoint: "example.com", Token: "t"}, testLogger())
	assert.Error(t, err)
}

func TestCheckResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "not an object", body: `[1,2]`, want: ErrNotObject},
		{name: "missing homeworks", body: `{"current_date":1}`, want: ErrMissingHomeworks},
		{name: "homeworks not a list", body: `{"homeworks":{"a":1},"current_date":1}`, want: ErrHomeworksNotList},
		{name: "missing current_date", body: `{"homeworks":[]}`, want: ErrMissingCurrentDate},
		{name: "current_date not a number", body: `{"homeworks":[],"current_date":"yesterday"}`, want: ErrBadCurrentDate},
		{name: "current_date fractional", body: `{"homeworks":[],"current_date":1.5}`, want: ErrBadCurrentDate},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := CheckResponse(decode(t, tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckResponseOrder(t *testing.T) {
	t.Parallel()
	// Both keys missing: homeworks is reported first.
	_, err := CheckResponse(decode(t, `{}`))
	require.ErrorIs(t, err, ErrMissingHomeworks)

	// Bad list reported before missing current_date.
	_, err = CheckResponse(decode(t, `{"homeworks":"x"}`))
	require.ErrorIs(t, err, ErrHomeworksNotList)
}

func TestCheckResponseAcceptsPlainFloats(t *testing.T) {
	t.Parallel()
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"homeworks":[{"status":"approved"}],"current_date":1000}`), &v))
	b, err := CheckResponse(v)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.CurrentDate)
	assert.Len(t, b.Homeworks, 1)
}

func TestParseStatusVerdicts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status string
		want   string
	}{
		{status: StatusApproved, want: `Изменился статус проверки работы "hw1". Работа проверена: ревьюеру всё понравилось. Ура!`},
		{status: StatusReviewing, want: `Изменился статус проверки работы "hw1". Работа взята на проверку ревьюером.`},
		{status: StatusRejected, want: `Изменился статус проверки работы "hw1". Работа проверена: у ревьюера есть замечания.`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStatus(map[string]any{"homework_name": "hw1", "status": tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatusFailures(t *testing.T) {
	t.Parallel()
	_, err := ParseStatus(map[string]any{"status": "approved"})
	require.ErrorIs(t, err, ErrMissingName)

	_, err = ParseStatus(map[string]any{"homework_name": "hw"})
	require.ErrorIs(t, err, ErrMissingStatus)

	_, err = ParseStatus("hw")
	require.ErrorIs(t, err, ErrRecordNotObject)

	_, err = ParseStatus(map[string]any{"homework_name": "hw", "status": "lost"})
	require.ErrorIs(t, err, ErrUnknownStatus)
	var use *UnknownStatusError
	require.ErrorAs(t, err, &use)
	assert.Equal(t, "lost", use.Status)
	assert.Contains(t, err.Error(), "lost")
	assert.Contains(t, err.Error(), "known: approved, rejected, reviewing")
}

func TestSpecExampleResponse(t *testing.T) {
	t.Parallel()
	b, err := CheckResponse(decode(t, `{"homeworks": [{"homework_name": "hw1", "status": "approved"}], "current_date": 1000}`))
	require.NoError(t, err)
	require.Len(t, b.Homeworks, 1)
	msg, err := ParseStatus(b.Homeworks[0])
	require.NoError(t, err)
	assert.Equal(t, `Изменился статус проверки работы "hw1". Работа проверена: ревьюеру всё понравилось. Ура!`, msg)
	assert.Equal(t, int64(1000), b.CurrentDate)
}

func TestStatusesTable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{StatusApproved, StatusRejected, StatusReviewing}, knownStatuses())
	for _, s := range knownStatuses() {
		v, ok := Verdict(s)
		assert.True(t, ok)
		assert.NotEmpty(t, v)
	}
}
