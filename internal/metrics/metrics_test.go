package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	m := New()

	m.AccessToken("valid")
	m.AccessToken("valid")
	m.AccessToken("expired")
	m.AuthFlow("login", OutcomeOK)
	m.MailFailure("email_verification")
	m.ObserveHTTP("POST", "/auth/login", http.StatusOK, 10*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.accessTokens.WithLabelValues("valid")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.accessTokens.WithLabelValues("expired")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.authFlows.WithLabelValues("login", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mailFailures.WithLabelValues("email_verification")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `bazario_access_token_validations_total{result="valid"} 2`)
	require.Contains(t, string(body), `bazario_http_request_duration_seconds_count{method="POST",route="/auth/login",status="200"} 1`)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}

	require.NotPanics(t, func() {
		r.AccessToken("valid")
		r.AuthFlow("login", OutcomeError)
		r.MailFailure("password_restore")
	})
}
