package paygate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout/pkg/paygate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, handler http.HandlerFunc) *paygate.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return paygate.NewClient(paygate.Config{
		MerchantID: "merchant-1",
		BaseURL:    srv.URL,
		Timeout:    200 * time.Millisecond,
	}, zap.NewNop())
}

func TestClient_RequestPayment_Accepted(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/rest/WebGate/PaymentRequest.json", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant-1", body["MerchantID"])
		assert.Equal(t, float64(120000), body["Amount"])
		_, _ = w.Write([]byte(`{"Status":100,"Authority":"A0001"}`))
	})

	auth, err := client.RequestPayment(context.Background(), paygate.PaymentRequest{
		Amount:      120000,
		Description: "Teapot",
		CallbackURL: "http://localhost/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "A0001", auth.Authority)
	assert.Contains(t, client.StartPayURL(auth.Authority), "/pg/StartPay/A0001")
}

func TestClient_RequestPayment_Rejected(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Status":-3,"Authority":""}`))
	})

	_, err := client.RequestPayment(context.Background(), paygate.PaymentRequest{Amount: 10})
	require.Error(t, err)
	assert.True(t, paygate.IsRejected(err))
	assert.False(t, paygate.IsTransport(err))

	var rej *paygate.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, -3, rej.Status)
}

func TestClient_TransportFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		})
		_, err := client.VerifyPayment(context.Background(), 10, "A1")
		assert.True(t, paygate.IsTransport(err))
		assert.False(t, paygate.IsRejected(err))
	})

	t.Run("server error", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.VerifyPayment(context.Background(), 10, "A1")
		assert.True(t, paygate.IsTransport(err))
	})

	t.Run("garbage body", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := client.RequestPayment(context.Background(), paygate.PaymentRequest{Amount: 10})
		assert.True(t, paygate.IsTransport(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		client := paygate.NewClient(paygate.Config{BaseURL: url, Timeout: time.Second}, zap.NewNop())
		_, err := client.RequestPayment(context.Background(), paygate.PaymentRequest{Amount: 10})
		assert.True(t, paygate.IsTransport(err))
	})
}

func TestClient_VerifyPayment(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/rest/WebGate/PaymentVerification.json", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["Authority"] == "A-again" {
			_, _ = w.Write([]byte(`{"Status":101,"RefID":555}`))
			return
		}
		if body["Amount"] != float64(120000) {
			_, _ = w.Write([]byte(`{"Status":-21,"RefID":0}`))
			return
		}
		_, _ = w.Write([]byte(`{"Status":100,"RefID":12345678}`))
	})

	v, err := client.VerifyPayment(context.Background(), 120000, "A1")
	require.NoError(t, err)
	assert.Equal(t, "12345678", v.RefID)

	v, err = client.VerifyPayment(context.Background(), 120000, "A-again")
	require.NoError(t, err)
	assert.Equal(t, "555", v.RefID)
	assert.Equal(t, paygate.StatusAlreadyVerified, v.Status)

	_, err = client.VerifyPayment(context.Background(), 1, "A1")
	assert.True(t, paygate.IsRejected(err))
}

func TestClient_VerifyPayment_MissingRefID(t *testing.T) {
	for _, body := range []string{`{"Status":100}`, `{"Status":101,"RefID":0}`} {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		v, err := client.VerifyPayment(context.Background(), 120000, "A1")
		assert.Nil(t, v, body)
		assert.True(t, paygate.IsTransport(err), body)
	}
}

func TestNewClient_ModeSelectsHost(t *testing.T) {
	sandbox := paygate.NewClient(paygate.Config{Mode: paygate.ModeSandbox}, zap.NewNop())
	live := paygate.NewClient(paygate.Config{Mode: paygate.ModeLive}, zap.NewNop())
	assert.Equal(t, "https://sandbox.zarinpal.com/pg/StartPay/A1", sandbox.StartPayURL("A1"))
	assert.Equal(t, "https://www.zarinpal.com/pg/StartPay/A1", live.StartPayURL("A1"))
}

func TestFake_Deterministic(t *testing.T) {
	ctx := context.Background()
	fake := paygate.NewFake()

	auth, err := fake.RequestPayment(ctx, paygate.PaymentRequest{Amount: 500})
	require.NoError(t, err)

	_, err = fake.VerifyPayment(ctx, 499, auth.Authority)
	assert.True(t, paygate.IsRejected(err))

	first, err := fake.VerifyPayment(ctx, 500, auth.Authority)
	require.NoError(t, err)
	second, err := fake.VerifyPayment(ctx, 500, auth.Authority)
	require.NoError(t, err)
	assert.Equal(t, first.RefID, second.RefID)
	assert.Equal(t, paygate.StatusAlreadyVerified, second.Status)
	assert.Equal(t, 3, fake.VerifyCalls)

	_, err = fake.VerifyPayment(ctx, 500, "unknown")
	assert.True(t, paygate.IsRejected(err))
}
