package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duetmenu/internal/config"
	"duetmenu/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.OrderRecord {
	return &models.OrderRecord{
		ID: "1756300000000",
		Items: []models.CartLine{
			{ID: 1, DishID: "1", DishName: "爱心煎蛋", Price: 0.80, Quantity: 1},
			{ID: 2, DishID: "3", DishName: "水果沙拉", Price: 0.50, Quantity: 3},
		},
		Total:     2.30,
		Timestamp: time.Date(2026, 8, 27, 12, 30, 0, 0, time.UTC),
	}
}

func newSender(t *testing.T, srv *httptest.Server) *ServerChanSender {
	t.Helper()
	logger := zerolog.Nop()
	cfg := config.ServerChanConfig{SendKey: "SCT_TEST", BaseURL: srv.URL, TimeoutSeconds: 2}
	return NewServerChanSender(cfg, srv.Client(), &logger)
}

func TestServerChanSender_Delivered(t *testing.T) {
	var gotPath, gotTitle, gotDesp string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotTitle = r.PostForm.Get("title")
		gotDesp = r.PostForm.Get("desp")
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	err := newSender(t, srv).Send(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "/SCT_TEST.send", gotPath)
	assert.Contains(t, gotTitle, "#17563000")
	assert.Contains(t, gotDesp, "爱心煎蛋")
	assert.Contains(t, gotDesp, "¥1.50")
	assert.Contains(t, gotDesp, "订单总计：¥2.30")
}

func TestServerChanSender_RejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":40001,"message":"bad key"}`))
	}))
	defer srv.Close()

	err := newSender(t, srv).Send(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=40001")
}

func TestServerChanSender_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	err := newSender(t, srv).Send(context.Background(), sampleRecord())
	assert.Error(t, err)
}

func TestServerChanSender_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newSender(t, srv).Send(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestServerChanSender_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	logger := zerolog.Nop()
	cfg := config.ServerChanConfig{SendKey: "SCT_TEST", BaseURL: srv.URL, TimeoutSeconds: 1}
	sender := NewServerChanSender(cfg, nil, &logger)

	err := sender.Send(context.Background(), sampleRecord())
	assert.Error(t, err)
}
