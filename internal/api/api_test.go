package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/messaging"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/metrics"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
)

// echoHandler replies with the text it received.
type echoHandler struct {
	mu   sync.Mutex
	seen []models.InboundMessage
}

func (h *echoHandler) Handle(_ context.Context, in models.InboundMessage) []models.Message {
	h.mu.Lock()
	h.seen = append(h.seen, in)
	h.mu.Unlock()
	return []models.Message{models.MarkRead(in.MessageID), models.Text("eco: " + in.Text)}
}

func (h *echoHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

type testServer struct {
	server  *Server
	handler *echoHandler
	out     *messaging.MockService
	store   *store.InMemoryStore
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	ts := &testServer{
		handler: &echoHandler{},
		out:     messaging.NewMockService(),
		store:   store.NewInMemoryStore(),
	}
	reg := prometheus.NewRegistry()
	opts = append([]Option{WithVerifyToken("secreto"), WithGatherer(reg), WithMetrics(metrics.New(reg))}, opts...)
	ts.server = NewServer(ts.handler, messaging.NewDeliverer(ts.out, messaging.WithReplyPause(0)), ts.store, opts...)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rr, req)
	return rr
}

func cloudMessage(id, msg string) string {
	return fmt.Sprintf(`{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"contacts":[{"profile":{"name":"Ana"},"wa_id":"56911112222"}],
		"messages":[{"from":"56911112222","id":%q,"timestamp":"1759311000",%s}]}}]}]}`, id, msg)
}

func TestVerifyWebhook(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secreto&hub.challenge=12345", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "valid verification")
	if rr.Body.String() != "12345" {
		t.Errorf("expected challenge echo, got %q", rr.Body.String())
	}

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=otro&hub.challenge=12345", nil))
	testutil.AssertHTTPStatus(t, http.StatusForbidden, rr.Code, "wrong token")

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secreto", nil))
	testutil.AssertHTTPStatus(t, http.StatusForbidden, rr.Code, "missing challenge")
}

func TestReceiveWebhookText(t *testing.T) {
	ts := newTestServer(t)

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", cloudMessage("wamid.1", `"type":"text","text":{"body":"hola"}`))
	rr := ts.do(req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "text message")
	testutil.AssertJSONResponse(t, rr, "ok")

	if got := ts.out.Texts("56911112222"); len(got) != 1 || got[0] != "eco: hola" {
		t.Fatalf("unexpected replies %v", got)
	}
	in := ts.handler.seen[0]
	if in.SenderName != "Ana" || in.Channel != models.ChannelCloudAPI || in.ReceivedAt.Unix() != 1759311000 {
		t.Errorf("unexpected inbound message %+v", in)
	}
	rec, err := ts.store.GetDedupRecord(context.Background(), "wamid.1")
	if err != nil || rec.ProcessedAt == nil {
		t.Errorf("expected processed dedup record, got %+v err=%v", rec, err)
	}
}

func TestReceiveWebhookMessageTypes(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"button reply", `"type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"menu_principal_btn_1","title":"Agendar cita"}}`, "menu_principal_btn_1"},
		{"list reply", `"type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"menu_mas_row_2","title":"Ruta"}}`, "menu_mas_row_2"},
		{"template button", `"type":"button","button":{"text":"Sí","payload":"yes"}`, "Sí"},
		{"image", `"type":"image","image":{"id":"media.1"}`, models.UnprocessedText},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rr := ts.do(testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", cloudMessage(fmt.Sprintf("wamid.%d", i), tt.msg)))
			testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, tt.name)
			if ts.handler.count() != 1 || ts.handler.seen[0].Text != tt.want {
				t.Errorf("expected dispatched text %q, got %+v", tt.want, ts.handler.seen)
			}
		})
	}
}

func TestReceiveWebhookIgnoredAndMalformed(t *testing.T) {
	ts := newTestServer(t)

	status := `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.9","status":"delivered"}]}}]}]}`
	rr := ts.do(testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", status))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "status update")
	testutil.AssertJSONResponse(t, rr, "ignored")

	for name, body := range map[string]string{
		"not JSON":        `{"entry":`,
		"no entry":        `{"entry":[]}`,
		"no changes":      `{"entry":[{"changes":[]}]}`,
		"message without": `{"entry":[{"changes":[{"value":{"messages":[{"type":"text","text":{"body":"hola"}}]}}]}]}`,
	} {
		rr := ts.do(testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", body))
		testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, name)
	}
	if ts.handler.count() != 0 {
		t.Errorf("expected nothing dispatched, got %d", ts.handler.count())
	}
}

func TestReceiveWebhookDropsDuplicates(t *testing.T) {
	ts := newTestServer(t)
	body := cloudMessage("wamid.dup", `"type":"text","text":{"body":"hola"}`)

	for i := 0; i < 3; i++ {
		rr := ts.do(testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", body))
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "retry delivery")
	}
	if ts.handler.count() != 1 {
		t.Errorf("expected a single dispatch, got %d", ts.handler.count())
	}
}

type brokenDedup struct {
	*store.InMemoryStore
}

func (brokenDedup) RecordInbound(context.Context, string, string) (bool, error) {
	return false, errors.New("disk full")
}

func TestProcessContinuesWhenDedupFails(t *testing.T) {
	h := &echoHandler{}
	out := messaging.NewMockService()
	s := NewServer(h, messaging.NewDeliverer(out, messaging.WithReplyPause(0)), brokenDedup{store.NewInMemoryStore()}, WithGatherer(prometheus.NewRegistry()))

	in := models.InboundMessage{UserID: "56911112222", MessageID: "m1", Text: "hola", Channel: models.ChannelTwilio}
	if err := s.Process(context.Background(), in); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if h.count() != 1 {
		t.Errorf("expected event to be dispatched despite dedup failure")
	}
}

func TestProcessRejectsInvalidMessage(t *testing.T) {
	ts := newTestServer(t)
	err := ts.server.Process(context.Background(), models.InboundMessage{UserID: "56911112222", Channel: models.ChannelWhatsmeow})
	if err == nil {
		t.Fatal("expected validation error for missing message id")
	}
	if ts.handler.count() != 0 {
		t.Error("invalid event must not be dispatched")
	}
}

func TestConsume(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan models.InboundMessage, 2)
	ch <- models.InboundMessage{UserID: "56911112222", MessageID: "c1", Text: "uno", Channel: models.ChannelWhatsmeow}
	ch <- models.InboundMessage{UserID: "56933334444", MessageID: "c2", Text: "dos", Channel: models.ChannelWhatsmeow}
	close(ch)

	ts.server.Consume(ctx, ch)
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := ts.server.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if ts.handler.count() != 2 {
		t.Errorf("expected 2 dispatched events, got %d", ts.handler.count())
	}
}

func TestConsumeDropsEventsAfterCancel(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan models.InboundMessage, 1)
	ch <- models.InboundMessage{UserID: "56911112222", MessageID: "late-1", Text: "hola", Channel: models.ChannelWhatsmeow}

	// select may pick the ready event over ctx.Done; it must still be dropped.
	for i := 0; i < 20; i++ {
		ts.server.Consume(ctx, ch)
	}
	if ts.handler.count() != 0 {
		t.Errorf("expected no dispatch on a canceled context, got %d", ts.handler.count())
	}
}

func TestConsumeAfterShutdown(t *testing.T) {
	ts := newTestServer(t)
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := ts.server.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	ch := make(chan models.InboundMessage, 1)
	ch <- models.InboundMessage{UserID: "56911112222", MessageID: "late-2", Text: "hola", Channel: models.ChannelWhatsmeow}
	close(ch)
	ts.server.Consume(context.Background(), ch)
	if ts.handler.count() != 0 {
		t.Errorf("expected no dispatch after Shutdown, got %d", ts.handler.count())
	}
}

func TestTwilioWebhookMounted(t *testing.T) {
	called := false
	ts := newTestServer(t, WithTwilioWebhook(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	rr := ts.do(httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader("From=x")))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "twilio webhook")
	if !called {
		t.Error("expected Twilio handler to be called")
	}

	plain := newTestServer(t)
	rr = plain.do(httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader("From=x")))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "twilio webhook not configured")
}

func TestWelcome(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/bienvenido", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "welcome")
	if !strings.Contains(rr.Body.String(), "MedicAI") {
		t.Errorf("unexpected welcome body %q", rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	resp := testutil.AssertJSONResponse(t, rr, "healthy")
	if _, ok := resp["timestamp"]; !ok {
		t.Error("health response should carry a timestamp")
	}
}

type downStore struct {
	*store.InMemoryStore
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthDegraded(t *testing.T) {
	s := NewServer(&echoHandler{}, messaging.NewDeliverer(messaging.NewMockService()), downStore{store.NewInMemoryStore()}, WithGatherer(prometheus.NewRegistry()))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	testutil.AssertHTTPStatus(t, http.StatusServiceUnavailable, rr.Code, "degraded health")
	testutil.AssertJSONResponse(t, rr, "degraded")
}

func TestStockEndpoint(t *testing.T) {
	ts := newTestServer(t)
	testutil.SeedStock(t, ts.store, map[string]int{"Paracetamol": 12})

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/api/stock/paracetamol", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "known medication")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, _ := resp["result"].(map[string]interface{})
	if result == nil || result["stock"] != float64(12) {
		t.Errorf("unexpected stock result %v", resp["result"])
	}

	testutil.SeedStock(t, ts.store, map[string]int{"Ácido Fólico": 7})
	for _, path := range []string{"/api/stock/acido%20folico", "/api/stock/%C3%81CIDO%20F%C3%93LICO"} {
		rr = ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, path)
		resp = testutil.AssertJSONResponse(t, rr, "ok")
		result, _ = resp["result"].(map[string]interface{})
		if result == nil || result["stock"] != float64(7) || result["name"] != "Ácido Fólico" {
			t.Errorf("%s: unexpected stock result %v", path, resp["result"])
		}
	}

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/api/stock/Ibuprofeno%20400", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown medication")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestPickupsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/api/pickups/56911112222", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "no pickups")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if list, ok := resp["result"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("expected empty list, got %v", resp["result"])
	}

	testutil.SeedPickup(t, ts.store, "56911112222", "Metformina", "2025-10-04", "09:30", 30)
	rr = ts.do(httptest.NewRequest(http.MethodGet, "/api/pickups/56911112222", nil))
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	if list, ok := resp["result"].([]interface{}); !ok || len(list) != 1 {
		t.Errorf("expected one pickup, got %v", resp["result"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(testutil.CreateHTTPRequest(t, http.MethodPost, "/webhook", cloudMessage("wamid.m", `"type":"text","text":{"body":"hola"}`)))

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "metrics")
	if !strings.Contains(rr.Body.String(), "medicai_inbound_messages_total") {
		t.Errorf("expected inbound counter in metrics output")
	}
}
