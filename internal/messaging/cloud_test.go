package messaging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	return out
}

func TestCloudPayloadText(t *testing.T) {
	b, err := CloudPayload("56911112222", models.Text("hola"))
	if err != nil {
		t.Fatalf("CloudPayload returned error: %v", err)
	}
	got := decode(t, b)
	if got["messaging_product"] != "whatsapp" || got["recipient_type"] != "individual" || got["to"] != "56911112222" || got["type"] != "text" {
		t.Errorf("unexpected envelope: %v", got)
	}
	if got["text"].(map[string]any)["body"] != "hola" {
		t.Errorf("unexpected text: %v", got["text"])
	}
}

func TestCloudPayloadButtonsTruncateTitles(t *testing.T) {
	m := models.Buttons("¿Confirmas?", "MedicAI", "cita_confirmacion", "Sí, confirmar la hora ahora", "No")
	b, err := CloudPayload("56911112222", m)
	if err != nil {
		t.Fatalf("CloudPayload returned error: %v", err)
	}
	inter := decode(t, b)["interactive"].(map[string]any)
	if inter["type"] != "button" {
		t.Fatalf("unexpected interactive type %v", inter["type"])
	}
	if inter["body"].(map[string]any)["text"] != "¿Confirmas?" || inter["footer"].(map[string]any)["text"] != "MedicAI" {
		t.Errorf("unexpected body/footer: %v", inter)
	}
	buttons := inter["action"].(map[string]any)["buttons"].([]any)
	first := buttons[0].(map[string]any)["reply"].(map[string]any)
	if first["id"] != "cita_confirmacion_btn_1" {
		t.Errorf("unexpected id %v", first["id"])
	}
	if title := first["title"].(string); len([]rune(title)) != models.MaxButtonTitleRunes {
		t.Errorf("expected title cut to %d runes, got %q", models.MaxButtonTitleRunes, title)
	}
}

func TestCloudPayloadList(t *testing.T) {
	long := "Otorrinolaringológico (oído, nariz)"
	m := models.List("Elige", "", "triage_cat", "Respiratorio", long)
	b, err := CloudPayload("56911112222", m)
	if err != nil {
		t.Fatalf("CloudPayload returned error: %v", err)
	}
	inter := decode(t, b)["interactive"].(map[string]any)
	if _, ok := inter["footer"]; ok {
		t.Error("expected no footer for an empty footer text")
	}
	action := inter["action"].(map[string]any)
	if action["button"] != ListButtonLabel {
		t.Errorf("unexpected list button %v", action["button"])
	}
	section := action["sections"].([]any)[0].(map[string]any)
	if section["title"] != ListSectionTitle {
		t.Errorf("unexpected section title %v", section["title"])
	}
	rows := section["rows"].([]any)
	short := rows[0].(map[string]any)
	if short["id"] != "triage_cat_row_1" || short["description"] != "" {
		t.Errorf("unexpected short row %v", short)
	}
	cut := rows[1].(map[string]any)
	if cut["description"] != long || len([]rune(cut["title"].(string))) != models.MaxRowTitleRunes {
		t.Errorf("unexpected cut row %v", cut)
	}
}

func TestCloudPayloadReactionAndRead(t *testing.T) {
	b, err := CloudPayload("56911112222", models.Reaction("wamid.1", "🩺"))
	if err != nil {
		t.Fatalf("CloudPayload returned error: %v", err)
	}
	reaction := decode(t, b)["reaction"].(map[string]any)
	if reaction["message_id"] != "wamid.1" || reaction["emoji"] != "🩺" {
		t.Errorf("unexpected reaction %v", reaction)
	}

	b, err = CloudPayload("56911112222", models.MarkRead("wamid.1"))
	if err != nil {
		t.Fatalf("CloudPayload returned error: %v", err)
	}
	read := decode(t, b)
	if read["status"] != "read" || read["message_id"] != "wamid.1" {
		t.Errorf("unexpected read payload %v", read)
	}
	if _, ok := read["to"]; ok {
		t.Error("read receipt must not carry a recipient")
	}
}

func TestCloudPayloadRejectsInvalid(t *testing.T) {
	if _, err := CloudPayload("56911112222", models.Buttons("x", "", "seed", "a", "b", "c", "d")); err == nil {
		t.Error("expected error for four buttons")
	}
}

func TestCloudServiceSend(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		if strings.Contains(string(gotBody), "fail") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	svc, err := NewCloudService(WithCloudURL(ts.URL), WithCloudToken("tok"), WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("NewCloudService returned error: %v", err)
	}
	if err := svc.Send(context.Background(), "56911112222", models.Text("hola")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if decode(t, gotBody)["to"] != "56911112222" {
		t.Errorf("unexpected body %s", gotBody)
	}

	err = svc.Send(context.Background(), "56911112222", models.Text("fail"))
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestNewCloudServiceRequiresConfig(t *testing.T) {
	if _, err := NewCloudService(WithCloudToken("tok")); err == nil {
		t.Error("expected error without URL")
	}
	if _, err := NewCloudService(WithCloudURL("https://graph.example.com")); err == nil {
		t.Error("expected error without token")
	}
}
