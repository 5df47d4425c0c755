package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/symptoms"
)

// TriageStep is the position within a symptom triage.
type TriageStep string

const (
	TriageExtraction   TriageStep = "extraccion"
	TriageConfirmation TriageStep = "confirmacion"
)

// Seeds of the triage menus.
const (
	SeedTriageCategories     = "orientacion_categorias"
	SeedTriageMoreCategories = "orientacion_categorias2"
)

// MoreCategoriesToken is the canonical text of the "more categories" row.
const MoreCategoriesToken = "ver mas categorias"

// TriageSession holds the chosen category and the symptom text awaiting
// confirmation.
type TriageSession struct {
	Category symptoms.Category
	Step     TriageStep
	RawText  string
}

func (TriageSession) Kind() session.Kind { return session.KindTriage }

// Triage guides a user from a category choice to a tentative diagnosis.
type Triage struct {
	sessions *session.Registry
}

// StartToken returns the canonical text that starts a triage for c.
func StartToken(c symptoms.Category) string {
	return "orientacion_" + string(c) + "_extraccion"
}

// ParseStartToken resolves a token built by StartToken.
func ParseStartToken(text string) (symptoms.Category, bool) {
	if !strings.HasPrefix(text, "orientacion_") || !strings.HasSuffix(text, "_extraccion") {
		return "", false
	}
	return symptoms.Parse(strings.TrimSuffix(strings.TrimPrefix(text, "orientacion_"), "_extraccion"))
}

// Menu returns the first page of symptom categories.
func (t *Triage) Menu() []models.Message {
	body := "🩺 *Orientación Médica Inteligente* 🩺\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"🔍 *Análisis de Síntomas* 🔍\n\n" +
		"⚠️ *Importante:*\n" +
		"• Esta es una orientación informativa\n" +
		"• NO reemplaza la consulta médica\n" +
		"• En emergencias, contacta al 131\n\n" +
		"📋 *Selecciona la categoría que mejor\n" +
		"describe tus síntomas:*\n\n" +
		"💡 *Te ayudaré a entender mejor tu situación*"
	opts := make([]string, 0, len(symptoms.FirstPage)+1)
	for _, c := range symptoms.FirstPage {
		opts = append(opts, c.OptionTitle())
	}
	opts = append(opts, "➡️ Ver más categorías")
	return []models.Message{models.List(body, "Sistema de Orientación • MedicAI", SeedTriageCategories, opts...)}
}

// MoreCategories returns the second page of symptom categories.
func (t *Triage) MoreCategories() []models.Message {
	opts := make([]string, 0, len(symptoms.SecondPage))
	for _, c := range symptoms.SecondPage {
		opts = append(opts, c.OptionTitle())
	}
	return []models.Message{models.List("Otras categorías:", "Orient. Síntomas", SeedTriageMoreCategories, opts...)}
}

// Start opens a triage for c and asks for a symptom description.
func (t *Triage) Start(user string, c symptoms.Category) []models.Message {
	t.sessions.Set(user, TriageSession{Category: c, Step: TriageExtraction})
	prompt := fmt.Sprintf("Por favor describe tus síntomas para enfermedades %s.\nEjemplo: '%s'", c.DisplayName(), c.Example())
	return []models.Message{models.Text(prompt)}
}

// Handle advances an active triage.
func (t *Triage) Handle(_ context.Context, user, text string) ([]models.Message, error) {
	s, ok := session.Lookup[TriageSession](t.sessions, user)
	if !ok {
		return nil, ErrNotHandled
	}

	switch s.Step {
	case TriageConfirmation:
		if !affirmative(text) {
			s.Step = TriageExtraction
			t.sessions.Set(user, s)
			return []models.Message{models.Text("Entendido. Por favor describe nuevamente tus síntomas.")}, nil
		}
		t.sessions.Clear(user)
		return []models.Message{models.Text(diagnosisReply(s.Category, s.RawText))}, nil

	default:
		detected := symptoms.Match(s.Category, text)
		if len(detected) == 0 {
			detected = []string{"(ninguno)"}
		}
		s.RawText = text
		s.Step = TriageConfirmation
		t.sessions.Set(user, s)

		body := fmt.Sprintf("🩺 He detectado estos síntomas de *%s*:\n- %s", s.Category.DisplayName(), strings.Join(detected, "\n- "))
		seed := "orientacion_" + string(s.Category) + "_confirmacion"
		return []models.Message{models.Buttons(body, "¿Es correcto?", seed, "Si ✅", "No ❌")}, nil
	}
}

// affirmative reports whether a confirmation answer is a yes: the first
// button of a prompt, or free text starting with "si".
func affirmative(text string) bool {
	if strings.HasSuffix(text, "_btn_1") {
		return true
	}
	fields := normalize.Fields(text)
	return len(fields) > 0 && fields[0] == "si"
}

func diagnosisReply(c symptoms.Category, raw string) string {
	d, ok := symptoms.Diagnose(c, raw)
	if !ok {
		return "No se pudo determinar un diagnóstico con la información proporcionada. " +
			"Te recomiendo acudir a un profesional para una evaluación completa."
	}
	return fmt.Sprintf("Basado en tus síntomas, podrías tener: *%s*.\nNivel de alerta: *%s*.\n\n%s\n\nRecomendaciones generales:\n%s",
		d.Label, d.Severity, d.Advice, symptoms.Recommendations(c))
}
