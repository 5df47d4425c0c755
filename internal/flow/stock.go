package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/clock"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/pharmacy"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
)

// StockStep is the position within the stock/pickup intake.
type StockStep string

const (
	StockActivate   StockStep = "activate"
	StockAskDrug    StockStep = "ask_drug"
	StockAskFreq    StockStep = "ask_freq"
	StockAskHour    StockStep = "ask_hour"
	StockWaitPickup StockStep = "wait_pickup"
)

// Seeds of the stock prompts.
const (
	SeedStockActive = "stock_activa"
	SeedStockFreq   = "stock_freq"
)

// Canonical answers of the prescription question.
const (
	StockYesToken    = "stock_si"
	StockMaybeToken  = "stock_no_se"
	StockNoToken     = "stock_no"
	RetirePrefix     = "retire "
	stockFreqFooter  = "Frecuencia de retiro"
	stockIntroFooter = "Gestión de Medicamentos • MedicAI"
)

// StockFrequencies are the canonical texts of the frequency rows.
var StockFrequencies = []string{"cada 30 dias", "cada 15 dias", "otra frecuencia"}

// StockSession holds the drug, frequency and hour collected so far.
type StockSession struct {
	Step     StockStep
	Drug     string
	FreqDays int
	Hour     string
}

func (StockSession) Kind() session.Kind { return session.KindStock }

// Stock collects a recurring pharmacy pickup.
type Stock struct {
	sessions *session.Registry
	pickups  store.PickupRepo
	lookup   pharmacy.Lookup
	clock    clock.Clock
}

// Start opens the intake and asks whether the user holds a prescription.
func (s *Stock) Start(user string) []models.Message {
	s.sessions.Set(user, StockSession{Step: StockActivate})
	body := "💊 *Gestión Inteligente de Medicamentos* 💊\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"📋 *Control de Retiros y Stock* 📋\n\n" +
		"🔹 *Servicios disponibles:*\n" +
		"• Verificación de disponibilidad\n" +
		"• Programación de retiros\n" +
		"• Recordatorios automáticos\n" +
		"• Vinculación con adherencia\n\n" +
		"📝 *Para empezar, necesito saber:*\n" +
		"¿Tienes una *receta médica activa*\n" +
		"que aún no has retirado?\n\n" +
		"💡 *Selecciona tu situación:*"
	return []models.Message{models.List(body, stockIntroFooter, SeedStockActive,
		"✅ Sí, tengo receta", "🤔 No estoy seguro/a", "❌ No tengo receta")}
}

// Handle advances an active intake. In the waiting step a "retire ..."
// command clears the session and is returned as ErrNotHandled so that the
// command handler records it.
func (s *Stock) Handle(ctx context.Context, user, text string) ([]models.Message, error) {
	ss, ok := session.Lookup[StockSession](s.sessions, user)
	if !ok {
		return nil, ErrNotHandled
	}

	var out []models.Message
	switch ss.Step {
	case StockActivate:
		if text != StockYesToken && text != StockMaybeToken {
			s.sessions.Clear(user)
			return []models.Message{models.Text("Entendido. Cuando tengas una receta activa, vuelve a escribirme.")}, nil
		}
		ss.Step = StockAskDrug
		out = append(out, models.Text("💊 Dime el *nombre del medicamento* o envía *foto clara de la receta*."))

	case StockAskDrug:
		ss.Drug = strings.TrimSpace(text)
		out = append(out,
			models.Text("🔍 Estoy revisando disponibilidad…"),
			models.Text(availabilityText(ss.Drug, s.lookup.Availability(ctx, ss.Drug))),
			models.List("¿Cada cuánto te corresponde retirar?", stockFreqFooter, SeedStockFreq,
				"Cada 30 días", "Cada 15 días", "Otra frecuencia"))
		ss.Step = StockAskFreq

	case StockAskFreq:
		ss.FreqDays = ParseFrequencyDays(text)
		ss.Step = StockAskHour
		out = append(out, models.Text("⏰ ¿A qué *hora* te recuerdo? (24h, ej: 08:00)"))

	case StockAskHour:
		ss.Hour = HourOrDefault(text, DefaultHour)
		first := s.clock.Today().AddDate(0, 0, ss.FreqDays).Format(models.DateLayout)
		if _, err := s.pickups.SchedulePickup(ctx, user, ss.Drug, first, ss.Hour, ss.FreqDays); err != nil {
			return nil, fmt.Errorf("failed to schedule pickup cycle: %w", err)
		}
		ss.Step = StockWaitPickup
		out = append(out,
			models.Text(fmt.Sprintf("✅ Listo. Te recordaré *%s* cada *%d días* a las *%s*.\n📢 Aviso *3 días antes* y el *día del retiro*.",
				ss.Drug, ss.FreqDays, ss.Hour)),
			models.Text("📝 Cuando llegue la fecha, te preguntaré: *¿Pudiste retirar?*\n"+
				"También puedes registrar manual: *retire [nombre] si|no*."))

	default:
		s.sessions.Clear(user)
		if strings.HasPrefix(text, RetirePrefix) {
			return nil, ErrNotHandled
		}
		return []models.Message{models.Text("👍 Perfecto. Te avisaré en la fecha programada.")}, nil
	}

	s.sessions.Set(user, ss)
	return out, nil
}

func availabilityText(drug string, a pharmacy.Availability) string {
	switch a {
	case pharmacy.Available:
		return fmt.Sprintf("✅ *%s* está *disponible*.", drug)
	case pharmacy.Low:
		return fmt.Sprintf("⚠️ Queda *poco stock* de *%s*. Se recomienda acudir pronto.", drug)
	case pharmacy.None:
		return fmt.Sprintf("❌ No hay stock de *%s* por ahora. ¿Quieres que te avise cuando haya?", drug)
	default:
		return "🤷‍♂️ No tengo acceso en línea al sistema de farmacia. " +
			"¿Quieres que *programe recordatorios* para no olvidar el retiro?"
	}
}
