package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
)

// MedicationStep is the position within the reminder setup.
type MedicationStep string

const (
	MedicationAskName  MedicationStep = "ask_name"
	MedicationAskFreq  MedicationStep = "ask_freq"
	MedicationAskTimes MedicationStep = "ask_times"
)

// SeedMedicationFreq is the seed of the intake frequency list.
const SeedMedicationFreq = "med_freq"

// MedicationFrequencies are the intake frequency rows, in menu order.
var MedicationFrequencies = []string{
	"Una vez al día",
	"Dos veces al día",
	"Cada 8 horas",
	"Otro horario personalizado",
}

const medicationFooter = "Recordatorio Medicamentos"

const adherenceClosing = "📌 Recuerda que tomar tus medicamentos es un paso hacia sentirte mejor 💊💙"

// MedicationSession holds the medication and frequency collected so far.
type MedicationSession struct {
	Step      MedicationStep
	Name      string
	Frequency string
}

func (MedicationSession) Kind() session.Kind { return session.KindMedication }

// Medication sets up daily intake reminders.
type Medication struct {
	sessions  *session.Registry
	reminders *reminder.Directory
}

// Start opens the setup and asks for the medication name.
func (m *Medication) Start(user string) []models.Message {
	m.sessions.Set(user, MedicationSession{Step: MedicationAskName})
	body := "💊 *¡Cuidemos tu salud juntos!* 💊\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"⏰ *Sistema de Recordatorios* ⏰\n\n" +
		"🌟 *¿Sabías que?*\n" +
		"• El 90% de los tratamientos exitosos\n" +
		"  dependen de la adherencia terapéutica\n\n" +
		"💡 *Configuremos tu recordatorio:*\n" +
		"🔹 Notificaciones automáticas\n" +
		"🔹 Horarios personalizados\n" +
		"🔹 Seguimiento de tu progreso\n\n" +
		"📝 *¿Cuál es el nombre del medicamento?*"
	return []models.Message{models.Text(body)}
}

// StartWithName opens the setup for a known medication, skipping the name question.
func (m *Medication) StartWithName(user, name string) []models.Message {
	m.sessions.Set(user, MedicationSession{Step: MedicationAskFreq, Name: name})
	body := fmt.Sprintf("✅ Perfecto. Configuraremos tomas para *%s*.\n¿Con qué frecuencia?", name)
	return []models.Message{models.List(body, medicationFooter, SeedMedicationFreq, MedicationFrequencies...)}
}

// Handle advances an active setup.
func (m *Medication) Handle(_ context.Context, user, text string) ([]models.Message, error) {
	s, ok := session.Lookup[MedicationSession](m.sessions, user)
	if !ok {
		return nil, ErrNotHandled
	}

	switch s.Step {
	case MedicationAskName:
		s.Name = strings.TrimSpace(text)
		s.Step = MedicationAskFreq
		m.sessions.Set(user, s)
		return []models.Message{models.List("Perfecto. ¿Con qué frecuencia debes tomarlo?", medicationFooter,
			SeedMedicationFreq, MedicationFrequencies...)}, nil

	case MedicationAskFreq:
		s.Frequency = text
		s.Step = MedicationAskTimes
		m.sessions.Set(user, s)
		return []models.Message{models.Text("Anotaré tus tomas. ¿A qué hora quieres que te lo recuerde? (por ejemplo: 08:00 y 20:00)")}, nil

	default:
		m.sessions.Clear(user)
		times := ExtractTimes(text)
		if len(times) == 0 {
			body := fmt.Sprintf("He guardado tu recordatorio de *%s* para: %s\n\n", s.Name, text) +
				"📝 Para recordatorios automáticos, asegúrate de usar formato 24h (ej: 08:00, 14:00)\n" +
				adherenceClosing
			return []models.Message{models.Text(body)}, nil
		}
		m.reminders.Register(user, s.Name, times)
		body := fmt.Sprintf("¡Listo! ✅ He configurado tus recordatorios de *%s* para las %s.\n\n", s.Name, strings.Join(times, ", ")) +
			"🔔 Recibirás notificaciones automáticas en esos horarios.\n" +
			adherenceClosing
		return []models.Message{models.Text(body)}, nil
	}
}
