package flow

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
)

// AppointmentStep is the position within an appointment booking.
type AppointmentStep string

const (
	AppointmentSpecialty    AppointmentStep = "specialty"
	AppointmentDateTime     AppointmentStep = "datetime"
	AppointmentSite         AppointmentStep = "site"
	AppointmentNewSite      AppointmentStep = "new_site"
	AppointmentConfirmation AppointmentStep = "confirmation"
)

// Seeds of the appointment prompts.
const (
	SeedSpecialtyPage1 = "cita_especialidad"
	SeedSpecialtyPage2 = "cita_especialidad2"
	SeedSpecialtyPage3 = "cita_especialidad3"
	SeedDatePreference = "cita_fecha"
	SeedDateTimeSlot   = "cita_datetime"
	SeedSite           = "cita_sede"
	SeedNewSite        = "cita_nueva_sede"
	SeedConfirmation   = "cita_confirmacion"
)

// Canonical tokens of the appointment navigation options.
const (
	MoreSpecialtiesToken     = "ver mas especialidades"
	EvenMoreSpecialtiesToken = "mostrar mas especialidades"
	ChooseDateToken          = "elegir fecha y hora"
	EarliestToken            = "lo antes posible"
	ChangeSiteToken          = "no, cambiar de sede"
	ReminderYesToken         = "cita_confirmacion_si"
	ReminderNoToken          = "cita_confirmacion_no"
)

// Earliest is the date/time recorded when the user has no preference.
const Earliest = "Lo antes posible"

// DefaultSite is kept when the user does not change site.
const DefaultSite = "Sede Talca"

// Specialty is one bookable specialty: the list row title and the name
// shown in the confirmation.
type Specialty struct {
	Option string
	Name   string
}

// Token returns the canonical text a selection of s maps to.
func (s Specialty) Token() string {
	return normalize.Text(s.Name)
}

// SpecialtyPages are the three pages of the specialty menu. The last row of
// the first two pages navigates to the next page.
var SpecialtyPages = [][]Specialty{
	{
		{"🩺 Medicina General", "Medicina General"},
		{"👶 Pediatría", "Pediatría"},
		{"🤰 Ginecología y Obstetricia", "Ginecología y Obstetricia"},
		{"🧠 Salud Mental", "Salud Mental"},
		{"🏋️‍♂️ Kinesiología", "Kinesiología"},
		{"🦷 Odontología", "Odontología"},
		{"➡️ Ver más Especialidades", MoreSpecialtiesToken},
	},
	{
		{"👁️ Oftalmología", "Oftalmología"},
		{"🩸 Dermatología", "Dermatología"},
		{"🦴 Traumatología", "Traumatología"},
		{"❤️ Cardiología", "Cardiología"},
		{"🥗 Nutrición y Dietética", "Nutrición y Dietética"},
		{"🗣️ Fonoaudiología", "Fonoaudiología"},
		{"🏥 Medicina Interna", "Medicina Interna"},
		{"🔧 Reumatología", "Reumatología"},
		{"🧠 Neurología", "Neurología"},
		{"➡️ mostrar más…", EvenMoreSpecialtiesToken},
	},
	{
		{"🍽️ Gastroenterología", "Gastroenterología"},
		{"🧬 Endocrinología", "Endocrinología"},
		{"🚻 Urología", "Urología"},
		{"🦠 Infectología", "Infectología"},
		{"🌿 Terapias Complementarias", "Terapias Complementarias"},
		{"🧪 Toma de Muestras", "Toma de Muestras"},
		{"👶 Vacunación / Niño Sano", "Vacunación / Niño Sano"},
		{"🏠 Atención Domiciliaria", "Atención Domiciliaria"},
		{"💻 Telemedicina", "Telemedicina"},
		{"❓ Otro / No sé", "Otro / No sé"},
	},
}

var specialtySeeds = []string{SeedSpecialtyPage1, SeedSpecialtyPage2, SeedSpecialtyPage3}

// SpecialtySeed returns the list seed of the 0-based specialty page.
func SpecialtySeed(page int) string {
	return specialtySeeds[page]
}

// DateTimeSlots are the fixed bookable slots offered by "elegir fecha y hora".
var DateTimeSlots = []string{
	"2025-09-02 10:00 AM",
	"2025-09-02 11:30 AM",
	"2025-09-02 02:00 PM",
	"2025-09-03 09:00 AM",
	"2025-09-03 03:00 PM",
	"2025-09-04 10:00 AM",
	"2025-09-04 01:00 PM",
	"2025-09-05 09:30 AM",
	"2025-09-05 11:00 AM",
	"2025-09-05 02:30 PM",
}

// Sites are the attention sites offered when changing site.
var Sites = []string{"Sede Talca", "Sede Curicó", "Sede Linares"}

// AppointmentSession holds the answers collected so far.
type AppointmentSession struct {
	Step      AppointmentStep
	Specialty string
	DateTime  string
	Site      string
}

func (AppointmentSession) Kind() session.Kind { return session.KindAppointment }

// Appointment books a medical appointment.
type Appointment struct {
	sessions *session.Registry
}

// Start opens a booking and offers the first specialty page.
func (a *Appointment) Start(user string) []models.Message {
	a.sessions.Set(user, AppointmentSession{Step: AppointmentSpecialty})
	body := "🗓️ *¡Excelente decisión!* 🗓️\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"✨ *Agendamiento de Citas Médicas* ✨\n\n" +
		"👩‍⚕️ *Selecciona el tipo de atención:*\n" +
		"🔹 Contamos con profesionales especializados\n" +
		"🔹 Horarios flexibles disponibles\n" +
		"🔹 Atención de calidad garantizada\n\n" +
		"💡 *¿Qué especialidad necesitas?*"
	return []models.Message{specialtyList(0, body, "Agendamiento • MedicAI")}
}

// Handle advances an active booking.
func (a *Appointment) Handle(_ context.Context, user, text string) ([]models.Message, error) {
	s, ok := session.Lookup[AppointmentSession](a.sessions, user)
	if !ok {
		return nil, ErrNotHandled
	}

	var out []models.Message
	switch s.Step {
	case AppointmentSpecialty:
		switch text {
		case MoreSpecialtiesToken:
			return []models.Message{specialtyList(1, "🔍 Otras especialidades – selecciona una opción:", "Agendamiento – Especialidades")}, nil
		case EvenMoreSpecialtiesToken:
			return []models.Message{specialtyList(2, "🔍 Más especialidades – selecciona una opción:", "Agendamiento – Especialidades")}, nil
		}
		s.Specialty = specialtyName(text)
		s.Step = AppointmentDateTime
		out = append(out, models.Buttons("⏰ ¿Tienes preferencia de día y hora para tu atención?",
			"Agendamiento – Fecha y Hora", SeedDatePreference, "📅 Elegir Fecha y Hora", "⚡ Lo antes posible"))

	case AppointmentDateTime:
		if text == ChooseDateToken {
			return []models.Message{models.List("Por favor selecciona fecha y hora para tu cita:",
				"Agendamiento – Fecha y Hora", SeedDateTimeSlot, DateTimeSlots...)}, nil
		}
		body := "¿Atenderás en la misma sede de siempre?"
		if slot, ok := selectedSlot(text); ok {
			s.DateTime = slot
			body = fmt.Sprintf("Has seleccionado *%s*. %s", slot, body)
		} else {
			s.DateTime = Earliest
		}
		s.Step = AppointmentSite
		out = append(out, models.Buttons(body, "Agendamiento – Sede", SeedSite, "Sí", "No, cambiar de sede"))

	case AppointmentSite:
		if text == ChangeSiteToken {
			s.Step = AppointmentNewSite
			body := "Selecciona tu nueva sede:\n• " + strings.Join(Sites, "\n• ")
			out = append(out, models.List(body, "Agendamiento – Nueva Sede", SeedNewSite, Sites...))
			break
		}
		s.Site = DefaultSite
		s.Step = AppointmentConfirmation
		out = append(out, confirmation(s))

	case AppointmentNewSite:
		s.Site = DefaultSite
		for _, site := range Sites {
			if normalize.Text(site) == text {
				s.Site = site
			}
		}
		s.Step = AppointmentConfirmation
		out = append(out, confirmation(s))

	case AppointmentConfirmation:
		a.sessions.Clear(user)
		body := "🌟 *¡Proceso Completado con Éxito!* 🌟\n" +
			"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
			"💙 *Gracias por confiar en MedicAI* 💙\n\n" +
			"✅ *Tu cita está confirmada y guardada*\n" +
			"🩺 *Nuestro equipo te espera*\n" +
			"📱 *Mantén tu teléfono activo para recordatorios*\n\n" +
			"💡 *Recuerda:*\n" +
			"🔹 Llegar 15 minutos antes\n" +
			"🔹 Traer tu cédula de identidad\n" +
			"🔹 Cualquier examen previo relacionado\n\n" +
			"🚀 *¡Que tengas un excelente día!* ✨"
		if text == ReminderYesToken {
			body += "\n\n📲 Anotamos tu preferencia de recordatorio."
		}
		return []models.Message{models.Text(body)}, nil
	}

	a.sessions.Set(user, s)
	return out, nil
}

func specialtyList(page int, body, footer string) models.Message {
	opts := make([]string, 0, len(SpecialtyPages[page]))
	for _, sp := range SpecialtyPages[page] {
		opts = append(opts, sp.Option)
	}
	return models.List(body, footer, SpecialtySeed(page), opts...)
}

// specialtyName resolves a canonical specialty token to its display name.
// Free text is accepted as a specialty as typed.
func specialtyName(text string) string {
	for _, page := range SpecialtyPages {
		for _, sp := range page {
			if sp.Token() == text {
				return sp.Name
			}
		}
	}
	return capitalize(strings.TrimSpace(text))
}

func selectedSlot(text string) (string, bool) {
	for i, slot := range DateTimeSlots {
		if text == models.RowID(SeedDateTimeSlot, i+1) {
			return slot, true
		}
	}
	return "", false
}

func confirmation(s AppointmentSession) models.Message {
	when := s.DateTime
	if date, hour, ok := strings.Cut(when, " "); ok && when != Earliest {
		when = date + " a las " + hour
	}
	body := "🎉 *¡Cita Agendada Exitosamente!* 🎉\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"✅ *Confirmación de Agendamiento* ✅\n\n" +
		fmt.Sprintf("📅 *Fecha y Hora:* %s\n", when) +
		fmt.Sprintf("👩‍⚕️ *Especialidad:* %s\n", s.Specialty) +
		fmt.Sprintf("🏥 *Sede:* %s\n\n", s.Site) +
		"📲 *¿Deseas recibir un recordatorio?*\n" +
		"🔹 Te enviaremos una notificación\n" +
		"🔹 El día anterior a tu cita\n" +
		"🔹 Para que no se te olvide\n\n" +
		"💙 *¡Nos vemos pronto!*"
	return models.Buttons(body, "Confirmación • MedicAI", SeedConfirmation, "✅ Sí, recordarme", "❌ No, gracias")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
