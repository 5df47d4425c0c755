package dispatcher

import (
	"slices"
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/flow"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
)

// Intent is the classified purpose of one inbound text.
type Intent string

const (
	IntentEmergency            Intent = "emergency"
	IntentTriageContinue       Intent = "triage_continue"
	IntentGreeting             Intent = "greeting"
	IntentMoreMenu             Intent = "more_menu"
	IntentAppointmentStart     Intent = "appointment_start"
	IntentAppointmentContinue  Intent = "appointment_continue"
	IntentMedicationStart      Intent = "medication_start"
	IntentMedicationContinue   Intent = "medication_continue"
	IntentListReminders        Intent = "list_reminders"
	IntentHelp                 Intent = "help"
	IntentDebugTime            Intent = "debug_time"
	IntentTestReminder         Intent = "test_reminder"
	IntentRemoveReminder       Intent = "remove_reminder"
	IntentTriageMenu           Intent = "triage_menu"
	IntentTriageMoreCategories Intent = "triage_more_categories"
	IntentTriageStart          Intent = "triage_start"
	IntentStockStart           Intent = "stock_start"
	IntentStockContinue        Intent = "stock_continue"
	IntentManageReminders      Intent = "manage_reminders"
	IntentStockAdd             Intent = "stock_add"
	IntentStockRemove          Intent = "stock_remove"
	IntentStockShow            Intent = "stock_show"
	IntentSchedulePickup       Intent = "schedule_pickup"
	IntentScheduleCycle        Intent = "schedule_cycle"
	IntentConfirmPickup        Intent = "confirm_pickup"
	IntentLinkAdherenceYes     Intent = "link_adherence_yes"
	IntentLinkAdherenceNo      Intent = "link_adherence_no"
	IntentLinkDoses            Intent = "link_doses"
	IntentListPickups          Intent = "list_pickups"
	IntentThanks               Intent = "thanks"
	IntentFarewell             Intent = "farewell"
	IntentRouteStart           Intent = "route_start"
	IntentRouteContinue        Intent = "route_continue"
	IntentUnknown              Intent = "unknown"
)

// Command prefixes and canonical tokens recognized by the classifier.
const (
	MoreMenuToken         = "menu_mas"
	StockAddPrefix        = "stock agregar "
	StockRemovePrefix     = "stock bajar "
	StockShowPrefix       = "stock ver "
	SchedulePickupPrefix  = "programar retiro "
	ScheduleCyclePrefix   = "programar ciclo "
	LinkDosesPrefix       = "vincular tomas "
	RemoveReminderPrefix  = "eliminar recordatorio"
	LinkAdherenceYesToken = "vincular_adherencia_si"
	LinkAdherenceNoToken  = "vincular_adherencia_no"
)

var (
	emergencyWords   = []string{"ayuda urgente", "urgente", "accidente", "samu", "131"}
	greetingWords    = []string{"hola", "buenas", "saludos"}
	appointmentWords = []string{"agendar cita", "cita medica"}
	listReminders    = []string{"mis recordatorios", "ver recordatorios", "recordatorios"}
	helpWords        = []string{"comandos", "comando", "ayuda comandos", "ver comandos"}
	listPickups      = []string{"mis retiros", "ver retiros"}
	farewellWords    = []string{"adios", "chao", "hasta luego"}
	routeWords       = []string{"guia de ruta", "derivacion", "ruta de atencion"}
)

// Classify maps normalized text, plus the user's active session (nil when
// there is none), to an intent. Rules are evaluated in order and the first
// match wins:
//
//  1. emergency keywords, even inside another flow
//  2. an active triage consumes everything else
//  3. greeting, "more options" menu
//  4. appointment start, then an active appointment
//  5. medication reminder start, then an active medication setup
//  6. reminder commands: list, help, debug hora, test en 1 min, eliminar
//  7. triage menus and category selection
//  8. stock intake start, then an active stock intake
//  9. reminder management, stock and pickup commands, adherence linking
//  10. thanks, farewell
//  11. route guidance start, then an active route guidance
//  12. anything else is unknown
func Classify(text string, s session.Session) Intent {
	var kind session.Kind
	if s != nil {
		kind = s.Kind()
	}

	switch {
	case containsAny(text, emergencyWords):
		return IntentEmergency
	case kind == session.KindTriage:
		return IntentTriageContinue
	case containsAny(text, greetingWords):
		return IntentGreeting
	case text == MoreMenuToken:
		return IntentMoreMenu
	case containsAny(text, appointmentWords):
		return IntentAppointmentStart
	case kind == session.KindAppointment:
		return IntentAppointmentContinue
	case strings.Contains(text, "recordatorio de medicamento"):
		return IntentMedicationStart
	case kind == session.KindMedication:
		return IntentMedicationContinue
	case slices.Contains(listReminders, text):
		return IntentListReminders
	case slices.Contains(helpWords, text):
		return IntentHelp
	case text == "debug hora":
		return IntentDebugTime
	case text == "test en 1 min":
		return IntentTestReminder
	case strings.HasPrefix(text, RemoveReminderPrefix):
		return IntentRemoveReminder
	case strings.Contains(text, "orientacion de sintomas"):
		return IntentTriageMenu
	case text == flow.MoreCategoriesToken:
		return IntentTriageMoreCategories
	case isTriageStart(text):
		return IntentTriageStart
	case text == "stock de medicamentos":
		return IntentStockStart
	case kind == session.KindStock:
		return IntentStockContinue
	case text == "gestionar recordatorios":
		return IntentManageReminders
	case strings.HasPrefix(text, StockAddPrefix):
		return IntentStockAdd
	case strings.HasPrefix(text, StockRemovePrefix):
		return IntentStockRemove
	case strings.HasPrefix(text, StockShowPrefix):
		return IntentStockShow
	case strings.HasPrefix(text, SchedulePickupPrefix):
		return IntentSchedulePickup
	case strings.HasPrefix(text, ScheduleCyclePrefix):
		return IntentScheduleCycle
	case strings.HasPrefix(text, flow.RetirePrefix):
		return IntentConfirmPickup
	case text == LinkAdherenceYesToken:
		return IntentLinkAdherenceYes
	case text == LinkAdherenceNoToken:
		return IntentLinkAdherenceNo
	case strings.HasPrefix(text, LinkDosesPrefix):
		return IntentLinkDoses
	case slices.Contains(listPickups, text):
		return IntentListPickups
	case strings.Contains(text, "gracias"):
		return IntentThanks
	case containsAny(text, farewellWords):
		return IntentFarewell
	case containsAny(text, routeWords):
		return IntentRouteStart
	case kind == session.KindRoute:
		return IntentRouteContinue
	default:
		return IntentUnknown
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func isTriageStart(text string) bool {
	_, ok := flow.ParseStartToken(text)
	return ok
}
