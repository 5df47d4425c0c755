package dispatcher

import (
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/flow"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/symptoms"
)

// Seeds of the stateless menus.
const (
	SeedMainMenu  = "menu_principal"
	SeedMoreMenu  = "menu_mas"
	SeedStockLink = "stock_link"
)

// uiTokens maps interactive option ids to the canonical text the classifier
// and flows understand. Ids of the fixed appointment slots are resolved by
// the appointment flow itself and are absent here.
var uiTokens = buildUIMap()

func buildUIMap() map[string]string {
	m := make(map[string]string)
	buttons := func(seed string, tokens ...string) {
		for i, t := range tokens {
			m[models.ButtonID(seed, i+1)] = t
		}
	}
	rows := func(seed string, tokens ...string) {
		for i, t := range tokens {
			m[models.RowID(seed, i+1)] = t
		}
	}

	buttons(SeedMainMenu, "agendar cita", "recordatorio de medicamento", MoreMenuToken)
	rows(SeedMoreMenu, "orientacion de sintomas", "guia de ruta", "stock de medicamentos", "gestionar recordatorios")

	for page, specialties := range flow.SpecialtyPages {
		for i, sp := range specialties {
			m[models.RowID(flow.SpecialtySeed(page), i+1)] = sp.Token()
		}
	}
	buttons(flow.SeedDatePreference, flow.ChooseDateToken, flow.EarliestToken)
	buttons(flow.SeedSite, "sede talca", flow.ChangeSiteToken)
	for i, site := range flow.Sites {
		m[models.RowID(flow.SeedNewSite, i+1)] = normalize.Text(site)
	}
	buttons(flow.SeedConfirmation, flow.ReminderYesToken, flow.ReminderNoToken)

	for i, c := range symptoms.FirstPage {
		m[models.RowID(flow.SeedTriageCategories, i+1)] = flow.StartToken(c)
	}
	m[models.RowID(flow.SeedTriageCategories, len(symptoms.FirstPage)+1)] = flow.MoreCategoriesToken
	for i, c := range symptoms.SecondPage {
		m[models.RowID(flow.SeedTriageMoreCategories, i+1)] = flow.StartToken(c)
	}

	rows(flow.SeedRouteType, flow.RouteTypeTokens...)
	rows(flow.SeedRouteGES, flow.GESYesToken, flow.GESNoToken, flow.GESUnknownToken)
	buttons(flow.SeedRouteExamsFast, flow.FastingYesToken, "ayuno_no")
	buttons(flow.SeedRouteRx, flow.RxRemindersToken, "rx_recordatorios_no")
	buttons(flow.SeedRouteUrgent, flow.UrgentSAPUToken, "urgent_sapu_no")
	buttons(flow.SeedRouteSave, flow.SaveYesToken, "guardar_no")
	buttons(flow.SeedRouteSomeSite, flow.SiteYesToken, "sede_no")
	buttons(flow.SeedRouteGESReminder, flow.GESReminderToken, "ges_reminder_no")
	buttons(flow.SeedRouteClose, flow.CloseSaveYesToken, "cerrar_guardar_no")

	rows(flow.SeedStockActive, flow.StockYesToken, flow.StockMaybeToken, flow.StockNoToken)
	rows(flow.SeedStockFreq, flow.StockFrequencies...)
	for i, f := range flow.MedicationFrequencies {
		m[models.RowID(flow.SeedMedicationFreq, i+1)] = normalize.Text(f)
	}
	buttons(SeedStockLink, LinkAdherenceYesToken, LinkAdherenceNoToken)
	return m
}

// MapUI returns the canonical text for an interactive option id, or text
// unchanged when it is not a known id.
func MapUI(text string) string {
	if token, ok := uiTokens[text]; ok {
		return token
	}
	return text
}
