package flow

import (
	"context"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/session"
)

// RouteStep is the position within the route guidance.
type RouteStep string

const (
	RouteChooseType   RouteStep = "choose_type"
	RouteAskGES       RouteStep = "ask_ges"
	RouteExams        RouteStep = "exams"
	RouteRx           RouteStep = "rx"
	RouteUrgent       RouteStep = "urgent"
	RouteRequirements RouteStep = "requirements"
	RouteClose        RouteStep = "close"
)

// DocType is the kind of medical document the user received.
type DocType string

const (
	DocInterconsulta DocType = "interconsulta"
	DocExamenes      DocType = "examenes"
	DocReceta        DocType = "receta"
	DocUrgente       DocType = "derivacion_urgente"
	DocNoSeguro      DocType = "no_seguro"
)

// Seeds of the route prompts.
const (
	SeedRouteType        = "route_type"
	SeedRouteGES         = "route_ges"
	SeedRouteExamsFast   = "route_exams_fast"
	SeedRouteRx          = "route_rx"
	SeedRouteUrgent      = "route_urgent"
	SeedRouteSave        = "route_save"
	SeedRouteSomeSite    = "route_some_site"
	SeedRouteGESReminder = "route_ges_reminder"
	SeedRouteClose       = "route_close"
)

// RouteTypeTokens are the canonical texts of the document type rows, in
// menu order. They avoid the words that trigger other intents.
var RouteTypeTokens = []string{
	"route_doc_interconsulta",
	"route_doc_examenes",
	"route_doc_receta",
	"route_doc_urgencia",
	"route_doc_no_seguro",
}

var routeDocTypes = map[string]DocType{
	"route_doc_interconsulta": DocInterconsulta,
	"route_doc_examenes":      DocExamenes,
	"route_doc_receta":        DocReceta,
	"route_doc_urgencia":      DocUrgente,
	"route_doc_no_seguro":     DocNoSeguro,
}

// Canonical GES answers.
const (
	GESYesToken     = "ges_si"
	GESNoToken      = "ges_no"
	GESUnknownToken = "ges_ns"
)

// Canonical answers of the auxiliary route buttons.
const (
	FastingYesToken   = "ayuno_si"
	RxRemindersToken  = "rx_recordatorios_si"
	UrgentSAPUToken   = "urgent_sapu_si"
	SaveYesToken      = "guardar_si"
	CloseSaveYesToken = "cerrar_guardar_si"
	GESReminderToken  = "ges_reminder_si"
	SiteYesToken      = "sede_si"
)

var routeSaveTokens = map[string]bool{
	SaveYesToken:      true,
	CloseSaveYesToken: true,
	GESReminderToken:  true,
	SiteYesToken:      true,
}

// RouteSession holds the document type and GES answer.
type RouteSession struct {
	Step    RouteStep
	DocType DocType
	GES     string
}

func (RouteSession) Kind() session.Kind { return session.KindRoute }

// Route explains the administrative steps for a medical document.
type Route struct {
	sessions *session.Registry
}

// Start opens the route guidance and asks for the document type.
func (r *Route) Start(user string) []models.Message {
	r.sessions.Set(user, RouteSession{Step: RouteChooseType})
	body := "🏥 *¡Bienvenido a la Guía de Ruta Médica!*\n\n" +
		"📋 Te ayudo a entender y gestionar tus documentos médicos paso a paso.\n\n" +
		"¿Qué tipo de documento recibiste de tu médico o profesional de la salud?"
	return []models.Message{models.List(body, "Guía de Ruta", SeedRouteType,
		"📄 Interconsulta médica",
		"🧾 Orden de exámenes / procedimiento",
		"💊 Receta o indicación de tratamiento",
		"🚨 Derivación urgente",
		"❓ No estoy seguro/a",
	)}
}

// Handle advances an active route guidance.
func (r *Route) Handle(_ context.Context, user, text string) ([]models.Message, error) {
	s, ok := session.Lookup[RouteSession](r.sessions, user)
	if !ok {
		return nil, ErrNotHandled
	}

	var out []models.Message
	switch s.Step {
	case RouteChooseType:
		s.DocType = docType(text)
		switch s.DocType {
		case DocInterconsulta:
			s.Step = RouteAskGES
			out = append(out,
				models.Text("Perfecto. Recibiste una *interconsulta médica*."),
				models.List("¿Tu interconsulta está cubierta por el GES (Garantías Explícitas en Salud)?",
					"Interconsulta", SeedRouteGES, "Sí, es GES", "No, no es GES", "No lo sé"))
		case DocExamenes:
			s.Step = RouteExams
			out = append(out,
				models.Text(examsSteps),
				models.Buttons("¿Tu examen requiere ayuno?", "Orden de exámenes", SeedRouteExamsFast, "Sí, ver ayuno", "No, gracias"))
		case DocReceta:
			s.Step = RouteRx
			out = append(out,
				models.Text("💊 Detecté *receta/indicaciones*. ¿Configuro recordatorios de tomas?"),
				models.Buttons("Adherencia terapéutica", "Receta", SeedRouteRx, "Sí, configurar", "No, gracias"))
		case DocUrgente:
			s.Step = RouteUrgent
			out = append(out,
				models.Text(urgentReferralSteps),
				models.Buttons("Derivación urgente", "Guía de Ruta", SeedRouteUrgent, "Sí, indicar SAPU", "No por ahora"))
		default:
			s.Step = RouteRequirements
			out = append(out,
				models.Text("No te preocupes. Te dejo *requisitos y pasos* útiles:"),
				models.Text(requiredDocsSteps),
				saveButtons(SeedRouteSave))
		}

	case RouteAskGES:
		s.Step = RouteRequirements
		if text == GESYesToken {
			s.GES = "si"
			out = append(out,
				models.Text(interconsultaGES),
				models.Buttons("Recordatorios", "Interconsulta GES", SeedRouteGESReminder, "Sí, recordarme GES", "No, gracias"))
			break
		}
		s.GES = "nd"
		if text == GESNoToken {
			s.GES = "no"
		}
		out = append(out,
			models.Text(interconsultaNoGES),
			models.Buttons("SOME CESFAM", "Interconsulta", SeedRouteSomeSite, "Sí, indicar sede", "No, gracias"))

	case RouteExams:
		if text == FastingYesToken {
			out = append(out, models.Text("💡 Tip general: muchos perfiles requieren *8–12 h* de ayuno (verifica en tu orden o SOME)."))
		} else {
			out = append(out, models.Text("👍 Ok. Si dudas, confírmalo al agendar en SOME/laboratorio."))
		}
		s.Step = RouteRequirements
		out = append(out, models.Text(requiredDocsSteps), saveButtons(SeedRouteSave))

	case RouteRx:
		if text == RxRemindersToken {
			out = append(out, models.Text("✅ Perfecto. Para configurarlos escribe: *recordatorio de medicamento*."))
		} else {
			out = append(out, models.Text("👍 Entendido. Si más tarde quieres recordatorios, escribe: *recordatorio de medicamento*."))
		}
		s.Step = RouteClose
		out = append(out, saveButtons(SeedRouteClose))

	case RouteUrgent:
		if text == UrgentSAPUToken {
			out = append(out, models.Text("📍 Envíame tu *comuna o dirección aproximada* y te indico el SAPU más cercano."))
		} else {
			out = append(out, models.Text("⚠️ Recuerda: en una urgencia, acude *de inmediato* o llama al 131."))
		}
		s.Step = RouteRequirements
		out = append(out, models.Text(requiredDocsSteps), saveButtons(SeedRouteSave))

	default:
		r.sessions.Clear(user)
		if routeSaveTokens[text] {
			return []models.Message{models.Text("✅ Perfecto. Guardado correctamente. Puedo recordarte revisar SOME o el estado de tu trámite cuando lo indiques.")}, nil
		}
		return []models.Message{models.Text("👍 Entendido. Si necesitas volver a la *Guía de Ruta*, escribe: *guía de ruta*.")}, nil
	}

	r.sessions.Set(user, s)
	return out, nil
}

func docType(text string) DocType {
	if d, ok := routeDocTypes[text]; ok {
		return d
	}
	switch DocType(text) {
	case DocInterconsulta, DocExamenes, DocReceta:
		return DocType(text)
	}
	return DocNoSeguro
}

func saveButtons(seed string) models.Message {
	return models.Buttons("Guardar / Recordatorios", "Guía de Ruta", seed, "Sí, guardar", "No, gracias")
}

const interconsultaGES = "✅ *INTERCONSULTA GES (Garantías Explícitas en Salud)*\n\n" +
	"📋 **¿Qué es?** Una derivación a especialista con cobertura garantizada por ley.\n\n" +
	"📝 **Pasos a seguir:**\n" +
	"1️⃣ Lleva tu interconsulta al *SOME del CESFAM* donde estás inscrito\n" +
	"2️⃣ Solicita el *número de seguimiento GES* (muy importante)\n" +
	"3️⃣ Te contactarán dentro de los plazos GES para coordinar:\n" +
	"   • Cita con especialista\n" +
	"   • Exámenes previos si se requieren\n" +
	"   • Tratamiento garantizado\n\n" +
	"⏰ **Plazos GES:** Varían según patología (desde 24h hasta 90 días)\n\n" +
	"💡 **Tip:** Guarda tu número de seguimiento para consultar estado.\n\n" +
	"¿Quieres configurar un recordatorio de *revisión de estado GES*?"

const interconsultaNoGES = "ℹ️ *INTERCONSULTA NO GES o sin confirmar*\n\n" +
	"📋 **¿Qué es?** Derivación a especialista sin cobertura GES específica.\n\n" +
	"📝 **Pasos a seguir:**\n" +
	"1️⃣ Lleva la interconsulta al *SOME del CESFAM* donde estás inscrito\n" +
	"2️⃣ Confirma que quede *correctamente ingresada* en el sistema\n" +
	"3️⃣ Pregunta si necesitas *exámenes previos* antes de la cita\n" +
	"4️⃣ Solicita un *número de contacto* para hacer seguimiento\n" +
	"5️⃣ Pregunta por los *tiempos de espera estimados*\n\n" +
	"⚠️ **Importante:** Los tiempos pueden ser variables (no están garantizados como en GES)\n\n" +
	"💡 **Tip:** Si tu condición empeora mientras esperas, consulta nuevamente.\n\n" +
	"¿Te indico en qué sede del CESFAM hacer el trámite?"

const examsSteps = "🧪 *ORDEN DE EXÁMENES / PROCEDIMIENTOS*\n\n" +
	"📋 **¿Qué es?** Solicitud médica para realizar estudios diagnósticos.\n\n" +
	"📝 **Pasos a seguir:**\n" +
	"1️⃣ *Agenda tu hora:*\n" +
	"   • En SOME del CESFAM (exámenes básicos)\n" +
	"   • En laboratorio externo (si así se indica)\n" +
	"   • Llamando al número que aparece en la orden\n\n" +
	"2️⃣ *Antes de ir, verifica:*\n" +
	"   • Si requiere *ayuno* (8-12 horas sin comer)\n" +
	"   • Horarios de atención del laboratorio\n" +
	"   • Si necesitas suspender algún medicamento\n\n" +
	"3️⃣ *El día del examen lleva:*\n" +
	"   • Cédula de identidad\n" +
	"   • Orden médica original\n" +
	"   • Credencial de salud (si tienes)\n\n" +
	"4️⃣ *Después del examen:*\n" +
	"   • Pregunta cuándo estarán los resultados\n" +
	"   • Retira los resultados en la fecha indicada\n" +
	"   • Agenda control con tu médico tratante\n\n" +
	"💡 **Tip:** Algunos exámenes como glicemia, colesterol, triglicéridos requieren ayuno.\n\n" +
	"¿Quieres que revisemos si tu examen requiere *ayuno*?"

const urgentReferralSteps = "🚨 *DERIVACIÓN URGENTE*\n\n" +
	"📋 **¿Qué es?** Referencia médica para atención inmediata en servicios de urgencia.\n\n" +
	"⚠️ **ACCIÓN INMEDIATA REQUERIDA:**\n" +
	"1️⃣ *Dirígete de inmediato* al servicio indicado:\n" +
	"   • SAPU (Servicio de Atención Primaria de Urgencia)\n" +
	"   • SAR (Servicio de Alta Resolución)\n" +
	"   • Urgencia hospitalaria\n\n" +
	"2️⃣ *Si tu estado empeora en el trayecto:*\n" +
	"   • Llama al 131 (SAMU) inmediatamente\n" +
	"   • No esperes, busca el centro de salud más cercano\n\n" +
	"3️⃣ *Lleva contigo:*\n" +
	"   • Cédula de identidad\n" +
	"   • Derivación urgente (papel que te dieron)\n" +
	"   • Medicamentos que tomas habitualmente\n" +
	"   • Exámenes recientes (si los tienes)\n\n" +
	"📞 **Números de emergencia:**\n" +
	"   • SAMU: 131\n" +
	"   • Bomberos: 132\n" +
	"   • Carabineros: 133\n\n" +
	"💡 **Importante:** En urgencias médicas reales, NO esperes respuesta del chatbot.\n\n" +
	"¿Te indico el SAPU más cercano si me das tu comuna?"

const requiredDocsSteps = "🧾 *CHECKLIST DE DOCUMENTOS Y REQUISITOS*\n\n" +
	"📋 **Documentos básicos que siempre debes llevar:**\n\n" +
	"🆔 **Obligatorios:**\n" +
	"   • Cédula de identidad vigente\n" +
	"   • Orden/interconsulta/receta original\n" +
	"   • Credencial del sistema de salud (FONASA/ISAPRE)\n\n" +
	"📄 **Documentos adicionales según el caso:**\n" +
	"   • Exámenes previos relacionados (últimos 6 meses)\n" +
	"   • Cartola del Registro Social de Hogares (para algunos trámites)\n" +
	"   • Lista de medicamentos actuales\n" +
	"   • Informes médicos anteriores\n" +
	"   • Autorización del tutor (menores de edad)\n\n" +
	"💡 **Tips importantes:**\n" +
	"   • Siempre lleva originales Y fotocopias\n" +
	"   • Si eres adulto mayor, puedes ir acompañado\n" +
	"   • Anota preguntas que quieras hacer al profesional\n" +
	"   • Llega 15 minutos antes de tu hora\n\n" +
	"📱 **Recordatorio:** Puedes tomar foto de tus documentos como respaldo.\n\n" +
	"¿Quieres que lo guarde y te envíe *recordatorios* personalizados?"
