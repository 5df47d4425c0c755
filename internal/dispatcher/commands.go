package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/flow"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/reminder"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
)

// Disclaimer is appended to replies that could be read as medical advice.
const Disclaimer = "\n\n*IMPORTANTE: Soy un asistente virtual con información general. " +
	"Esta información NO reemplaza el diagnóstico ni la consulta con un profesional de la salud.*"

// TestReminderName is the medication name registered by "test en 1 min".
const TestReminderName = "PRUEBA"

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━\n"

var (
	greetingReactions = []string{"👋", "😊", "🩺", "🧑‍⚕️"}
	ackReactions      = []string{"👍", "👌", "✅", "🩺"}
	timeToken         = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

func pick(options []string) string {
	return options[rand.IntN(len(options))]
}

func text(body string) []models.Message {
	return []models.Message{models.Text(body)}
}

func (d *Dispatcher) emergency(_ context.Context, req request) ([]models.Message, error) {
	body := "🚨 *EMERGENCIA MÉDICA DETECTADA* 🚨\n" +
		divider +
		"⚠️ *LLAMA INMEDIATAMENTE* ⚠️\n\n" +
		"📞 *NÚMEROS DE EMERGENCIA:*\n" +
		"🚑 SAMU: *131*\n" +
		"🔥 Bomberos: *132*\n" +
		"👮 Carabineros: *133*\n\n" +
		"🔴 *IMPORTANTE:*\n" +
		"• NO esperes respuesta del chatbot\n" +
		"• Actúa de inmediato\n" +
		"• Si es posible, busca ayuda cercana\n\n" +
		"💙 *Tu seguridad es lo primero*"
	return []models.Message{models.Text(body), models.Reaction(req.MessageID, "🚨")}, nil
}

func (d *Dispatcher) greeting(_ context.Context, req request) ([]models.Message, error) {
	hello := "¡Hola!"
	if req.Name != "" {
		hello = fmt.Sprintf("¡Hola %s!", req.Name)
	}
	body := fmt.Sprintf("🌟 %s Soy *MedicAI* 🩺\n", hello) +
		divider +
		"💙 *Tu asistente virtual de salud* 💙\n" +
		divider + "\n" +
		"✨ *¿En qué puedo ayudarte hoy?*\n\n" +
		"🔹 *Servicios principales:*\n" +
		"🗓️ Agendar Cita Médica\n" +
		"💊 Recordatorio de Medicamentos\n" +
		"➕ Más opciones de ayuda\n\n" +
		"💡 *¿Necesitas ayuda?* Escribe *comandos*\n" +
		"🚀 *¡Selecciona una opción para comenzar!*"
	return []models.Message{
		models.Buttons(body, "MedicAI • Tu asistente de salud", SeedMainMenu,
			"🗓️ Agendar Cita", "💊 Recordatorios", "➕ Más Opciones"),
		models.Reaction(req.MessageID, pick(greetingReactions)),
	}, nil
}

func (d *Dispatcher) moreMenu(context.Context, request) ([]models.Message, error) {
	body := "✨ *Más Opciones de Ayuda* ✨\n" +
		divider +
		"🔹 *Servicios adicionales disponibles:*\n\n" +
		"🩺 Orientación médica personalizada\n" +
		"📋 Guía para trámites de salud\n" +
		"💊 Gestión completa de medicamentos\n" +
		"⏰ Control de recordatorios\n\n" +
		"💡 *Selecciona la opción que necesites:*"
	return []models.Message{models.List(body, "MedicAI • Servicios Extra", SeedMoreMenu,
		"🩺 Orientación de Síntomas",
		"📋 Guía de Ruta / Derivaciones",
		"💊 Stock de Medicamentos",
		"⏰ Gestionar Recordatorios",
	)}, nil
}

func (d *Dispatcher) help(context.Context, request) ([]models.Message, error) {
	body := "📚 *GUÍA COMPLETA DE COMANDOS* 📚\n" +
		divider +
		"✨ *MedicAI - Tu Asistente de Salud* ✨\n\n" +
		"💊 *MEDICAMENTOS & RECORDATORIOS*\n" +
		"• *recordatorio de medicamento*\n" +
		"• *mis recordatorios*\n" +
		"• *eliminar recordatorio [N°]*\n" +
		"• *gestionar recordatorios*\n" +
		"• *vincular tomas [med] HH:MM*\n\n" +
		"🏥 *STOCK & RETIROS*\n" +
		"• *stock de medicamentos*\n" +
		"• *mis retiros* / *ver retiros*\n" +
		"• *retire [medicamento] si|no*\n" +
		"• *programar retiro [med] [fecha] [hora]*\n" +
		"• *programar ciclo [med] [fecha] [hora] cada [días]*\n" +
		"• *stock agregar [med] [cantidad]*\n" +
		"• *stock bajar [med] [cantidad]*\n" +
		"• *stock ver [medicamento]*\n\n" +
		"🗓️ *CITAS MÉDICAS*\n" +
		"• *agendar cita* / *cita medica*\n\n" +
		"🩺 *ORIENTACIÓN & GUÍAS*\n" +
		"• *orientación de síntomas*\n" +
		"• *guía de ruta* / *derivacion*\n\n" +
		"🚨 *EMERGENCIAS*\n" +
		"• *ayuda urgente* / *urgente*\n" +
		"• *samu* / *131*\n\n" +
		"🔧 *UTILIDADES*\n" +
		"• *hola* - Menú principal\n" +
		"• *gracias* - Agradecimiento\n" +
		"• *adiós* / *chao* - Despedida\n\n" +
		"⚡ *¡Escribe cualquier comando para empezar!*"
	return text(body), nil
}

func (d *Dispatcher) thanks(_ context.Context, req request) ([]models.Message, error) {
	name := req.Name
	if name == "" {
		name = "amigo/a"
	}
	replies := []string{
		"De nada. ¡Espero que te sirva!" + Disclaimer,
		fmt.Sprintf("Un placer ayudarte, %s. ¡Cuídate!", name) + Disclaimer,
		"Estoy aquí para lo que necesites." + Disclaimer,
	}
	return []models.Message{models.Text(pick(replies)), models.Reaction(req.MessageID, pick(ackReactions))}, nil
}

func (d *Dispatcher) farewell(_ context.Context, req request) ([]models.Message, error) {
	name := req.Name
	if name == "" {
		name = "amigo/a"
	}
	replies := []string{
		fmt.Sprintf("¡Cuídate mucho, %s! Aquí estoy si necesitas más. 😊", name) + Disclaimer,
		"Espero haberte ayudado. ¡Hasta pronto! 👋" + Disclaimer,
		"¡Que tengas un buen día! Recuerda consultar a tu médico si persisten. 🙌" + Disclaimer,
	}
	return []models.Message{models.Text(pick(replies)), models.Reaction(req.MessageID, "👋")}, nil
}

func (d *Dispatcher) unknown(_ context.Context, req request) ([]models.Message, error) {
	body := "Lo siento, no entendí tu consulta. Puedes elegir:\n" +
		"• Agendar Cita Médica\n" +
		"• Recordatorio de Medicamento\n" +
		"• Orientación de Síntomas" + Disclaimer
	return []models.Message{models.Text(body), models.Reaction(req.MessageID, "❓")}, nil
}

// Reminder commands.

func reminderLines(entries []reminder.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%d. *%s* - %s", i+1, e.Name, strings.Join(e.Times, ", "))
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) listReminders(_ context.Context, req request) ([]models.Message, error) {
	entries := d.reminders.List(req.User)
	if len(entries) == 0 {
		return text("📭 No tienes recordatorios activos.\n\n" +
			"💊 Para crear uno nuevo, escribe: *recordatorio de medicamento*"), nil
	}
	return text("📋 *Tus recordatorios activos:*\n\n" + reminderLines(entries) +
		"\n\n💡 Para eliminar un recordatorio, escribe: *eliminar recordatorio [número]*"), nil
}

func (d *Dispatcher) manageReminders(_ context.Context, req request) ([]models.Message, error) {
	entries := d.reminders.List(req.User)
	if len(entries) == 0 {
		return text("⏰ *Gestión de Recordatorios*\n\n" +
			"📭 No tienes recordatorios activos.\n\n" +
			"💡 *Para empezar:*\n" +
			"• Escribe: *recordatorio de medicamento*\n" +
			"• Te guiaré paso a paso para configurar recordatorios automáticos\n" +
			"• Recibirás notificaciones en los horarios que elijas 🔔"), nil
	}
	return text("⏰ *Gestión de Recordatorios*\n\n" +
		"📋 *Tus recordatorios activos:*\n" + reminderLines(entries) +
		"\n\n💡 *Opciones disponibles:*\n" +
		"• *recordatorio de medicamento* - Crear nuevo\n" +
		"• *eliminar recordatorio [número]* - Eliminar específico\n" +
		"• *mis recordatorios* - Ver lista completa"), nil
}

func (d *Dispatcher) removeReminder(_ context.Context, req request) ([]models.Message, error) {
	fields := strings.Fields(req.Text)
	if len(fields) < 3 {
		return text("❌ Formato incorrecto. Ejemplo: *eliminar recordatorio 1*"), nil
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return text("❌ Formato incorrecto. Ejemplo: *eliminar recordatorio 1*"), nil
	}
	removed, err := d.reminders.Remove(req.User, n)
	if errors.Is(err, reminder.ErrInvalidIndex) {
		return text("❌ Número de recordatorio no válido. Usa *mis recordatorios* para ver la lista."), nil
	}
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("✅ Recordatorio de *%s* eliminado correctamente.", removed.Name)), nil
}

func (d *Dispatcher) debugTime(context.Context, request) ([]models.Message, error) {
	now := d.clock.Now()
	return text(fmt.Sprintf("🕒 Hora servidor usada para recordatorios: %s (%s)", now.Format(models.HourLayout), now.Location())), nil
}

func (d *Dispatcher) testReminder(_ context.Context, req request) ([]models.Message, error) {
	target := d.clock.Now().Add(time.Minute).Format(models.HourLayout)
	d.reminders.Register(req.User, TestReminderName, []string{target})
	return text(fmt.Sprintf("⏰ Programado recordatorio de %s para las %s", TestReminderName, target)), nil
}

func (d *Dispatcher) linkDoses(_ context.Context, req request) ([]models.Message, error) {
	var times, name []string
	for _, p := range strings.Fields(strings.TrimPrefix(req.Text, LinkDosesPrefix)) {
		if !timeToken.MatchString(p) {
			name = append(name, p)
			continue
		}
		times = append(times, flow.ExtractTimes(p)...)
	}
	med := strings.Join(name, " ")
	if med == "" || len(times) == 0 {
		return text("❌ Formato: *vincular tomas [medicamento] HH:MM [HH:MM]*"), nil
	}
	d.reminders.Register(req.User, med, times)
	return text(fmt.Sprintf("🔗 Vinculado. Recordatorios de *%s* a las: %s", med, strings.Join(times, ", "))), nil
}

// Stock commands.

// splitNameQty splits "<name> <qty>" on its last space.
func splitNameQty(rest string) (string, int, bool) {
	i := strings.LastIndex(strings.TrimSpace(rest), " ")
	if i < 0 {
		return "", 0, false
	}
	rest = strings.TrimSpace(rest)
	name := strings.TrimSpace(rest[:i])
	qty, err := strconv.Atoi(rest[i+1:])
	if err != nil || name == "" {
		return "", 0, false
	}
	return name, qty, true
}

func (d *Dispatcher) stockAdd(ctx context.Context, req request) ([]models.Message, error) {
	name, qty, ok := splitNameQty(strings.TrimPrefix(req.Text, StockAddPrefix))
	if !ok {
		return text("❌ Formato: *stock agregar [nombre] [cantidad]*"), nil
	}
	if _, err := d.store.AddStock(ctx, name, qty, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to add stock: %w", err)
	}
	return text(fmt.Sprintf("📈 Stock de *%s* incrementado en %d.", name, qty)), nil
}

func (d *Dispatcher) stockRemove(ctx context.Context, req request) ([]models.Message, error) {
	name, qty, ok := splitNameQty(strings.TrimPrefix(req.Text, StockRemovePrefix))
	if !ok {
		return text("❌ Formato: *stock bajar [nombre] [cantidad]*"), nil
	}
	med, err := d.store.DecrementStock(ctx, name, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return text(fmt.Sprintf("📉 Stock de *%s* decrementado en %d. Queda: %d.", name, qty, med.Stock)), nil
}

func (d *Dispatcher) stockShow(ctx context.Context, req request) ([]models.Message, error) {
	name := strings.TrimSpace(strings.TrimPrefix(req.Text, StockShowPrefix))
	med, err := d.store.GetMedication(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return text("❌ No tengo ese medicamento. Usa: *stock agregar [nombre] [cantidad]*"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}
	location, price := "N/D", "N/D"
	if med.Location != nil && *med.Location != "" {
		location = *med.Location
	}
	if med.Price != nil && *med.Price != 0 {
		price = strconv.Itoa(*med.Price)
	}
	return text(fmt.Sprintf("💊 *%s*\nStock: %d\nSede: %s\nPrecio: %s", med.Name, med.Stock, location, price)), nil
}

// Pickup commands.

func (d *Dispatcher) schedulePickup(ctx context.Context, req request) ([]models.Message, error) {
	const format = "❌ Formato: *programar retiro [medicamento] [fecha] [hora]*"
	parts := strings.Fields(strings.TrimPrefix(req.Text, SchedulePickupPrefix))
	if len(parts) < 3 {
		return text(format), nil
	}
	drug := strings.Join(parts[:len(parts)-2], " ")
	date, ok := flow.ParseDate(parts[len(parts)-2])
	if !ok {
		return text("❌ Fecha inválida. Usa YYYY-MM-DD o DD-MM-YYYY."), nil
	}
	hour := flow.HourOrDefault(parts[len(parts)-1], flow.DefaultHour)
	if _, err := d.store.SchedulePickup(ctx, req.User, drug, date, hour, 0); err != nil {
		return nil, fmt.Errorf("failed to schedule pickup: %w", err)
	}
	return text(fmt.Sprintf("📅 Agendado retiro de *%s* para *%s* a las *%s*.", drug, date, hour)), nil
}

func (d *Dispatcher) scheduleCycle(ctx context.Context, req request) ([]models.Message, error) {
	const format = "❌ Formato: *programar ciclo [medicamento] [fecha] [hora] cada [días]*"
	tokens := strings.Fields(strings.TrimPrefix(req.Text, ScheduleCyclePrefix))
	idx := slices.Index(tokens, "cada")
	if idx < 3 || idx+1 >= len(tokens) {
		return text(format), nil
	}
	freq, err := strconv.Atoi(tokens[idx+1])
	if err != nil || freq < 1 {
		return text(format), nil
	}
	drug := strings.Join(tokens[:idx-2], " ")
	date, ok := flow.ParseDate(tokens[idx-2])
	if !ok {
		return text("❌ Fecha inválida. Usa YYYY-MM-DD o DD-MM-YYYY."), nil
	}
	hour := flow.HourOrDefault(tokens[idx-1], flow.DefaultHour)
	if _, err := d.store.SchedulePickup(ctx, req.User, drug, date, hour, freq); err != nil {
		return nil, fmt.Errorf("failed to schedule pickup cycle: %w", err)
	}
	return text(fmt.Sprintf("🔄 Ciclo creado: *%s* cada *%d días*, primera *%s* a las *%s*.", drug, freq, date, hour)), nil
}

func (d *Dispatcher) confirmPickup(ctx context.Context, req request) ([]models.Message, error) {
	parts := strings.Fields(req.Text)
	if len(parts) < 3 {
		return text("❌ Usa: *retire [medicamento] si|no*"), nil
	}
	drug := strings.Join(parts[1:len(parts)-1], " ")
	done := parts[len(parts)-1] == "si"

	tr, err := d.store.ClosePickup(ctx, req.User, drug, done)
	if errors.Is(err, store.ErrNotFound) {
		return text(fmt.Sprintf("❌ No encuentro retiro pendiente para *%s*.", drug)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close pickup: %w", err)
	}
	if !done {
		return text(fmt.Sprintf("📝 Marcado como no retirado: *%s*.", drug)), nil
	}

	d.lastRetired.SetDefault(req.User, drug)
	confirm := fmt.Sprintf("✅ Retiro registrado para *%s*.", drug)
	if tr.Next != nil {
		confirm += fmt.Sprintf("\n🔄 Próximo retiro: *%s* a las *%s*.", tr.Next.Date, tr.Next.Hour)
	}
	return []models.Message{
		models.Text(confirm),
		models.Buttons("¿Deseas *vincular este medicamento* a recordatorios de *toma diaria*?",
			"Vincular con adherencia", SeedStockLink, "Sí, vincular", "No, gracias"),
	}, nil
}

func (d *Dispatcher) linkAdherenceYes(_ context.Context, req request) ([]models.Message, error) {
	v, ok := d.lastRetired.Get(req.User)
	drug, _ := v.(string)
	if !ok || drug == "" {
		return text("❌ No tengo contexto. Usa: *vincular tomas [medicamento] HH:MM [HH:MM]*"), nil
	}
	return d.flows.Medication.StartWithName(req.User, drug), nil
}

func (d *Dispatcher) linkAdherenceNo(context.Context, request) ([]models.Message, error) {
	return text("👍 Entendido. Mantendré solo el plan de *retiro*."), nil
}

func (d *Dispatcher) listPickups(ctx context.Context, req request) ([]models.Message, error) {
	pickups, err := d.store.ListPickups(ctx, req.User)
	if err != nil {
		return nil, fmt.Errorf("failed to list pickups: %w", err)
	}
	if len(pickups) == 0 {
		return text("📭 No tienes retiros programados. Usa: *programar retiro ...* o *programar ciclo ...*"), nil
	}
	lines := make([]string, len(pickups))
	for i, p := range pickups {
		extra := ""
		if n := p.Interval(); n > 0 {
			extra = fmt.Sprintf(" (cada %d días)", n)
		}
		lines[i] = fmt.Sprintf("• %s – %s %s%s – %s", p.Drug, p.Date, p.Hour, extra, p.Status)
	}
	return text("📋 *Tus retiros:*\n" + strings.Join(lines, "\n")), nil
}
