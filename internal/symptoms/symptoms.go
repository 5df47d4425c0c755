// Package symptoms holds the static symptom keyword sets and diagnosis
// rule tables used by the triage flow.
//
// All keywords are stored in normalized form (lowercase, no diacritics) and
// are matched by substring containment against normalized user text.
package symptoms

import (
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

// Category is a closed set of symptom categories.
type Category string

const (
	Respiratorio          Category = "respiratorio"
	Bucal                 Category = "bucal"
	Infeccioso            Category = "infeccioso"
	Cardiovascular        Category = "cardiovascular"
	Metabolico            Category = "metabolico"
	Neurologico           Category = "neurologico"
	Musculoesqueletico    Category = "musculoesqueletico"
	SaludMental           Category = "saludmental"
	Dermatologico         Category = "dermatologico"
	Ginecologico          Category = "ginecologico"
	Digestivo             Category = "digestivo"
	Otorrinolaringologico Category = "otorrinolaringologico"
)

// FirstPage and SecondPage are the categories offered in the two menu pages,
// in display order.
var (
	FirstPage = []Category{
		Respiratorio, Bucal, Infeccioso, Cardiovascular, Metabolico,
		Neurologico, Musculoesqueletico, SaludMental, Dermatologico,
	}
	SecondPage = []Category{Ginecologico, Digestivo, Otorrinolaringologico}
)

type info struct {
	display string // used in "enfermedades <display>"
	option  string // list row title
	example string
}

var categoryInfo = map[Category]info{
	Respiratorio:          {"Respiratorias", "🫁 Respiratorias", "tos seca, fiebre alta, dificultad para respirar"},
	Bucal:                 {"Bucales", "🦷 Bucales", "dolor punzante en muela, sensibilidad al frío, sangrado de encías"},
	Infeccioso:            {"Infecciosas", "🦠 Infecciosas", "ardor al orinar, fiebre, orina frecuente"},
	Cardiovascular:        {"Cardiovasculares", "❤️ Cardiovasculares", "dolor en el pecho al esfuerzo, palpitaciones, mareos"},
	Metabolico:            {"Metabólicas/Endocrinas", "⚖️ Metabólicas", "sed excesiva, orina frecuentemente, pérdida de peso"},
	Neurologico:           {"Neurológicas", "🧠 Neurológicas", "dolor de cabeza pulsátil, náuseas, fotofobia"},
	Musculoesqueletico:    {"Musculoesqueléticas", "💪 Musculoesqueléticas", "dolor en espalda baja al levantarte, rigidez"},
	SaludMental:           {"Salud Mental", "🧘 Salud Mental", "ansiedad constante, insomnio, aislamiento social"},
	Dermatologico:         {"Dermatológicas", "🩹 Dermatológicas", "granos en cara, picazón intensa, enrojecimiento"},
	Ginecologico:          {"Ginecológicas/Urológicas", "Ginecológicas 👩‍⚕️", "dolor pélvico durante menstruación, flujo anormal"},
	Digestivo:             {"Digestivas", "Digestivas 🍽️", "diarrea, dolor abdominal inferior, gases"},
	Otorrinolaringologico: {"Otorrinolaringológicas/Oftalmológicas", "Oídos, nariz y ojos 👂", "ojos rojos, picazón ocular, secreción"},
}

// Parse resolves a category token such as "saludmental".
func Parse(s string) (Category, bool) {
	c := Category(strings.TrimSpace(s))
	_, ok := categoryInfo[c]
	return c, ok
}

// DisplayName returns the human name of c, or c itself for unknown values.
func (c Category) DisplayName() string {
	if i, ok := categoryInfo[c]; ok {
		return i.display
	}
	return string(c)
}

// OptionTitle returns the menu row title of c.
func (c Category) OptionTitle() string {
	if i, ok := categoryInfo[c]; ok {
		return i.option
	}
	return string(c)
}

// Example returns a sample symptom description for c.
func (c Category) Example() string {
	if i, ok := categoryInfo[c]; ok {
		return i.example
	}
	return categoryInfo[Respiratorio].example
}

// Keywords returns the detectable keywords of c.
func Keywords(c Category) []string {
	return keywords[c]
}

// Match returns the keywords of c contained in text, in table order.
func Match(c Category, text string) []string {
	text = normalize.Text(text)
	var found []string
	for _, k := range keywords[c] {
		if strings.Contains(text, k) {
			found = append(found, k)
		}
	}
	return found
}

var keywords = map[Category][]string{
	Respiratorio: {
		"tos leve", "tos seca", "tos persistente", "tos",
		"fiebre", "fiebre alta", "estornudos", "congestion nasal",
		"dolor de garganta", "dolor al tragar", "garganta inflamada",
		"cansancio", "dolores musculares", "dolor en el pecho", "pecho apretado",
		"flema", "silbidos", "picazon", "perdida de olfato", "opresion toracica",
	},
	Bucal: {
		"dolor punzante", "sensibilidad",
		"encias inflamadas", "encias retraidas",
		"sangrado", "mal aliento",
		"llagas", "pequenas", "dolorosas",
		"dolor al masticar", "tension mandibular",
		"movilidad", "dolor mandibular", "rechinar",
	},
	Infeccioso: {
		"ardor al orinar", "fiebre", "orina frecuente",
		"diarrea", "vomitos", "dolor abdominal",
		"manchas", "picazon", "ictericia",
	},
	Cardiovascular: {
		"dolor en el pecho", "palpitaciones", "cansancio", "mareos",
		"falta de aire", "hinchazon", "sudor frio",
		"nauseas", "presion",
		"dolor al caminar", "desaparece", "brazo izquierdo",
	},
	Metabolico: {
		"sed excesiva", "orina frecuentemente", "perdida de peso", "aumento de peso",
		"cansancio", "vision borrosa", "colesterol", "antecedentes",
		"nerviosismo", "sudoracion", "circunferencia abdominal",
		"sobrepeso", "piel seca", "intolerancia al frio",
	},
	Neurologico: {
		"dolor de cabeza", "pulsatil", "nauseas",
		"fotofobia", "estres", "tension",
		"temblores", "lentitud", "rigidez", "sacudidas", "desmayo",
		"confusion", "perdida de memoria", "desorientacion",
		"hormigueo", "fatiga", "dolor facial", "punzante",
	},
	Musculoesqueletico: {
		"dolor en espalda baja", "dolor articular", "inflamacion",
		"rigidez", "dolor muscular", "fatiga", "torcedura", "bursa",
	},
	SaludMental: {
		"ansiedad", "dificultad para relajarse", "tristeza persistente",
		"perdida de interes", "fatiga", "cambios extremos", "hiperactividad",
		"ataques de panico", "miedo a morir", "flashbacks", "hipervigilancia",
		"compulsiones", "pensamientos repetitivos",
	},
	Dermatologico: {
		"granos", "picazon", "erupcion",
		"escamas", "engrosadas", "ampolla", "ronchas", "aparecen",
		"lesion redonda", "borde rojo", "bultos", "duros",
	},
	Otorrinolaringologico: {
		"ojos rojos", "picazon", "secrecion",
		"dolor de oido", "fiebre", "tapado",
		"presion en cara", "secrecion nasal espesa",
		"zumbido", "vision borrosa", "halos",
		"dificultad para ver", "vision nublada",
	},
	Ginecologico: {
		"dolor al orinar", "orina turbia", "turbia", "fiebre",
		"flujo anormal", "picazon", "ardor",
		"dolor pelvico", "menstruacion dolorosa", "sangrado menstrual",
		"irritabilidad", "dolor mamario", "cambios premenstruales",
		"dolor testicular", "perineal",
	},
	Digestivo: {
		"acidez", "ardor", "comer", "aliment", "diarrea",
		"estrenimiento", "evacuaciones dificiles",
		"dolor abdominal", "dolor al evacuar", "gases", "hinchazon",
		"sangrado", "lacteos",
	},
}

// Recommendations returns the general advice closing a diagnosis of c.
func Recommendations(c Category) string {
	if r, ok := recommendations[c]; ok {
		return r
	}
	return defaultRecommendations
}

const defaultRecommendations = "• Mantén reposo e hidratación.\n" +
	"• Observa tus síntomas a diario.\n" +
	"• Consulta a un profesional si empeoras."

var recommendations = map[Category]string{
	Respiratorio: "• Mantén reposo y buena hidratación.\n" +
		"• Humidifica el ambiente y ventílalo a diario.\n" +
		"• Usa mascarilla si convives con personas de riesgo.\n" +
		"• Evita irritantes como humo, polvo o polución.\n" +
		"• Controla tu temperatura cada 6 h.\n" +
		"Si empeoras o la fiebre supera 39 °C, consulta a un profesional.",
	Bucal: "• Cepíllate los dientes al menos dos veces al día.\n" +
		"• Usa hilo dental y enjuagues antisépticos.\n" +
		"• Evita alimentos muy ácidos, azúcares o demasiado fríos/calientes.\n" +
		"• Controla sangrados o mal aliento persistente.\n" +
		"• Programa limpieza dental profesional anualmente.\n" +
		"Si el dolor o sangrado continúa, visita a tu odontólogo.",
	Infeccioso: "• Guarda reposo e hidrátate con frecuencia.\n" +
		"• Lávate las manos y desinfecta superficies de alto contacto.\n" +
		"• Aísla si tu patología puede contagiar (fiebre, erupciones).\n" +
		"• Usa mascarilla para no infectar a otros.\n" +
		"• Observa tu temperatura y forúnculos si los hubiera.\n" +
		"Si persiste la fiebre o hay sangre en secreciones, acude al médico.",
	Cardiovascular: "• Controla tu presión arterial regularmente.\n" +
		"• Sigue una dieta baja en sal y grasas saturadas.\n" +
		"• Realiza ejercicio moderado (30 min diarios) si tu médico lo autoriza.\n" +
		"• Evita tabaco y consumo excesivo de alcohol.\n" +
		"• Vigila dolores torácicos, palpitaciones o hinchazón.\n" +
		"Si aparece dolor en el pecho o disnea, busca ayuda inmediata.",
	Metabolico: "• Mantén dieta equilibrada y controla los carbohidratos.\n" +
		"• Realiza actividad física regular (mín. 150 min/semana).\n" +
		"• Mide glucosa/lípidos según pauta médica.\n" +
		"• Toma la medicación tal como te la recetaron.\n" +
		"• Evita azúcares refinados y grasas trans.\n" +
		"Si notas hipoglucemia (sudor, temblores) o hiperglucemia grave, consulta hoy.",
	Neurologico: "• Descansa en ambientes oscuros y silenciosos.\n" +
		"• Identifica desencadenantes (estrés, luces, ruido).\n" +
		"• Practica técnicas de respiración o relajación.\n" +
		"• Lleva un diario de frecuencia y severidad de tus síntomas.\n" +
		"• Mantente bien hidratado.\n" +
		"Si aparecen déficit neurológicos (desorientación, debilidad), acude al neurólogo.",
	Musculoesqueletico: "• Aplica frío o calor local según indicación.\n" +
		"• Realiza estiramientos suaves y evita movimientos bruscos.\n" +
		"• Mantén reposo relativo, sin inmovilizar en exceso.\n" +
		"• Considera fisioterapia o kinesiterapia.\n" +
		"• Analgésicos de venta libre según prospecto.\n" +
		"Si el dolor impide tu marcha o persiste más de 72 h, consulta al traumatólogo.",
	SaludMental: "• Practica respiración diafragmática y mindfulness.\n" +
		"• Mantén rutina de sueño regular.\n" +
		"• Realiza actividad física o caminatas diarias.\n" +
		"• Comparte con tu red de apoyo (familia/amigos).\n" +
		"• Considera terapia psicológica si los síntomas persisten.\n" +
		"Si hay riesgo de daño a ti o a otros, busca ayuda de urgencia.",
	Dermatologico: "• Hidrata la piel con emolientes adecuados.\n" +
		"• Evita jabones o detergentes agresivos.\n" +
		"• No rasques lesiones ni uses remedios caseros.\n" +
		"• Protege tu piel del sol con FPS ≥ 30.\n" +
		"• Identifica y evita alérgenos o irritantes.\n" +
		"Si notas pus, fiebre o expansión de la lesión, consulta a dermatología.",
	Otorrinolaringologico: "• Realiza lavados nasales y oculares con solución salina.\n" +
		"• Evita rascarte o hurgarte en oído y nariz.\n" +
		"• Controla exposición a alérgenos (polvo, pólenes).\n" +
		"• No automediques antibióticos; sigue prescripción.\n" +
		"• Descansa la voz y evita ambientes ruidosos.\n" +
		"Si hay dolor intenso, secreción purulenta o pérdida auditiva, acude al ORL.",
	Ginecologico: "• Mantén higiene íntima con productos suaves.\n" +
		"• Usa ropa interior de algodón y cambia con frecuencia.\n" +
		"• Controla cualquier flujo anormal o sangrado intenso.\n" +
		"• Alivia dolor menstrual con calor local y analgésicos según prospecto.\n" +
		"• Programa chequeos ginecológicos anuales.\n" +
		"Si hay fiebre, dolor severo o sangrado fuera de ciclo, busca atención médica.",
	Digestivo: "• Sigue dieta rica en fibra (frutas, verduras, cereales integrales).\n" +
		"• Hidrátate agua o soluciones de rehidratación oral.\n" +
		"• Evita comidas muy grasas, picantes o irritantes.\n" +
		"• Come despacio y mastica bien.\n" +
		"• Controla gases con caminatas suaves.\n" +
		"Si observas sangre en heces o dolor abdominal muy intenso, consulta urgente.",
}
