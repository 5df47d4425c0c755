package symptoms

import (
	"strings"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

// Diagnosis is the outcome of a matching rule.
type Diagnosis struct {
	Label    string
	Severity string
	Advice   string
}

// Diagnoser evaluates symptom text for one category.
type Diagnoser interface {
	Diagnose(text string) (Diagnosis, bool)
}

// rule matches when every clause has at least one keyword in the text.
type rule struct {
	diagnosis Diagnosis
	all       [][]string
}

func when(label, severity, advice string, clauses ...[]string) rule {
	return rule{diagnosis: Diagnosis{Label: label, Severity: severity, Advice: advice}, all: clauses}
}

func kw(alternatives ...string) []string {
	return alternatives
}

func (r rule) matches(text string) bool {
	for _, clause := range r.all {
		hit := false
		for _, k := range clause {
			if strings.Contains(text, k) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// ruleTable is evaluated in order; the first matching rule wins.
type ruleTable []rule

func (t ruleTable) Diagnose(text string) (Diagnosis, bool) {
	text = normalize.Text(text)
	for _, r := range t {
		if r.matches(text) {
			return r.diagnosis, true
		}
	}
	return Diagnosis{}, false
}

// noRule is the diagnoser of categories without a table.
type noRule struct{}

func (noRule) Diagnose(string) (Diagnosis, bool) { return Diagnosis{}, false }

// DiagnoserFor returns the rule table of c, or a diagnoser that never
// matches for unknown categories.
func DiagnoserFor(c Category) Diagnoser {
	if d, ok := diagnosers[c]; ok {
		return d
	}
	return noRule{}
}

// Diagnose applies the rules of c to text.
func Diagnose(c Category, text string) (Diagnosis, bool) {
	return DiagnoserFor(c).Diagnose(text)
}

var diagnosers = map[Category]Diagnoser{
	Respiratorio:          respiratorio,
	Bucal:                 bucal,
	Infeccioso:            infeccioso,
	Cardiovascular:        cardiovascular,
	Metabolico:            metabolico,
	Neurologico:           neurologico,
	Musculoesqueletico:    musculoesqueletico,
	SaludMental:           saludMental,
	Dermatologico:         dermatologico,
	Otorrinolaringologico: otorrinolaringologico,
	Ginecologico:          ginecologico,
	Digestivo:             digestivo,
}

var respiratorio = ruleTable{
	when("Resfriado común", "Autocuidado en casa",
		"Mantén reposo e hidratación, aprovecha líquidos calientes y, si tienes congestión, usa solución salina nasal. Usa mascarilla si estás con personas de riesgo.",
		kw("tos leve"), kw("estornudos"), kw("congestion nasal")),
	when("Gripe (influenza)", "Autocuidado + control",
		"Reposa, mantén una buena hidratación y utiliza paracetamol o ibuprofeno según prospecto. Controla tu temperatura cada 6 h.",
		kw("tos seca"), kw("fiebre"), kw("dolores musculares")),
	when("Faringitis / Amigdalitis / Laringitis", "Requiere atención si persiste",
		"Haz gárgaras con agua tibia y sal, hidratación abundante. Si el dolor dura más de 48 h o hay placas en la garganta, consulta al médico para posible tratamiento antibiótico.",
		kw("dolor al tragar"), kw("fiebre"), kw("garganta inflamada")),
	when("Bronquitis", "Medir gravedad",
		"Evita irritantes (humo, polvo), mantente hidratado y usa expectorantes de venta libre. Si empeora la dificultad para respirar o la fiebre persiste, acude al médico.",
		kw("tos persistente"), kw("flema"), kw("pecho apretado")),
	when("Neumonía", "Urgencia médica",
		"Esta combinación sugiere neumonía: acude de inmediato a un servicio de urgencias u hospital.",
		kw("fiebre alta"), kw("dificultad respiratoria")),
	when("Asma", "Evaluar crisis",
		"Si tienes salbutamol, úsalo según indicaciones. Si no mejora en 15 min o empeora la respiración, llama al 131 o acude a urgencias.",
		kw("opresion toracica"), kw("silbidos")),
	when("Rinitis alérgica", "Tratamiento ambulatorio",
		"Evita alérgenos (polvo, pólenes), antihistamínicos orales y lavados nasales con solución salina. Consulta a tu alergólogo si persiste.",
		kw("estornudos"), kw("congestion nasal"), kw("picazon")),
	when("COVID-19", "Sospecha, test y aislamiento",
		"Aíslate y haz prueba PCR lo antes posible. Monitorea tus síntomas cada día y consulta si aparece dificultad respiratoria.",
		kw("tos seca"), kw("fiebre"), kw("perdida de olfato")),
}

var bucal = ruleTable{
	when("Caries", "Requiere atención odontológica",
		"Mantén una higiene bucal rigurosa (cepillado y uso de hilo dental), evita alimentos muy ácidos o muy fríos/calientes y consulta a un odontólogo para tratar la cavidad.",
		kw("dolor punzante"), kw("sensibilidad")),
	when("Gingivitis", "Higiene mejorada + control",
		"Mejora tu higiene bucal con cepillado suave dos veces al día, uso de hilo dental y enjuagues antisépticos. Si los síntomas persisten tras una semana, visita a tu dentista.",
		kw("encias inflamadas"), kw("sangrado"), kw("mal aliento")),
	when("Periodontitis", "Atención odontológica urgente",
		"Acude al odontólogo de inmediato; podrías necesitar raspado y alisado radicular para frenar la pérdida de tejido periodontal.",
		kw("encias retraidas"), kw("dolor al masticar"), kw("movilidad")),
	when("Aftas bucales", "Manejo local + observar",
		"Evita alimentos ácidos o picantes, enjuaga con agua tibia y sal, y utiliza gel o crema tópica para aliviar el dolor. Si duran más de 2 semanas, consulta a tu dentista.",
		kw("llagas"), kw("pequenas"), kw("dolorosas")),
	when("Bruxismo", "Uso de férula / evaluación",
		"Considera usar una férula de descarga nocturna, técnicas de relajación y fisioterapia mandibular. Evalúa con un odontólogo o especialista en ATM.",
		kw("dolor mandibular"), kw("tension"), kw("rechinar")),
}

var infeccioso = ruleTable{
	when("Infección urinaria", "Atención médica no urgente",
		"Hidrátate abundantemente, evita irritantes (café, alcohol) y consulta al médico si persiste o hay sangre en la orina.",
		kw("ardor al orinar"), kw("fiebre"), kw("orina frecuente")),
	when("Gastroenteritis", "Hidratación + reposo",
		"Mantén reposo, usa soluciones de rehidratación oral y observa si hay signos de deshidratación. Acude al médico si empeora.",
		kw("diarrea"), kw("vomitos"), kw("dolor abdominal")),
	when("Infección por Helicobacter pylori", "Evaluación médica necesaria",
		"Solicita pruebas de H. pylori y consulta con tu médico para iniciar tratamiento antibiótico y protector gástrico.",
		kw("dolor estomacal persistente"), kw("nauseas")),
	when("Varicela", "Reposo + aislamiento",
		"Mantén reposo, controla la fiebre con paracetamol y evita rascarte. Aísla hasta que todas las ampollas se sequen.",
		kw("fiebre"), kw("erupcion"), kw("ampollas")),
	when("Sarampión", "Evaluación médica urgente",
		"Acude de inmediato al médico, confirma tu estado de vacunación y evita el contacto con personas susceptibles.",
		kw("manchas rojas"), kw("tos"), kw("conjuntivitis")),
	when("Rubéola", "Observación + test",
		"Realiza prueba de rubéola y evita el contacto con embarazadas. Sigue las indicaciones de tu médico.",
		kw("erupcion leve"), kw("inflamacion ganglionar")),
	when("Paperas", "Cuidado en casa + control",
		"Aplica calor suave en la zona, toma analgésicos según indicación y descansa. Consulta si hay complicaciones.",
		kw("dolor en mejillas"), kw("fiebre")),
	when("Hepatitis A/B/C", "Evaluación inmediata y pruebas de laboratorio",
		"Solicita pruebas de función hepática y marcadores virales. Acude al médico cuanto antes.",
		kw("cansancio"), kw("piel amarilla"), kw("fiebre")),
}

var cardiovascular = ruleTable{
	when("Hipertensión arterial", "Control ambulatorio",
		"Controla tu presión arterial regularmente, lleva una dieta baja en sal, haz ejercicio moderado y sigue las indicaciones de tu médico.",
		kw("presion"), kw("sin sintomas", "alta")),
	when("Insuficiencia cardíaca", "Evaluación clínica pronta",
		"Monitorea tu peso y la hinchazón, reduce la ingesta de líquidos si está indicado y consulta a un cardiólogo lo antes posible.",
		kw("cansancio"), kw("falta de aire"), kw("hinchaz")),
	when("Arritmias", "Requiere electrocardiograma",
		"Agenda un electrocardiograma y consulta con un especialista en cardiología para evaluar tu ritmo cardíaco.",
		kw("palpitaciones")),
	when("Infarto agudo al miocardio", "Urgencia médica inmediata",
		"Llama a emergencias (SAMU 131) de inmediato o acude al hospital más cercano. No esperes.",
		kw("dolor en el pecho"), kw("brazo izquierdo"), kw("sudor frio")),
	when("Aterosclerosis (angina)", "Evaluación médica en menos de 24 hrs",
		"Evita esfuerzos intensos hasta la valoración, y consulta con un cardiólogo para pruebas de perfusión o angiografía.",
		kw("dolor al caminar"), kw("desaparece")),
}

var metabolico = ruleTable{
	when("Diabetes tipo 1", "Evaluación médica urgente",
		"Acude a un centro de salud para medición de glucosa en sangre y valoración endocrinológica inmediata.",
		kw("sed excesiva"), kw("orina frecuentemente"), kw("perdida de peso")),
	when("Diabetes tipo 2", "Control y exámenes de laboratorio",
		"Realiza un hemograma de glucosa y HbA1c, ajusta dieta y actividad física, y programa consulta con endocrinología.",
		kw("cansancio"), kw("vision borrosa"), kw("sobrepeso")),
	when("Hipotiroidismo", "Control endocrinológico",
		"Solicita perfil de tiroides (TSH, T4) y ajusta tu tratamiento si ya estás en seguimiento.",
		kw("piel seca"), kw("intolerancia al frio", "frio")),
	when("Hipertiroidismo", "Evaluación clínica y TSH",
		"Pide análisis de tiroides y consulta con endocrinólogo para manejo con antitiroideos o terapia con yodo.",
		kw("nerviosismo"), kw("sudoracion"), kw("perdida de peso")),
	when("Síndrome metabólico", "Evaluación de riesgo cardiovascular",
		"Controla tu peso, presión y lípidos. Programa un chequeo cardiovascular completo.",
		kw("circunferencia abdominal"), kw("presion alta")),
	when("Colesterol alto", "Prevención + examen de perfil lipídico",
		"Realiza un perfil de lípidos, ajusta dieta baja en grasas saturadas y considera estatinas si lo indica tu médico.",
		kw("colesterol"), kw("antecedentes")),
	when("Gota", "Evaluación médica ambulatoria",
		"Confirma con ácido úrico en sangre, modera el consumo de purinas y consulta con reumatología.",
		kw("dolor en la articulacion"), kw("dedo gordo")),
}

var neurologico = ruleTable{
	when("Migraña", "Manejo con analgésicos + control",
		"Descansa en ambiente oscuro, utiliza triptanes o analgésicos según prescripción y lleva un diario de desencadenantes.",
		kw("dolor de cabeza"), kw("pulsatil"), kw("nauseas"), kw("fotofobia")),
	when("Cefalea tensional", "Autocuidado + relajación",
		"Aplica compresas frías o calientes, practica técnicas de relajación y corrige postura.",
		kw("dolor de cabeza"), kw("estres")),
	when("Epilepsia", "Evaluación neurológica urgente",
		"Registra los episodios y consulta con neurología para EEG y ajuste de medicación anticonvulsivante.",
		kw("sacudidas"), kw("desmayo"), kw("confusion")),
	when("Parkinson", "Evaluación neurológica",
		"Agrega fisioterapia y consulta con neurología para iniciar tratamiento con levodopa o agonistas.",
		kw("temblores"), kw("lentitud"), kw("rigidez")),
	when("Alzheimer", "Evaluación por especialista",
		"Realiza pruebas cognitivas y consulta con neurología o geriatría para manejo multidisciplinario.",
		kw("perdida de memoria"), kw("desorientacion")),
	when("Esclerosis múltiple", "Derivación neurológica",
		"Consulta con neurología para RMN cerebral y lumbar y comenzar terapia modificadora de enfermedad.",
		kw("fatiga"), kw("hormigueos"), kw("vision borrosa")),
	when("Neuralgia del trigémino", "Tratamiento farmacológico",
		"Inicia carbamazepina o gabapentina según indicación médica y valora bloqueo del nervio si persiste.",
		kw("dolor facial"), kw("punzante")),
}

var musculoesqueletico = ruleTable{
	when("Lumbalgia", "Reposo + fisioterapia",
		"Aplica calor local, evita levantar pesos y realiza estiramientos suaves con guía de kinesiología.",
		kw("dolor en espalda baja"), kw("sin golpe")),
	when("Artritis", "Evaluación médica reumatológica",
		"Solicita marcadores inflamatorios (VSG, PCR) y consulta con reumatología para manejo con AINEs o DMARDs.",
		kw("dolor articular"), kw("inflamacion"), kw("rigidez")),
	when("Artrosis", "Ejercicio suave + control",
		"Refuerza musculatura con ejercicios de bajo impacto y considera condroprotectores si lo indica tu médico.",
		kw("dolor articular"), kw("uso"), kw("sin inflamacion")),
	when("Fibromialgia", "Manejo crónico integral",
		"Combina ejercicio aeróbico suave, terapia cognitivo-conductual y manejo del dolor con tu médico.",
		kw("dolor muscular generalizado"), kw("fatiga")),
	when("Tendinitis", "Reposo local + analgésicos",
		"Aplica hielo, inmoviliza la zona en reposo y toma AINEs según indicación médica.",
		kw("dolor al mover"), kw("sobreuso")),
	when("Bursitis", "Reposo + hielo + evaluación",
		"Aplica frío local y consulta con ortopedia o fisiatría si persiste para posible infiltración.",
		kw("dolor localizado"), kw("bursa")),
	when("Esguince", "Reposo, hielo, compresión, elevación (RICE)",
		"Sujeta con venda elástica, eleva la zona y reevalúa en 48 h con un profesional.",
		kw("torcedura")),
}

var saludMental = ruleTable{
	when("Ansiedad generalizada", "Apoyo psicoemocional + técnicas de autorregulación",
		"Práctica respiración diafragmática, mindfulness y considera terapia cognitivo-conductual.",
		kw("ansiedad"), kw("dificultad para relajarse")),
	when("Depresión", "Apoyo clínico + evaluación emocional",
		"Consulta con psiquiatría o psicología para evaluar terapia y, si es necesario, antidepresivos.",
		kw("tristeza persistente"), kw("perdida de interes"), kw("fatiga")),
	when("Trastorno bipolar", "Evaluación profesional integral",
		"Valora estabilizadores del ánimo con psiquiatría y seguimiento estrecho.",
		kw("cambios extremos"), kw("hiperactividad")),
	when("Trastorno de pánico", "Manejo con técnicas de respiración + orientación",
		"Aprende respiración controlada y considera ISRS o benzodiacepinas en pauta corta.",
		kw("ataques de panico"), kw("miedo a morir")),
	when("TEPT", "Acompañamiento psicológico",
		"Terapia de exposición y EMDR con psicólogo especializado.",
		kw("flashbacks"), kw("hipervigilancia")),
	when("TOC", "Detección temprana + derivación especializada",
		"Terapia cognitivo-conductual con ERP y, si hace falta, ISRS a dosis altas.",
		kw("compulsiones", "pensamientos repetitivos")),
}

var dermatologico = ruleTable{
	when("Acné", "Manejo domiciliario + higiene",
		"Limpia con jabón suave, evita productos comedogénicos y consulta dermatología si persiste.",
		kw("granos"), kw("cara", "pecho", "espalda")),
	when("Dermatitis atópica", "Hidratación + evitar alérgenos",
		"Emolientes frecuentes, evita jabones agresivos y considera corticoides tópicos si lo indica tu médico.",
		kw("piel seca"), kw("enrojecida"), kw("picazon")),
	when("Psoriasis", "Evaluación dermatológica",
		"Consulta dermatológica para valorar calcipotriol o fototerapia.",
		kw("placas rojas"), kw("escamas"), kw("engrosadas")),
	when("Urticaria", "Posible alergia / estrés",
		"Antihistamínicos orales y evita desencadenantes identificados.",
		kw("ronchas"), kw("aparecen"), kw("rapido")),
	when("Tiña", "Antimicótico tópico",
		"Aplica clotrimazol o terbinafina localmente durante 2 semanas.",
		kw("lesion redonda"), kw("borde rojo")),
	when("Herpes simple", "Antiviral tópico u oral",
		"Inicia aciclovir tópico o valaciclovir oral según prescripción.",
		kw("ampolla"), kw("labio", "genitales")),
	when("Verrugas", "Tratamiento tópico o crioterapia",
		"Aplica ácido salicílico o valora crioterapia con dermatólogo.",
		kw("bultos"), kw("duros")),
}

var otorrinolaringologico = ruleTable{
	when("Conjuntivitis", "Higiene + evitar contacto",
		"Lava con soluciones salinas y evita frotar. Consulta si hay secreción purulenta.",
		kw("ojos rojos"), kw("picazon"), kw("secrecion")),
	when("Otitis", "Evaluación médica (especialmente en niños)",
		"Consulta pronto para antibióticos si está indicado y analgésicos para el dolor.",
		kw("dolor de oido"), kw("fiebre"), kw("tapado")),
	when("Sinusitis", "Tratamiento ambulatorio",
		"Descongestionantes y antibiótico si persiste más de 10 días.",
		kw("presion en cara"), kw("secrecion nasal espesa"), kw("dolor de cabeza")),
	when("Glaucoma", "Evaluación urgente",
		"Agudeza visual y presión intraocular con oftalmólogo de inmediato.",
		kw("vision borrosa"), kw("halos"), kw("dolor ocular")),
	when("Cataratas", "Derivación oftalmológica",
		"Consulta oftalmológica para valorar cirugía de cataratas.",
		kw("dificultad para ver"), kw("vision nublada")),
	when("Pérdida auditiva", "Evaluación ORL o audiometría",
		"Realiza audiometría y consulta con otorrinolaringólogo para rehabilitación auditiva.",
		kw("zumbido", "disminucion auditiva")),
}

var ginecologico = ruleTable{
	when("Cistitis", "Hidratación + atención médica si persiste",
		"Bebe abundante agua y consulta si hay sangre o dolor severo.",
		kw("dolor al orinar"), kw("orina turbia", "turbia"), kw("fiebre")),
	when("Vaginitis", "Evaluación ginecológica ambulatoria",
		"Toma muestra de flujo y pide tratamiento según cultivo.",
		kw("flujo anormal"), kw("picazon", "ardor")),
	when("Endometriosis", "Control ginecológico recomendado",
		"Ultrasonido pélvico y manejo hormonal con tu ginecólogo.",
		kw("dolor pelvico"), kw("menstruacion dolorosa")),
	when("Síndrome premenstrual (SPM)", "Manejo con hábitos y control hormonal",
		"Lleva registro de tu ciclo, dieta equilibrada y valora anticonceptivos hormonales.",
		kw("irritabilidad"), kw("dolor mamario"), kw("cambios premenstruales")),
	// "dolor testicular" alone, or "dolor" together with "perineal".
	when("Prostatitis", "Evaluación médica inmediata (urología)",
		"Antibióticos según urocultivo y manejo del dolor con antiinflamatorios.",
		kw("dolor testicular", "dolor"), kw("dolor testicular", "perineal")),
}

var digestivo = ruleTable{
	when("Reflujo gastroesofágico (ERGE)", "Control dietético + posible medicación",
		"Evita alimentos grasos, eleva la cabecera de la cama y considera IBP según médico.",
		kw("acidez"), kw("ardor"), kw("comer", "aliment")),
	when("Colitis", "Observación + evitar irritantes",
		"Hidratación con sales y dieta BRAT. Consulta si hay sangre o fiebre alta.",
		kw("diarrea"), kw("dolor abdominal")),
	when("Estreñimiento", "Hidratación + fibra + hábitos",
		"Aumenta fibra y agua, realiza ejercicio y valora laxantes suaves.",
		kw("evacuaciones dificiles"), kw("dolor abdominal")),
	when("Hemorroides", "Higiene + dieta + evaluación médica si persiste",
		"Baños de asiento, crema de hidrocortisona y dieta rica en fibra.",
		kw("dolor al evacuar"), kw("sangrado", "sangre"), kw("picazon")),
	when("Intolerancia a la lactosa", "Evitar lácteos + prueba de tolerancia",
		"Sustituye por leches sin lactosa y realiza test de hidrógeno espirado.",
		kw("gases"), kw("hinchazon"), kw("diarrea"), kw("lacteos")),
}
