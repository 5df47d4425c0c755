package symptoms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/normalize"
)

func TestDiagnose_Influenza(t *testing.T) {
	d, ok := Diagnose(Respiratorio, "Tengo tos seca, fiebre y dolores musculares")
	require.True(t, ok)
	assert.Equal(t, "Gripe (influenza)", d.Label)
	assert.Equal(t, "Autocuidado + control", d.Severity)
	assert.NotEmpty(t, d.Advice)
}

func TestDiagnose_FirstMatchWins(t *testing.T) {
	// Matches both influenza and COVID-19; influenza is listed first.
	d, ok := Diagnose(Respiratorio, "tos seca, fiebre, dolores musculares, pérdida de olfato")
	require.True(t, ok)
	assert.Equal(t, "Gripe (influenza)", d.Label)

	d, ok = Diagnose(Respiratorio, "tos seca, fiebre, pérdida de olfato")
	require.True(t, ok)
	assert.Equal(t, "COVID-19", d.Label)
}

func TestDiagnose_AccentedInput(t *testing.T) {
	tests := []struct {
		category Category
		text     string
		want     string
	}{
		{Respiratorio, "Opresión torácica y silbidos al respirar", "Asma"},
		{Bucal, "encías inflamadas, sangrado y mal aliento", "Gingivitis"},
		{Neurologico, "dolor de cabeza pulsátil, náuseas y fotofobia", "Migraña"},
		{Cardiovascular, "dolor en el pecho que baja al brazo izquierdo con sudor frío", "Infarto agudo al miocardio"},
		{Digestivo, "gases, hinchazón y diarrea después de tomar lácteos", "Intolerancia a la lactosa"},
		{Otorrinolaringologico, "ojos rojos con picazón y secreción", "Conjuntivitis"},
		{SaludMental, "tengo pensamientos repetitivos", "TOC"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d, ok := Diagnose(tt.category, tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Label)
		})
	}
}

func TestDiagnose_Prostatitis(t *testing.T) {
	d, ok := Diagnose(Ginecologico, "dolor testicular")
	require.True(t, ok)
	assert.Equal(t, "Prostatitis", d.Label)

	d, ok = Diagnose(Ginecologico, "dolor en zona perineal")
	require.True(t, ok)
	assert.Equal(t, "Prostatitis", d.Label)

	_, ok = Diagnose(Ginecologico, "molestia perineal")
	assert.False(t, ok)
}

func TestDiagnose_NoRule(t *testing.T) {
	_, ok := Diagnose(Respiratorio, "me siento raro")
	assert.False(t, ok)

	_, ok = Diagnose(Category("inexistente"), "tos seca, fiebre, dolores musculares")
	assert.False(t, ok)
	assert.IsType(t, noRule{}, DiagnoserFor(Category("inexistente")))
}

func TestMatch(t *testing.T) {
	got := Match(Respiratorio, "Tos seca, FIEBRE y dolores musculares")
	assert.Equal(t, []string{"tos seca", "tos", "fiebre", "dolores musculares"}, got)
	assert.Empty(t, Match(Respiratorio, "nada que ver"))
}

func TestTablesAreNormalized(t *testing.T) {
	for c, list := range keywords {
		for _, k := range list {
			assert.Equal(t, normalize.Text(k), k, "keyword %q of %s", k, c)
		}
	}
	for c, d := range diagnosers {
		for _, r := range d.(ruleTable) {
			for _, clause := range r.all {
				for _, k := range clause {
					assert.Equal(t, normalize.Text(k), k, "rule %q of %s", r.diagnosis.Label, c)
				}
			}
		}
	}
}

func TestCategoriesAreComplete(t *testing.T) {
	all := append(append([]Category{}, FirstPage...), SecondPage...)
	assert.Len(t, all, 12)
	for _, c := range all {
		parsed, ok := Parse(string(c))
		require.True(t, ok, "category %s", c)
		assert.Equal(t, c, parsed)
		assert.NotEmpty(t, Keywords(c), "keywords of %s", c)
		assert.NotEqual(t, defaultRecommendations, Recommendations(c), "recommendations of %s", c)
		assert.NotEqual(t, string(c), c.DisplayName())
		_, isTable := DiagnoserFor(c).(ruleTable)
		assert.True(t, isTable, "diagnoser of %s", c)
	}
	assert.LessOrEqual(t, len(FirstPage)+1, 10, "first page plus the next-page row must fit a list")

	_, ok := Parse("inexistente")
	assert.False(t, ok)
	assert.Equal(t, defaultRecommendations, Recommendations(Category("inexistente")))
}
