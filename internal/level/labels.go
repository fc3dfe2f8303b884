package level

// DefaultLanguage is used for unknown language codes.
const DefaultLanguage = "en"

// Labels holds the display text of every level for one language.
type Labels [levelCount]string

// Text returns the display text of l, falling back to the unavailable text.
func (ls Labels) Text(l Level) string {
	if l < 0 || l >= levelCount {
		return ls[Unavailable]
	}
	return ls[l]
}

var labelTable = map[string]Labels{
	"en": {"Unavailable", "Cheap", "Cheapest hour", "Cheapest hours", "Cheap time", "Most expensive hour", "Most expensive hours", "Normal", "Expensive"},
	"nb": {"Utilgjengelig", "Billig", "Billigste time", "Billigste timer", "Billig time", "Dyreste time", "Dyreste timer", "Normal", "Dyrt"},
	"sv": {"Otillgänglig", "Billig", "Billigaste timmen", "Billigaste timmarna", "Billig tid", "Dyraste timmen", "Dyraste timmarna", "Normal", "Dyrt"},
	"da": {"Utilgængelig", "Billig", "Billigste time", "Billigste timer", "Billig time", "Dyreste time", "Dyreste timer", "Normal", "Dyrt"},
	"fi": {"Ei saatavilla", "Edullinen", "Halvin tunti", "Edullisimmat tunnit", "Edullinen tunti", "Kallein tunti", "Kalleimmat tunnit", "Normaali", "Kallis"},
	"de": {"Nicht verfügbar", "Günstig", "Günstigste Stunde", "Günstigste Stunden", "Günstige Stunde", "Teuerste Stunde", "Teuerste Stunden", "Normal", "Teuer"},
	"et": {"Pole saadaval", "Soodne", "Kõige odavam tund", "Kõige odavamad tunnid", "Soodne tund", "Kalleim tund", "Kalleimad tunnid", "Tavaline", "Kallis"},
	"lv": {"Nav pieejams", "Lēts", "Lētākā stunda", "Lētākās stundas", "Lēta stunda", "Dārgākā stunda", "Dārgākās stundas", "Parasts", "Dārgi"},
	"lt": {"Nėra prieinama", "Pigu", "Pigiausia valanda", "Pigiausios valandos", "Pigi valanda", "Brangiausia valanda", "Brangiausios valandos", "Normalu", "Brangu"},
	"nl": {"Niet beschikbaar", "Goedkoop", "Goedkoopste uur", "Goedkoopste uren", "Goedkoop uur", "Duurste uur", "Duurste uren", "Normaal", "Duur"},
	"pl": {"Niedostępne", "Tanie", "Najtańsza godzina", "Najtańsze godziny", "Tania godzina", "Najdroższa godzina", "Najdroższe godziny", "Normalna", "Drogie"},
}

var languageNames = map[string]string{
	"English":    "en",
	"Dansk":      "da",
	"Deutsch":    "de",
	"Eesti":      "et",
	"Latviešu":   "lv",
	"Lietuvių":   "lt",
	"Nederlands": "nl",
	"Norsk":      "nb",
	"Polski":     "pl",
	"Suomi":      "fi",
	"Svenska":    "sv",
}

// LabelsFor returns the label set of a language code, or English.
func LabelsFor(code string) Labels {
	if ls, ok := labelTable[code]; ok {
		return ls
	}
	return labelTable[DefaultLanguage]
}

// Supported reports whether code has its own label set.
func Supported(code string) bool {
	_, ok := labelTable[code]
	return ok
}

// LanguageCode accepts either a code or a legacy display name ("Norsk") and
// returns a supported code, defaulting to English.
func LanguageCode(nameOrCode string) string {
	if code, ok := languageNames[nameOrCode]; ok {
		return code
	}
	if Supported(nameOrCode) {
		return nameOrCode
	}
	return DefaultLanguage
}
