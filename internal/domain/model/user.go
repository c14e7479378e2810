package model

type TranslatorType string

const (
	TranslatorTypeProfessional TranslatorType = "professional"
	TranslatorTypeRWS          TranslatorType = "rwstranslator"
	TranslatorTypeVolunteer    TranslatorType = "volunteer"
)

type TranslatorLevel string

const (
	LevelCertified       TranslatorLevel = "Certified"
	LevelCertifiedLaw    TranslatorLevel = "Certified with specialisation in law"
	LevelCertifiedHealth TranslatorLevel = "Certified with specialisation in health care"
	LevelLayman          TranslatorLevel = "Layman"
	LevelReadCourses     TranslatorLevel = "Read Translation courses"
)

// Customer is the party requesting interpretation.
type Customer struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	Town         string
	ConsumerType string // "paid" | "RWS" | anything else -> unpaid bookings
	NotGetEmails bool
}

// Translator carries the derived eligibility profile next to contact data.
type Translator struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	Town      string
	Type      TranslatorType
	Levels    []TranslatorLevel
	Languages []int64
	Gender    Gender

	// AcceptAll lets the translator pick up jobs pinned to someone else.
	AcceptAll bool

	// Notification preferences, mirrored from user meta.
	NotGetNotification bool
	NotGetNighttime    bool
	NotGetEmails       bool
}

// Speaks reports whether the translator covers the given language.
func (t *Translator) Speaks(languageID int64) bool {
	for _, l := range t.Languages {
		if l == languageID {
			return true
		}
	}
	return false
}

// HasLevel reports whether the translator holds any of the given levels.
func (t *Translator) HasLevel(levels []TranslatorLevel) bool {
	for _, want := range levels {
		for _, have := range t.Levels {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Language is a bookable interpretation language.
type Language struct {
	ID   int64
	Name string
}

// BlacklistEntry blocks one translator from one customer's jobs.
type BlacklistEntry struct {
	CustomerID   string
	TranslatorID string
}
