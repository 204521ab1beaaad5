package domain

import "fmt"

// Phrasebook holds the classification tables and sentence templates for one
// locale. Tables are read-only after package init; lookups never fail and fall
// back to the documented default for codes they do not know.
type Phrasebook struct {
	locale  string
	unknown string

	listSep string // between prefectures, motion kinds
	joinSep string // between intensity groups

	scales          map[int]string
	domesticTsunami map[string]string
	foreignTsunami  map[string]string
	issueTypes      map[IssueType]string
	issueDefault    string
	grades          map[TsunamiGrade]string
	conditions      map[string]string

	eewWarn     string
	eewForecast string
	eewFinal    string
	eewSerial   string
	eewSentence string
	eewCancel   string

	issueClause      string
	timeClause       string
	hypocenterClause string
	depthClause      string
	veryShallow      string
	depthKm          string
	magnitudeClause  string
	observedMax      string
	observedGroup    string
	observedOthers   string

	tsunamiCancel  string
	tsunamiHeader  string
	tsunamiArea    string
	tsunamiSuffix  string
	tsunamiArrival string

	observationHeader    string
	observationLine      string
	observationCondition string
	observationTime      string

	longPeriodLine string
}

// Locale returns the phrasebook's locale tag.
func (p *Phrasebook) Locale() string { return p.locale }

// Unknown returns the word read out for a missing value.
func (p *Phrasebook) Unknown() string { return p.unknown }

// ScaleText maps a P2PQuake intensity scale code to its display text.
// Unrecognised codes read as unknown.
func (p *Phrasebook) ScaleText(code int) string {
	if s, ok := p.scales[code]; ok {
		return s
	}
	return p.unknown
}

// DomesticTsunamiText maps a domestic tsunami code to a full sentence.
// Unrecognised codes yield "" so the clause is skipped.
func (p *Phrasebook) DomesticTsunamiText(code string) string {
	return p.domesticTsunami[code]
}

// ForeignTsunamiText maps a foreign tsunami code to a full sentence. The
// table is separate from the domestic one: "None" and "Checking" exist in
// both with different phrasing. Unrecognised codes yield "".
func (p *Phrasebook) ForeignTsunamiText(code string) string {
	return p.foreignTsunami[code]
}

// IssueTypeText maps a bulletin issue type to its title.
func (p *Phrasebook) IssueTypeText(t IssueType) string {
	if s, ok := p.issueTypes[t]; ok {
		return s
	}
	return p.issueDefault
}

// GradeText maps a tsunami grade to its label. GradeNone and unknown grades
// yield "".
func (p *Phrasebook) GradeText(g TsunamiGrade) string {
	return p.grades[g]
}

// ConditionText maps a JMA first-wave condition code to a sentence fragment.
// ok is false for codes without a phrase.
func (p *Phrasebook) ConditionText(code string) (string, bool) {
	s, ok := p.conditions[code]
	return s, ok
}

func (p *Phrasebook) orUnknown(s string) string {
	if s == "" {
		return p.unknown
	}
	return s
}

// PhrasebookFor returns the phrasebook for a locale tag ("ja" or "en").
func PhrasebookFor(locale string) (*Phrasebook, error) {
	switch locale {
	case "ja", "":
		return japanese, nil
	case "en":
		return english, nil
	default:
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
}

// Japanese is the default phrasebook.
func Japanese() *Phrasebook { return japanese }

var japanese = &Phrasebook{
	locale:  "ja",
	unknown: Unknown,
	listSep: "、",
	joinSep: "、",

	scales: map[int]string{
		10: "震度1",
		20: "震度2",
		30: "震度3",
		40: "震度4",
		45: "震度5弱",
		46: "震度5弱以上と推定",
		50: "震度5強",
		55: "震度6弱",
		60: "震度6強",
		70: "震度7",
	},
	domesticTsunami: map[string]string{
		"None":         "この地震による津波の心配はありません。",
		"Checking":     "津波の有無については現在調査中です。今後の情報に警戒してください。",
		"NonEffective": "この地震により若干の海面変動が予想されますが、津波被害の心配はありません。",
		"Watch":        "この地震により、津波注意報が発表されました。",
		"Warning":      "この地震により、現在津波情報等を発表中です。",
	},
	foreignTsunami: map[string]string{
		"None":               "この地震による、日本への津波の影響はありません。",
		"Checking":           "この地震による、津波の有無については現在調査中です。今後の情報に警戒してください。",
		"NonEffectiveNearby": "この地震により、震源の近傍では小さな津波が発生するかもしれませんが、被害の心配はありません。",
		"WarningNearby":      "この地震により、震源の近傍では津波発生の可能性があります。",
		"WarningPacific":     "この地震により、太平洋では津波の発生の可能性があります。",
		"WarningPacificWide": "この地震により、太平洋の広域で津波の可能性があります。",
		"WarningIndian":      "この地震により、インド洋では津波の可能性があります。",
		"WarningIndianWide":  "この地震により、インド洋の広域で津波の可能性があります。",
		"Potential":          "一般にこの規模では津波の可能性があります。",
	},
	issueTypes: map[IssueType]string{
		IssueScalePrompt:         "震度速報",
		IssueDestination:         "震源に関する情報",
		IssueScaleAndDestination: "地震情報",
		IssueDetailScale:         "地震情報",
		IssueForeign:             "遠地地震情報",
		IssueOther:               "地震情報",
	},
	issueDefault: "地震情報",
	grades: map[TsunamiGrade]string{
		GradeMajorWarning: "大津波警報",
		GradeWarning:      "津波警報",
		GradeWatch:        "津波注意報",
	},
	conditions: map[string]string{
		"ただちに津波来襲と予測": "ただちに津波来襲と予測されます",
		"津波到達中と推測":    "津波到達中と推測されます",
		"第１波の到達を確認":   "第１波の到達を確認しました",
	},

	eewWarn:     "警報",
	eewForecast: "予報",
	eewFinal:    "最終報",
	eewSerial:   "第%s報",
	eewSentence: "緊急地震速報（%s）%s。推定最大震度は%sです。震源地は%s、震源の深さは%sキロメートル、地震の規模を示すマグニチュードは%sと推定されています。",
	eewCancel:   "この緊急地震速報は取り消されました",

	issueClause:      "%s。",
	timeClause:       "%d時%d分ごろ地震がありました。",
	hypocenterClause: "震源地は%s、",
	depthClause:      "震源の深さは%s。",
	veryShallow:      "ごく浅い",
	depthKm:          "%sキロメートル",
	magnitudeClause:  "地震の規模を示すマグニチュードは%.1fと推定されています。",
	observedMax:      "最大%sを%sで観測しました。",
	observedGroup:    "%sを%s",
	observedOthers:   "また、%sで観測しました。",

	tsunamiCancel:  "津波情報。津波予報が解除されました。",
	tsunamiHeader:  "津波情報。%[1]sが発表されました。\n%[1]sが発表されている地域をお伝えします。",
	tsunamiArea:    "%s、予想の高さ%s",
	tsunamiSuffix:  "、%s",
	tsunamiArrival: "早いところで、%d日%d時%d分ごろ到達とみられます",

	observationHeader:    "津波観測情報。沿岸で津波を観測しています。観測地点と観測時刻、観測した津波の最大波をお伝えします。",
	observationLine:      "%s、%s、%s%s。",
	observationCondition: "、%s",
	observationTime:      "%d日%d時%d分",

	longPeriodLine: "先ほどの地震により長周期地震動を観測しました。%sを%sで観測しました。",
}

var english = &Phrasebook{
	locale:  "en",
	unknown: "unknown",
	listSep: ", ",
	joinSep: "; ",

	scales: map[int]string{
		10: "intensity 1",
		20: "intensity 2",
		30: "intensity 3",
		40: "intensity 4",
		45: "intensity 5 lower",
		46: "intensity 5 lower or above (estimated)",
		50: "intensity 5 upper",
		55: "intensity 6 lower",
		60: "intensity 6 upper",
		70: "intensity 7",
	},
	domesticTsunami: map[string]string{
		"None":         "There is no tsunami threat from this earthquake. ",
		"Checking":     "The possibility of a tsunami is under investigation. Stay alert for further information. ",
		"NonEffective": "Slight sea level changes are expected, but no tsunami damage is expected. ",
		"Watch":        "A tsunami advisory has been issued for this earthquake. ",
		"Warning":      "Tsunami information is currently being issued for this earthquake. ",
	},
	foreignTsunami: map[string]string{
		"None":               "This earthquake poses no tsunami threat to Japan. ",
		"Checking":           "The possibility of a tsunami from this earthquake is under investigation. Stay alert for further information. ",
		"NonEffectiveNearby": "A small tsunami may occur near the epicenter, but no damage is expected. ",
		"WarningNearby":      "A tsunami may occur near the epicenter. ",
		"WarningPacific":     "A tsunami may occur in the Pacific Ocean. ",
		"WarningPacificWide": "A tsunami may occur across a wide area of the Pacific Ocean. ",
		"WarningIndian":      "A tsunami may occur in the Indian Ocean. ",
		"WarningIndianWide":  "A tsunami may occur across a wide area of the Indian Ocean. ",
		"Potential":          "An earthquake of this size can generally cause a tsunami. ",
	},
	issueTypes: map[IssueType]string{
		IssueScalePrompt:         "Seismic intensity report",
		IssueDestination:         "Hypocenter information",
		IssueScaleAndDestination: "Earthquake information",
		IssueDetailScale:         "Earthquake information",
		IssueForeign:             "Distant earthquake information",
		IssueOther:               "Earthquake information",
	},
	issueDefault: "Earthquake information",
	grades: map[TsunamiGrade]string{
		GradeMajorWarning: "Major tsunami warning",
		GradeWarning:      "Tsunami warning",
		GradeWatch:        "Tsunami advisory",
	},
	conditions: map[string]string{
		"ただちに津波来襲と予測": "tsunami expected to arrive immediately",
		"津波到達中と推測":    "tsunami presumed to be arriving now",
		"第１波の到達を確認":   "first wave arrival confirmed",
	},

	eewWarn:     "warning",
	eewForecast: "forecast",
	eewFinal:    "final report",
	eewSerial:   "report %s",
	eewSentence: "Earthquake Early Warning (%s), %s. Estimated maximum intensity %s. Hypocenter %s, depth %s km, magnitude %s.",
	eewCancel:   "This Earthquake Early Warning has been cancelled.",

	issueClause:      "%s. ",
	timeClause:       "An earthquake occurred at around %d:%02d. ",
	hypocenterClause: "Hypocenter %s, ",
	depthClause:      "depth %s. ",
	veryShallow:      "very shallow",
	depthKm:          "%s km",
	magnitudeClause:  "Magnitude estimated at %.1f. ",
	observedMax:      "Observed at most at %s in %s. ",
	observedGroup:    "%s in %s",
	observedOthers:   "Also %s.",

	tsunamiCancel:  "Tsunami information. The tsunami forecast has been cancelled.",
	tsunamiHeader:  "Tsunami information. %[1]s issued.\nAreas under the %[1]s follow.",
	tsunamiArea:    "%s, expected height %s",
	tsunamiSuffix:  ", %s",
	tsunamiArrival: "earliest arrival expected on day %d at %02d:%02d",

	observationHeader:    "Tsunami observation information. Tsunami waves are being observed along the coast.",
	observationLine:      "%s, %s, %s%s.",
	observationCondition: ", %s",
	observationTime:      "day %d %02d:%02d",

	longPeriodLine: "Long-period ground motion was observed after the earthquake. %s observed in %s.",
}
