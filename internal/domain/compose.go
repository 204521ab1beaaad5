package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Composer renders canonical events as alert text using a Phrasebook.
// It holds no state; deciding whether an event is new is the Store's job.
type Composer struct {
	book *Phrasebook
}

// NewComposer creates a Composer. A nil phrasebook selects Japanese.
func NewComposer(book *Phrasebook) *Composer {
	if book == nil {
		book = japanese
	}
	return &Composer{book: book}
}

// Phrasebook returns the tables the composer renders with.
func (c *Composer) Phrasebook() *Phrasebook { return c.book }

// ComposeEEW renders an early-warning update as a single sentence. The text is
// also the EEW admission key, so identical updates render identically.
func (c *Composer) ComposeEEW(u EEWUpdate) Alert {
	p := c.book
	if u.IsCancel {
		return NewAlert(ClassEEW, p.eewCancel, CueEEWCancel)
	}

	label, cue := p.eewForecast, CueEEWForecast
	if u.IsWarn {
		label, cue = p.eewWarn, CueEEWWarning
	}

	report := p.eewFinal
	if !u.IsFinal {
		serial := p.unknown
		if u.Serial != nil {
			serial = fmt.Sprint(*u.Serial)
		}
		report = fmt.Sprintf(p.eewSerial, serial)
	}

	text := fmt.Sprintf(p.eewSentence,
		label,
		report,
		p.orUnknown(u.MaxIntensity),
		p.orUnknown(u.Hypocenter),
		c.optionalNumber(u.DepthKm),
		c.optionalNumber(u.Magnitude),
	)
	return NewAlert(ClassEEW, text, cue)
}

func (c *Composer) optionalNumber(v *float64) string {
	if v == nil {
		return c.book.unknown
	}
	return formatNumber(*v)
}

// ComposeBulletin renders an earthquake bulletin. Clauses whose data is
// missing are left out rather than read as unknown.
func (c *Composer) ComposeBulletin(b EarthquakeBulletin) Alert {
	p := c.book
	var sb strings.Builder

	fmt.Fprintf(&sb, p.issueClause, p.IssueTypeText(b.IssueType))

	if !b.OccurredAt.IsZero() {
		t := b.OccurredAt.In(jst)
		fmt.Fprintf(&sb, p.timeClause, t.Hour(), t.Minute())
	}
	if b.HypocenterName != "" {
		fmt.Fprintf(&sb, p.hypocenterClause, b.HypocenterName)
	}
	if b.DepthKm >= 0 {
		depth := p.veryShallow
		if b.DepthKm > 0 {
			depth = fmt.Sprintf(p.depthKm, formatNumber(b.DepthKm))
		}
		fmt.Fprintf(&sb, p.depthClause, depth)
	}
	if b.Magnitude >= 0 {
		fmt.Fprintf(&sb, p.magnitudeClause, b.Magnitude)
	}

	if b.IssueType != IssueForeign {
		sb.WriteString(p.DomesticTsunamiText(b.DomesticTsunami))
	}
	if b.ForeignTsunami != "" && b.ForeignTsunami != "Unknown" {
		sb.WriteString(p.ForeignTsunamiText(b.ForeignTsunami))
	}

	if b.IssueType != IssueDestination && b.IssueType != IssueForeign {
		sb.WriteString(c.observationSummary(b.Observations))
	}

	return NewAlert(ClassBulletin, strings.TrimSpace(sb.String()), bulletinCue(b.IssueType))
}

func bulletinCue(t IssueType) SoundCue {
	switch t {
	case IssueScalePrompt:
		return CueScalePrompt
	case IssueDestination:
		return CueDestination
	case IssueScaleAndDestination:
		return CueScaleAndDestination
	case IssueDetailScale:
		return CueDetailScale
	case IssueForeign:
		return CueForeign
	default:
		return CueEarthquake
	}
}

// observationSummary names the prefectures with the highest intensity first,
// then every lower intensity in descending order. Prefectures keep the order
// in which they were first observed.
func (c *Composer) observationSummary(obs []PrefectureIntensity) string {
	if len(obs) == 0 {
		return ""
	}
	p := c.book

	byScale := make(map[int][]string)
	var scales []int
	for _, o := range obs {
		if _, ok := byScale[o.Scale]; !ok {
			scales = append(scales, o.Scale)
		}
		byScale[o.Scale] = append(byScale[o.Scale], p.orUnknown(o.Prefecture))
	}
	slices.SortFunc(scales, func(a, b int) int { return b - a })

	top := scales[0]
	out := fmt.Sprintf(p.observedMax, p.ScaleText(top), strings.Join(byScale[top], p.listSep))

	if len(scales) > 1 {
		groups := make([]string, 0, len(scales)-1)
		for _, s := range scales[1:] {
			groups = append(groups, fmt.Sprintf(p.observedGroup, p.ScaleText(s), strings.Join(byScale[s], p.listSep)))
		}
		out += fmt.Sprintf(p.observedOthers, strings.Join(groups, p.joinSep))
	}
	return out
}

// ComposeTsunamiItem renders one advisory item. A cancelled item always reads
// the fixed cancellation sentence and its areas are ignored. ok is false when
// no area carries an announceable grade.
func (c *Composer) ComposeTsunamiItem(item TsunamiAdvisoryItem) (alert Alert, ok bool) {
	p := c.book
	if item.Cancelled {
		return NewAlert(ClassTsunami, p.tsunamiCancel, CueTsunamiCancel), true
	}

	byGrade := make(map[TsunamiGrade][]TsunamiArea)
	for _, a := range item.Areas {
		if a.Grade == GradeNone {
			continue
		}
		byGrade[a.Grade] = append(byGrade[a.Grade], a)
	}

	var blocks []string
	for _, grade := range GradePriority {
		areas := byGrade[grade]
		if len(areas) == 0 {
			continue
		}
		lines := []string{fmt.Sprintf(p.tsunamiHeader, p.GradeText(grade))}
		for _, a := range areas {
			line := fmt.Sprintf(p.tsunamiArea, p.orUnknown(a.Name), p.orUnknown(a.MaxHeightDescription))
			if clause := c.arrivalClause(a); clause != "" {
				line += fmt.Sprintf(p.tsunamiSuffix, clause)
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if len(blocks) == 0 {
		return Alert{}, false
	}
	return NewAlert(ClassTsunami, strings.Join(blocks, "\n"), CueTsunami), true
}

// arrivalClause prefers a recognised condition code over the arrival estimate.
func (c *Composer) arrivalClause(a TsunamiArea) string {
	if s, ok := c.book.ConditionText(a.Condition); ok {
		return s
	}
	if a.Arrival != nil {
		return fmt.Sprintf(c.book.tsunamiArrival, a.Arrival.Day, a.Arrival.Hour, a.Arrival.Minute)
	}
	return ""
}

// ComposeTsunamiObservation renders the observed-wave snapshot as a header
// followed by one line per station.
func (c *Composer) ComposeTsunamiObservation(o TsunamiObservation) Alert {
	p := c.book
	lines := make([]string, 0, len(o.Stations)+1)
	lines = append(lines, p.observationHeader)
	for _, s := range o.Stations {
		cond := ""
		if s.Condition != "" {
			cond = fmt.Sprintf(p.observationCondition, s.Condition)
		}
		lines = append(lines, fmt.Sprintf(p.observationLine,
			p.orUnknown(s.Station),
			c.observedTime(s),
			p.orUnknown(s.Height),
			cond,
		))
	}
	return NewAlert(ClassTsunamiObservation, strings.Join(lines, "\n"), CueObservation)
}

func (c *Composer) observedTime(s StationObservation) string {
	if !s.ObservedAt.IsZero() {
		t := s.ObservedAt.In(jst)
		return fmt.Sprintf(c.book.observationTime, t.Day(), t.Hour(), t.Minute())
	}
	return c.book.orUnknown(s.ObservedRaw)
}

// ComposeLongPeriod renders one alert per area that recorded at least one
// motion class.
func (c *Composer) ComposeLongPeriod(m LongPeriodMotion) []Alert {
	p := c.book
	var alerts []Alert
	for _, a := range m.Areas {
		if len(a.Kinds) == 0 {
			continue
		}
		kinds := make([]string, len(a.Kinds))
		for i, k := range a.Kinds {
			kinds[i] = p.orUnknown(k)
		}
		text := fmt.Sprintf(p.longPeriodLine, strings.Join(kinds, p.listSep), p.orUnknown(a.Area))
		alerts = append(alerts, NewAlert(ClassLongPeriod, text, CueSeismicWarning))
	}
	return alerts
}
