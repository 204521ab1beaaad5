package domain

import (
	"maps"
	"slices"
	"time"
)

// SourceKind tells the Normalizer how to read a raw payload.
type SourceKind string

const (
	KindEEW           SourceKind = "eew"             // wolfx EEW JSON object
	KindQuakeStream   SourceKind = "quake-stream"    // P2PQuake WebSocket object, dispatched by code
	KindBulletinList  SourceKind = "bulletin-list"   // P2PQuake history array of code 551
	KindTsunamiList   SourceKind = "tsunami-list"    // P2PQuake history array of code 552
	KindJMATsunami    SourceKind = "jma-tsunami"     // JMA VTSE51 XML document
	KindJMALongPeriod SourceKind = "jma-long-period" // JMA VXSE62 XML document
)

// Unknown is the display sentinel for values upstream did not provide.
const Unknown = "不明"

// RawPayload is one unprocessed message from a feed adapter.
type RawPayload struct {
	Source     string // adapter name, e.g. "wolfx-eew"
	Kind       SourceKind
	Body       []byte
	ReceivedAt time.Time
}

// EventClass identifies which change-detection state an event belongs to.
type EventClass string

const (
	ClassEEW                EventClass = "eew"
	ClassBulletin           EventClass = "bulletin"
	ClassTsunami            EventClass = "tsunami"
	ClassTsunamiObservation EventClass = "tsunami_observation"
	ClassLongPeriod         EventClass = "long_period"
)

// Event is a canonical, upstream-agnostic occurrence produced by Normalize.
type Event interface {
	Class() EventClass
}

// EEWUpdate is a single Earthquake Early Warning push. Text fields are empty
// and numeric fields nil when upstream omitted them.
type EEWUpdate struct {
	IsWarn       bool
	IsFinal      bool
	IsCancel     bool
	Serial       *int
	MaxIntensity string
	Hypocenter   string
	DepthKm      *float64
	Magnitude    *float64
}

func (EEWUpdate) Class() EventClass { return ClassEEW }

// IssueType is the P2PQuake bulletin issue type.
type IssueType string

const (
	IssueScalePrompt         IssueType = "ScalePrompt"
	IssueDestination         IssueType = "Destination"
	IssueScaleAndDestination IssueType = "ScaleAndDestination"
	IssueDetailScale         IssueType = "DetailScale"
	IssueForeign             IssueType = "Foreign"
	IssueOther               IssueType = "Other"
)

// PrefectureIntensity is the highest intensity code observed in one prefecture.
type PrefectureIntensity struct {
	Prefecture string
	Scale      int
}

// EarthquakeBulletin is a post-hoc observation report. DepthKm and Magnitude
// are -1 when unknown; OccurredAt and IssuedAt are zero when unknown.
type EarthquakeBulletin struct {
	ID              string
	IssueType       IssueType
	IssuedAt        time.Time
	OccurredAt      time.Time
	HypocenterName  string
	DepthKm         float64
	Magnitude       float64
	DomesticTsunami string
	ForeignTsunami  string
	Observations    []PrefectureIntensity // per-prefecture maxima, first-observed order
}

func (EarthquakeBulletin) Class() EventClass { return ClassBulletin }

// TsunamiGrade is the severity of a tsunami advisory for one coastal area.
type TsunamiGrade string

const (
	GradeMajorWarning TsunamiGrade = "MajorWarning"
	GradeWarning      TsunamiGrade = "Warning"
	GradeWatch        TsunamiGrade = "Watch"
	GradeNone         TsunamiGrade = ""
)

// GradePriority is the fixed announcement order for tsunami grades.
var GradePriority = []TsunamiGrade{GradeMajorWarning, GradeWarning, GradeWatch}

// ArrivalEstimate is the parsed first-wave arrival time of an area.
type ArrivalEstimate struct {
	Day    int
	Hour   int
	Minute int
}

// TsunamiArea is one coastal area inside an advisory item.
type TsunamiArea struct {
	Name                 string
	Grade                TsunamiGrade
	MaxHeightDescription string
	Arrival              *ArrivalEstimate // nil when no estimate is available
	Condition            string
}

// TsunamiAdvisoryItem is one P2PQuake tsunami advisory.
type TsunamiAdvisoryItem struct {
	ID        string
	IssuedAt  time.Time
	Cancelled bool
	Areas     []TsunamiArea
}

// TsunamiAdvisoryBatch holds every item delivered by one payload. Items may
// already have been announced; the Store decides.
type TsunamiAdvisoryBatch struct {
	Items []TsunamiAdvisoryItem
}

func (TsunamiAdvisoryBatch) Class() EventClass { return ClassTsunami }

// SortedItems returns the items most recent first. Items with equal issue
// time keep their feed order.
func (b TsunamiAdvisoryBatch) SortedItems() []TsunamiAdvisoryItem {
	items := slices.Clone(b.Items)
	slices.SortStableFunc(items, func(a, c TsunamiAdvisoryItem) int {
		return c.IssuedAt.Compare(a.IssuedAt)
	})
	return items
}

// StationObservation is a tsunami measured at one tide station.
type StationObservation struct {
	Station     string    `json:"station"`
	Area        string    `json:"area"`
	ObservedAt  time.Time `json:"observed_at"`            // zero when unknown
	ObservedRaw string    `json:"observed_raw,omitempty"` // upstream text when it could not be parsed
	Height      string    `json:"height"`
	Condition   string    `json:"condition,omitempty"`
}

// TsunamiObservation is the current snapshot of JMA tsunami observations,
// highest wave first.
type TsunamiObservation struct {
	Stations []StationObservation `json:"stations"`
}

func (TsunamiObservation) Class() EventClass { return ClassTsunamiObservation }

// Equal reports whether two observation snapshots carry the same stations in
// the same order.
func (o TsunamiObservation) Equal(other TsunamiObservation) bool {
	return slices.EqualFunc(o.Stations, other.Stations, func(a, b StationObservation) bool {
		return a.Station == b.Station &&
			a.Area == b.Area &&
			a.ObservedAt.Equal(b.ObservedAt) &&
			a.ObservedRaw == b.ObservedRaw &&
			a.Height == b.Height &&
			a.Condition == b.Condition
	})
}

// AreaMotion lists the long-period ground motion classes seen in one area.
type AreaMotion struct {
	Area  string   `json:"area"`
	Kinds []string `json:"kinds"`
}

// LongPeriodMotion is the current snapshot of a JMA long-period ground motion
// report. There is no upstream id; every fetch is the current state.
type LongPeriodMotion struct {
	Areas []AreaMotion `json:"areas"`
}

func (LongPeriodMotion) Class() EventClass { return ClassLongPeriod }

// Equal compares the area -> kinds mapping. Area order is ignored, kind order
// is not.
func (m LongPeriodMotion) Equal(other LongPeriodMotion) bool {
	return maps.EqualFunc(m.asMap(), other.asMap(), slices.Equal[[]string])
}

func (m LongPeriodMotion) asMap() map[string][]string {
	out := make(map[string][]string, len(m.Areas))
	for _, a := range m.Areas {
		out[a.Area] = a.Kinds
	}
	return out
}
