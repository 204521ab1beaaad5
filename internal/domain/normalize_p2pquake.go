package domain

import (
	"encoding/json"
)

const (
	codeJMAQuake   = 551
	codeJMATsunami = 552
)

// p2pEnvelope peeks at the message code before decoding the full body.
type p2pEnvelope struct {
	Code int `json:"code"`
}

// p2pQuake is a P2PQuake code 551 (JMAQuake) record.
type p2pQuake struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Code     int    `json:"code"`
	Time     string `json:"time"`
	Issue    struct {
		Type string `json:"type"`
		Time string `json:"time"`
	} `json:"issue"`
	Earthquake struct {
		Time       string `json:"time"`
		Hypocenter struct {
			Name      string   `json:"name"`
			Depth     *float64 `json:"depth"`
			Magnitude *float64 `json:"magnitude"`
		} `json:"hypocenter"`
		DomesticTsunami string `json:"domesticTsunami"`
		ForeignTsunami  string `json:"foreignTsunami"`
	} `json:"earthquake"`
	Points []struct {
		Pref  string `json:"pref"`
		Scale *int   `json:"scale"`
	} `json:"points"`
}

// p2pTsunami is a P2PQuake code 552 (JMATsunami) record.
type p2pTsunami struct {
	ID        string `json:"id"`
	LegacyID  string `json:"_id"`
	Code      int    `json:"code"`
	Time      string `json:"time"`
	Cancelled bool   `json:"cancelled"`
	Issue     struct {
		Time string `json:"time"`
	} `json:"issue"`
	Areas []struct {
		Name        string `json:"name"`
		Grade       string `json:"grade"`
		FirstHeight struct {
			ArrivalTime string `json:"arrivalTime"`
			Condition   string `json:"condition"`
		} `json:"firstHeight"`
		MaxHeight struct {
			Description string `json:"description"`
		} `json:"maxHeight"`
	} `json:"areas"`
}

func normalizeQuakeStream(body []byte) ([]Event, error) {
	if err := requireJSON(body, '{'); err != nil {
		return nil, err
	}
	var env p2pEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	switch env.Code {
	case codeJMAQuake:
		var rec p2pQuake
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, err
		}
		return []Event{bulletinFromP2P(rec)}, nil
	case codeJMATsunami:
		var rec p2pTsunami
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, err
		}
		return []Event{TsunamiAdvisoryBatch{Items: []TsunamiAdvisoryItem{tsunamiItemFromP2P(rec)}}}, nil
	default:
		// Peer counts, user reports and other codes are not announced.
		return nil, nil
	}
}

func normalizeBulletinList(body []byte) ([]Event, error) {
	if err := requireJSON(body, '['); err != nil {
		return nil, err
	}
	var recs []p2pQuake
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(recs))
	for _, rec := range recs {
		if rec.Code != 0 && rec.Code != codeJMAQuake {
			continue
		}
		events = append(events, bulletinFromP2P(rec))
	}
	return events, nil
}

func normalizeTsunamiList(body []byte) ([]Event, error) {
	if err := requireJSON(body, '['); err != nil {
		return nil, err
	}
	var recs []p2pTsunami
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, err
	}
	items := make([]TsunamiAdvisoryItem, 0, len(recs))
	for _, rec := range recs {
		if rec.Code != 0 && rec.Code != codeJMATsunami {
			continue
		}
		items = append(items, tsunamiItemFromP2P(rec))
	}
	if len(items) == 0 {
		return nil, nil
	}
	return []Event{TsunamiAdvisoryBatch{Items: items}}, nil
}

func bulletinFromP2P(rec p2pQuake) EarthquakeBulletin {
	b := EarthquakeBulletin{
		ID:              firstNonEmpty(rec.ID, rec.LegacyID),
		IssueType:       parseIssueType(rec.Issue.Type),
		HypocenterName:  rec.Earthquake.Hypocenter.Name,
		DepthKm:         -1,
		Magnitude:       -1,
		DomesticTsunami: rec.Earthquake.DomesticTsunami,
		ForeignTsunami:  rec.Earthquake.ForeignTsunami,
	}
	if t, ok := parseJSTTime(rec.Earthquake.Time); ok {
		b.OccurredAt = t
	}
	if t, ok := parseJSTTime(rec.Issue.Time); ok {
		b.IssuedAt = t
	} else if t, ok := parseJSTTime(rec.Time); ok {
		b.IssuedAt = t
	}
	if d := rec.Earthquake.Hypocenter.Depth; d != nil && *d >= 0 {
		b.DepthKm = *d
	}
	if m := rec.Earthquake.Hypocenter.Magnitude; m != nil && *m >= 0 {
		b.Magnitude = *m
	}

	// Reduce points to the highest scale per prefecture, keeping the order in
	// which prefectures first appear.
	index := make(map[string]int)
	for _, p := range rec.Points {
		if p.Scale == nil || *p.Scale <= 0 {
			continue
		}
		if i, ok := index[p.Pref]; ok {
			if *p.Scale > b.Observations[i].Scale {
				b.Observations[i].Scale = *p.Scale
			}
			continue
		}
		index[p.Pref] = len(b.Observations)
		b.Observations = append(b.Observations, PrefectureIntensity{Prefecture: p.Pref, Scale: *p.Scale})
	}
	return b
}

func tsunamiItemFromP2P(rec p2pTsunami) TsunamiAdvisoryItem {
	item := TsunamiAdvisoryItem{
		ID:        firstNonEmpty(rec.ID, rec.LegacyID),
		Cancelled: rec.Cancelled,
	}
	if t, ok := parseJSTTime(rec.Time); ok {
		item.IssuedAt = t
	} else if t, ok := parseJSTTime(rec.Issue.Time); ok {
		item.IssuedAt = t
	}
	for _, a := range rec.Areas {
		item.Areas = append(item.Areas, TsunamiArea{
			Name:                 a.Name,
			Grade:                parseGrade(a.Grade),
			MaxHeightDescription: a.MaxHeight.Description,
			Arrival:              ParseArrival(a.FirstHeight.ArrivalTime),
			Condition:            a.FirstHeight.Condition,
		})
	}
	return item
}

func parseIssueType(s string) IssueType {
	switch t := IssueType(s); t {
	case IssueScalePrompt, IssueDestination, IssueScaleAndDestination, IssueDetailScale, IssueForeign:
		return t
	default:
		return IssueOther
	}
}

func parseGrade(s string) TsunamiGrade {
	switch g := TsunamiGrade(s); g {
	case GradeMajorWarning, GradeWarning, GradeWatch:
		return g
	default:
		return GradeNone
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
