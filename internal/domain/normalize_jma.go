package domain

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// longPeriodInfoType is the Information@type carrying per-area long-period
// ground motion classes in VXSE62.
const longPeriodInfoType = "長周期地震動に関する観測情報（細分区域）"

// Struct tags carry no namespace, so encoding/xml matches on local names and
// the jmx, jmx_ib and jmx_eb prefixes are ignored.

type jmaTsunami struct {
	Observation struct {
		Items []struct {
			AreaName string `xml:"Area>Name"`
			Stations []struct {
				Name        string `xml:"Name"`
				ArrivalTime string `xml:"FirstHeight>ArrivalTime"`
				MaxDateTime string `xml:"MaxHeight>DateTime"`
				Height      *struct {
					Description string `xml:"description,attr"`
					Condition   string `xml:"condition,attr"`
				} `xml:"MaxHeight>TsunamiHeight"`
				MaxCondition string `xml:"MaxHeight>Condition"`
			} `xml:"Station"`
		} `xml:"Item"`
	} `xml:"Observation"`
}

type jmaInformation struct {
	Type  string `xml:"type,attr"`
	Items []struct {
		KindName string   `xml:"Kind>Name"`
		Areas    []string `xml:"Areas>Area>Name"`
	} `xml:"Item"`
}

// decodeElements walks the whole document and hands every start element with
// the given local name to fn, at any depth.
func decodeElements(body []byte, local string, fn func(*xml.Decoder, xml.StartElement) error) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !sawRoot {
				return errors.New("no root element")
			}
			return nil
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if se.Name.Local != local {
			continue
		}
		if err := fn(dec, se); err != nil {
			return err
		}
	}
}

func normalizeJMATsunami(body []byte) ([]Event, error) {
	var (
		doc   jmaTsunami
		found bool
	)
	err := decodeElements(body, "Tsunami", func(dec *xml.Decoder, se xml.StartElement) error {
		if found {
			return dec.Skip()
		}
		found = true
		return dec.DecodeElement(&doc, &se)
	})
	if err != nil {
		return nil, err
	}

	var stations []StationObservation
	for _, item := range doc.Observation.Items {
		for _, st := range item.Stations {
			obs := StationObservation{
				Station: st.Name,
				Area:    item.AreaName,
			}
			raw := firstNonEmpty(strings.TrimSpace(st.MaxDateTime), strings.TrimSpace(st.ArrivalTime))
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				obs.ObservedAt = t
			} else {
				obs.ObservedRaw = raw
			}
			if st.Height != nil {
				obs.Height = width.Narrow.String(strings.TrimSpace(st.Height.Description))
				obs.Condition = strings.TrimSpace(st.Height.Condition)
			}
			if obs.Height == "" {
				obs.Height = strings.TrimSpace(st.MaxCondition)
			}
			stations = append(stations, obs)
		}
	}
	if len(stations) == 0 {
		return nil, nil
	}

	slices.SortStableFunc(stations, func(a, b StationObservation) int {
		ha, hb := heightValue(a.Height), heightValue(b.Height)
		switch {
		case ha > hb:
			return -1
		case ha < hb:
			return 1
		default:
			return 0
		}
	})
	return []Event{TsunamiObservation{Stations: stations}}, nil
}

// heightValue reads "1.2m" or "3m以上" as metres; anything else is -1 so it
// sorts after measured waves.
func heightValue(desc string) float64 {
	s := strings.TrimSuffix(desc, "以上")
	s = strings.TrimSuffix(s, "m")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1
	}
	return v
}

func normalizeJMALongPeriod(body []byte) ([]Event, error) {
	var motion LongPeriodMotion
	index := make(map[string]int)

	err := decodeElements(body, "Information", func(dec *xml.Decoder, se xml.StartElement) error {
		var info jmaInformation
		if err := dec.DecodeElement(&info, &se); err != nil {
			return err
		}
		if info.Type != longPeriodInfoType {
			return nil
		}
		for _, item := range info.Items {
			kind := strings.TrimSpace(item.KindName)
			for _, area := range item.Areas {
				area = strings.TrimSpace(area)
				i, ok := index[area]
				if !ok {
					i = len(motion.Areas)
					index[area] = i
					motion.Areas = append(motion.Areas, AreaMotion{Area: area})
				}
				motion.Areas[i].Kinds = append(motion.Areas[i].Kinds, kind)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(motion.Areas) == 0 {
		return nil, nil
	}
	return []Event{motion}, nil
}
