package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(kind SourceKind, body string) RawPayload {
	return RawPayload{Source: "test", Kind: kind, Body: []byte(body)}
}

func TestNormalize_EEW(t *testing.T) {
	t.Run("full update", func(t *testing.T) {
		body := `{"type":"jma_eew","isWarn":true,"isFinal":false,"isCancel":false,"Serial":3,"MaxIntensity":"5弱","Hypocenter":"千葉県東方沖","Depth":40,"Magunitude":5.1}`
		events, err := Normalize(raw(KindEEW, body))

		require.NoError(t, err)
		require.Len(t, events, 1)
		u, ok := events[0].(EEWUpdate)
		require.True(t, ok)
		assert.True(t, u.IsWarn)
		assert.False(t, u.IsFinal)
		require.NotNil(t, u.Serial)
		assert.Equal(t, 3, *u.Serial)
		assert.Equal(t, "5弱", u.MaxIntensity)
		assert.Equal(t, "千葉県東方沖", u.Hypocenter)
		require.NotNil(t, u.DepthKm)
		assert.Equal(t, 40.0, *u.DepthKm)
		require.NotNil(t, u.Magnitude)
		assert.Equal(t, 5.1, *u.Magnitude)
	})

	t.Run("missing fields stay unknown", func(t *testing.T) {
		events, err := Normalize(raw(KindEEW, `{"type":"jma_eew"}`))

		require.NoError(t, err)
		require.Len(t, events, 1)
		u := events[0].(EEWUpdate)
		assert.Nil(t, u.Serial)
		assert.Empty(t, u.MaxIntensity)
		assert.Empty(t, u.Hypocenter)
		assert.Nil(t, u.DepthKm)
		assert.Nil(t, u.Magnitude)
	})

	t.Run("numbers as strings and alternate magnitude key", func(t *testing.T) {
		body := `{"type":"jma_eew","Serial":"12","Depth":"10","Magnitude":"6.3","MaxIntensity":{"x":1}}`
		events, err := Normalize(raw(KindEEW, body))

		require.NoError(t, err)
		u := events[0].(EEWUpdate)
		require.NotNil(t, u.Serial)
		assert.Equal(t, 12, *u.Serial)
		assert.Equal(t, 10.0, *u.DepthKm)
		assert.Equal(t, 6.3, *u.Magnitude)
		assert.Empty(t, u.MaxIntensity, "non-scalar values are treated as absent")
	})

	t.Run("flags in loose shapes", func(t *testing.T) {
		body := `{"type":"jma_eew","isWarn":"true","isFinal":1,"Hypocenter":"x"}`
		events, err := Normalize(raw(KindEEW, body))

		require.NoError(t, err)
		require.Len(t, events, 1)
		u := events[0].(EEWUpdate)
		assert.True(t, u.IsWarn)
		assert.True(t, u.IsFinal)
		assert.Equal(t, "x", u.Hypocenter)

		events, err = Normalize(raw(KindEEW, `{"type":"jma_eew","isCancel":"true"}`))
		require.NoError(t, err)
		assert.Equal(t, []Event{EEWUpdate{IsCancel: true}}, events)

		events, err = Normalize(raw(KindEEW, `{"type":"jma_eew","isWarn":"maybe","isFinal":{"x":1}}`))
		require.NoError(t, err)
		u = events[0].(EEWUpdate)
		assert.False(t, u.IsWarn, "unreadable flags are false")
		assert.False(t, u.IsFinal)
	})

	t.Run("cancel", func(t *testing.T) {
		events, err := Normalize(raw(KindEEW, `{"type":"jma_eew","isCancel":true,"Hypocenter":"x"}`))

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EEWUpdate{IsCancel: true}, events[0])
	})

	for _, typ := range []string{"heartbeat", "pong"} {
		t.Run(typ+" yields nothing", func(t *testing.T) {
			events, err := Normalize(raw(KindEEW, `{"type":"`+typ+`","ver":"1"}`))
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name string
		kind SourceKind
		body string
	}{
		{"eew array", KindEEW, `[1,2]`},
		{"eew string", KindEEW, `"hello"`},
		{"eew truncated", KindEEW, `{"type":`},
		{"eew empty", KindEEW, ``},
		{"stream array", KindQuakeStream, `[]`},
		{"bulletin list object", KindBulletinList, `{"code":551}`},
		{"tsunami list number", KindTsunamiList, `42`},
		{"jma tsunami not xml", KindJMATsunami, `not xml at all`},
		{"jma tsunami truncated", KindJMATsunami, `<Report><Body><Tsunami>`},
		{"jma long period empty", KindJMALongPeriod, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Normalize(raw(tt.kind, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Nil(t, events)
		})
	}
}

func TestNormalize_UnsupportedKind(t *testing.T) {
	_, err := Normalize(raw("carrier-pigeon", `{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
}

const quake551 = `{
  "code": 551,
  "id": "659226ad3ab8a6b1bd1a6a06",
  "issue": {"type": "DetailScale", "time": "2024/01/01 16:13:00"},
  "earthquake": {
    "time": "2024/01/01 16:10:00",
    "hypocenter": {"name": "石川県能登地方", "depth": 10, "magnitude": 7.6},
    "domesticTsunami": "Warning",
    "foreignTsunami": "Unknown"
  },
  "points": [
    {"pref": "石川県", "addr": "志賀町香能", "scale": 70},
    {"pref": "新潟県", "addr": "長岡市", "scale": 50},
    {"pref": "石川県", "addr": "金沢市", "scale": 55},
    {"pref": "富山県", "addr": "氷見市", "scale": 50},
    {"pref": "福井県", "addr": "あわら市", "scale": -1}
  ]
}`

func TestNormalize_QuakeStreamBulletin(t *testing.T) {
	events, err := Normalize(raw(KindQuakeStream, quake551))

	require.NoError(t, err)
	require.Len(t, events, 1)
	b, ok := events[0].(EarthquakeBulletin)
	require.True(t, ok)

	assert.Equal(t, "659226ad3ab8a6b1bd1a6a06", b.ID)
	assert.Equal(t, IssueDetailScale, b.IssueType)
	assert.True(t, b.OccurredAt.Equal(time.Date(2024, 1, 1, 7, 10, 0, 0, time.UTC)))
	assert.True(t, b.IssuedAt.Equal(time.Date(2024, 1, 1, 7, 13, 0, 0, time.UTC)))
	assert.Equal(t, "石川県能登地方", b.HypocenterName)
	assert.Equal(t, 10.0, b.DepthKm)
	assert.Equal(t, 7.6, b.Magnitude)
	assert.Equal(t, "Warning", b.DomesticTsunami)
	assert.Equal(t, "Unknown", b.ForeignTsunami)

	// A later, lower reading never lowers a prefecture's maximum.
	assert.Equal(t, []PrefectureIntensity{
		{Prefecture: "石川県", Scale: 70},
		{Prefecture: "新潟県", Scale: 50},
		{Prefecture: "富山県", Scale: 50},
	}, b.Observations)
}

func TestNormalize_BulletinDepthSentinels(t *testing.T) {
	tests := []struct {
		name      string
		depth     string
		magnitude string
		wantDepth float64
		wantMag   float64
	}{
		{"very shallow", "0", "4.2", 0, 4.2},
		{"unknown depth", "-1", "4.2", -1, 4.2},
		{"unknown magnitude", "30", "-1", 30, -1},
		{"null values", "null", "null", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"code":551,"id":"a","issue":{"type":"ScalePrompt"},"earthquake":{"hypocenter":{"depth":` +
				tt.depth + `,"magnitude":` + tt.magnitude + `}}}`
			events, err := Normalize(raw(KindQuakeStream, body))

			require.NoError(t, err)
			b := events[0].(EarthquakeBulletin)
			assert.Equal(t, tt.wantDepth, b.DepthKm)
			assert.Equal(t, tt.wantMag, b.Magnitude)
			assert.True(t, b.OccurredAt.IsZero())
		})
	}
}

func TestNormalize_QuakeStreamOtherCodes(t *testing.T) {
	for _, body := range []string{`{"code":555,"areas":[]}`, `{"code":9611}`, `{}`} {
		events, err := Normalize(raw(KindQuakeStream, body))
		require.NoError(t, err)
		assert.Empty(t, events, body)
	}
}

func TestNormalize_QuakeStreamTsunami(t *testing.T) {
	body := `{"code":552,"id":"t1","time":"2024/01/01 16:22:00.123","cancelled":false,
	  "areas":[{"name":"能登","grade":"MajorWarning","immediate":true,
	    "firstHeight":{"condition":"ただちに津波来襲と予測"},"maxHeight":{"description":"５ｍ"}}]}`
	events, err := Normalize(raw(KindQuakeStream, body))

	require.NoError(t, err)
	require.Len(t, events, 1)
	batch, ok := events[0].(TsunamiAdvisoryBatch)
	require.True(t, ok)
	require.Len(t, batch.Items, 1)

	item := batch.Items[0]
	assert.Equal(t, "t1", item.ID)
	assert.Equal(t, 16, item.IssuedAt.In(jst).Hour())
	assert.Equal(t, 22, item.IssuedAt.In(jst).Minute())
	require.Len(t, item.Areas, 1)
	assert.Equal(t, GradeMajorWarning, item.Areas[0].Grade)
	assert.Equal(t, "ただちに津波来襲と予測", item.Areas[0].Condition)
	assert.Nil(t, item.Areas[0].Arrival)
}

func TestNormalize_BulletinList(t *testing.T) {
	body := `[
	  {"code":551,"id":"newest","issue":{"type":"ScalePrompt"},"earthquake":{"hypocenter":{"depth":-1,"magnitude":-1}}},
	  {"code":552,"id":"wrong-code"},
	  {"code":551,"id":"older","issue":{"type":"Weird"},"earthquake":{}}
	]`
	events, err := Normalize(raw(KindBulletinList, body))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "newest", events[0].(EarthquakeBulletin).ID)
	older := events[1].(EarthquakeBulletin)
	assert.Equal(t, "older", older.ID)
	assert.Equal(t, IssueOther, older.IssueType)
	assert.True(t, older.IssuedAt.IsZero())
}

func TestNormalize_BulletinListEmpty(t *testing.T) {
	events, err := Normalize(raw(KindBulletinList, `[]`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNormalize_TsunamiList(t *testing.T) {
	body := `[
	  {"code":552,"id":"b","time":"2024/01/01 16:30:00","cancelled":false,"areas":[
	    {"name":"石川県能登","grade":"MajorWarning","firstHeight":{"arrivalTime":"2024/01/01 16:12:00"},"maxHeight":{"description":"５ｍ"}},
	    {"name":"佐渡","grade":"Watch","firstHeight":{"arrivalTime":"不明"},"maxHeight":{"description":"１ｍ"}},
	    {"name":"どこか","grade":"Unknown"}
	  ]},
	  {"code":552,"_id":"a","issue":{"time":"2024/01/01 16:22:00"},"cancelled":true,"areas":[]}
	]`
	events, err := Normalize(raw(KindTsunamiList, body))

	require.NoError(t, err)
	require.Len(t, events, 1)
	batch := events[0].(TsunamiAdvisoryBatch)
	require.Len(t, batch.Items, 2)

	first := batch.Items[0]
	require.Len(t, first.Areas, 3)
	assert.Equal(t, &ArrivalEstimate{Day: 1, Hour: 16, Minute: 12}, first.Areas[0].Arrival)
	assert.Nil(t, first.Areas[1].Arrival)
	assert.Equal(t, GradeWatch, first.Areas[1].Grade)
	assert.Equal(t, GradeNone, first.Areas[2].Grade)

	second := batch.Items[1]
	assert.Equal(t, "a", second.ID, "falls back to the legacy id")
	assert.True(t, second.Cancelled)
	assert.False(t, second.IssuedAt.IsZero(), "falls back to the issue time")
}

func TestTsunamiAdvisoryBatch_SortedItems(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 16, 0, 0, 0, jst)
	batch := TsunamiAdvisoryBatch{Items: []TsunamiAdvisoryItem{
		{ID: "old", IssuedAt: t0},
		{ID: "new", IssuedAt: t0.Add(time.Hour)},
		{ID: "tie-a", IssuedAt: t0.Add(30 * time.Minute)},
		{ID: "tie-b", IssuedAt: t0.Add(30 * time.Minute)},
	}}

	var ids []string
	for _, item := range batch.SortedItems() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, ids)
	assert.Equal(t, "old", batch.Items[0].ID, "original order is untouched")
}

func TestParseArrival(t *testing.T) {
	tests := []struct {
		in   string
		want *ArrivalEstimate
	}{
		{"2024/01/01 16:12:00", &ArrivalEstimate{Day: 1, Hour: 16, Minute: 12}},
		{"2024/03/11 14:49", &ArrivalEstimate{Day: 11, Hour: 14, Minute: 49}},
		{"2024/01/01 16:12:00.500", &ArrivalEstimate{Day: 1, Hour: 16, Minute: 12}},
		{"不明", nil},
		{"", nil},
		{"soon", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseArrival(tt.in))
		})
	}
}
