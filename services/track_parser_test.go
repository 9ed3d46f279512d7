package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="Garmin Connect" xmlns="http://www.topografix.com/GPX/1/1"
     xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
  <metadata><name>Metadata name</name></metadata>
  <trk>
    <name>Morning loop</name>
    <trkseg>
      <trkpt lat="46.0000" lon="7.0000">
        <ele>100</ele>
        <time>2024-05-01T08:00:00Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>120</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
      <trkpt lat="46.0090" lon="7.0000">
        <ele>150</ele>
        <time>2024-05-01T08:03:00Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>141</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
      <trkpt lat="46.0180" lon="7.0000">
        <ele>130</ele>
        <time>2024-05-01T08:06:00Z</time>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParseTrack(t *testing.T) {
	track, err := ParseTrack([]byte(sampleGPX))
	require.NoError(t, err)

	assert.Equal(t, "Morning loop", track.Name)
	require.Len(t, track.Points, 3)

	first := track.Points[0]
	assert.InDelta(t, 46.0, first.Latitude, 1e-9)
	assert.InDelta(t, 7.0, first.Longitude, 1e-9)
	require.NotNil(t, first.Elevation)
	assert.Equal(t, 100.0, *first.Elevation)
	require.NotNil(t, first.Time)
	assert.True(t, first.Time.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, first.HeartRate)
	assert.Equal(t, 120, *first.HeartRate)
	assert.Nil(t, track.Points[2].HeartRate)

	require.NotNil(t, track.DistanceKm)
	assert.InDelta(t, 2.0015, *track.DistanceKm, 0.001)
	require.NotNil(t, track.ElevationGainM)
	assert.Equal(t, 50.0, *track.ElevationGainM)
	require.NotNil(t, track.TotalDurationSec)
	assert.Equal(t, 360, *track.TotalDurationSec)
	require.NotNil(t, track.AverageHeartRateBpm)
	assert.Equal(t, 131, *track.AverageHeartRateBpm)
	require.NotNil(t, track.MaxHeartRateBpm)
	assert.Equal(t, 141, *track.MaxHeartRateBpm)
	require.NotNil(t, track.StartTime)
	assert.True(t, track.StartTime.Equal(*first.Time))
}

func TestParseTrackHeartRateVariants(t *testing.T) {
	tests := []struct {
		name       string
		extensions string
		want       int
	}{
		{
			name:       "garmin track point extension",
			extensions: `<gpxtpx:TrackPointExtension><gpxtpx:hr>150</gpxtpx:hr></gpxtpx:TrackPointExtension>`,
			want:       150,
		},
		{
			name:       "gpxdata heartrate",
			extensions: `<gpxdata:heartrate>132</gpxdata:heartrate>`,
			want:       132,
		},
		{
			name:       "heart rate bpm with value child",
			extensions: `<HeartRateBpm><Value>101</Value></HeartRateBpm>`,
			want:       101,
		},
		{
			name:       "heart rate bpm as text",
			extensions: `<HeartRateBpm>99</HeartRateBpm>`,
			want:       99,
		},
		{
			name:       "hr preferred over heartrate",
			extensions: `<gpxdata:heartrate>90</gpxdata:heartrate><gpxtpx:hr>160</gpxtpx:hr>`,
			want:       160,
		},
		{
			name:       "fractional value rounded",
			extensions: `<gpxtpx:hr>144.6</gpxtpx:hr>`,
			want:       145,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<gpx><trk><trkseg><trkpt lat="1" lon="2"><extensions>` + tt.extensions +
				`</extensions></trkpt></trkseg></trk></gpx>`
			track, err := ParseTrack([]byte(doc))
			require.NoError(t, err)
			require.Len(t, track.Points, 1)
			require.NotNil(t, track.Points[0].HeartRate)
			assert.Equal(t, tt.want, *track.Points[0].HeartRate)
		})
	}
}

func TestParseTrackUnreadableHeartRate(t *testing.T) {
	doc := `<gpx><trk><trkseg><trkpt lat="1" lon="2"><extensions><hr>fast</hr></extensions></trkpt></trkseg></trk></gpx>`
	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, track.Points[0].HeartRate)
	assert.Nil(t, track.AverageHeartRateBpm)
}

func TestParseTrackInvalidCoordinates(t *testing.T) {
	doc := `<gpx><trk><trkseg>
		<trkpt lat="46.0" lon="7.0"><time>2024-05-01T08:00:00Z</time></trkpt>
		<trkpt lat="abc" lon="7.0"><time>2024-05-01T08:01:00Z</time></trkpt>
		<trkpt lat="46.01" lon="7.0"><time>2024-05-01T08:02:00Z</time></trkpt>
	</trkseg></trk></gpx>`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	require.Len(t, track.Points, 3)

	assert.False(t, track.Points[1].HasPosition())
	require.NotNil(t, track.Points[1].Time)

	// Both segments touching the invalid point are skipped, not bridged.
	require.NotNil(t, track.DistanceKm)
	assert.Equal(t, 0.0, *track.DistanceKm)
}

func TestParseTrackUnreadableFields(t *testing.T) {
	doc := `<gpx><trk><trkseg>
		<trkpt lat="46.0" lon="7.0"><ele>high</ele><time>yesterday</time></trkpt>
	</trkseg></trk></gpx>`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	require.Len(t, track.Points, 1)
	assert.Nil(t, track.Points[0].Elevation)
	assert.Nil(t, track.Points[0].Time)
	assert.Nil(t, track.ElevationGainM)
	assert.Nil(t, track.StartTime)
}

func TestParseTrackTimeFormats(t *testing.T) {
	doc := `<gpx><trk><trkseg>
		<trkpt lat="46.0" lon="7.0"><time>2024-05-01T08:00:00.250+02:00</time></trkpt>
		<trkpt lat="46.0" lon="7.0"><time>2024-05-01T08:00:00</time></trkpt>
	</trkseg></trk></gpx>`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, track.Points[0].Time)
	assert.True(t, track.Points[0].Time.Equal(time.Date(2024, 5, 1, 6, 0, 0, 250e6, time.UTC)))
	require.NotNil(t, track.Points[1].Time)
	assert.True(t, track.Points[1].Time.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))
}

func TestParseTrackRouteFallback(t *testing.T) {
	doc := `<gpx>
		<metadata><name>Meta</name></metadata>
		<rte><name>Planned route</name>
			<rtept lat="46.0" lon="7.0"/>
			<rtept lat="46.1" lon="7.0"/>
		</rte>
	</gpx>`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Planned route", track.Name)
	assert.Len(t, track.Points, 2)
	require.NotNil(t, track.DistanceKm)
	assert.InDelta(t, 11.119, *track.DistanceKm, 0.01)
}

func TestParseTrackPrefersTrackPoints(t *testing.T) {
	doc := `<gpx>
		<rte><name>Route</name><rtept lat="1" lon="1"/><rtept lat="2" lon="2"/><rtept lat="3" lon="3"/></rte>
		<trk><name>Track</name><trkseg><trkpt lat="46.0" lon="7.0"/></trkseg></trk>
	</gpx>`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Track", track.Name)
	assert.Len(t, track.Points, 1)
}

func TestParseTrackMetadataName(t *testing.T) {
	doc := `<gpx><metadata><name>From metadata</name></metadata><trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk></gpx>`
	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "From metadata", track.Name)
}

func TestParseTrackLatin1(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<gpx><trk><name>Col de la Croix-de-Fer \xe9t\xe9</name><trkseg><trkpt lat=\"45.2\" lon=\"6.2\"/></trkseg></trk></gpx>")

	track, err := ParseTrack(doc)
	require.NoError(t, err)
	assert.Equal(t, "Col de la Croix-de-Fer été", track.Name)
}

func TestParseTrackUndeclaredLatin1(t *testing.T) {
	doc := []byte("<gpx><trk><name>Caf\xe9 ride</name><trkseg>" +
		`<trkpt lat="46.00" lon="7.0"><time>2024-05-01T08:00:00Z</time></trkpt>` +
		"<trkpt lat=\"46.01\" lon=\"7.0\"><cmt>Caf\xe9 stop</cmt><time>2024-05-01T08:05:00Z</time></trkpt>" +
		`<trkpt lat="46.02" lon="7.0"><time>2024-05-01T08:10:00Z</time></trkpt>` +
		`<trkpt lat="46.03" lon="7.0"><time>2024-05-01T08:15:00Z</time></trkpt>` +
		"</trkseg></trk></gpx>")

	track, err := ParseTrack(doc)
	require.NoError(t, err)
	assert.Equal(t, "Café ride", track.Name)
	assert.Len(t, track.Points, 4)
	assert.False(t, track.Truncated)
	require.NotNil(t, track.DistanceKm)
	assert.InDelta(t, 3.336, *track.DistanceKm, 0.001)
}

func TestParseTrackStrayByteInUTF8(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<gpx><trk><name>Sch\xf6n \xc3\xbcber</name><trkseg>" +
		`<trkpt lat="46.0" lon="7.0"/><trkpt lat="46.1" lon="7.0"/>` +
		"</trkseg></trk></gpx>")

	track, err := ParseTrack(doc)
	require.NoError(t, err)
	assert.Equal(t, "Sch\uFFFDn über", track.Name)
	assert.Len(t, track.Points, 2)
	assert.False(t, track.Truncated)
}

func TestDeclaredEncoding(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{doc: `<?xml version="1.0" encoding="ISO-8859-1"?><gpx/>`, want: "ISO-8859-1"},
		{doc: "\xef\xbb\xbf <?xml version='1.0' encoding = 'utf-8' ?>", want: "utf-8"},
		{doc: `<?xml version="1.0"?><gpx/>`, want: ""},
		{doc: `<gpx/>`, want: ""},
		{doc: `<?xml version="1.0" encoding="UTF-8"`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, declaredEncoding([]byte(tt.doc)), tt.doc)
	}
}

func TestParseTrackTruncatedDocument(t *testing.T) {
	doc := `<gpx><trk><trkseg>
		<trkpt lat="46.0" lon="7.0"></trkpt>
		<trkpt lat="46.1" lon="7.0"></trkpt>
		<trkpt lat="46.2"`

	track, err := ParseTrack([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, track.Points, 2)
	assert.True(t, track.Truncated)
	assert.True(t, track.Summary().Truncated)

	complete, err := ParseTrack([]byte(sampleGPX))
	require.NoError(t, err)
	assert.False(t, complete.Truncated)
}

func TestParseTrackErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "whitespace", raw: []byte("   \n\t")},
		{name: "binary", raw: []byte{0x0e, 0x10, 0x6c, 0x08, 0x00, 0x00, 0x00, 0x00, '.', 'F', 'I', 'T', 0x01, 0x02}},
		{name: "no points", raw: []byte(`<gpx><trk><name>Nothing</name><trkseg></trkseg></trk></gpx>`)},
		{name: "only invalid points", raw: []byte(`<gpx><trk><trkseg><trkpt lat="x" lon="y"/><trkpt/></trkseg></trk></gpx>`)},
		{name: "not xml", raw: []byte("just some notes about my ride")},
		{name: "broken before any point", raw: []byte(`<gpx><trk><<<`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := ParseTrack(tt.raw)
			assert.Nil(t, track)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}
