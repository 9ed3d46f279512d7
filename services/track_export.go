package services

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/twpayne/go-gpx"

	"groupride-api/models"
)

const (
	gpxCreator          = "groupride-api"
	trackPointExtension = "http://www.garmin.com/xmlschemas/TrackPointExtension/v1"

	// go-gpx omits an <ele> of exactly 0, so sea level is written as the
	// smallest elevation that survives encoding.
	seaLevelElevation = 1e-9
)

// WriteGPX serializes a track as a single-segment GPX 1.1 document. Heart
// rate goes into a Garmin TrackPointExtension. Points without a position keep
// their place with NaN coordinates so readers see them as unreadable instead
// of bridging over them.
func WriteGPX(w io.Writer, track *models.Track) error {
	segment := &gpx.TrkSegType{}
	for _, p := range track.Points {
		segment.TrkPt = append(segment.TrkPt, exportPoint(p))
	}

	doc := &gpx.GPX{
		Version:  "1.1",
		Creator:  gpxCreator,
		XMLAttrs: map[string]string{"xmlns:gpxtpx": trackPointExtension},
		Trk: []*gpx.TrkType{{
			Name:   track.Name,
			TrkSeg: []*gpx.TrkSegType{segment},
		}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write GPX header: %w", err)
	}
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}
	return nil
}

func exportPoint(p models.TrackPoint) *gpx.WptType {
	wpt := &gpx.WptType{Lat: p.Latitude, Lon: p.Longitude}
	if !p.HasPosition() {
		wpt.Lat, wpt.Lon = math.NaN(), math.NaN()
	}
	if p.Elevation != nil {
		wpt.Ele = *p.Elevation
		if wpt.Ele == 0 {
			wpt.Ele = seaLevelElevation
		}
	}
	if p.Time != nil {
		wpt.Time = p.Time.UTC()
	}
	if p.HeartRate != nil {
		wpt.Extensions = &gpx.ExtensionsType{XML: []byte(
			"<gpxtpx:TrackPointExtension><gpxtpx:hr>" + strconv.Itoa(*p.HeartRate) + "</gpxtpx:hr></gpxtpx:TrackPointExtension>",
		)}
	}
	return wpt
}
