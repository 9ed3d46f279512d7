// File: /services/track_parser.go
package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"

	"groupride-api/models"
)

// ParseError is returned when a document cannot yield a single usable point.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse track: %s: %v", e.Reason, e.Err)
	}
	return "parse track: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Heart rate element names, lower-cased, in the order they are tried:
// Garmin TrackPointExtension and the gpxdata style used by Suunto and TCX converters.
var heartRateElements = []string{"hr", "heartrate", "heartratebpm"}

// Zone-less layouts are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTrack reads a GPX document and returns its points with derived metrics.
// Unknown elements are ignored and unreadable numeric fields are left unset.
// A document that breaks off after its first usable point is returned up to
// the break with Truncated set.
func ParseTrack(raw []byte) (*models.Track, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	if !isText(raw) {
		return nil, &ParseError{Reason: "content is not text"}
	}

	doc, decodeErr := decodeGPX(normalizeEncoding(raw))

	points := doc.trackPoints
	if len(points) == 0 {
		points = doc.routePoints
	}

	usable := false
	for _, p := range points {
		if p.HasPosition() {
			usable = true
			break
		}
	}
	if !usable {
		if decodeErr != nil {
			return nil, &ParseError{Reason: "malformed document", Err: decodeErr}
		}
		return nil, &ParseError{Reason: "no usable track points"}
	}

	track := &models.Track{
		Name:      doc.name(),
		Points:    points,
		Truncated: decodeErr != nil,
	}
	ComputeTrackMetrics(track)
	return track, nil
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// normalizeEncoding feeds the decoder UTF-8. A declared non-UTF-8 encoding is
// left to the CharsetReader. Undeclared documents with invalid UTF-8 are read
// as Windows-1252; documents declared as UTF-8 have stray bytes replaced.
func normalizeEncoding(raw []byte) io.Reader {
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}

	switch strings.ToLower(declaredEncoding(raw)) {
	case "":
		if r, err := charset.NewReaderLabel("windows-1252", bytes.NewReader(raw)); err == nil {
			return r
		}
	case "utf-8", "utf8":
	default:
		return bytes.NewReader(raw)
	}
	return bytes.NewReader(bytes.ToValidUTF8(raw, []byte("\uFFFD")))
}

// declaredEncoding returns the encoding named in the XML declaration, if any.
func declaredEncoding(raw []byte) string {
	head := bytes.TrimLeft(bytes.TrimPrefix(raw, utf8BOM), " \t\r\n")
	if !bytes.HasPrefix(head, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(head, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := string(head[:end])

	idx := strings.Index(decl, "encoding")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(decl[idx+len("encoding"):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	closing := strings.IndexByte(rest[1:], quote)
	if closing < 0 {
		return ""
	}
	return rest[1 : closing+1]
}

func isText(raw []byte) bool {
	for m := mimetype.Detect(raw); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

type gpxDocument struct {
	trackPoints  []models.TrackPoint
	routePoints  []models.TrackPoint
	trackName    string
	routeName    string
	metadataName string
}

func (d *gpxDocument) name() string {
	switch {
	case d.trackName != "":
		return d.trackName
	case d.routeName != "":
		return d.routeName
	default:
		return d.metadataName
	}
}

// pointBuilder collects the fields of the point element being decoded.
type pointBuilder struct {
	element    string
	depth      int
	point      models.TrackPoint
	heartRates map[string]int
}

func newPointBuilder(element string, depth int, attrs []xml.Attr) *pointBuilder {
	b := &pointBuilder{element: element, depth: depth, heartRates: make(map[string]int)}

	lat, latOK := attrFloat(attrs, "lat")
	lon, lonOK := attrFloat(attrs, "lon")
	if latOK && lonOK {
		b.point.Latitude = lat
		b.point.Longitude = lon
	} else {
		b.point.Invalid = true
	}
	return b
}

func (b *pointBuilder) build() models.TrackPoint {
	for _, name := range heartRateElements {
		if hr, ok := b.heartRates[name]; ok {
			b.point.HeartRate = &hr
			break
		}
	}
	return b.point
}

// decodeGPX walks the token stream. On a syntax error it returns whatever was
// collected up to that point together with the error.
func decodeGPX(r io.Reader) (*gpxDocument, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel

	doc := &gpxDocument{}
	var (
		stack []string
		cur   *pointBuilder
		text  strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return doc, nil
		}
		if err != nil {
			return doc, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if cur == nil && (name == "trkpt" || name == "rtept") {
				cur = newPointBuilder(name, len(stack), t.Attr)
			}
			stack = append(stack, name)
			text.Reset()

		case xml.CharData:
			text.Write(t)

		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			idx := lastIndex(stack, name)
			if idx < 0 {
				continue
			}
			parent := ""
			if idx > 0 {
				parent = stack[idx-1]
			}
			value := strings.TrimSpace(text.String())
			text.Reset()

			if cur != nil && idx == cur.depth {
				if cur.element == "trkpt" {
					doc.trackPoints = append(doc.trackPoints, cur.build())
				} else {
					doc.routePoints = append(doc.routePoints, cur.build())
				}
				cur = nil
			} else if cur != nil {
				cur.field(name, parent, idx, value)
			} else if name == "name" && value != "" {
				doc.setName(parent, value)
			}

			stack = stack[:idx]
		}
	}
}

func (b *pointBuilder) field(name, parent string, depth int, value string) {
	if value == "" {
		return
	}
	direct := depth == b.depth+1

	switch {
	case direct && name == "ele":
		if ele, ok := parseFloat(value); ok {
			b.point.Elevation = &ele
		}
	case direct && name == "time":
		if ts, ok := parseTime(value); ok {
			b.point.Time = &ts
		}
	case name == "value" && parent == "heartratebpm":
		b.recordHeartRate(parent, value)
	default:
		for _, hrName := range heartRateElements {
			if name == hrName {
				b.recordHeartRate(name, value)
				break
			}
		}
	}
}

func (b *pointBuilder) recordHeartRate(variant, value string) {
	if _, seen := b.heartRates[variant]; seen {
		return
	}
	hr, ok := parseFloat(value)
	if !ok || hr <= 0 {
		return
	}
	b.heartRates[variant] = int(math.Round(hr))
}

func (d *gpxDocument) setName(parent, value string) {
	switch parent {
	case "trk":
		if d.trackName == "" {
			d.trackName = value
		}
	case "rte":
		if d.routeName == "" {
			d.routeName = value
		}
	case "metadata":
		if d.metadataName == "" {
			d.metadataName = value
		}
	}
}

func lastIndex(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}

func attrFloat(attrs []xml.Attr, name string) (float64, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return parseFloat(a.Value)
		}
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
