package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"groupride-api/models"
	"groupride-api/repositories"
	"groupride-api/storage"
)

// kmPerDegree is the Haversine length of one degree of latitude.
const kmPerDegree = 6371 * math.Pi / 180

func metersToLat(m float64) float64 {
	return m / 1000 / kmPerDegree
}

func metersToLon(m, lat float64) float64 {
	return m / 1000 / (kmPerDegree * math.Cos(lat*math.Pi/180))
}

func timePtr(t time.Time) *time.Time { return &t }
func floatPtr(f float64) *float64    { return &f }
func intPtr(i int) *int              { return &i }

// straightTrack returns n points heading north from (lat, lon), stepM meters
// and step apart.
func straightTrack(n int, lat, lon, stepM float64, start time.Time, step time.Duration) *models.Track {
	points := make([]models.TrackPoint, n)
	for i := range points {
		points[i] = models.TrackPoint{
			Latitude:  lat + metersToLat(stepM*float64(i)),
			Longitude: lon,
			Time:      timePtr(start.Add(time.Duration(i) * step)),
		}
	}
	track := &models.Track{Points: points}
	ComputeTrackMetrics(track)
	return track
}

// shifted copies a track, moving every point east by eastM meters and later by dt.
func shifted(t *models.Track, eastM float64, dt time.Duration) *models.Track {
	points := make([]models.TrackPoint, len(t.Points))
	for i, p := range t.Points {
		p.Longitude += metersToLon(eastM, p.Latitude)
		if p.Time != nil {
			p.Time = timePtr(p.Time.Add(dt))
		}
		points[i] = p
	}
	track := &models.Track{Name: t.Name, Points: points}
	ComputeTrackMetrics(track)
	return track
}

func buildGPX(name string, points []models.TrackPoint) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">` + "\n")
	sb.WriteString("<trk>\n")
	if name != "" {
		fmt.Fprintf(&sb, "<name>%s</name>\n", name)
	}
	sb.WriteString("<trkseg>\n")
	for _, p := range points {
		fmt.Fprintf(&sb, `<trkpt lat="%.8f" lon="%.8f">`, p.Latitude, p.Longitude)
		if p.Elevation != nil {
			fmt.Fprintf(&sb, "<ele>%.2f</ele>", *p.Elevation)
		}
		if p.Time != nil {
			fmt.Fprintf(&sb, "<time>%s</time>", p.Time.UTC().Format(time.RFC3339))
		}
		sb.WriteString("</trkpt>\n")
	}
	sb.WriteString("</trkseg>\n</trk>\n</gpx>\n")
	return []byte(sb.String())
}

// memoryStore is an in-memory storage.TrackStore.
type memoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: make(map[string][]byte)}
}

func (s *memoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return data, nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

// fakeRideStore implements RideStore and UploadStore over maps.
type fakeRideStore struct {
	mu           sync.Mutex
	rides        map[string]*models.GroupRide
	participants map[string]*models.RideParticipant
	uploads      []*models.ActivityUpload
	saves        int
	findErr      error
	// staleLookups makes the next FindUploadByHash calls miss, as if a
	// concurrent insert had not been committed yet.
	staleLookups int
}

func newFakeRideStore() *fakeRideStore {
	return &fakeRideStore{
		rides:        make(map[string]*models.GroupRide),
		participants: make(map[string]*models.RideParticipant),
	}
}

func participantKey(rideID, userID string) string { return rideID + "/" + userID }

func (f *fakeRideStore) GetRide(ctx context.Context, rideID string) (*models.GroupRide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *ride
	return &copied, nil
}

func (f *fakeRideStore) FindRidesScheduledBetween(ctx context.Context, from, to time.Time) ([]models.GroupRide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var rides []models.GroupRide
	for _, ride := range f.rides {
		if !ride.ScheduledAt.Before(from) && !ride.ScheduledAt.After(to) {
			rides = append(rides, *ride)
		}
	}
	return rides, nil
}

func (f *fakeRideStore) GetParticipant(ctx context.Context, rideID, userID string) (*models.RideParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[participantKey(rideID, userID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRideStore) SaveParticipant(ctx context.Context, participant *models.RideParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *participant
	f.participants[participantKey(participant.RideID, participant.UserID)] = &copied
	f.saves++
	return nil
}

func (f *fakeRideStore) ListPendingParticipants(ctx context.Context, limit int) ([]models.RideParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []models.RideParticipant
	for _, p := range f.participants {
		if p.Status == models.VerificationPending && p.TrackFileKey != "" && len(pending) < limit {
			pending = append(pending, *p)
		}
	}
	return pending, nil
}

func (f *fakeRideStore) FindUploadByHash(ctx context.Context, userID, hash string) (*models.ActivityUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleLookups > 0 {
		f.staleLookups--
		return nil, repositories.ErrNotFound
	}
	for _, u := range f.uploads {
		if u.UserID == userID && u.ContentHash == hash {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRideStore) CreateUpload(ctx context.Context, upload *models.ActivityUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.UserID == upload.UserID && u.ContentHash == upload.ContentHash {
			return repositories.ErrDuplicate
		}
	}
	f.uploads = append(f.uploads, upload)
	return nil
}

func (f *fakeRideStore) ListUploads(ctx context.Context, userID string, offset, limit int) ([]models.ActivityUpload, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []models.ActivityUpload
	for _, u := range f.uploads {
		if u.UserID == userID {
			mine = append(mine, *u)
		}
	}
	total := int64(len(mine))
	if offset >= len(mine) {
		return []models.ActivityUpload{}, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[offset:end], total, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	fails bool
}

func (n *fakeNotifier) NotifyRideCompleted(ctx context.Context, participant *models.RideParticipant, ride *models.GroupRide) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, participant.UserID)
	return nil
}

// mapLoader serves tracks by key; keys mapped to nil fail to load.
type mapLoader map[string]*models.Track

func (l mapLoader) LoadTrack(ctx context.Context, key string) (*models.Track, error) {
	track, ok := l[key]
	if !ok || track == nil {
		return nil, &ParseError{Reason: "no usable track points"}
	}
	return track, nil
}
