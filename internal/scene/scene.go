// Package scene loads track and detection snapshots from TOML files so the
// IoU cost and matching routines can be driven from the command line.
package scene

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/swdee/go-ioumatch/tracker"
)

// Sample is an annotated example scene
//
//go:embed sample_scene.toml
var Sample string

const (
	// DefaultMaxDistance is the largest IoU cost accepted as a match
	DefaultMaxDistance = 0.7
	// DefaultCascadeDepth is the number of staleness levels the cascade visits
	DefaultCascadeDepth = 30
	// DefaultWorkers is the number of goroutines building cost matrix rows
	DefaultWorkers = 1
	// DefaultNInit is the number of hits that confirms a track
	DefaultNInit = 3
	// DefaultMaxAge is the number of misses a confirmed track survives
	DefaultMaxAge = 30
)

// Kalman noise weights relative to the box height
const (
	stdWeightPosition = 1.0 / 20
	stdWeightVelocity = 1.0 / 160
)

// Track is a track last updated with the box Box.  It has collected Hits
// measurements and has since been predicted TimeSinceUpdate times without
// one.
type Track struct {
	ID              int       `toml:"id"`
	Box             []float64 `toml:"tlwh"`
	Hits            int       `toml:"hits"`
	TimeSinceUpdate int       `toml:"time_since_update"`
}

// Detection is a detector output box for the current frame
type Detection struct {
	ID         int64     `toml:"id"`
	Box        []float64 `toml:"tlwh"`
	Confidence float64   `toml:"confidence"`
	Label      int       `toml:"label"`
}

// Matching holds the association parameters.  Nil index slices select the
// whole collection.
type Matching struct {
	MaxDistance      float64 `toml:"max_distance"`
	CascadeDepth     int     `toml:"cascade_depth"`
	Workers          int     `toml:"workers"`
	NInit            int     `toml:"n_init"`
	MaxAge           int     `toml:"max_age"`
	TrackIndices     []int   `toml:"track_indices"`
	DetectionIndices []int   `toml:"detection_indices"`
}

// Scene is a single frame worth of tracks and detections
type Scene struct {
	Matching   Matching    `toml:"matching"`
	Tracks     []Track     `toml:"tracks"`
	Detections []Detection `toml:"detections"`
}

// Default returns a scene with no boxes and the default matching parameters
func Default() Scene {
	return Scene{
		Matching: Matching{
			MaxDistance:  DefaultMaxDistance,
			CascadeDepth: DefaultCascadeDepth,
			Workers:      DefaultWorkers,
			NInit:        DefaultNInit,
			MaxAge:       DefaultMaxAge,
		},
	}
}

// Load reads, normalizes and validates the scene file at path
func Load(path string) (*Scene, error) {

	if path == "" {
		return nil, errors.New("scene path is required")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a scene from r.  Unknown keys are rejected.
func Parse(r io.Reader) (*Scene, error) {

	s := Default()

	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	s.normalize()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// normalize assigns 1-based IDs to boxes that were given none and a single
// hit to tracks without a count
func (s *Scene) normalize() {

	for i := range s.Tracks {
		if s.Tracks[i].ID == 0 {
			s.Tracks[i].ID = i + 1
		}
		if s.Tracks[i].Hits == 0 {
			s.Tracks[i].Hits = 1
		}
	}

	for i := range s.Detections {
		if s.Detections[i].ID == 0 {
			s.Detections[i].ID = int64(i + 1)
		}
	}
}

// BuildTracks creates a Kalman filtered track for every scene track, in file
// order.  Each track starts on its box, is confirmed through Hits-1
// stationary updates and is then predicted TimeSinceUpdate times, so its
// staleness comes from the track lifecycle itself.
func (s *Scene) BuildTracks() ([]*tracker.STrack, error) {

	kf := tracker.NewKalmanFilter(stdWeightPosition, stdWeightVelocity)
	out := make([]*tracker.STrack, len(s.Tracks))

	for i, t := range s.Tracks {

		obj := tracker.NewObject(tracker.Rect{Tlwh: toTlwh(t.Box)}, 0, 1, 0)
		tr := tracker.NewSTrack(kf, obj, t.ID, s.Matching.NInit, s.Matching.MaxAge)

		for k := 1; k < t.Hits; k++ {
			tr.Predict()

			if err := tr.Update(obj); err != nil {
				return nil, fmt.Errorf("tracks[%d]: %w", i, err)
			}
		}

		for k := 0; k < t.TimeSinceUpdate; k++ {
			tr.Predict()
		}

		out[i] = tr
	}

	return out, nil
}

// TrackRefs returns BuildTracks as tracker.Track values
func (s *Scene) TrackRefs() ([]tracker.Track, error) {

	tracks, err := s.BuildTracks()
	if err != nil {
		return nil, err
	}

	return AsTracks(tracks), nil
}

// AsTracks converts concrete tracks to the tracker.Track interface
func AsTracks(tracks []*tracker.STrack) []tracker.Track {

	out := make([]tracker.Track, len(tracks))

	for i, t := range tracks {
		out[i] = t
	}

	return out
}

// DetectionObjects returns the detections as tracker.Object values in file
// order
func (s *Scene) DetectionObjects() []tracker.Object {

	out := make([]tracker.Object, len(s.Detections))

	for i, d := range s.Detections {
		out[i] = tracker.NewObject(tracker.Rect{Tlwh: toTlwh(d.Box)},
			d.Label, d.Confidence, d.ID)
	}

	return out
}

// DetectionRefs returns DetectionObjects as tracker.Detection values
func (s *Scene) DetectionRefs() []tracker.Detection {

	objs := s.DetectionObjects()
	out := make([]tracker.Detection, len(objs))

	for i, o := range objs {
		out[i] = o
	}

	return out
}

// TrackID returns the ID of the track at index i
func (s *Scene) TrackID(i int) int {
	return s.Tracks[i].ID
}

// DetectionID returns the ID of the detection at index j
func (s *Scene) DetectionID(j int) int64 {
	return s.Detections[j].ID
}

func toTlwh(box []float64) tracker.Tlwh {
	var out tracker.Tlwh
	copy(out[:], box)
	return out
}
