package tracker

import (
	"fmt"
)

// TrackState represents the lifecycle state of a track
type TrackState int

const (
	// Tentative tracks have not yet collected enough evidence
	Tentative TrackState = 1
	// Confirmed tracks have been matched nInit times in a row
	Confirmed TrackState = 2
	// Deleted tracks are dead and should be dropped from the active set
	Deleted TrackState = 3
)

// String returns the lower case name of the state
func (ts TrackState) String() string {
	switch ts {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("TrackState(%d)", int(ts))
	}
}

// STrack represents a single track of an object with a constant velocity
// Kalman filter behind its bounding box
type STrack struct {
	// Kalman filter used for tracking, may be shared between tracks
	kalmanFilter *KalmanFilter
	// Mean state vector
	mean StateMean
	// Covariance matrix
	covariance *StateCov
	// Unique ID for the track
	trackID int
	// hits is the total number of measurement updates
	hits int
	// age is the total number of frames since first occurrence
	age int
	// timeSinceUpdate counts predictions since the last measurement update
	timeSinceUpdate int
	// Current state of the track
	state TrackState
	// nInit is the number of consecutive hits before a track is confirmed
	nInit int
	// maxAge is the number of consecutive misses before a confirmed track is
	// deleted
	maxAge int
	// Detection score of the last matched detection
	score float64
	// Unique ID of the last matched detection
	detectionID int64
	// label is the object label/class of the detection
	label int
}

// NewSTrack creates a new tentative track from an unmatched detection
func NewSTrack(kf *KalmanFilter, obj Object, trackID, nInit, maxAge int) *STrack {

	mean, covariance := kf.Initiate(obj.Rect.GetXyah())

	return &STrack{
		kalmanFilter: kf,
		mean:         mean,
		covariance:   covariance,
		trackID:      trackID,
		hits:         1,
		age:          1,
		state:        Tentative,
		nInit:        nInit,
		maxAge:       maxAge,
		score:        obj.Prob,
		detectionID:  obj.ID,
		label:        obj.Label,
	}
}

// Tlwh returns the current bounding box estimate
func (s *STrack) Tlwh() Tlwh {
	return s.GetRect().Tlwh
}

// TimeSinceUpdate returns the number of predictions since the last
// measurement update
func (s *STrack) TimeSinceUpdate() int {
	return s.timeSinceUpdate
}

// GetRect returns the bounding box derived from the state mean
func (s *STrack) GetRect() Rect {
	return GenerateRectByXyah(Xyah{s.mean[0], s.mean[1], s.mean[2], s.mean[3]})
}

// GetTrackID returns the unique ID for the track
func (s *STrack) GetTrackID() int {
	return s.trackID
}

// GetState returns the current lifecycle state of the track
func (s *STrack) GetState() TrackState {
	return s.state
}

// IsTentative returns true if the track is not yet confirmed
func (s *STrack) IsTentative() bool {
	return s.state == Tentative
}

// IsConfirmed returns true if the track is confirmed
func (s *STrack) IsConfirmed() bool {
	return s.state == Confirmed
}

// IsDeleted returns true if the track is dead
func (s *STrack) IsDeleted() bool {
	return s.state == Deleted
}

// Hits returns the number of measurement updates
func (s *STrack) Hits() int {
	return s.hits
}

// Age returns the number of frames since first occurrence
func (s *STrack) Age() int {
	return s.age
}

// GetScore returns the detection score of the last matched detection
func (s *STrack) GetScore() float64 {
	return s.score
}

// GetDetectionID returns the ID of the last matched detection
func (s *STrack) GetDetectionID() int64 {
	return s.detectionID
}

// GetLabel returns the object label/class
func (s *STrack) GetLabel() int {
	return s.label
}

// Predict propagates the state one step forward in time.  It must be called
// once every frame before matching.
func (s *STrack) Predict() {
	s.kalmanFilter.Predict(s.mean, s.covariance)
	s.age++
	s.timeSinceUpdate++
}

// Update corrects the track with a matched detection
func (s *STrack) Update(obj Object) error {

	err := s.kalmanFilter.Update(s.mean, s.covariance, obj.Rect.GetXyah())

	if err != nil {
		return fmt.Errorf("error updating track %d: %w", s.trackID, err)
	}

	s.hits++
	s.timeSinceUpdate = 0
	s.score = obj.Prob
	s.detectionID = obj.ID
	s.label = obj.Label

	if s.state == Tentative && s.hits >= s.nInit {
		s.state = Confirmed
	}

	return nil
}

// MarkMissed marks the track as missed for this frame.  Tentative tracks
// are deleted straight away, confirmed tracks once they have been missed for
// more than maxAge frames.
func (s *STrack) MarkMissed() {
	if s.state == Tentative {
		s.state = Deleted
	} else if s.timeSinceUpdate > s.maxAge {
		s.state = Deleted
	}
}
