package scene

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the scene can be handed to the cost matrix builders
func (s *Scene) Validate() error {
	if err := s.validateMatching(); err != nil {
		return err
	}
	if err := s.validateTracks(); err != nil {
		return err
	}
	if err := s.validateDetections(); err != nil {
		return err
	}
	return nil
}

func (s *Scene) validateMatching() error {
	m := s.Matching
	if !(m.MaxDistance > 0) || math.IsInf(m.MaxDistance, 0) {
		return errors.New("matching.max_distance must be a positive number")
	}
	if m.CascadeDepth < 1 {
		return errors.New("matching.cascade_depth must be at least 1")
	}
	if m.Workers < 1 {
		return errors.New("matching.workers must be at least 1")
	}
	if m.NInit < 1 {
		return errors.New("matching.n_init must be at least 1")
	}
	if m.MaxAge < 1 {
		return errors.New("matching.max_age must be at least 1")
	}
	return nil
}

func (s *Scene) validateTracks() error {
	seen := make(map[int]bool, len(s.Tracks))
	for i, t := range s.Tracks {
		if err := validateBox(t.Box); err != nil {
			return fmt.Errorf("tracks[%d].tlwh: %w", i, err)
		}
		// the motion model works on aspect ratio, which needs a height
		if t.Box[3] <= 0 {
			return fmt.Errorf("tracks[%d].tlwh height must be positive", i)
		}
		if t.Hits < 1 {
			return fmt.Errorf("tracks[%d].hits must be at least 1", i)
		}
		if t.TimeSinceUpdate < 0 {
			return fmt.Errorf("tracks[%d].time_since_update must not be negative", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tracks[%d].id %d is used more than once", i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

func (s *Scene) validateDetections() error {
	seen := make(map[int64]bool, len(s.Detections))
	for i, d := range s.Detections {
		if err := validateBox(d.Box); err != nil {
			return fmt.Errorf("detections[%d].tlwh: %w", i, err)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("detections[%d].confidence must be between 0 and 1", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("detections[%d].id %d is used more than once", i, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

func validateBox(box []float64) error {
	if len(box) != 4 {
		return fmt.Errorf("expected 4 values, got %d", len(box))
	}
	for _, v := range box {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("values must be finite")
		}
	}
	if box[2] < 0 || box[3] < 0 {
		return errors.New("width and height must not be negative")
	}
	return nil
}
