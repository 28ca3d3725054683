/*
Package tracker scores tracked objects against new detections by bounding box
overlap and links them with a linear assignment solver.

IoU computes the intersection over union between one box and a batch of
candidate boxes.  IoUCost builds the tracks x detections cost matrix of
1 - IoU values handed to MinCostMatching or MatchingCascade.  Tracks that
have gone more than one step without an update are gated out with
InfeasibleCost, the same sentinel the solver treats as never matchable.

STrack and Object are ready made Track and Detection implementations backed
by a constant velocity Kalman filter.
*/
package tracker
