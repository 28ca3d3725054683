// Package main hosts the ioucost CLI.
//
// The commands load a scene of predicted track boxes and detections from a
// TOML file and print the IoU cost matrix or the resulting track to
// detection matching, either as a table or as JSON.
package main
