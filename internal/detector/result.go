package detector

import (
	"encoding/json"
	"fmt"
	"time"
)

// PartPlacement is one part's position in image coordinates.
type PartPlacement struct {
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Mixture int    `json:"mixture"`
}

// Detection is one candidate configuration of all parts.
type Detection struct {
	Score float32         `json:"score"`
	Scale int             `json:"scale"`
	Parts []PartPlacement `json:"parts"`
}

// Result holds the output of one detection run.
type Result struct {
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Detections     []Detection   `json:"detections"`
	ProcessingTime time.Duration `json:"-"`
}

// JSON serializes the result for CLI and server output.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Validate performs sanity checks against the image dimensions.
func (r *Result) Validate() error {
	for i, d := range r.Detections {
		for _, p := range d.Parts {
			if p.X < 0 || p.Y < 0 || p.X > r.Width || p.Y > r.Height {
				return fmt.Errorf("detection %d: part %q at (%d,%d) outside %dx%d",
					i, p.Name, p.X, p.Y, r.Width, r.Height)
			}
			if p.Mixture < 0 {
				return fmt.Errorf("detection %d: part %q has negative mixture", i, p.Name)
			}
		}
	}
	return nil
}

// ResultFromJSON parses a serialized result.
func ResultFromJSON(data []byte) (Result, error) {
	var r Result
	err := json.Unmarshal(data, &r)
	return r, err
}
