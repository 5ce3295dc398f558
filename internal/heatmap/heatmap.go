// Package heatmap serves the static reference points shown on the reports
// map.
package heatmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a weighted map location. It serialises as [lat, lon, weight].
type Point struct {
	Lat    float64
	Lon    float64
	Weight float64
	Label  string
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Weight})
}

// DefaultPoints are the Kurnool RTO and the registrar office.
func DefaultPoints() []Point {
	return []Point{
		{Lat: 15.76635, Lon: 78.05382, Weight: 1.0, Label: "Kurnool RTO"},
		{Lat: 15.80127, Lon: 78.03503, Weight: 1.0, Label: "Registrar Office"},
	}
}

type fileFormat struct {
	Points []struct {
		Label  string   `yaml:"label"`
		Lat    float64  `yaml:"lat"`
		Lon    float64  `yaml:"lon"`
		Weight *float64 `yaml:"weight"`
	} `yaml:"points"`
}

// Load reads points from a YAML file of the form
//
//	points:
//	  - label: Kurnool RTO
//	    lat: 15.76635
//	    lon: 78.05382
//	    weight: 1.0
//
// An empty path returns DefaultPoints. Weight defaults to 1.
func Load(path string) ([]Point, error) {
	if path == "" {
		return DefaultPoints(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading heatmap file: %w", err)
	}
	return Parse(data)
}

// Parse decodes the YAML format accepted by Load.
func Parse(data []byte) ([]Point, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing heatmap file: %w", err)
	}
	if len(f.Points) == 0 {
		return nil, errors.New("heatmap file has no points")
	}

	out := make([]Point, 0, len(f.Points))
	for i, p := range f.Points {
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return nil, fmt.Errorf("point %d (%s): coordinates out of range", i, p.Label)
		}
		w := 1.0
		if p.Weight != nil {
			w = *p.Weight
		}
		if w < 0 {
			return nil, fmt.Errorf("point %d (%s): negative weight", i, p.Label)
		}
		out = append(out, Point{Lat: p.Lat, Lon: p.Lon, Weight: w, Label: p.Label})
	}
	return out, nil
}
