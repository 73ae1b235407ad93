package types

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeoPoint stores a WGS84 coordinate as WKT text ("POINT(lng lat)").
type GeoPoint struct {
	orb.Point
}

// NewGeoPoint builds a point from latitude/longitude order used by clients.
func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Point: orb.Point{lng, lat}}
}

// Lat returns the latitude component.
func (g GeoPoint) Lat() float64 {
	return g.Point.Lat()
}

// Lng returns the longitude component.
func (g GeoPoint) Lng() float64 {
	return g.Point.Lon()
}

// Validate checks the coordinate ranges.
func (g GeoPoint) Validate() error {
	if g.Lat() < -90 || g.Lat() > 90 {
		return fmt.Errorf("latitude %f out of range", g.Lat())
	}
	if g.Lng() < -180 || g.Lng() > 180 {
		return fmt.Errorf("longitude %f out of range", g.Lng())
	}
	return nil
}

// Value implements driver.Valuer.
func (g GeoPoint) Value() (driver.Value, error) {
	return wkt.MarshalString(g.Point), nil
}

// Scan implements sql.Scanner.
func (g *GeoPoint) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*g = GeoPoint{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("geo point: unsupported scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ";"); idx != -1 && strings.HasPrefix(strings.ToUpper(raw), "SRID=") {
		raw = raw[idx+1:]
	}
	point, err := wkt.UnmarshalPoint(raw)
	if err != nil {
		return fmt.Errorf("geo point: %w", err)
	}
	g.Point = point
	return nil
}

// LatLng is the JSON shape exchanged with clients.
type LatLng struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// ToGeoPoint converts the JSON shape into a storable point.
func (l LatLng) ToGeoPoint() GeoPoint {
	return NewGeoPoint(l.Lat, l.Lng)
}

// LatLngFrom converts a stored point back into the JSON shape.
func LatLngFrom(g *GeoPoint) *LatLng {
	if g == nil {
		return nil
	}
	return &LatLng{Lat: g.Lat(), Lng: g.Lng()}
}
