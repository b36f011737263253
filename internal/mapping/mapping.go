// Package mapping covers cartography and fleet tracking: locations,
// vehicles and live GPS positions.
package mapping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supervisorapp/supervisor-client/internal/notify"
	"github.com/supervisorapp/supervisor-client/internal/resource"
	"github.com/supervisorapp/supervisor-client/internal/transport"
)

const (
	LocationsPath   = "/mapping/locations/"
	VehiclesPath    = "/mapping/vehicles/"
	GPSTrackingPath = "/mapping/gps-tracking/"
)

type Location struct {
	ID          int64   `json:"id"`
	Nom         string  `json:"nom"`
	Type        string  `json:"type,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Project     int64   `json:"project,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (l Location) EntityID() int64 { return l.ID }

type Vehicle struct {
	ID              int64  `json:"id"`
	Immatriculation string `json:"immatriculation"`
	Marque          string `json:"marque,omitempty"`
	Modele          string `json:"modele,omitempty"`
	IsActive        bool   `json:"is_active"`
}

func (v Vehicle) EntityID() int64 { return v.ID }

type Position struct {
	Vehicle    int64   `json:"vehicle"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Vitesse    float64 `json:"vitesse,omitempty"`
	Horodatage string  `json:"horodatage"`
}

type LocationStore struct {
	*resource.Store[Location]
}

func NewLocationStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *LocationStore {
	return &LocationStore{resource.NewStore(
		resource.NewEndpoints[Location](client, LocationsPath), "location", notifier, logger)}
}

// ExtractFromPhotos sends geotagged photos for server-side GPS
// extraction, answering with the locations it derived.
func (s *LocationStore) ExtractFromPhotos(ctx context.Context, photos []transport.File) ([]Location, error) {
	resp, err := s.Endpoints().Client().Upload(ctx, LocationsPath+"extract-gps/", photos, nil)
	if err != nil {
		return nil, err
	}
	var locations []Location
	return locations, resp.Decode(&locations)
}

type VehicleStore struct {
	*resource.Store[Vehicle]
}

func NewVehicleStore(client *transport.Client, notifier notify.Notifier, logger *slog.Logger) *VehicleStore {
	return &VehicleStore{resource.NewStore(
		resource.NewEndpoints[Vehicle](client, VehiclesPath), "vehicle", notifier, logger)}
}

// Tracking reads the live and historical GPS feeds.
type Tracking struct {
	client *transport.Client
}

func NewTracking(client *transport.Client) *Tracking {
	return &Tracking{client: client}
}

func (t *Tracking) Current(ctx context.Context, vehicleID int64) (*Position, error) {
	resp, err := t.client.Get(ctx, fmt.Sprintf("%s%d/current/", GPSTrackingPath, vehicleID), nil)
	if err != nil {
		return nil, err
	}
	var pos Position
	return &pos, resp.Decode(&pos)
}

func (t *Tracking) History(ctx context.Context, vehicleID int64, params transport.Params) ([]Position, error) {
	resp, err := t.client.Get(ctx, fmt.Sprintf("%s%d/history/", GPSTrackingPath, vehicleID), params)
	if err != nil {
		return nil, err
	}
	var positions []Position
	return positions, resp.Decode(&positions)
}

func (t *Tracking) LivePositions(ctx context.Context) ([]Position, error) {
	resp, err := t.client.Get(ctx, GPSTrackingPath+"live/", nil)
	if err != nil {
		return nil, err
	}
	var positions []Position
	return positions, resp.Decode(&positions)
}
