package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/plantguardian/garden-helper/internal/api"
	"github.com/plantguardian/garden-helper/internal/domain"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/store"
)

// GardenService runs every plant and growth log operation through the
// resource store: reads coalesce, writes serialize per collection, and a
// successful write re-synchronizes the collection from the backend instead of
// patching it locally.
type GardenService struct {
	client *api.Client
	store  *store.Store
}

func NewGardenService(client *api.Client, st *store.Store) *GardenService {
	return &GardenService{client: client, store: st}
}

// Plants returns the user's garden. When a refresh fails but an earlier load
// succeeded, the stale collection is returned alongside the error.
func (s *GardenService) Plants(ctx context.Context, userID int) ([]domain.PlantRecord, error) {
	key := store.PlantsKey(userID)
	snap, err := s.store.Load(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.client.ListPlants(ctx, userID)
	})
	plants, _ := snap.Data.([]domain.PlantRecord)
	return plants, err
}

// AddPlant creates a plant and reloads the garden collection. Input is
// validated before any network traffic.
func (s *GardenService) AddPlant(ctx context.Context, userID int, name, species, datePlanted string) error {
	name = strings.TrimSpace(name)
	species = strings.TrimSpace(species)
	datePlanted = strings.TrimSpace(datePlanted)
	if name == "" || species == "" {
		return apperrors.NewValidationError("Plant name and species must not be empty")
	}
	if datePlanted == "" {
		datePlanted = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", datePlanted); err != nil {
		return apperrors.NewValidationError("Planting date must look like 2024-05-17")
	}

	imageURL := fmt.Sprintf("https://source.unsplash.com/random/300x300/?%s,plant", url.QueryEscape(species))
	return s.store.Mutate(ctx, store.PlantsKey(userID), func(ctx context.Context) error {
		_, err := s.client.AddPlant(ctx, userID, name, species, datePlanted, imageURL)
		return err
	})
}

// DeletePlant removes a plant and reloads the garden collection.
func (s *GardenService) DeletePlant(ctx context.Context, userID, plantID int) error {
	return s.store.Mutate(ctx, store.PlantsKey(userID), func(ctx context.Context) error {
		return s.client.DeletePlant(ctx, plantID)
	})
}

// Logs returns a plant's growth log, newest entry first.
func (s *GardenService) Logs(ctx context.Context, plantID int) ([]domain.GrowthLogEntry, error) {
	key := store.LogsKey(plantID)
	snap, err := s.store.Load(ctx, key, func(ctx context.Context) (interface{}, error) {
		logs, err := s.client.ListLogs(ctx, plantID)
		if err != nil {
			return nil, err
		}
		sortLogsNewestFirst(logs)
		return logs, nil
	})
	logs, _ := snap.Data.([]domain.GrowthLogEntry)
	return logs, err
}

// AddLog appends a growth log entry. When a photo is attached it is uploaded
// first and the entry references its URL.
func (s *GardenService) AddLog(ctx context.Context, plantID int, date, note, status string, image []byte, imageName string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return apperrors.NewValidationError("Log note must not be empty")
	}
	if !validStatus(status) {
		return apperrors.NewValidationError("Unknown growth status: " + status)
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	return s.store.Mutate(ctx, store.LogsKey(plantID), func(ctx context.Context) error {
		imageURL := ""
		if len(image) > 0 {
			uploaded, err := s.client.Upload(ctx, imageName, image)
			if err != nil {
				return err
			}
			imageURL = uploaded
		}
		_, err := s.client.AddLog(ctx, plantID, date, note, status, imageURL)
		return err
	})
}

func validStatus(status string) bool {
	for _, s := range domain.LogStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// sortLogsNewestFirst orders entries by date descending. Entries with equal or
// unparseable dates fall back to ID descending, so the latest insert wins.
func sortLogsNewestFirst(logs []domain.GrowthLogEntry) {
	sort.SliceStable(logs, func(i, j int) bool {
		di, erri := time.Parse("2006-01-02", logs[i].Date)
		dj, errj := time.Parse("2006-01-02", logs[j].Date)
		if erri == nil && errj == nil && !di.Equal(dj) {
			return di.After(dj)
		}
		return logs[i].ID > logs[j].ID
	})
}
