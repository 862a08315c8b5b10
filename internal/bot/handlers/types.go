package handlers

import (
	"github.com/plantguardian/garden-helper/internal/domain"
	"github.com/plantguardian/garden-helper/internal/store"
)

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	AuthSvc      domain.AuthService
	GardenSvc    domain.GardenService
	DiagnosisSvc domain.DiagnosisService
	AssistantSvc domain.AssistantService
	Store        *store.Store
	AutoChecker  *AutoChecker
}
