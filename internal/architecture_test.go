package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	leap := archunit.Packages("leap", []string{".../internal/leap/..."})
	hub := archunit.Packages("hub", []string{".../internal/hub/..."})
	caseta := archunit.Packages("caseta", []string{".../internal/bridges/caseta/..."})
	api := archunit.Packages("api", []string{".../internal/api/..."})

	// The LEAP client knows nothing about the hub or its adapters.
	if err := leap.ShouldNotReferLayers(hub); err != nil {
		t.Errorf("Architecture violation: leap depends on hub: %v", err)
	}
	if err := leap.ShouldNotReferLayers(caseta); err != nil {
		t.Errorf("Architecture violation: leap depends on caseta: %v", err)
	}
	if err := leap.ShouldNotReferLayers(api); err != nil {
		t.Errorf("Architecture violation: leap depends on api: %v", err)
	}

	// The hub is integration-agnostic.
	if err := hub.ShouldNotReferLayers(caseta); err != nil {
		t.Errorf("Architecture violation: hub depends on caseta: %v", err)
	}
	if err := hub.ShouldNotReferLayers(leap); err != nil {
		t.Errorf("Architecture violation: hub depends on leap: %v", err)
	}
	if err := hub.ShouldNotReferLayers(api); err != nil {
		t.Errorf("Architecture violation: hub depends on api: %v", err)
	}

	// The integration is driven by the hub, not the API.
	if err := caseta.ShouldNotReferLayers(api); err != nil {
		t.Errorf("Architecture violation: caseta depends on api: %v", err)
	}
}

func TestIntegrationPackages(t *testing.T) {
	caseta := archunit.Packages("caseta", []string{".../internal/bridges/caseta"})
	if len(caseta.Packages()) == 0 {
		t.Error("No caseta integration package found under bridges")
	}
}
