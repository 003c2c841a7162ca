package app

import "go.trai.ch/tome/internal/core/ports"

// Components bundles the wired application with the ports the entry point
// needs directly.
type Components struct {
	App       *App
	Logger    ports.Logger
	Telemetry ports.Telemetry
}
