// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/tome/internal/adapters/config"
	_ "go.trai.ch/tome/internal/adapters/logger"
	_ "go.trai.ch/tome/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.trai.ch/tome/internal/app"
)
