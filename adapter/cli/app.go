package cli

import (
	containerApp "github.com/kilgorjn/patient-scheduling/internal/app"
)

// App holds the CLI application dependencies: just the wired container,
// since every command in this CLI operates on the single solver/audit/
// outbox surface the container exposes.
type App struct {
	Container *containerApp.Container
}

// NewApp creates a new CLI application wrapping the given container.
func NewApp(container *containerApp.Container) *App {
	return &App{Container: container}
}

// globalApp is the global CLI application instance.
var globalApp *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	globalApp = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return globalApp
}
