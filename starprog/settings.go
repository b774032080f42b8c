package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
)

// showSettingsDialog displays a settings dialog with tabs for all
// configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createLinkTab(state),
		createPlotTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig writes the app configuration back to its file.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := device.Ports()
	portOptions := []string{}
	if err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Name)
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if opt == currentPort {
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
	}

	portSelect := widget.NewSelect(portOptions, func(string) {})
	if currentPort != "" {
		portSelect.SetSelected(currentPort)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				state.cfg.Serial.Port = portSelect.Selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.Baud = baud
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createLinkTab creates the Link configuration tab.
func createLinkTab(state *appState) *container.TabItem {
	ackTimeoutEntry := widget.NewEntry()
	ackTimeoutEntry.SetText(state.cfg.Link.AckTimeout.String())

	backoffEntry := widget.NewEntry()
	backoffEntry.SetText(state.cfg.Link.RetryBackoff.String())

	maxRetriesEntry := widget.NewEntry()
	maxRetriesEntry.SetText(strconv.Itoa(state.cfg.Link.MaxRetries))

	connectRetriesEntry := widget.NewEntry()
	connectRetriesEntry.SetText(strconv.Itoa(state.cfg.Link.ConnectRetries))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Ack Timeout", Widget: ackTimeoutEntry},
			{Text: "Retry Backoff", Widget: backoffEntry},
			{Text: "Max Retries", Widget: maxRetriesEntry},
			{Text: "Connect Retries", Widget: connectRetriesEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(ackTimeoutEntry.Text); err == nil {
				state.cfg.Link.AckTimeout = d
			}
			if d, err := time.ParseDuration(backoffEntry.Text); err == nil {
				state.cfg.Link.RetryBackoff = d
			}
			if n, err := strconv.Atoi(maxRetriesEntry.Text); err == nil && n >= 0 {
				state.cfg.Link.MaxRetries = n
			}
			if n, err := strconv.Atoi(connectRetriesEntry.Text); err == nil && n >= 0 {
				state.cfg.Link.ConnectRetries = n
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Link", form)
}

// createPlotTab creates the Plot configuration tab.
func createPlotTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.FormatFloat(state.cfg.Plot.WindowSeconds, 'f', 1, 64))

	capacityEntry := widget.NewEntry()
	capacityEntry.SetText(strconv.Itoa(state.cfg.Plot.BufferCapacity))

	maxPointsEntry := widget.NewEntry()
	maxPointsEntry.SetText(strconv.Itoa(state.cfg.Plot.MaxDisplayPoints))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Buffer Capacity", Widget: capacityEntry},
			{Text: "Max Display Points", Widget: maxPointsEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Plot.WindowSeconds = ws
				state.scopeWidget.SetWindowSeconds(ws)
			}
			if n, err := strconv.Atoi(capacityEntry.Text); err == nil && n > 0 {
				state.cfg.Plot.BufferCapacity = n // applies on next connect
			}
			if n, err := strconv.Atoi(maxPointsEntry.Text); err == nil && n > 0 {
				state.cfg.Plot.MaxDisplayPoints = n
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Plot", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.FormatFloat(state.cfg.Mock.NoiseLevel, 'f', 2, 64))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level", Widget: noiseEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if nl, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil && nl >= 0 {
				state.cfg.Mock.NoiseLevel = nl
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil && sr > 0 {
				state.cfg.Mock.SampleRate = sr
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
