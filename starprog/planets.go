package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/session"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// commandTimeout bounds every device exchange triggered from the UI.
const commandTimeout = 10 * time.Second

// starEntries holds the star configuration inputs.
type starEntries struct {
	r, g, b    *widget.Entry
	brightness *widget.Entry
}

// planetRow holds one row of the planet editor. A row with an empty name is
// an unused slot.
type planetRow struct {
	name    *widget.Entry
	dip     *widget.Entry
	orbitS  *widget.Entry
	transS  *widget.Entry
	phaseMS *widget.Entry
}

// createEditor builds the left-hand panel: star inputs, the planet table and
// the file persistence actions.
func createEditor(state *appState) fyne.CanvasObject {
	state.starEntries = starEntries{
		r:          widget.NewEntry(),
		g:          widget.NewEntry(),
		b:          widget.NewEntry(),
		brightness: widget.NewEntry(),
	}

	starForm := widget.NewForm(
		widget.NewFormItem("Red (0-255)", state.starEntries.r),
		widget.NewFormItem("Green (0-255)", state.starEntries.g),
		widget.NewFormItem("Blue (0-255)", state.starEntries.b),
		widget.NewFormItem("Brightness (0-100)", state.starEntries.brightness),
	)

	header := container.NewGridWithColumns(5,
		widget.NewLabel("Name"),
		widget.NewLabel("Dip (0-1)"),
		widget.NewLabel("Orbit (s)"),
		widget.NewLabel("Transit (s)"),
		widget.NewLabel("Phase (ms)"),
	)

	rows := []fyne.CanvasObject{header}
	for i := range state.planetRows {
		row := planetRow{
			name:    widget.NewEntry(),
			dip:     widget.NewEntry(),
			orbitS:  widget.NewEntry(),
			transS:  widget.NewEntry(),
			phaseMS: widget.NewEntry(),
		}
		state.planetRows[i] = row
		rows = append(rows, container.NewGridWithColumns(5,
			row.name, row.dip, row.orbitS, row.transS, row.phaseMS))
	}

	fileButtons := container.NewHBox(
		widget.NewButton("Save File", func() { handleSaveFile(state) }),
		widget.NewButton("Load File", func() { handleLoadFile(state) }),
		widget.NewButton("Reset File", func() { handleResetFile(state) }),
	)

	return container.NewVBox(
		widget.NewLabel("Star Configuration"),
		starForm,
		widget.NewLabel("Planets"),
		container.NewVBox(rows...),
		fileButtons,
	)
}

// writeEditor fills the editor widgets from a configuration. Unused planet
// slots keep the editor defaults so a new row starts from sane values.
func writeEditor(state *appState, cfg session.Config) {
	state.starEntries.r.SetText(strconv.Itoa(int(cfg.Star.R)))
	state.starEntries.g.SetText(strconv.Itoa(int(cfg.Star.G)))
	state.starEntries.b.SetText(strconv.Itoa(int(cfg.Star.B)))
	state.starEntries.brightness.SetText(strconv.Itoa(cfg.Star.Brightness))

	for i, row := range state.planetRows {
		if i < len(cfg.Planets) {
			p := cfg.Planets[i]
			row.name.SetText(p.Name)
			row.dip.SetText(strconv.FormatFloat(p.Dip, 'f', -1, 64))
			row.orbitS.SetText(strconv.FormatFloat(p.OrbitPeriod.Seconds(), 'f', -1, 64))
			row.transS.SetText(strconv.FormatFloat(p.TransitDuration.Seconds(), 'f', -1, 64))
			row.phaseMS.SetText(strconv.FormatInt(p.PhaseOffset.Milliseconds(), 10))
		} else {
			row.name.SetText("")
			row.dip.SetText("0.1")
			row.orbitS.SetText("10.0")
			row.transS.SetText("2.0")
			row.phaseMS.SetText("0")
		}
	}
}

// readEditor parses the editor widgets into a validated configuration.
func readEditor(state *appState) (session.Config, error) {
	star, err := readStar(state.starEntries)
	if err != nil {
		return session.Config{}, err
	}

	var planets []transit.Planet
	for i, row := range state.planetRows {
		name := row.name.Text
		if name == "" {
			continue
		}

		dip, err := strconv.ParseFloat(row.dip.Text, 64)
		if err != nil {
			return session.Config{}, fmt.Errorf("row %d: invalid dip: %w", i+1, err)
		}
		orbitS, err := strconv.ParseFloat(row.orbitS.Text, 64)
		if err != nil {
			return session.Config{}, fmt.Errorf("row %d: invalid orbit: %w", i+1, err)
		}
		transS, err := strconv.ParseFloat(row.transS.Text, 64)
		if err != nil {
			return session.Config{}, fmt.Errorf("row %d: invalid transit: %w", i+1, err)
		}
		phaseMS, err := strconv.ParseInt(row.phaseMS.Text, 10, 64)
		if err != nil {
			return session.Config{}, fmt.Errorf("row %d: invalid phase: %w", i+1, err)
		}

		planets = append(planets, transit.Planet{
			Name:            name,
			Dip:             dip,
			OrbitPeriod:     time.Duration(orbitS * float64(time.Second)),
			TransitDuration: time.Duration(transS * float64(time.Second)),
			PhaseOffset:     time.Duration(phaseMS) * time.Millisecond,
		})
	}

	cfg := session.Config{Star: star, Planets: planets}
	if err := cfg.Validate(); err != nil {
		return session.Config{}, err
	}
	return cfg, nil
}

func readStar(entries starEntries) (device.StarConfig, error) {
	r, err := strconv.ParseUint(entries.r.Text, 10, 8)
	if err != nil {
		return device.StarConfig{}, fmt.Errorf("invalid red value: %w", err)
	}
	g, err := strconv.ParseUint(entries.g.Text, 10, 8)
	if err != nil {
		return device.StarConfig{}, fmt.Errorf("invalid green value: %w", err)
	}
	b, err := strconv.ParseUint(entries.b.Text, 10, 8)
	if err != nil {
		return device.StarConfig{}, fmt.Errorf("invalid blue value: %w", err)
	}
	brightness, err := strconv.Atoi(entries.brightness.Text)
	if err != nil {
		return device.StarConfig{}, fmt.Errorf("invalid brightness: %w", err)
	}

	return device.StarConfig{R: uint8(r), G: uint8(g), B: uint8(b), Brightness: brightness}, nil
}

// currentSession returns the live session, or nil with a dialog when the
// device is not connected.
func currentSession(state *appState) *session.Session {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.chain == nil {
		dialog.ShowInformation("Not Connected", "Please connect to a device first.", state.window)
		return nil
	}
	return state.chain.sess
}

// handleProgram validates the editor and pushes star and planets.
func handleProgram(state *appState) {
	sess := currentSession(state)
	if sess == nil {
		return
	}

	cfg, err := readEditor(state)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := sess.SetConfig(cfg); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.starCfg = cfg

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := sess.Push(ctx); err != nil {
			state.log.Errorf("program failed: %v", err)
			fyne.Do(func() {
				dialog.ShowError(fmt.Errorf("failed to program device: %w", err), state.window)
			})
			return
		}
		fyne.Do(func() {
			dialog.ShowInformation("Programmed", fmt.Sprintf("Sent star config and %d planet(s).", len(cfg.Planets)), state.window)
		})
	}()
}

// handleDeviceCommand runs a firmware persistence command off the UI thread.
func handleDeviceCommand(state *appState, cmd string) {
	sess := currentSession(state)
	if sess == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var err error
		switch cmd {
		case device.CmdSave:
			err = sess.SaveToDevice(ctx)
		case device.CmdLoad:
			err = sess.LoadFromDevice(ctx)
		case device.CmdReset:
			err = sess.ResetDevice(ctx)
		default:
			err = sess.List(ctx)
		}
		if err != nil {
			state.log.Errorf("%s failed: %v", cmd, err)
			fyne.Do(func() {
				dialog.ShowError(fmt.Errorf("%s failed: %w", cmd, err), state.window)
			})
		}
	}()
}

// handleDeviceReset confirms before restoring factory configuration.
func handleDeviceReset(state *appState) {
	if currentSession(state) == nil {
		return
	}
	dialog.ShowConfirm("Reset Device", "Reset device to defaults?", func(ok bool) {
		if ok {
			handleDeviceCommand(state, device.CmdReset)
		}
	}, state.window)
}

// handleSaveFile persists the editor contents to the star config file.
func handleSaveFile(state *appState) {
	cfg, err := readEditor(state)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := cfg.Save(state.cfg.StarFile); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.starCfg = cfg
	state.log.Infof("saved star config to %s", state.cfg.StarFile)
}

// handleLoadFile loads the star config file into the editor.
func handleLoadFile(state *appState) {
	cfg, err := session.LoadConfig(state.cfg.StarFile)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.starCfg = cfg
	writeEditor(state, cfg)
}

// handleResetFile overwrites the star config file with defaults.
func handleResetFile(state *appState) {
	dialog.ShowConfirm("Reset File", "Overwrite the saved configuration with defaults?", func(ok bool) {
		if !ok {
			return
		}
		cfg, err := session.ResetConfig(state.cfg.StarFile)
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		state.starCfg = cfg
		writeEditor(state, cfg)
	}, state.window)
}
