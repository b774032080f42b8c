package device

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// The device speaks newline-delimited ASCII. Outbound:
//
//	SETSTAR:<r>,<g>,<b>,<brightness>
//	SETNUM:<count>
//	<name>,<dip>,<orbit_ms>,<transit_ms>,<phase_ms>   (one row per planet)
//	SAVE | LOAD | RESETCFG | LIST | HELP
//
// Inbound lines are telemetry ("Total: <v>" or a bare number), acks ("OK..."),
// nacks ("ERR..."), or free text such as LIST output.

// maxPlanetNameLen is the widest name the firmware stores per planet slot.
const maxPlanetNameLen = 11

// Persistence commands understood by the firmware.
const (
	CmdSave  = "SAVE"
	CmdLoad  = "LOAD"
	CmdReset = "RESETCFG"
	CmdList  = "LIST"
	CmdHelp  = "HELP"
)

// lineKind classifies a frame received from the device.
type lineKind int

const (
	lineText lineKind = iota
	lineTelemetry
	lineAck
	lineNack
)

// classifyLine determines what an inbound frame carries. For telemetry lines
// the measured brightness is returned as well. A malformed telemetry frame
// yields a ProtocolError; the caller drops the frame and continues.
func classifyLine(line string) (lineKind, float64, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return lineText, 0, nil
	case strings.HasPrefix(line, "OK"):
		return lineAck, 0, nil
	case strings.HasPrefix(line, "ERR"):
		return lineNack, 0, nil
	}

	if rest, ok := cutTotalPrefix(line); ok {
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return lineText, 0, &ProtocolError{Line: line, Reason: "non-numeric total"}
		}
		return lineTelemetry, v, nil
	}

	if v, err := strconv.ParseFloat(line, 64); err == nil {
		return lineTelemetry, v, nil
	}

	return lineText, 0, nil
}

// cutTotalPrefix strips a case-insensitive "Total:" prefix and returns the
// remainder trimmed, matching the firmware's telemetry line format.
func cutTotalPrefix(line string) (string, bool) {
	const prefix = "total"
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(prefix):])
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}

// encodeStar builds the SETSTAR command line.
func encodeStar(cfg StarConfig) string {
	return fmt.Sprintf("SETSTAR:%d,%d,%d,%d", cfg.R, cfg.G, cfg.B, cfg.Brightness)
}

// encodeCount builds the SETNUM command line.
func encodeCount(n int) string {
	return fmt.Sprintf("SETNUM:%d", n)
}

// encodePlanet builds one planet row. Durations go over the wire in
// milliseconds, the dip with six decimals, the name truncated to the
// firmware's slot width.
func encodePlanet(p transit.Planet) string {
	name := p.Name
	if utf8.RuneCountInString(name) > maxPlanetNameLen {
		runes := []rune(name)
		name = string(runes[:maxPlanetNameLen])
	}
	return fmt.Sprintf("%s,%.6f,%d,%d,%d",
		name, p.Dip,
		p.OrbitPeriod.Milliseconds(),
		p.TransitDuration.Milliseconds(),
		p.PhaseOffset.Milliseconds())
}

// commandWantsAck reports whether the firmware acknowledges the command.
// LIST and HELP reply with free text only.
func commandWantsAck(cmd string) bool {
	switch cmd {
	case CmdList, CmdHelp:
		return false
	default:
		return true
	}
}
