// In file: internal/aircraft/models.go

// Package aircraft describes the ADS-B tracking table the chat agent queries,
// and builds the fixed analytical queries served next to the chat endpoint.
package aircraft

import (
	"fmt"
	"strings"
)

// ProcessedTable is the table the agent and the consumption API read from.
const ProcessedTable = "AircraftTrackingProcessedTable"

// Column is a table column as described to the model.
type Column struct {
	Name        string
	Type        string
	Description string
}

// Columns lists the processed table's columns.
func Columns() []Column {
	return []Column{
		{"hex", "String", "ICAO 24-bit address; unique per airframe"},
		{"transponder_type", "String", "message source (adsb_icao, mlat, tisb_...)"},
		{"flight", "String", "callsign, space padded"},
		{"r", "String", "registration"},
		{"aircraft_type", "Nullable(String)", "ICAO type designator"},
		{"dbFlags", "Int64", "bitfield; 1 = military"},
		{"lat", "Float64", "latitude, degrees"},
		{"lon", "Float64", "longitude, degrees"},
		{"alt_baro", "Float64", "barometric altitude, feet; 0 on ground"},
		{"alt_baro_is_ground", "Bool", "aircraft reported on ground"},
		{"alt_geom", "Float64", "geometric altitude, feet"},
		{"gs", "Float64", "ground speed, knots"},
		{"track", "Float64", "true track, degrees"},
		{"baro_rate", "Float64", "barometric climb rate, ft/min"},
		{"geom_rate", "Nullable(Float64)", "geometric climb rate, ft/min"},
		{"squawk", "String", "transponder code"},
		{"emergency", "String", "emergency status"},
		{"category", "String", "emitter category, e.g. A1..A7, B1..B7"},
		{"nav_qnh", "Nullable(Float64)", "altimeter setting, hPa"},
		{"nav_altitude_mcp", "Nullable(Float64)", "selected altitude, feet"},
		{"nav_heading", "Nullable(Float64)", "selected heading, degrees"},
		{"nav_modes", "Array(String)", "engaged autopilot modes"},
		{"nic", "Int64", "navigation integrity category"},
		{"rc", "Int64", "radius of containment, metres"},
		{"seen_pos", "Int64", "seconds since last position"},
		{"version", "Int64", "ADS-B version"},
		{"nic_baro", "Int64", "barometric altitude integrity"},
		{"nac_p", "Int64", "position accuracy category"},
		{"nac_v", "Int64", "velocity accuracy category"},
		{"sil", "Int64", "source integrity level"},
		{"sil_type", "String", "SIL interpretation"},
		{"gva", "Int64", "geometric vertical accuracy"},
		{"sda", "Int64", "system design assurance"},
		{"alert", "Int64", "flight status alert bit"},
		{"spi", "Int64", "special position identification bit"},
		{"mlat", "Array(String)", "fields derived from MLAT"},
		{"tisb", "Array(String)", "fields derived from TIS-B"},
		{"messages", "Int64", "messages received"},
		{"seen", "Int64", "seconds since last message"},
		{"rssi", "Float64", "signal strength, dBFS"},
		{"timestamp", "DateTime", "report time (UTC)"},
		{"zorderCoordinate", "UInt64", "Z-order spatial key of lat/lon"},
		{"approach", "Bool", "approach mode engaged"},
		{"autopilot", "Bool", "autopilot engaged"},
		{"althold", "Bool", "altitude hold engaged"},
		{"lnav", "Bool", "lateral navigation engaged"},
		{"tcas", "Bool", "TCAS active"},
	}
}

// SchemaPrompt renders the default system prompt describing table.
func SchemaPrompt(table string) string {
	if table == "" {
		table = ProcessedTable
	}
	var sb strings.Builder
	sb.WriteString("You are an analyst for a live aircraft tracking database fed by ADS-B receivers.\n")
	sb.WriteString("Answer questions by querying ClickHouse with the available tools, then explain the result briefly.\n")
	fmt.Fprintf(&sb, "\nTable %s:\n", table)
	for _, c := range Columns() {
		fmt.Fprintf(&sb, "- %s %s: %s\n", c.Name, c.Type, c.Description)
	}
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Only issue read-only SELECT statements.\n")
	sb.WriteString("- Results are capped at 100 rows; aggregate instead of listing when possible.\n")
	sb.WriteString("- Use COUNT(DISTINCT hex) to count aircraft rather than reports.\n")
	sb.WriteString("- If no tool is available, say so and answer only from what you know.\n")
	return sb.String()
}
