package keepout

import "fmt"

// Inputs are the sensor levels and zone membership sampled by the poller
type Inputs struct {
	Rack       bool `json:"rack"`        // last sampled rack presence level
	Drawbar    bool `json:"drawbar"`     // informational
	ToolLength bool `json:"tool_length"` // informational
	Pressure   bool `json:"pressure"`    // informational
	InsideZone bool `json:"inside_zone"` // inclusive test, no tolerance
}

// StatusFlags renders the realtime report letters:
// source (S/R/M/T), E when runtime enabled, I rack present while monitored,
// B drawbar, L tool length sensor, P pressure, Z tool inside the zone.
func StatusFlags(s Snapshot, in Inputs) string {
	flags := make([]byte, 0, 8)
	flags = append(flags, s.Source.Letter())
	if s.Enabled {
		flags = append(flags, 'E')
	}
	if s.Flags.MonitorRackPresence && in.Rack {
		flags = append(flags, 'I')
	}
	if in.Drawbar {
		flags = append(flags, 'B')
	}
	if in.ToolLength {
		flags = append(flags, 'L')
	}
	if in.Pressure {
		flags = append(flags, 'P')
	}
	if in.InsideZone {
		flags = append(flags, 'Z')
	}
	return string(flags)
}

// StatusField is the element appended to the machine status report
func StatusField(s Snapshot, in Inputs) string {
	return "|ATCI:" + StatusFlags(s, in)
}

// ParamsLine reports the active bounds as max,min pairs per axis
func ParamsLine(r Rect) string {
	return fmt.Sprintf("[ATCI:%.2f,%.2f,%.2f,%.2f]", r.XMax, r.XMin, r.YMax, r.YMin)
}
