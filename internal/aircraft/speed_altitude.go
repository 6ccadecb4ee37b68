// In file: internal/aircraft/speed_altitude.go
package aircraft

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidParams wraps every parameter validation failure.
var ErrInvalidParams = errors.New("invalid parameters")

var categoryPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,4}$`)

// SpeedAltitudeParams are the optional filters of the speed/altitude-by-type API.
type SpeedAltitudeParams struct {
	Category    string   `form:"category"`
	MinAltitude *float64 `form:"min_altitude"`
	MaxAltitude *float64 `form:"max_altitude"`
	MinSpeed    *float64 `form:"min_speed"`
	MaxSpeed    *float64 `form:"max_speed"`
}

// Validate rejects filters that cannot be rendered safely into SQL.
func (p SpeedAltitudeParams) Validate() error {
	if p.Category != "" && !categoryPattern.MatchString(p.Category) {
		return fmt.Errorf("%w: category %q must be 1-4 letters or digits", ErrInvalidParams, p.Category)
	}
	for name, v := range map[string]*float64{
		"min_altitude": p.MinAltitude, "max_altitude": p.MaxAltitude,
		"min_speed": p.MinSpeed, "max_speed": p.MaxSpeed,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidParams, name)
		}
	}
	if p.MinAltitude != nil && p.MaxAltitude != nil && *p.MinAltitude > *p.MaxAltitude {
		return fmt.Errorf("%w: min_altitude exceeds max_altitude", ErrInvalidParams)
	}
	if p.MinSpeed != nil && p.MaxSpeed != nil && *p.MinSpeed > *p.MaxSpeed {
		return fmt.Errorf("%w: min_speed exceeds max_speed", ErrInvalidParams)
	}
	return nil
}

// SpeedAltitudeQuery builds the per-category speed and altitude statistics query.
func SpeedAltitudeQuery(p SpeedAltitudeParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	where := []string{"alt_baro > 0", "gs > 0", "category != ''"}
	if p.Category != "" {
		where = append(where, fmt.Sprintf("category = '%s'", p.Category))
	}
	if p.MinAltitude != nil {
		where = append(where, "alt_baro >= "+formatFloat(*p.MinAltitude))
	}
	if p.MaxAltitude != nil {
		where = append(where, "alt_baro <= "+formatFloat(*p.MaxAltitude))
	}
	if p.MinSpeed != nil {
		where = append(where, "gs >= "+formatFloat(*p.MinSpeed))
	}
	if p.MaxSpeed != nil {
		where = append(where, "gs <= "+formatFloat(*p.MaxSpeed))
	}

	return fmt.Sprintf(`SELECT
    category AS aircraft_category,
    COUNT(*) AS total_records,
    AVG(alt_baro) AS avg_barometric_altitude,
    MIN(alt_baro) AS min_barometric_altitude,
    MAX(alt_baro) AS max_barometric_altitude,
    STDDEV_POP(alt_baro) AS altitude_stddev,
    AVG(gs) AS avg_ground_speed,
    MIN(gs) AS min_ground_speed,
    MAX(gs) AS max_ground_speed,
    STDDEV_POP(gs) AS speed_stddev,
    COUNT(DISTINCT hex) AS unique_aircraft_count
FROM %s
WHERE %s
GROUP BY category
ORDER BY total_records DESC`, ProcessedTable, strings.Join(where, "\n  AND ")), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
