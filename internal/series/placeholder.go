package series

import (
	"fmt"
	"time"

	"github.com/lox/solarforecast/internal/ingest"
	"github.com/lox/solarforecast/internal/models"
)

const placeholderDays = 7

// Placeholder stands in for sources without data so reports still show a
// plausible solar profile. Everything it returns is flagged Synthetic and
// nothing is written to disk.
type Placeholder struct {
	sim *ingest.Simulator
	loc *time.Location
	now func() time.Time
}

func NewPlaceholder(sim *ingest.Simulator, loc *time.Location) *Placeholder {
	if loc == nil {
		loc = time.UTC
	}
	return &Placeholder{sim: sim, loc: loc, now: time.Now}
}

func (p *Placeholder) samples(sourceID int64) []models.ProductionSample {
	return p.sim.Generate(sourceID, models.DefaultCapacityKWp, placeholderDays, p.now())
}

// Reporter serves rollups for a series, substituting the placeholder when
// the series is absent or empty.
type Reporter struct {
	placeholder *Placeholder
}

func NewReporter(placeholder *Placeholder) *Reporter {
	return &Reporter{placeholder: placeholder}
}

func (r *Reporter) Summary(s Series) Summary {
	if s.Status != Present {
		sum := Summarize(r.placeholder.samples(s.SourceID), r.placeholder.loc)
		sum.Synthetic = true
		return sum
	}
	return Summarize(s.Samples, s.Location())
}

func (r *Reporter) Daily(s Series) DailyReport {
	if s.Status != Present {
		return DailyReport{Days: Daily(r.placeholder.samples(s.SourceID), r.placeholder.loc), Synthetic: true}
	}
	return DailyReport{Days: Daily(s.Samples, s.Location())}
}

func (r *Reporter) Hourly(s Series, day string) (HourlyReport, error) {
	samples, loc, synthetic := s.Samples, s.Location(), false
	if s.Status != Present {
		if day != "" {
			if _, err := time.Parse(dateLayout, day); err != nil {
				return HourlyReport{}, fmt.Errorf("%w: %q", ErrInvalidDay, day)
			}
		}
		samples, loc, synthetic = r.placeholder.samples(s.SourceID), r.placeholder.loc, true
		// A requested day outside the generated window would be all zeros.
		day = ""
	}
	date, hours, err := Hourly(samples, loc, day)
	if err != nil {
		return HourlyReport{}, err
	}
	return HourlyReport{Date: date, Hours: hours, Synthetic: synthetic}, nil
}
