// Package export writes visible ISS passes as an iCalendar file.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"issvis/internal/finder"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//issvis//EN"

// uidNamespace scopes the name-based UIDs of exported passes.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.open-notify.org/iss-pass"))

// WriteICS encodes every visible pass in results as a VEVENT and returns how
// many were written. Re-exporting the same pass yields the same UID.
func WriteICS(w io.Writer, results []*finder.Result, stamp time.Time) (int, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	count := 0
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		for _, p := range res.Classification.Visible {
			ve := ical.NewEvent()
			ve.Props.SetText(ical.PropUID, passUID(res.Event.ID, p.Risetime))
			ve.Props.SetText(ical.PropSummary, fmt.Sprintf("ISS pass during %s", res.Event.Summary))
			ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
			ve.Props.SetDateTime(ical.PropDateTimeStart, p.Risetime.UTC())
			ve.Props.SetDateTime(ical.PropDateTimeEnd, p.Settime().UTC())
			if res.Event.Location != "" {
				ve.Props.SetText(ical.PropLocation, res.Event.Location)
			}
			if res.Coordinates != nil {
				ve.Props.SetText(ical.PropDescription, fmt.Sprintf("Visible for %s at %.4f, %.4f",
					p.Duration, res.Coordinates.Latitude, res.Coordinates.Longitude))
			}
			cal.Children = append(cal.Children, ve.Component)
			count++
		}
	}

	if count == 0 {
		// An empty VCALENDAR is not valid iCalendar.
		return 0, nil
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("failed to encode passes to iCal format: %w", err)
	}
	return count, nil
}

func passUID(eventID string, rise time.Time) string {
	name := eventID + "/" + strconv.FormatInt(rise.Unix(), 10)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}
