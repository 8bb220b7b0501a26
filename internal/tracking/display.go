package tracking

import (
	"fmt"
	"strings"
	"time"

	"pharmacy-dashboard/internal/geo"
	"pharmacy-dashboard/models"
)

// Display holds the strings the rendering surface shows next to the map.
type Display struct {
	Status   string
	Distance string
	ETA      string
}

// etaCalculating is shown while the backend has not produced an ETA yet.
const etaCalculating = "Calculating..."

// Display derives the current display values. Before the first frame it
// returns the waiting placeholder the overlay shows while the stream has not
// produced telemetry (including while reconnecting).
func (s *Session) Display() Display {
	f := s.Latest()
	if f == nil {
		return Display{Status: "Waiting for driver..."}
	}
	return Display{
		Status:   FormatStatus(f.Status),
		Distance: FormatDistance(f.DistanceKM),
		ETA:      FormatETA(f.ETA),
	}
}

// FormatDistance renders kilometers with exactly two decimals and a unit.
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2f km", km)
}

// FormatETA renders a unix-millisecond ETA as a local time of day, or the
// calculating placeholder when absent.
func FormatETA(eta *int64) string {
	if eta == nil {
		return etaCalculating
	}
	return time.UnixMilli(*eta).Local().Format("15:04:05")
}

// FormatStatus case-normalizes a wire status label for display:
// "out_for_delivery" -> "Out For Delivery". The underlying value is kept
// verbatim; only the rendering changes.
func FormatStatus(status string) string {
	words := strings.FieldsFunc(status, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// OverlayCaption summarizes a frame for the map overlay, including the
// straight-line distance to the delivery point when the pharmacy knows it.
func OverlayCaption(f *models.TrackingFrame, destLat, destLng float64, haveDest bool) string {
	if f == nil {
		return "Waiting for driver location..."
	}
	caption := fmt.Sprintf("%s | %s remaining", FormatStatus(f.Status), FormatDistance(f.DistanceKM))
	if haveDest {
		direct := geo.HaversineKM(f.Lat, f.Lng, destLat, destLng)
		caption += fmt.Sprintf(" | %s direct", FormatDistance(direct))
	}
	return caption
}
