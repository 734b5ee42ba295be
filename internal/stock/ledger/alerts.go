package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// AlertKind names an alert tier.
type AlertKind string

const (
	AlertOutOfStock    AlertKind = "out_of_stock"
	AlertLowStock      AlertKind = "low_stock"
	AlertAgedStock     AlertKind = "aged_stock"
	AlertExpired       AlertKind = "expired"
	AlertExpiryUrgent  AlertKind = "expiry_urgent"
	AlertExpiryWarning AlertKind = "expiry_warning"
)

// Priority returns the sort rank of the kind; lower is more pressing.
func (k AlertKind) Priority() int {
	switch k {
	case AlertOutOfStock:
		return 1
	case AlertLowStock:
		return 2
	case AlertAgedStock:
		return 3
	case AlertExpired:
		return 4
	case AlertExpiryUrgent:
		return 5
	case AlertExpiryWarning:
		return 6
	}
	return 99
}

// DefaultLowStockThreshold is the remaining count at or below which a dish is low.
const DefaultLowStockThreshold = 3

// AlertOptions tunes alert classification.
type AlertOptions struct {
	LowStockThreshold int
}

// Alert is a derived stock or expiry warning.
type Alert struct {
	Kind           AlertKind       `json:"kind"`
	Priority       int             `json:"priority"`
	DishName       string          `json:"dish_name,omitempty"`
	Location       domain.Location `json:"location,omitempty"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	Portions       int             `json:"portions"`
	HoursRemaining *float64        `json:"hours_remaining,omitempty"`
	Message        string          `json:"message"`
}

// Key identifies an alert across scans, ignoring counts that drift.
func (a Alert) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", a.Kind, a.DishName, a.Location, a.BatchNumber)
}

// ComputeAlerts classifies reconstructions and unprocessed prep events into
// alerts sorted by priority. Ties keep insertion order: reconstructions in
// the order given, then the single aged-stock alert, then preps in order.
func ComputeAlerts(recons []Reconstruction, preps []domain.PrepEvent, now time.Time, opts AlertOptions) []Alert {
	threshold := opts.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}

	alerts := []Alert{}
	oldPortions := 0

	for _, r := range recons {
		oldPortions += r.TotalOldStock
		switch {
		case r.TotalRemaining == 0 && r.TotalReceivedToday > 0:
			alerts = append(alerts, Alert{
				Kind:     AlertOutOfStock,
				DishName: r.DishName,
				Location: r.Location,
				Message:  fmt.Sprintf("%s is out of stock at %s", r.DishName, r.Location),
			})
		case r.TotalRemaining > 0 && r.TotalRemaining <= threshold:
			alerts = append(alerts, Alert{
				Kind:     AlertLowStock,
				DishName: r.DishName,
				Location: r.Location,
				Portions: r.TotalRemaining,
				Message:  fmt.Sprintf("%s is low at %s: %d portions left", r.DishName, r.Location, r.TotalRemaining),
			})
		}
	}

	if oldPortions > 0 {
		alerts = append(alerts, Alert{
			Kind:     AlertAgedStock,
			Portions: oldPortions,
			Message:  fmt.Sprintf("%d portions of old stock to sell first", oldPortions),
		})
	}

	for _, p := range preps {
		if p.Processed || p.ExpiryDate == nil {
			continue
		}
		reading := Status(p.ExpiryDate, now)
		var kind AlertKind
		switch reading.Status {
		case ExpiryExpired:
			kind = AlertExpired
		case ExpiryUrgent:
			kind = AlertExpiryUrgent
		case ExpiryWarning:
			kind = AlertExpiryWarning
		default:
			continue
		}
		alerts = append(alerts, Alert{
			Kind:           kind,
			DishName:       p.DishName,
			BatchNumber:    p.BatchNumber,
			Portions:       p.TotalPortions,
			HoursRemaining: reading.HoursRemaining,
			Message:        expiryMessage(p, reading),
		})
	}

	for i := range alerts {
		alerts[i].Priority = alerts[i].Kind.Priority()
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority < alerts[j].Priority
	})
	return alerts
}

func expiryMessage(p domain.PrepEvent, r ExpiryReading) string {
	if r.Status == ExpiryExpired {
		return fmt.Sprintf("%s batch %s has expired", p.DishName, p.BatchNumber)
	}
	return fmt.Sprintf("%s batch %s expires in %.0fh", p.DishName, p.BatchNumber, *r.HoursRemaining)
}
