package ledger

import (
	"time"

	"github.com/prepline/prepline-backend/internal/stock/domain"
)

// ClosingSummary describes one shop's end-of-day close.
type ClosingSummary struct {
	Location domain.Location `json:"location"`
	ClosedAt time.Time       `json:"closed_at"`
	// RecordsClosed counts every open record stamped end-of-day.
	RecordsClosed int `json:"records_closed"`
	// CarriedForward counts closed records with portions left; they become
	// tomorrow's old stock.
	CarriedForward  int `json:"carried_forward"`
	CarriedPortions int `json:"carried_portions"`
	// ZeroRemaining counts closed records that sold out and carry nothing.
	ZeroRemaining int `json:"zero_remaining"`
}

// CloseShop stamps every open record at loc as end-of-day at now. It returns
// the updated copies, not the inputs, with their version bumped.
func CloseShop(records []domain.SalesRecord, loc domain.Location, now time.Time) ([]domain.SalesRecord, ClosingSummary) {
	summary := ClosingSummary{Location: loc, ClosedAt: now}
	var closed []domain.SalesRecord

	for _, sr := range records {
		if sr.Location != loc || !sr.Open() {
			continue
		}
		closedAt := now
		sr.EndOfDay = true
		sr.ClosedDate = &closedAt
		sr.UpdatedAt = now
		sr.Version++
		closed = append(closed, sr)

		summary.RecordsClosed++
		if sr.RemainingPortions > 0 {
			summary.CarriedForward++
			summary.CarriedPortions += sr.RemainingPortions
		} else {
			summary.ZeroRemaining++
		}
	}
	return closed, summary
}
