package notify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/listing"
)

const recordTimeLayout = "2006-01-02 15:04"

// FormatMessage renders the chat text announcing l.
func FormatMessage(l *listing.Listing) string {
	var buf bytes.Buffer

	price := l.Price
	if price == "" {
		price = "price n/a"
	}
	buf.WriteString(price)
	buf.WriteString("\n")

	buf.WriteString(Brief(l))
	buf.WriteString("\n")

	if place := joinNonEmpty(", ", l.City, l.District, l.Address); place != "" {
		buf.WriteString(place)
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "elevator: %s, parking: %s, balcony: %s\n",
		yesNo(l.ElevatorSignal()), yesNo(l.ParkingSignal()), yesNo(l.BalconySignal()))

	fmt.Fprintf(&buf, "posted %s\n", l.PostedAt.Format(listing.PostedAtLayout))
	buf.WriteString(l.URL)

	return buf.String()
}

// Brief is the one-line summary kept alongside the durable record.
func Brief(l *listing.Listing) string {
	parts := make([]string, 0, 4)

	if l.Rooms > 0 {
		parts = append(parts, fmt.Sprintf("%d rooms", l.Rooms))
	}
	if l.Area > 0 {
		parts = append(parts, fmt.Sprintf("%g m²", l.Area))
	}
	if l.Floor != nil {
		parts = append(parts, fmt.Sprintf("floor %d", *l.Floor))
	}
	if l.DistanceFromTarget != nil {
		parts = append(parts, formatDistance(*l.DistanceFromTarget))
	}

	if len(parts) == 0 {
		return "no details"
	}
	return strings.Join(parts, ", ")
}

// NewRecord builds the durable record written before a notification is sent.
func NewRecord(l *listing.Listing) database.Record {
	return database.Record{
		ID:       l.ID,
		PostedAt: l.PostedAt.Format(recordTimeLayout),
		Price:    l.Price,
		URL:      l.URL,
		Brief:    Brief(l),
	}
}

func formatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m away", meters)
	}
	return fmt.Sprintf("%.1f km away", float64(meters)/1000)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinNonEmpty(sep string, values ...string) string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
