package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

func formatTons(v float64) string {
	return strconv.FormatFloat(models.RoundTons(v), 'f', -1, 64)
}

func createdMessage(o models.Order, a models.Allocation) string {
	return fmt.Sprintf("Loading planned for %s: %s t of %s (%s)",
		a.LoadingDate, formatTons(a.RequiredTons), o.Cargo, o.Route())
}

func shippedMessage(o models.Order, a models.Allocation, actor string, tons float64) string {
	return fmt.Sprintf("%s shipped %s t of %s (%s) for %s, %s t remaining",
		actor, formatTons(tons), o.Cargo, o.Route(), a.LoadingDate, formatTons(a.RemainingTons()))
}

func completedMessage(o models.Order, a models.Allocation, actor string) string {
	return fmt.Sprintf("%s completed loading of %s t of %s (%s) for %s",
		actor, formatTons(a.RequiredTons), o.Cargo, o.Route(), a.LoadingDate)
}

func createdSummary(o models.Order, a models.Allocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New loading on %s\n", a.LoadingDate)
	fmt.Fprintf(&b, "Route: %s\n", o.Route())
	fmt.Fprintf(&b, "Cargo: %s\n", o.Cargo)
	fmt.Fprintf(&b, "Required: %s t", formatTons(a.RequiredTons))
	if a.ClientPrice != nil {
		fmt.Fprintf(&b, "\nClient price: %s", formatTons(*a.ClientPrice))
	}
	if a.OurPrice != nil {
		fmt.Fprintf(&b, "\nOur price: %s", formatTons(*a.OurPrice))
	}
	if a.Comment != "" {
		fmt.Fprintf(&b, "\nComment: %s", a.Comment)
	}
	return b.String()
}

func shippedSummary(o models.Order, a models.Allocation, actor string, tons float64) string {
	return fmt.Sprintf("Shipment on %s\nRoute: %s\nCargo: %s\n%s shipped %s t\nShipped: %s of %s t\nRemaining: %s t",
		a.LoadingDate, o.Route(), o.Cargo, actor, formatTons(tons),
		formatTons(a.ShippedTons), formatTons(a.RequiredTons), formatTons(a.RemainingTons()))
}

func completedSummary(o models.Order, a models.Allocation, actor string, tons float64) string {
	return fmt.Sprintf("Loading completed on %s\nRoute: %s\nCargo: %s\nLast shipment: %s t by %s\nTotal: %s t",
		a.LoadingDate, o.Route(), o.Cargo, formatTons(tons), actor, formatTons(a.ShippedTons))
}
