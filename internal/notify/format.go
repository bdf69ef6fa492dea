package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mars-shop.git/internal/orders"
)

// FormatTND renders an amount the way Tunisian prices are written:
// 3 decimals after a comma, thousands split by spaces, ",000" dropped.
func FormatTND(d decimal.Decimal) string {
	s := d.Abs().StringFixed(3)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(3).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if frac != "000" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	b.WriteString(" TND")
	return b.String()
}

// LoadLocation resolves the timezone used for order dates, falling back to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// OrderMessage builds the HTML text sent for a new order. Customer details come
// from the account when there is one, from the checkout form otherwise.
func OrderMessage(o orders.Order, customer *orders.Contact, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	e := html.EscapeString

	var b strings.Builder
	b.WriteString("🛒 <b>Nouvelle Commande Reçue!</b>\n\n")
	b.WriteString("📋 <b>Détails de la commande:</b>\n")
	fmt.Fprintf(&b, "• ID: #%d\n", o.ID)
	fmt.Fprintf(&b, "• Statut: %s\n", o.Status)
	fmt.Fprintf(&b, "• Date: %s\n", o.CreatedAt.In(loc).Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "• Total: <b>%s</b>\n\n", FormatTND(o.Total))

	b.WriteString("👤 <b>Informations client:</b>\n")
	name, phone, address := o.CustomerName, o.CustomerPhone, o.CustomerAddress
	if customer != nil {
		name, phone, address = customer.Name, customer.Phone, customer.Address
	}
	if name != "" || customer != nil {
		fmt.Fprintf(&b, "• Nom: %s\n", e(name))
	}
	if customer != nil {
		fmt.Fprintf(&b, "• Email: %s\n", e(customer.Email))
	}
	if phone != "" {
		fmt.Fprintf(&b, "• Téléphone: %s\n", e(phone))
	}
	if address != "" {
		fmt.Fprintf(&b, "• Adresse: %s\n", e(address))
	}

	if len(o.Items) > 0 {
		b.WriteString("\n📦 <b>Articles commandés:</b>\n")
		for i, it := range o.Items {
			fmt.Fprintf(&b, "%d. <b>%s</b>\n", i+1, e(it.Name))
			fmt.Fprintf(&b, "   Quantité: <b>%d</b> × %s = %s\n", it.Quantity, FormatTND(it.Price), FormatTND(it.LineTotal()))
			if c := it.Color.String(); c != "" {
				fmt.Fprintf(&b, "   Couleur: <b>%s</b>\n", e(c))
			}
			if it.Size != "" {
				fmt.Fprintf(&b, "   Taille: <b>%s</b>\n", e(it.Size))
			}
			b.WriteString("\n")
		}
	}

	if o.Notes != "" {
		fmt.Fprintf(&b, "📝 <b>Notes:</b>\n%s\n\n", e(o.Notes))
	}
	return b.String()
}
