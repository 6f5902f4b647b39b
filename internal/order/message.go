package order

import (
	"fmt"
	"strings"

	"weldzone/storefront/internal/cart"
	"weldzone/storefront/internal/domain"

	"github.com/shopspring/decimal"
)

const separator = "--------------------------"

// Template holds the store specific text of the order message
type Template struct {
	StoreName  string
	Currency   string
	CatalogURL string
}

// BuildMessage renders items as the WhatsApp order text. The output only
// depends on its arguments, so equal carts give byte-identical messages.
func BuildMessage(items []domain.CartItem, tmpl Template, f Formatter) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🛒 *¡Nuevo pedido desde %s!*\n\n", tmpl.StoreName)

	for i, it := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "🧰 *%d. %s*\n", i+1, strings.ToUpper(it.Name))
		fmt.Fprintf(&b, "💵 Precio: $%s %s\n", f.Format(decimal.NewFromFloat(it.Price)), tmpl.Currency)
		fmt.Fprintf(&b, "📦 Cantidad: %d\n", it.Quantity)
		fmt.Fprintf(&b, "💰 Subtotal: $%s %s", f.Format(cart.LineTotal(it)), tmpl.Currency)
	}

	b.WriteString("\n\n" + separator + "\n")
	fmt.Fprintf(&b, "💸 *Total a pagar:* $%s %s\n", f.Format(cart.Total(items)), tmpl.Currency)
	b.WriteString(separator + "\n\n")

	b.WriteString("🚚 *Método de entrega:* A convenir con el vendedor\n")
	b.WriteString("📞 *Atención personalizada vía WhatsApp*\n\n")
	if tmpl.CatalogURL != "" {
		fmt.Fprintf(&b, "🧾 *Catálogo completo:* %s\n\n", tmpl.CatalogURL)
	}
	b.WriteString("📲 *Por favor envíame tu nombre y dirección para confirmar tu pedido.*\n\n")
	fmt.Fprintf(&b, "🔧 _Mensaje automático generado desde %s_", tmpl.StoreName)

	return b.String()
}
