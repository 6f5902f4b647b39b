package order

import (
	"context"

	"weldzone/storefront/internal/cart"
	"weldzone/storefront/internal/domain"
	"weldzone/storefront/internal/siteconfig"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ContactSource provides the current site configuration
type ContactSource interface {
	Get() siteconfig.Snapshot
}

// Result is a placed order ready to be opened in WhatsApp
type Result struct {
	Link    string          `json:"link"`
	Message string          `json:"message"`
	Total   decimal.Decimal `json:"total"`
}

// Checkout turns the cart into an order message and link
type Checkout struct {
	cart        *cart.Store
	contacts    ContactSource
	template    Template
	formatter   Formatter
	whatsAppURL string
}

func NewCheckout(store *cart.Store, contacts ContactSource, tmpl Template, f Formatter, whatsAppURL string) *Checkout {
	return &Checkout{
		cart:        store,
		contacts:    contacts,
		template:    tmpl,
		formatter:   f,
		whatsAppURL: whatsAppURL,
	}
}

// Preview renders the message for the current cart without touching it
func (c *Checkout) Preview() Result {
	items := c.cart.Items()
	return Result{
		Message: BuildMessage(items, c.template, c.formatter),
		Total:   cart.Total(items),
	}
}

// Place builds the link for the current cart and empties it in one step, so
// a line added meanwhile is either in the message or still in the cart. An
// empty cart or a missing contact refuses the order and leaves the cart as
// it was.
func (c *Checkout) Place(_ context.Context) (*Result, error) {
	contact := c.contacts.Get().Contact()

	var res *Result
	items, err := c.cart.Drain(func(items []domain.CartItem) error {
		if len(items) == 0 {
			return ErrEmptyCart
		}
		msg := BuildMessage(items, c.template, c.formatter)
		link, err := BuildLink(c.whatsAppURL, contact, msg)
		if err != nil {
			return err
		}
		res = &Result{Link: link, Message: msg, Total: cart.Total(items)}
		return nil
	})
	if err != nil {
		log.Warnf("⚠️ Order refused: %v", err)
		return nil, err
	}

	log.Infof("🛒 Order placed: %d lines, total %s", len(items), res.Total.StringFixed(2))
	return res, nil
}
