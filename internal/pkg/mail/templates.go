package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

const paymentConfirmationTemplate = "payment_confirmation"

var (
	engine     *html.Engine
	engineOnce sync.Once
	engineErr  error
)

func templateEngine() (*html.Engine, error) {
	engineOnce.Do(func() {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			engineErr = err
			return
		}
		engine = html.NewFileSystem(http.FS(sub), ".html")
		engineErr = engine.Load()
	})
	return engine, engineErr
}

// PaymentConfirmation is the data of the payment confirmation email.
type PaymentConfirmation struct {
	Email          string
	Name           string
	Plan           string
	Amount         float64
	PaymentMethod  string
	SubscriptionID string
}

// RenderPaymentConfirmation builds the confirmation message for p.
func RenderPaymentConfirmation(p PaymentConfirmation) (Message, error) {
	e, err := templateEngine()
	if err != nil {
		return Message{}, fmt.Errorf("load mail templates: %w", err)
	}
	var buf bytes.Buffer
	err = e.Render(&buf, paymentConfirmationTemplate, map[string]interface{}{
		"Name":           p.Name,
		"Plan":           planLabel(p.Plan),
		"Amount":         strconv.FormatFloat(p.Amount, 'f', 2, 64),
		"PaymentMethod":  p.PaymentMethod,
		"SubscriptionID": p.SubscriptionID,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render payment confirmation: %w", err)
	}
	return Message{
		To:       p.Email,
		Subject:  "Pagamento confirmado - Titan",
		HTMLBody: buf.String(),
		Tag:      "payment-confirmation",
	}, nil
}

func planLabel(plan string) string {
	switch plan {
	case "annual":
		return "Anual"
	case "monthly":
		return "Mensal"
	default:
		return plan
	}
}
