package printer

import (
	"fmt"
	"strings"

	"sakupos/backend/internal/domain"
	"sakupos/backend/internal/receiptid"
)

const receiptWidth = 32

// StoreInfo is the display metadata printed on every receipt header/footer.
type StoreInfo struct {
	Name        string
	AddressLine string
	Footer      string
}

// Formatter renders receipts into print jobs. Profit is internal reporting
// data and never appears on the customer-facing output.
type Formatter struct {
	info StoreInfo
}

func NewFormatter(info StoreInfo) *Formatter {
	if info.Name == "" {
		info.Name = "SakuPOS"
	}
	if info.Footer == "" {
		info.Footer = "Terima kasih"
	}
	return &Formatter{info: info}
}

// Format lays out a receipt as line/feed/cut commands.
func (f *Formatter) Format(r domain.Receipt) Job {
	var job Job

	job.Line(center(f.info.Name))
	if f.info.AddressLine != "" {
		job.Line(center(f.info.AddressLine))
	}
	job.Line(separator('='))
	job.Line("No: " + receiptid.Display(r.Token))
	job.Line("Tanggal: " + r.CreatedAt.Format("02/01/06 15:04"))
	if r.PaymentMethod != "" {
		job.Line("Bayar: " + r.PaymentMethod)
	}
	job.Line(separator('-'))

	for _, item := range r.Items {
		job.Line(item.Name)
		qty := fmt.Sprintf("%d x %s", item.Qty, domain.FormatPrice(item.PriceCents))
		if item.FinalPriceCents != nil {
			qty = fmt.Sprintf("%d pcs", item.Qty)
		}
		job.Line(amountLine("  "+qty, domain.FormatPrice(item.LineTotal())))
	}

	job.Line(separator('-'))
	job.Line(amountLine("Subtotal", domain.FormatPrice(r.SubtotalCents)))
	if r.DiscountCents > 0 {
		job.Line(amountLine("Diskon", "-"+domain.FormatPrice(r.DiscountCents)))
	}
	job.Line(amountLine("Total", domain.FormatPrice(r.TotalCents)))
	job.Line(separator('='))
	job.Line(center(f.info.Footer))
	job.Feed()
	job.Feed()
	job.Cut()

	return job
}

// amountLine left-aligns the label and right-aligns the amount within the
// receipt width.
func amountLine(label, amount string) string {
	pad := receiptWidth - len(label) - len(amount)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + amount
}

func center(text string) string {
	if len(text) >= receiptWidth {
		return text
	}
	pad := (receiptWidth - len(text)) / 2
	return strings.Repeat(" ", pad) + text
}

func separator(ch byte) string {
	return strings.Repeat(string(ch), receiptWidth)
}
