package entity

import (
	"math"

	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var (
	invoiceStatuses = []string{"draft", "sent", "partially_paid", "paid", "overdue", "void"}
	paymentTerms    = []string{"Due on receipt", "Net 15", "Net 30", "Net 60", OptionCustom}
)

// Invoice is a customer invoice from /api/invoices.
type Invoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	IssueDate     string  `json:"issue_date"`
	DueDate       string  `json:"due_date"`
	PaymentTerms  string  `json:"payment_terms,omitempty"`
	Total         float64 `json:"total"`
	AmountPaid    float64 `json:"amount_paid"`
	Status        string  `json:"status"`
	Notes         string  `json:"notes,omitempty"`
}

// Balance is the unpaid amount, never negative.
func (i Invoice) Balance() float64 {
	return math.Max(0, i.Total-i.AmountPaid)
}

// PercentPaid is AmountPaid as a share of Total, 0-100.
func (i Invoice) PercentPaid() float64 {
	if i.Total <= 0 {
		return 0
	}
	return math.Min(100, i.AmountPaid/i.Total*100)
}

// InvoiceForm is the create/edit form.
type InvoiceForm struct {
	InvoiceNumber      string `form:"invoiceNumber"`
	CustomerName       string `form:"customerName"`
	CustomerEmail      string `form:"customerEmail"`
	IssueDate          string `form:"issueDate"`
	DueDate            string `form:"dueDate"`
	PaymentTerms       string `form:"paymentTerms"`
	PaymentTermsCustom string `form:"paymentTermsCustom"`
	Total              string `form:"total"`
	Notes              string `form:"notes"`
}

// ValidateInvoice runs the local rules.
func ValidateInvoice(f InvoiceForm) validate.Errors {
	r := validate.New().
		Required("invoiceNumber", "Invoice Number", f.InvoiceNumber).
		Required("customerName", "Customer Name", f.CustomerName).
		Email("customerEmail", f.CustomerEmail).
		Required("issueDate", "Issue Date", f.IssueDate).
		Date("issueDate", "Issue Date", f.IssueDate).
		Required("dueDate", "Due Date", f.DueDate).
		Date("dueDate", "Due Date", f.DueDate).
		DateAfter("dueDate", "Due date must be after issue date", f.DueDate, f.IssueDate).
		Required("total", "Total", f.Total).
		Positive("total", "Total", f.Total)
	if f.PaymentTerms == OptionCustom {
		r.Required("paymentTermsCustom", "Payment Terms", f.PaymentTermsCustom)
	}
	return r.Errors()
}

// Invoices returns the invoice definition.
func Invoices() Definition[Invoice, InvoiceForm] {
	fm := fieldmap.FromStruct[InvoiceForm]()
	payable := func(i Invoice) bool {
		return i.Status == "sent" || i.Status == "partially_paid" || i.Status == "overdue"
	}
	return Definition[Invoice, InvoiceForm]{
		Info: Info{
			Key:         "invoices",
			ListKey:     "invoices",
			Group:       GroupAccounting,
			Label:       "Invoice",
			Plural:      "Invoices",
			Description: "Customer invoices and payments",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: invoiceStatuses},
				{Name: "customer_name", Label: "Customer"},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "invoiceNumber", Label: "Invoice Number", Type: FieldText, Required: true},
			{Name: "customerName", Label: "Customer Name", Type: FieldText, Required: true},
			{Name: "customerEmail", Label: "Customer Email", Type: FieldEmail},
			{Name: "issueDate", Label: "Issue Date", Type: FieldDate, Required: true},
			{Name: "dueDate", Label: "Due Date", Type: FieldDate, Required: true},
			{Name: "paymentTerms", Label: "Payment Terms", Type: FieldEnum, Options: paymentTerms},
			{Name: "paymentTermsCustom", Label: "Custom Terms", Type: FieldText, Help: "Used when Payment Terms is Custom"},
			{Name: "total", Label: "Total", Type: FieldNumeric, Required: true},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		ID:       func(i Invoice) string { return i.ID },
		NewForm:  func() InvoiceForm { return InvoiceForm{PaymentTerms: "Net 30"} },
		Validate: ValidateInvoice,
		Payload: func(f InvoiceForm) any {
			body := wirePayload(fm, f, "total")
			body["payment_terms"] = JoinOption(f.PaymentTerms, f.PaymentTermsCustom, OptionCustom)
			delete(body, "payment_terms_custom")
			return body
		},
		FromRecord: func(i Invoice) InvoiceForm {
			terms, custom := SplitOption(i.PaymentTerms, paymentTerms, OptionCustom)
			return InvoiceForm{
				InvoiceNumber:      i.InvoiceNumber,
				CustomerName:       i.CustomerName,
				CustomerEmail:      i.CustomerEmail,
				IssueDate:          dateOnly(i.IssueDate),
				DueDate:            dateOnly(i.DueDate),
				PaymentTerms:       terms,
				PaymentTermsCustom: custom,
				Total:              numberText(i.Total),
				Notes:              i.Notes,
			}
		},
		Columns: []table.Column[Invoice]{
			{Header: "Invoice", Accessor: table.Field[Invoice]("invoice_number")},
			{Header: "Customer", Accessor: table.Field[Invoice]("customer_name")},
			{Header: "Due", Accessor: table.Func(func(i Invoice) any { return dateOnly(i.DueDate) })},
			moneyColumn("Total", func(i Invoice) float64 { return i.Total }),
			moneyColumn("Balance", Invoice.Balance),
			{Header: "Paid", Accessor: table.Func(func(i Invoice) any { return i.PercentPaid() }),
				Cell: func(i Invoice) string { return Percent(i.PercentPaid()) }},
			statusColumn[Invoice]("status", map[string]table.Variant{
				"draft":          table.VariantSecondary,
				"sent":           table.VariantDefault,
				"partially_paid": table.VariantWarning,
				"paid":           table.VariantSuccess,
				"overdue":        table.VariantDestructive,
				"void":           table.VariantOutline,
			}),
		},
		Actions: []SideAction[Invoice]{
			{Name: "send", Label: "Send", Icon: "mail",
				Applies: func(i Invoice) bool { return i.Status == "draft" }},
			{Name: "record-payment", Label: "Record Payment", Icon: "credit-card", Applies: payable},
			{Name: "void", Label: "Void", Icon: "ban", Variant: table.ActionDestructive,
				Applies: func(i Invoice) bool { return i.Status != "void" && i.Status != "paid" }},
		},
	}
}

func init() {
	Register(Invoices().Info)
}
