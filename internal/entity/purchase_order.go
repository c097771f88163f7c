package entity

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var purchaseOrderStatuses = []string{"draft", "submitted", "approved", "received", "cancelled"}

// LineItem is one purchase order line.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// PurchaseOrder is the wire record of /api/purchase-orders.
type PurchaseOrder struct {
	ID            string     `json:"id"`
	PONumber      string     `json:"po_number"`
	SupplierName  string     `json:"supplier_name"`
	SupplierEmail string     `json:"supplier_email,omitempty"`
	OrderDate     string     `json:"order_date"`
	ExpectedDate  string     `json:"expected_date,omitempty"`
	Status        string     `json:"status"`
	Items         []LineItem `json:"items"`
	Total         float64    `json:"total"`
	Notes         string     `json:"notes,omitempty"`
}

// LineItems is the editable line list of a purchase order form. As text it
// is one "description | quantity | unit price" line per item.
type LineItems []LineItem

// MarshalText renders one line per item.
func (l LineItems) MarshalText() ([]byte, error) {
	lines := make([]string, len(l))
	for i, it := range l {
		lines[i] = fmt.Sprintf("%s | %s | %s", it.Description, numberText(it.Quantity), numberText(it.UnitPrice))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// UnmarshalText parses the MarshalText format. Blank lines are skipped and
// subtotals are computed.
func (l *LineItems) UnmarshalText(text []byte) error {
	var items LineItems
	for n, line := range strings.Split(string(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			return fmt.Errorf("line %d: expected \"description | quantity | unit price\"", n+1)
		}
		qty, ok := validate.ParseNumber(parts[1])
		if !ok {
			return fmt.Errorf("line %d: quantity must be a valid number", n+1)
		}
		price, ok := validate.ParseNumber(parts[2])
		if !ok {
			return fmt.Errorf("line %d: unit price must be a valid number", n+1)
		}
		items = append(items, LineItem{
			Description: strings.TrimSpace(parts[0]),
			Quantity:    qty,
			UnitPrice:   price,
			Subtotal:    subtotal(qty, price),
		})
	}
	*l = items
	return nil
}

// PurchaseOrderForm is the create/edit form.
type PurchaseOrderForm struct {
	SupplierName  string    `form:"supplierName"`
	SupplierEmail string    `form:"supplierEmail"`
	OrderDate     string    `form:"orderDate"`
	ExpectedDate  string    `form:"expectedDate"`
	Notes         string    `form:"notes"`
	Items         LineItems `form:"items"`
}

// Line item fields accepted by UpdateItem.
const (
	ItemDescription = "description"
	ItemQuantity    = "quantity"
	ItemUnitPrice   = "unitPrice"
)

// AddItem appends an empty line.
func (f *PurchaseOrderForm) AddItem() {
	f.Items = append(slices.Clone(f.Items), LineItem{Quantity: 1})
}

// RemoveItem drops line i.
func (f *PurchaseOrderForm) RemoveItem(i int) error {
	if i < 0 || i >= len(f.Items) {
		return fmt.Errorf("line item %d out of range", i)
	}
	f.Items = slices.Delete(slices.Clone(f.Items), i, i+1)
	return nil
}

// UpdateItem sets one field of line i. Changing the quantity or unit price
// recomputes that line's subtotal; other fields are left untouched. The
// items slice is copied so earlier snapshots of the form are not affected.
func (f *PurchaseOrderForm) UpdateItem(i int, field, value string) error {
	if i < 0 || i >= len(f.Items) {
		return fmt.Errorf("line item %d out of range", i)
	}
	items := slices.Clone(f.Items)
	it := items[i]
	switch field {
	case ItemDescription:
		it.Description = value
	case ItemQuantity, ItemUnitPrice:
		n, ok := validate.ParseNumber(value)
		if !ok && strings.TrimSpace(value) != "" {
			return fmt.Errorf("%s must be a valid number", field)
		}
		if field == ItemQuantity {
			it.Quantity = n
		} else {
			it.UnitPrice = n
		}
		it.Subtotal = subtotal(it.Quantity, it.UnitPrice)
	default:
		return fmt.Errorf("unknown line item field %q", field)
	}
	items[i] = it
	f.Items = items
	return nil
}

// Total sums the line subtotals.
func (f PurchaseOrderForm) Total() float64 {
	var total float64
	for _, it := range f.Items {
		total += it.Subtotal
	}
	return roundCents(total)
}

func subtotal(qty, price float64) float64 {
	return roundCents(qty * price)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidatePurchaseOrder runs the local rules.
func ValidatePurchaseOrder(f PurchaseOrderForm) validate.Errors {
	r := validate.New().
		Required("supplierName", "Supplier", f.SupplierName).
		Email("supplierEmail", f.SupplierEmail).
		Required("orderDate", "Order Date", f.OrderDate).
		Date("orderDate", "Order Date", f.OrderDate).
		Date("expectedDate", "Expected Date", f.ExpectedDate).
		DateAfter("expectedDate", "Expected date must be after order date", f.ExpectedDate, f.OrderDate).
		Check("items", len(f.Items) > 0, "At least one line item is required")
	for i, it := range f.Items {
		r.Check("items", strings.TrimSpace(it.Description) != "", fmt.Sprintf("Line %d: description is required", i+1))
		r.Check("items", it.Quantity > 0, fmt.Sprintf("Line %d: quantity must be greater than zero", i+1))
		r.Check("items", it.UnitPrice >= 0, fmt.Sprintf("Line %d: unit price cannot be negative", i+1))
	}
	return r.Errors()
}

// PurchaseOrders returns the purchase order definition.
func PurchaseOrders() Definition[PurchaseOrder, PurchaseOrderForm] {
	fm := fieldmap.FromStruct[PurchaseOrderForm]()
	return Definition[PurchaseOrder, PurchaseOrderForm]{
		Info: Info{
			Key:         "purchase-orders",
			ListKey:     "purchase_orders",
			Group:       GroupInventory,
			Label:       "Purchase Order",
			Plural:      "Purchase Orders",
			Description: "Supplier orders and receiving",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: purchaseOrderStatuses},
				{Name: "supplier_name", Label: "Supplier"},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "supplierName", Label: "Supplier", Type: FieldText, Required: true},
			{Name: "supplierEmail", Label: "Supplier Email", Type: FieldEmail},
			{Name: "orderDate", Label: "Order Date", Type: FieldDate, Required: true},
			{Name: "expectedDate", Label: "Expected Date", Type: FieldDate},
			{Name: "items", Label: "Line Items", Type: FieldLines, Required: true,
				Help: "One item per line: description | quantity | unit price"},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		ID: func(p PurchaseOrder) string { return p.ID },
		NewForm: func() PurchaseOrderForm {
			return PurchaseOrderForm{}
		},
		Validate: ValidatePurchaseOrder,
		Payload: func(f PurchaseOrderForm) any {
			body := wirePayload(fm, f)
			items := []LineItem(f.Items)
			if items == nil {
				items = []LineItem{}
			}
			body["items"] = items
			body["total"] = f.Total()
			return body
		},
		FromRecord: func(p PurchaseOrder) PurchaseOrderForm {
			return PurchaseOrderForm{
				SupplierName:  p.SupplierName,
				SupplierEmail: p.SupplierEmail,
				OrderDate:     dateOnly(p.OrderDate),
				ExpectedDate:  dateOnly(p.ExpectedDate),
				Notes:         p.Notes,
				Items:         LineItems(slices.Clone(p.Items)),
			}
		},
		Columns: []table.Column[PurchaseOrder]{
			{Header: "PO", Accessor: table.Field[PurchaseOrder]("po_number")},
			{Header: "Supplier", Accessor: table.Field[PurchaseOrder]("supplier_name")},
			{Header: "Ordered", Accessor: table.Func(func(p PurchaseOrder) any { return dateOnly(p.OrderDate) })},
			{Header: "Lines", Accessor: table.Func(func(p PurchaseOrder) any { return len(p.Items) })},
			moneyColumn("Total", func(p PurchaseOrder) float64 { return p.Total }),
			statusColumn[PurchaseOrder]("status", map[string]table.Variant{
				"draft":     table.VariantSecondary,
				"submitted": table.VariantDefault,
				"approved":  table.VariantSuccess,
				"received":  table.VariantOutline,
				"cancelled": table.VariantDestructive,
			}),
		},
		Actions: []SideAction[PurchaseOrder]{
			{Name: "submit", Label: "Submit", Icon: "send",
				Applies: func(p PurchaseOrder) bool { return p.Status == "draft" }},
			{Name: "approve", Label: "Approve", Icon: "check",
				Applies: func(p PurchaseOrder) bool { return p.Status == "submitted" }},
			{Name: "receive", Label: "Mark Received", Icon: "package",
				Applies: func(p PurchaseOrder) bool { return p.Status == "approved" }},
			{Name: "cancel", Label: "Cancel", Icon: "x", Variant: table.ActionDestructive,
				Applies: func(p PurchaseOrder) bool { return p.Status == "draft" || p.Status == "submitted" }},
		},
	}
}

func init() {
	Register(PurchaseOrders().Info)
}
