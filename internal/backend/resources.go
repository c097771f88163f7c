package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

// Resources returns the rules of every entity the backend serves.
func Resources() []*Resource {
	return []*Resource{
		employees(),
		departments(),
		leaveRequests(),
		accounts(),
		journalEntries(),
		invoices(),
		purchaseOrders(),
	}
}

func info(key string) entity.Info {
	i, ok := entity.Get(key)
	if !ok {
		panic(fmt.Sprintf("backend: entity %q is not registered", key))
	}
	return i
}

// nameOf sets target to a display name of the related record, if found.
func nameOf(ctx context.Context, l Lookup, rec Record, kind, idField, target string, name func(Record) string) {
	id := rec.String(idField)
	if id == "" {
		return
	}
	if rel := l.Find(ctx, kind, id); rel != nil {
		rec[target] = name(rel)
	}
}

func fullName(r Record) string { return r.String("first_name") + " " + r.String("last_name") }

func accountName(r Record) string { return r.String("code") + " " + r.String("name") }

func employees() *Resource {
	return &Resource{
		Info:     info("employees"),
		Search:   []string{"first_name", "last_name", "email", "employee_number", "position"},
		Filters:  []string{"status", "employment_type", "department_id"},
		Required: []string{"first_name", "last_name", "email", "employment_type", "status", "hire_date"},
		Emails:   []string{"email"},
		Numbers:  []string{"salary"},
		Dates:    []string{"hire_date"},
		Enums: map[string][]string{
			"employment_type": {"full_time", "part_time", "contract", "intern"},
			"status":          {"active", "on_leave", "terminated"},
		},
		Unique:   []string{"email", "employee_number"},
		Sequence: &Sequence{Field: "employee_number", Prefix: "EMP-"},
		Defaults: Record{"status": "active", "employment_type": "full_time", "salary": 0.0},
		Check: func(ctx context.Context, l Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			if rec.Number("salary") < 0 {
				errs.Add("salary", "The salary must be at least 0.")
			}
			if id := rec.String("department_id"); id != "" && l.Find(ctx, "departments", id) == nil {
				errs.Add("department_id", "The selected department id is invalid.")
			}
			return errs
		},
		Expand: func(ctx context.Context, l Lookup, rec Record) {
			nameOf(ctx, l, rec, "departments", "department_id", "department_name",
				func(d Record) string { return d.String("name") })
		},
		Actions: map[string]Transition{
			"terminate": {
				Allowed: fromStatus("active", "on_leave"),
				Denied:  "This employee has already been terminated.",
				Apply:   setStatus("terminated", ""),
				Message: "Employee terminated successfully",
			},
		},
	}
}

func departments() *Resource {
	return &Resource{
		Info:     info("departments"),
		Search:   []string{"code", "name", "description"},
		Filters:  []string{"status"},
		Required: []string{"code", "name"},
		Numbers:  []string{"budget"},
		Enums:    map[string][]string{"status": {"active", "inactive"}},
		Unique:   []string{"code", "name"},
		Defaults: Record{"status": "active"},
		Check: func(ctx context.Context, l Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			if !rec.Blank("budget") && rec.Number("budget") < 0 {
				errs.Add("budget", "The budget must be at least 0.")
			}
			if id := rec.String("manager_id"); id != "" && l.Find(ctx, "employees", id) == nil {
				errs.Add("manager_id", "The selected manager id is invalid.")
			}
			return errs
		},
		DeleteGuard: func(ctx context.Context, l Lookup, rec Record) string {
			if l.CountWhere(ctx, "employees", "department_id", rec.ID()) > 0 {
				return "Cannot delete a department that still has employees."
			}
			return ""
		},
		Expand: func(ctx context.Context, l Lookup, rec Record) {
			nameOf(ctx, l, rec, "employees", "manager_id", "manager_name", fullName)
			rec["employee_count"] = float64(l.CountWhere(ctx, "employees", "department_id", rec.ID()))
		},
	}
}

func leaveRequests() *Resource {
	return &Resource{
		Info:     info("leave-requests"),
		Search:   []string{"employee_name", "leave_type", "reason"},
		Filters:  []string{"status", "leave_type", "employee_id"},
		Required: []string{"employee_id", "leave_type", "start_date", "end_date"},
		Dates:    []string{"start_date", "end_date"},
		Defaults: Record{"status": "pending"},
		Check: func(ctx context.Context, l Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			if rec.String("end_date") < rec.String("start_date") {
				errs.Add("end_date", "The end date must be a date after or equal to start date.")
			}
			if l.Find(ctx, "employees", rec.String("employee_id")) == nil {
				errs.Add("employee_id", "The selected employee id is invalid.")
			}
			return errs
		},
		Prepare: func(rec Record) {
			start, _ := validate.ParseDate(rec.String("start_date"))
			end, _ := validate.ParseDate(rec.String("end_date"))
			rec["days"] = end.Sub(start).Hours()/24 + 1
		},
		Expand: func(ctx context.Context, l Lookup, rec Record) {
			nameOf(ctx, l, rec, "employees", "employee_id", "employee_name", fullName)
		},
		Actions: map[string]Transition{
			"approve": {
				Allowed: fromStatus("pending"),
				Denied:  "Only pending leave requests can be approved.",
				Apply:   setStatus("approved", "reviewed_at"),
				Message: "Leave request approved",
			},
			"reject": {
				Allowed: fromStatus("pending"),
				Denied:  "Only pending leave requests can be rejected.",
				Apply:   setStatus("rejected", "reviewed_at"),
				Message: "Leave request rejected",
			},
		},
	}
}

func accounts() *Resource {
	return &Resource{
		Info:     info("accounts"),
		Search:   []string{"code", "name", "description"},
		Filters:  []string{"type", "is_active"},
		Required: []string{"code", "name", "type"},
		Enums: map[string][]string{
			"type": {"asset", "liability", "equity", "revenue", "expense"},
		},
		Unique:   []string{"code"},
		Defaults: Record{"is_active": true, "balance": 0.0},
		Check: func(ctx context.Context, l Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			parent := rec.String("parent_id")
			switch {
			case parent == "":
			case parent == rec.ID():
				errs.Add("parent_id", "An account cannot be its own parent.")
			case l.Find(ctx, "accounts", parent) == nil:
				errs.Add("parent_id", "The selected parent id is invalid.")
			}
			return errs
		},
		DeleteGuard: func(ctx context.Context, l Lookup, rec Record) string {
			if l.CountWhere(ctx, "journal-entries", "debit_account_id", rec.ID())+
				l.CountWhere(ctx, "journal-entries", "credit_account_id", rec.ID()) > 0 {
				return "Cannot delete an account that has journal entries. Deactivate it instead."
			}
			return ""
		},
		Actions: map[string]Transition{
			"deactivate": {
				Allowed: func(r Record) bool { return r.Bool("is_active") },
				Denied:  "This account is already inactive.",
				Apply: func(rec, _ Record, _ time.Time) FieldErrors {
					rec["is_active"] = false
					return nil
				},
				Message: "Account deactivated",
			},
			"activate": {
				Allowed: func(r Record) bool { return !r.Bool("is_active") },
				Denied:  "This account is already active.",
				Apply: func(rec, _ Record, _ time.Time) FieldErrors {
					rec["is_active"] = true
					return nil
				},
				Message: "Account activated",
			},
		},
	}
}

func journalEntries() *Resource {
	return &Resource{
		Info:     info("journal-entries"),
		Search:   []string{"entry_number", "description", "reference"},
		Filters:  []string{"status", "account_id", "debit_account_id", "credit_account_id"},
		Required: []string{"entry_date", "description", "debit_account_id", "credit_account_id", "amount"},
		Numbers:  []string{"amount"},
		Dates:    []string{"entry_date"},
		Sequence: &Sequence{Field: "entry_number", Prefix: "JE-"},
		Defaults: Record{"status": "draft"},
		FilterAny: map[string][]string{
			"account_id": {"debit_account_id", "credit_account_id"},
		},
		Check: func(ctx context.Context, l Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			if rec.Number("amount") <= 0 {
				errs.Add("amount", "The amount must be greater than 0.")
			}
			if rec.String("debit_account_id") == rec.String("credit_account_id") {
				errs.Add("credit_account_id", "The credit account id and debit account id must be different.")
			}
			for _, f := range []string{"debit_account_id", "credit_account_id"} {
				if l.Find(ctx, "accounts", rec.String(f)) == nil {
					errs.Add(f, fmt.Sprintf("The selected %s is invalid.", attribute(f)))
				}
			}
			return errs
		},
		Expand: func(ctx context.Context, l Lookup, rec Record) {
			nameOf(ctx, l, rec, "accounts", "debit_account_id", "debit_account_name", accountName)
			nameOf(ctx, l, rec, "accounts", "credit_account_id", "credit_account_name", accountName)
		},
		Actions: map[string]Transition{
			"post": {
				Allowed: fromStatus("draft"),
				Denied:  "Only draft entries can be posted.",
				Apply:   setStatus("posted", "posted_at"),
				Message: "Journal entry posted",
			},
			"void": {
				Allowed: fromStatus("posted"),
				Denied:  "Only posted entries can be voided.",
				Apply:   setStatus("void", ""),
				Message: "Journal entry voided",
			},
		},
	}
}

func invoices() *Resource {
	return &Resource{
		Info:     info("invoices"),
		Search:   []string{"invoice_number", "customer_name", "customer_email"},
		Filters:  []string{"status", "customer_name"},
		Required: []string{"customer_name", "issue_date", "due_date", "total"},
		Emails:   []string{"customer_email"},
		Numbers:  []string{"total", "amount_paid"},
		Dates:    []string{"issue_date", "due_date"},
		Unique:   []string{"invoice_number"},
		Sequence: &Sequence{Field: "invoice_number", Prefix: "INV-"},
		Defaults: Record{"status": "draft", "amount_paid": 0.0},
		Check: func(_ context.Context, _ Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			if rec.String("due_date") <= rec.String("issue_date") {
				errs.Add("due_date", "The due date must be a date after issue date.")
			}
			if rec.Number("total") <= 0 {
				errs.Add("total", "The total must be greater than 0.")
			}
			if rec.Number("total") < rec.Number("amount_paid") {
				errs.Add("total", "The total cannot be less than the amount already paid.")
			}
			return errs
		},
		Actions: map[string]Transition{
			"send": {
				Allowed: fromStatus("draft"),
				Denied:  "Only draft invoices can be sent.",
				Apply:   setStatus("sent", "sent_at"),
				Message: "Invoice sent",
			},
			"record-payment": {
				Allowed: fromStatus("sent", "partially_paid", "overdue"),
				Denied:  "Payments can only be recorded against sent invoices.",
				Apply:   recordPayment,
				Message: "Payment recorded",
			},
			"void": {
				Allowed: func(r Record) bool { s := r.String("status"); return s != "void" && s != "paid" },
				Denied:  "Paid or voided invoices cannot be voided.",
				Apply:   setStatus("void", ""),
				Message: "Invoice voided",
			},
		},
	}
}

// recordPayment adds body.amount (default: the outstanding balance) to
// amount_paid and moves the invoice to paid or partially_paid.
func recordPayment(rec, body Record, now time.Time) FieldErrors {
	balance := roundCents(rec.Number("total") - rec.Number("amount_paid"))
	amount := balance
	if body != nil && !body.Blank("amount") {
		amount = roundCents(body.Number("amount"))
	}

	errs := make(FieldErrors)
	switch {
	case amount <= 0:
		errs.Add("amount", "The amount must be greater than 0.")
	case amount > balance:
		errs.Add("amount", fmt.Sprintf("The amount may not be greater than the balance of %.2f.", balance))
	}
	if len(errs) > 0 {
		return errs
	}

	paid := roundCents(rec.Number("amount_paid") + amount)
	rec["amount_paid"] = paid
	if paid >= rec.Number("total") {
		rec["status"] = "paid"
		rec["paid_at"] = now.UTC().Format(time.RFC3339)
	} else {
		rec["status"] = "partially_paid"
	}
	return nil
}

func purchaseOrders() *Resource {
	return &Resource{
		Info:     info("purchase-orders"),
		Search:   []string{"po_number", "supplier_name", "supplier_email", "notes"},
		Filters:  []string{"status", "supplier_name"},
		Required: []string{"supplier_name", "order_date"},
		Emails:   []string{"supplier_email"},
		Dates:    []string{"order_date", "expected_date"},
		Unique:   []string{"po_number"},
		Sequence: &Sequence{Field: "po_number", Prefix: "PO-"},
		Defaults: Record{"status": "draft"},
		Check: func(_ context.Context, _ Lookup, rec Record) FieldErrors {
			errs := make(FieldErrors)
			items, _ := rec["items"].([]any)
			if len(items) == 0 {
				errs.Add("items", "The items field is required.")
			}
			for i, it := range items {
				item, ok := it.(map[string]any)
				if !ok {
					errs.Add("items", fmt.Sprintf("The items.%d must be an object.", i))
					continue
				}
				line := Record(item)
				if line.Blank("description") {
					errs.Add("items", fmt.Sprintf("The items.%d.description field is required.", i))
				}
				if line.Number("quantity") <= 0 {
					errs.Add("items", fmt.Sprintf("The items.%d.quantity must be greater than 0.", i))
				}
				if line.Number("unit_price") < 0 {
					errs.Add("items", fmt.Sprintf("The items.%d.unit_price must be at least 0.", i))
				}
			}
			if !rec.Blank("expected_date") && rec.String("expected_date") < rec.String("order_date") {
				errs.Add("expected_date", "The expected date must be a date after or equal to order date.")
			}
			return errs
		},
		Prepare: func(rec Record) {
			items, _ := rec["items"].([]any)
			total := 0.0
			out := make([]any, 0, len(items))
			for _, it := range items {
				line := Record(it.(map[string]any)).Clone()
				sub := roundCents(line.Number("quantity") * line.Number("unit_price"))
				line["quantity"] = line.Number("quantity")
				line["unit_price"] = line.Number("unit_price")
				line["subtotal"] = sub
				total += sub
				out = append(out, map[string]any(line))
			}
			rec["items"] = out
			rec["total"] = roundCents(total)
		},
		Actions: map[string]Transition{
			"submit": {
				Allowed: fromStatus("draft"),
				Denied:  "Only draft orders can be submitted.",
				Apply:   setStatus("submitted", "submitted_at"),
				Message: "Purchase order submitted",
			},
			"approve": {
				Allowed: fromStatus("submitted"),
				Denied:  "Only submitted orders can be approved.",
				Apply:   setStatus("approved", "approved_at"),
				Message: "Purchase order approved",
			},
			"receive": {
				Allowed: fromStatus("approved"),
				Denied:  "Only approved orders can be received.",
				Apply:   setStatus("received", "received_at"),
				Message: "Purchase order received",
			},
			"cancel": {
				Allowed: fromStatus("draft", "submitted"),
				Denied:  "Only draft or submitted orders can be cancelled.",
				Apply:   setStatus("cancelled", ""),
				Message: "Purchase order cancelled",
			},
		},
	}
}
