package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/bizdash/internal/validate"
)

// Seed fills an empty repository with demo records. It reports false when
// employees already exist. Records go through Create and Transition so they
// are validated and audited like API writes.
func Seed(ctx context.Context, s *Server) (bool, error) {
	n, err := s.repo.Count(ctx, "employees")
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	sd := &seeder{s: s, ctx: ctx, today: s.opts.Now().UTC()}

	eng := sd.create("departments", Record{"code": "ENG", "name": "Engineering", "budget": 1200000.0, "description": "Product and platform engineering"})
	fin := sd.create("departments", Record{"code": "FIN", "name": "Finance", "budget": 450000.0})
	ops := sd.create("departments", Record{"code": "OPS", "name": "Operations", "budget": nil})

	people := []struct {
		first, last, position, dept, kind string
		salary                            float64
		hiredDaysAgo                      int
	}{
		{"Ada", "Lovelace", "Engineer", eng, "full_time", 145000, 900},
		{"Grace", "Hopper", "Manager", eng, "full_time", 168000, 1500},
		{"Alan", "Turing", "Engineer", eng, "contract", 132000, 200},
		{"Katherine", "Johnson", "Analyst", fin, "full_time", 98000, 640},
		{"Luca", "Pacioli", "Accountant", fin, "part_time", 61000, 120},
		{"Mary", "Jackson", "Sales Representative", ops, "full_time", 72000, 365},
		{"Edsger", "Dijkstra", "Engineer", eng, "intern", 38000, 30},
	}
	var staff []string
	for _, p := range people {
		staff = append(staff, sd.create("employees", Record{
			"first_name":      p.first,
			"last_name":       p.last,
			"email":           fmt.Sprintf("%s.%s@example.com", strings.ToLower(p.first), strings.ToLower(p.last)),
			"position":        p.position,
			"department_id":   p.dept,
			"employment_type": p.kind,
			"status":          "active",
			"hire_date":       sd.date(-p.hiredDaysAgo),
			"salary":          p.salary,
		}))
	}
	sd.update("departments", eng, Record{"manager_id": staff[1]})
	sd.update("departments", fin, Record{"manager_id": staff[3]})

	sd.create("leave-requests", Record{"employee_id": staff[0], "leave_type": "Annual", "start_date": sd.date(14), "end_date": sd.date(18), "reason": "Family trip"})
	sick := sd.create("leave-requests", Record{"employee_id": staff[2], "leave_type": "Sick", "start_date": sd.date(-3), "end_date": sd.date(-2)})
	sd.act("leave-requests", sick, "approve", nil)
	sd.create("leave-requests", Record{"employee_id": staff[5], "leave_type": "Conference", "start_date": sd.date(30), "end_date": sd.date(32)})

	cash := sd.create("accounts", Record{"code": "1000", "name": "Cash", "type": "asset", "is_active": true})
	sd.create("accounts", Record{"code": "1010", "name": "Petty Cash", "type": "asset", "parent_id": cash, "is_active": true})
	ar := sd.create("accounts", Record{"code": "1200", "name": "Accounts Receivable", "type": "asset", "is_active": true})
	ap := sd.create("accounts", Record{"code": "2000", "name": "Accounts Payable", "type": "liability", "is_active": true})
	rev := sd.create("accounts", Record{"code": "4000", "name": "Sales Revenue", "type": "revenue", "is_active": true})
	rent := sd.create("accounts", Record{"code": "6100", "name": "Rent Expense", "type": "expense", "is_active": true})

	je := sd.create("journal-entries", Record{"entry_date": sd.date(-10), "description": "Invoice INV-0001 revenue", "debit_account_id": ar, "credit_account_id": rev, "amount": 4200.0})
	sd.act("journal-entries", je, "post", nil)
	sd.create("journal-entries", Record{"entry_date": sd.date(-1), "description": "Office rent", "reference": "LEASE-7", "debit_account_id": rent, "credit_account_id": ap, "amount": 3500.0})
	sd.create("journal-entries", Record{"entry_date": sd.date(0), "description": "Customer receipt", "debit_account_id": cash, "credit_account_id": ar, "amount": 1000.0})

	paid := sd.create("invoices", Record{"customer_name": "Acme Corp", "customer_email": "ap@acme.example", "issue_date": sd.date(-40), "due_date": sd.date(-10), "payment_terms": "Net 30", "total": 4200.0})
	sd.act("invoices", paid, "send", nil)
	sd.act("invoices", paid, "record-payment", nil)
	part := sd.create("invoices", Record{"customer_name": "Globex", "issue_date": sd.date(-20), "due_date": sd.date(10), "payment_terms": "Net 30", "total": 1234.5})
	sd.act("invoices", part, "send", nil)
	sd.act("invoices", part, "record-payment", Record{"amount": 234.5})
	late := sd.create("invoices", Record{"customer_name": "Initech", "issue_date": sd.date(-75), "due_date": sd.date(-15), "payment_terms": "Net 60", "total": 980.0})
	sd.act("invoices", late, "send", nil)
	sd.create("invoices", Record{"customer_name": "Umbrella", "issue_date": sd.date(0), "due_date": sd.date(45), "payment_terms": "Net 45 EOM", "total": 15000.0, "notes": "Annual support"})

	po := sd.create("purchase-orders", Record{
		"supplier_name":  "Paper Supply Co",
		"supplier_email": "orders@paper.example",
		"order_date":     sd.date(-5),
		"expected_date":  sd.date(5),
		"items": []any{
			map[string]any{"description": "A4 paper (box)", "quantity": 10.0, "unit_price": 24.99},
			map[string]any{"description": "Toner", "quantity": 2.0, "unit_price": 89.5},
		},
	})
	sd.act("purchase-orders", po, "submit", nil)
	sd.create("purchase-orders", Record{
		"supplier_name": "Chair Depot",
		"order_date":    sd.date(0),
		"items": []any{
			map[string]any{"description": "Ergonomic chair", "quantity": 4.0, "unit_price": 310.0},
		},
	})

	if sd.err != nil {
		return false, sd.err
	}
	if _, err := s.SweepOverdue(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// seeder stops at the first failure and remembers it.
type seeder struct {
	s     *Server
	ctx   context.Context
	today time.Time
	err   error
}

func (sd *seeder) date(days int) string {
	return sd.today.AddDate(0, 0, days).Format(validate.DateLayout)
}

func (sd *seeder) resource(key string) *Resource {
	res, ok := sd.s.Resource(key)
	if !ok && sd.err == nil {
		sd.err = fmt.Errorf("seed: unknown resource %s", key)
	}
	return res
}

func (sd *seeder) create(key string, body Record) string {
	res := sd.resource(key)
	if sd.err != nil {
		return ""
	}
	rec, err := sd.s.Create(sd.ctx, res, body)
	if err != nil {
		sd.err = fmt.Errorf("seed %s: %w", key, describe(err))
		return ""
	}
	return rec.ID()
}

func (sd *seeder) update(key, id string, body Record) {
	res := sd.resource(key)
	if sd.err != nil {
		return
	}
	if _, err := sd.s.Update(sd.ctx, res, id, body); err != nil {
		sd.err = fmt.Errorf("seed %s %s: %w", key, id, describe(err))
	}
}

func (sd *seeder) act(key, id, action string, body Record) {
	res := sd.resource(key)
	if sd.err != nil {
		return
	}
	if _, _, err := sd.s.Transition(sd.ctx, res, id, action, body); err != nil {
		sd.err = fmt.Errorf("seed %s %s %s: %w", key, id, action, describe(err))
	}
}

// describe expands validation failures so seed errors name the fields.
func describe(err error) error {
	var inv *invalidError
	if errors.As(err, &inv) {
		return fmt.Errorf("%s %v", inv.Error(), inv.fields)
	}
	return err
}
