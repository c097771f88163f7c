package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/form"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, 7, Count())
	assert.Equal(t, []string{GroupAccounting, GroupHR, GroupInventory}, Groups())

	var hr []string
	for _, info := range ByGroup(GroupHR) {
		hr = append(hr, info.Key)
	}
	assert.Equal(t, []string{"departments", "employees", "leave-requests"}, hr)

	info, ok := Get("journal-entries")
	require.True(t, ok)
	assert.Equal(t, "journal_entries", info.ListKey)
	assert.Equal(t, "Journal Entries", info.Plural)

	_, ok = Get("payroll")
	assert.False(t, ok)

	all := All()
	require.Len(t, all, 7)
	assert.Equal(t, GroupAccounting, all[0].Group)

	assert.Panics(t, func() { Register(Info{Key: "employees"}) })
}

func TestEmployeeValidationScenario(t *testing.T) {
	f := EmployeeForm{
		LastName:       "Lovelace",
		Email:          "bad",
		EmploymentType: "full_time",
		Status:         "active",
		HireDate:       "2024-01-15",
	}
	errs := ValidateEmployee(f)
	assert.Equal(t, validate.Errors{
		"firstName": "First Name is required",
		"email":     "Invalid email format",
	}, errs)
}

func TestNonFiniteNumbersFailLocally(t *testing.T) {
	f := EmployeeForm{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		EmploymentType: "full_time",
		Status:         "active",
		HireDate:       "2024-01-15",
		Salary:         "Inf",
	}
	assert.Equal(t, "Salary must be a valid number", ValidateEmployee(f)["salary"])

	body := Employees().Payload(f)
	_, err := json.Marshal(body)
	assert.NoError(t, err, "the payload stays encodable")
}

func TestEmployeeOtherPositionRoundTrip(t *testing.T) {
	def := Employees()
	rec := Employee{
		FirstName: "Ada",
		Position:  "Chief Vibes Officer",
		HireDate:  "2024-03-01T00:00:00.000000Z",
		Salary:    85000,
	}

	f := def.FromRecord(rec)
	assert.Equal(t, OptionOther, f.Position)
	assert.Equal(t, "Chief Vibes Officer", f.PositionOther)
	assert.Equal(t, "2024-03-01", f.HireDate)
	assert.Equal(t, "85000", f.Salary)

	body := def.Payload(f).(map[string]any)
	assert.Equal(t, "Chief Vibes Officer", body["position"])
	assert.NotContains(t, body, "position_other")
	assert.Equal(t, 85000.0, body["salary"])
	assert.Equal(t, "2024-03-01", body["hire_date"])
	assert.Equal(t, "Ada", body["first_name"])

	f = def.FromRecord(Employee{Position: "engineer"})
	assert.Equal(t, "Engineer", f.Position)
	assert.Empty(t, f.PositionOther)

	f.Position = OptionOther
	assert.Equal(t, "Position is required", ValidateEmployee(f)["positionOther"])
}

func TestPayloadNumbers(t *testing.T) {
	def := Employees()
	body := def.Payload(EmployeeForm{Salary: "85,000.50"}).(map[string]any)
	assert.Equal(t, 85000.5, body["salary"])

	body = def.Payload(EmployeeForm{}).(map[string]any)
	assert.Nil(t, body["salary"])
	assert.Contains(t, body, "salary")
	assert.Equal(t, "", body["department_id"])
}

func TestFieldMapsCoverForms(t *testing.T) {
	check := func(t *testing.T, fm *fieldmap.Map, fields []string, specs []FieldSpec) {
		t.Helper()
		assert.Equal(t, fields, fm.Fields())
		for _, snake := range fm.Snake() {
			assert.Contains(t, fields, fm.ToCamel(snake), "wire key %s", snake)
		}
		for _, spec := range specs {
			assert.Contains(t, fields, spec.Name, "field spec %s", spec.Name)
		}
	}
	t.Run("employees", func(t *testing.T) {
		d := Employees()
		check(t, d.FieldMap, form.Fields[EmployeeForm](), d.Fields)
	})
	t.Run("departments", func(t *testing.T) {
		d := Departments()
		check(t, d.FieldMap, form.Fields[DepartmentForm](), d.Fields)
	})
	t.Run("leave-requests", func(t *testing.T) {
		d := LeaveRequests()
		check(t, d.FieldMap, form.Fields[LeaveRequestForm](), d.Fields)
	})
	t.Run("accounts", func(t *testing.T) {
		d := Accounts()
		check(t, d.FieldMap, form.Fields[AccountForm](), d.Fields)
	})
	t.Run("journal-entries", func(t *testing.T) {
		d := JournalEntries()
		check(t, d.FieldMap, form.Fields[JournalEntryForm](), d.Fields)
	})
	t.Run("invoices", func(t *testing.T) {
		d := Invoices()
		check(t, d.FieldMap, form.Fields[InvoiceForm](), d.Fields)
		assert.Equal(t, "invoiceNumber", d.FieldMap.ToCamel("invoice_number"))
	})
	t.Run("purchase-orders", func(t *testing.T) {
		d := PurchaseOrders()
		check(t, d.FieldMap, form.Fields[PurchaseOrderForm](), d.Fields)
	})
}

func TestJournalEntryRules(t *testing.T) {
	errs := ValidateJournalEntry(JournalEntryForm{
		EntryDate:       "2024-02-30",
		Description:     "Rent",
		DebitAccountID:  "6100",
		CreditAccountID: "6100",
		Amount:          "-5",
	})
	assert.Equal(t, "Entry Date must be a valid date (YYYY-MM-DD)", errs["entryDate"])
	assert.Equal(t, "Debit and credit accounts must be different", errs["creditAccountId"])
	assert.Equal(t, "Amount must be greater than zero", errs["amount"])
	assert.NotContains(t, errs, "debitAccountId")
}

func TestInvoiceRulesAndDerivedValues(t *testing.T) {
	errs := ValidateInvoice(InvoiceForm{
		InvoiceNumber: "INV-1",
		CustomerName:  "Acme",
		IssueDate:     "2024-05-10",
		DueDate:       "2024-05-01",
		Total:         "abc",
		PaymentTerms:  OptionCustom,
	})
	assert.Equal(t, validate.Errors{
		"dueDate":            "Due date must be after issue date",
		"total":              "Total must be a valid number",
		"paymentTermsCustom": "Payment Terms is required",
	}, errs)

	inv := Invoice{Total: 200, AmountPaid: 50}
	assert.Equal(t, 150.0, inv.Balance())
	assert.Equal(t, 25.0, inv.PercentPaid())

	over := Invoice{Total: 100, AmountPaid: 120}
	assert.Equal(t, 0.0, over.Balance())
	assert.Equal(t, 100.0, over.PercentPaid())
	assert.Equal(t, 0.0, Invoice{}.PercentPaid())
}

func TestInvoiceCustomTerms(t *testing.T) {
	def := Invoices()
	f := def.FromRecord(Invoice{PaymentTerms: "Net 45", IssueDate: "2024-05-01 00:00:00"})
	assert.Equal(t, OptionCustom, f.PaymentTerms)
	assert.Equal(t, "Net 45", f.PaymentTermsCustom)
	assert.Equal(t, "2024-05-01", f.IssueDate)

	body := def.Payload(f).(map[string]any)
	assert.Equal(t, "Net 45", body["payment_terms"])
	assert.NotContains(t, body, "payment_terms_custom")
}

func TestInvoiceColumns(t *testing.T) {
	def := Invoices()
	inv := Invoice{ID: "1", InvoiceNumber: "INV-7", Total: 1234.5, AmountPaid: 234.5, Status: "partially_paid"}
	tbl := table.New([]Invoice{inv}, def.Columns)
	rows := tbl.Rows()
	require.Len(t, rows, 1)

	byHeader := map[string]table.CellView{}
	for i, h := range tbl.ColumnHeaders() {
		byHeader[h] = rows[0].Cells[i]
	}
	assert.Equal(t, "INV-7", byHeader["Invoice"].Text)
	assert.Equal(t, "1,234.50", byHeader["Total"].Text)
	assert.Equal(t, "1,000.00", byHeader["Balance"].Text)
	assert.Equal(t, "19.0%", byHeader["Paid"].Text)
	assert.Equal(t, table.VariantWarning, byHeader["Status"].Badge)
}

func TestSideActionsApply(t *testing.T) {
	def := LeaveRequests()
	approve, ok := def.Action("approve")
	require.True(t, ok)
	assert.True(t, approve.Applies(LeaveRequest{Status: "pending"}))
	assert.False(t, approve.Applies(LeaveRequest{Status: "approved"}))

	_, ok = def.Action("pay")
	assert.False(t, ok)
}

func TestLeaveRequestDates(t *testing.T) {
	f := LeaveRequestForm{EmployeeID: "e1", LeaveType: "Annual", StartDate: "2024-06-10", EndDate: "2024-06-10"}
	assert.Empty(t, ValidateLeaveRequest(f), "same-day leave is allowed")

	f.EndDate = "2024-06-09"
	assert.Equal(t, "End date cannot be before start date", ValidateLeaveRequest(f)["endDate"])
}

func TestAccountRules(t *testing.T) {
	errs := ValidateAccount(AccountForm{Code: "10A0", Name: "Cash", Type: "cash"})
	assert.Equal(t, "Account Code must contain only digits", errs["code"])
	assert.Equal(t, "Account Type must be one of: asset, liability, equity, revenue, expense", errs["type"])
}

func TestSplitJoinOption(t *testing.T) {
	sel, custom := SplitOption("", leaveTypes, OptionOther)
	assert.Empty(t, sel)
	assert.Empty(t, custom)

	sel, custom = SplitOption("Sabbatical", leaveTypes, OptionOther)
	assert.Equal(t, OptionOther, sel)
	assert.Equal(t, "Sabbatical", JoinOption(sel, custom, OptionOther))

	sel, _ = SplitOption("Sick", leaveTypes, OptionOther)
	assert.Equal(t, "Sick", JoinOption(sel, "ignored", OptionOther))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", Money(0))
	assert.Equal(t, "999.99", Money(999.99))
	assert.Equal(t, "1,234,567.50", Money(1234567.5))
	assert.Equal(t, "-12.00", Money(-12))
}
