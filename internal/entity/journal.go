package entity

import (
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var journalStatuses = []string{"draft", "posted", "void"}

// JournalEntry is a double-entry posting from /api/journal-entries.
type JournalEntry struct {
	ID                string  `json:"id"`
	EntryNumber       string  `json:"entry_number"`
	EntryDate         string  `json:"entry_date"`
	Description       string  `json:"description"`
	Reference         string  `json:"reference,omitempty"`
	DebitAccountID    string  `json:"debit_account_id"`
	DebitAccountName  string  `json:"debit_account_name,omitempty"`
	CreditAccountID   string  `json:"credit_account_id"`
	CreditAccountName string  `json:"credit_account_name,omitempty"`
	Amount            float64 `json:"amount"`
	Status            string  `json:"status"`
	PostedAt          string  `json:"posted_at,omitempty"`
}

// JournalEntryForm is the create/edit form.
type JournalEntryForm struct {
	EntryDate       string `form:"entryDate"`
	Description     string `form:"description"`
	Reference       string `form:"reference"`
	DebitAccountID  string `form:"debitAccountId" wire:"debit_account_id"`
	CreditAccountID string `form:"creditAccountId" wire:"credit_account_id"`
	Amount          string `form:"amount"`
}

// ValidateJournalEntry runs the local rules.
func ValidateJournalEntry(f JournalEntryForm) validate.Errors {
	return validate.New().
		Required("entryDate", "Entry Date", f.EntryDate).
		Date("entryDate", "Entry Date", f.EntryDate).
		Required("description", "Description", f.Description).
		Required("debitAccountId", "Debit Account", f.DebitAccountID).
		Required("creditAccountId", "Credit Account", f.CreditAccountID).
		NotEqual("creditAccountId", "Debit and credit accounts must be different", f.DebitAccountID, f.CreditAccountID).
		Required("amount", "Amount", f.Amount).
		Positive("amount", "Amount", f.Amount).
		Errors()
}

// JournalEntries returns the journal entry definition.
func JournalEntries() Definition[JournalEntry, JournalEntryForm] {
	fm := fieldmap.FromStruct[JournalEntryForm]()
	return Definition[JournalEntry, JournalEntryForm]{
		Info: Info{
			Key:         "journal-entries",
			ListKey:     "journal_entries",
			Group:       GroupAccounting,
			Label:       "Journal Entry",
			Plural:      "Journal Entries",
			Description: "General ledger postings",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: journalStatuses},
				{Name: "account_id", Label: "Account"},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "entryDate", Label: "Entry Date", Type: FieldDate, Required: true},
			{Name: "description", Label: "Description", Type: FieldText, Required: true},
			{Name: "reference", Label: "Reference", Type: FieldText},
			{Name: "debitAccountId", Label: "Debit Account ID", Type: FieldText, Required: true},
			{Name: "creditAccountId", Label: "Credit Account ID", Type: FieldText, Required: true},
			{Name: "amount", Label: "Amount", Type: FieldNumeric, Required: true},
		},
		ID:       func(j JournalEntry) string { return j.ID },
		Validate: ValidateJournalEntry,
		Payload: func(f JournalEntryForm) any {
			return wirePayload(fm, f, "amount")
		},
		FromRecord: func(j JournalEntry) JournalEntryForm {
			return JournalEntryForm{
				EntryDate:       dateOnly(j.EntryDate),
				Description:     j.Description,
				Reference:       j.Reference,
				DebitAccountID:  j.DebitAccountID,
				CreditAccountID: j.CreditAccountID,
				Amount:          numberText(j.Amount),
			}
		},
		Columns: []table.Column[JournalEntry]{
			{Header: "Entry", Accessor: table.Field[JournalEntry]("entry_number")},
			{Header: "Date", Accessor: table.Func(func(j JournalEntry) any { return dateOnly(j.EntryDate) })},
			{Header: "Description", Accessor: table.Field[JournalEntry]("description")},
			{Header: "Debit", Accessor: table.Func(func(j JournalEntry) any {
				return firstNonEmpty(j.DebitAccountName, j.DebitAccountID)
			})},
			{Header: "Credit", Accessor: table.Func(func(j JournalEntry) any {
				return firstNonEmpty(j.CreditAccountName, j.CreditAccountID)
			})},
			moneyColumn("Amount", func(j JournalEntry) float64 { return j.Amount }),
			statusColumn[JournalEntry]("status", map[string]table.Variant{
				"draft":  table.VariantSecondary,
				"posted": table.VariantSuccess,
				"void":   table.VariantDestructive,
			}),
		},
		Actions: []SideAction[JournalEntry]{
			{Name: "post", Label: "Post", Icon: "send",
				Applies: func(j JournalEntry) bool { return j.Status == "draft" }},
			{Name: "void", Label: "Void", Icon: "ban", Variant: table.ActionDestructive,
				Applies: func(j JournalEntry) bool { return j.Status == "posted" }},
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	Register(JournalEntries().Info)
}
