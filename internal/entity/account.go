package entity

import (
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var accountTypes = []string{"asset", "liability", "equity", "revenue", "expense"}

// Account is a chart-of-accounts entry from /api/accounts.
type Account struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	ParentID    string  `json:"parent_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Balance     float64 `json:"balance"`
	IsActive    bool    `json:"is_active"`
}

// AccountForm is the create/edit form.
type AccountForm struct {
	Code        string `form:"code"`
	Name        string `form:"name"`
	Type        string `form:"type"`
	ParentID    string `form:"parentId" wire:"parent_id"`
	Description string `form:"description"`
	IsActive    bool   `form:"isActive" wire:"is_active"`
}

// ValidateAccount runs the local rules.
func ValidateAccount(f AccountForm) validate.Errors {
	return validate.New().
		Required("code", "Account Code", f.Code).
		Digits("code", "Account Code", f.Code).
		Required("name", "Account Name", f.Name).
		Required("type", "Account Type", f.Type).
		OneOf("type", "Account Type", f.Type, accountTypes).
		NotEqual("parentId", "An account cannot be its own parent", f.ParentID, f.Code).
		Errors()
}

// Accounts returns the account definition.
func Accounts() Definition[Account, AccountForm] {
	fm := fieldmap.FromStruct[AccountForm]()
	return Definition[Account, AccountForm]{
		Info: Info{
			Key:         "accounts",
			ListKey:     "accounts",
			Group:       GroupAccounting,
			Label:       "Account",
			Plural:      "Accounts",
			Description: "Chart of accounts",
			Filters: []FilterSpec{
				{Name: "type", Label: "Type", Options: accountTypes},
				{Name: "is_active", Label: "Active", Options: []string{"true", "false"}},
			},
		},
		PerPage:  50,
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "code", Label: "Account Code", Type: FieldText, Required: true},
			{Name: "name", Label: "Account Name", Type: FieldText, Required: true},
			{Name: "type", Label: "Account Type", Type: FieldEnum, Options: accountTypes, Required: true},
			{Name: "parentId", Label: "Parent Account Code", Type: FieldText},
			{Name: "description", Label: "Description", Type: FieldTextarea},
			{Name: "isActive", Label: "Active", Type: FieldEnum, Options: []string{"true", "false"}},
		},
		ID:       func(a Account) string { return a.ID },
		NewForm:  func() AccountForm { return AccountForm{Type: "asset", IsActive: true} },
		Validate: ValidateAccount,
		Payload: func(f AccountForm) any {
			return wirePayload(fm, f)
		},
		FromRecord: func(a Account) AccountForm {
			return AccountForm{
				Code:        a.Code,
				Name:        a.Name,
				Type:        a.Type,
				ParentID:    a.ParentID,
				Description: a.Description,
				IsActive:    a.IsActive,
			}
		},
		Columns: []table.Column[Account]{
			{Header: "Code", Accessor: table.Field[Account]("code")},
			{Header: "Name", Accessor: table.Field[Account]("name")},
			{
				Header:   "Type",
				Accessor: table.Field[Account]("type"),
				UseBadge: true,
				BadgeVariants: map[string]table.Variant{
					"asset":     table.VariantDefault,
					"liability": table.VariantWarning,
					"equity":    table.VariantSecondary,
					"revenue":   table.VariantSuccess,
					"expense":   table.VariantOutline,
				},
			},
			moneyColumn("Balance", func(a Account) float64 { return a.Balance }),
			{Header: "Active", Accessor: table.Field[Account]("is_active")},
		},
		Actions: []SideAction[Account]{
			{Name: "deactivate", Label: "Deactivate", Icon: "archive", Variant: table.ActionDestructive,
				Applies: func(a Account) bool { return a.IsActive }},
			{Name: "activate", Label: "Activate", Icon: "rotate-ccw",
				Applies: func(a Account) bool { return !a.IsActive }},
		},
	}
}

func init() {
	Register(Accounts().Info)
}
