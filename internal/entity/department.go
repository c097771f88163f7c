package entity

import (
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var departmentStatuses = []string{"active", "inactive"}

// Department is the wire record of /api/departments.
type Department struct {
	ID            string   `json:"id"`
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	ManagerID     string   `json:"manager_id,omitempty"`
	ManagerName   string   `json:"manager_name,omitempty"`
	Budget        *float64 `json:"budget"`
	EmployeeCount int      `json:"employee_count"`
	Status        string   `json:"status"`
}

// DepartmentForm is the create/edit form.
type DepartmentForm struct {
	Code        string `form:"code"`
	Name        string `form:"name"`
	Description string `form:"description"`
	ManagerID   string `form:"managerId" wire:"manager_id"`
	Budget      string `form:"budget"`
	Status      string `form:"status"`
}

// ValidateDepartment runs the local rules.
func ValidateDepartment(f DepartmentForm) validate.Errors {
	return validate.New().
		Required("code", "Code", f.Code).
		Required("name", "Department Name", f.Name).
		Positive("budget", "Budget", f.Budget).
		OneOf("status", "Status", f.Status, departmentStatuses).
		Errors()
}

// Departments returns the department definition.
func Departments() Definition[Department, DepartmentForm] {
	fm := fieldmap.FromStruct[DepartmentForm]()
	return Definition[Department, DepartmentForm]{
		Info: Info{
			Key:         "departments",
			ListKey:     "departments",
			Group:       GroupHR,
			Label:       "Department",
			Plural:      "Departments",
			Description: "Organisational units and their budgets",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: departmentStatuses},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "code", Label: "Code", Type: FieldText, Required: true},
			{Name: "name", Label: "Department Name", Type: FieldText, Required: true},
			{Name: "description", Label: "Description", Type: FieldTextarea},
			{Name: "managerId", Label: "Manager (Employee ID)", Type: FieldText},
			{Name: "budget", Label: "Budget", Type: FieldNumeric},
			{Name: "status", Label: "Status", Type: FieldEnum, Options: departmentStatuses},
		},
		ID:       func(d Department) string { return d.ID },
		NewForm:  func() DepartmentForm { return DepartmentForm{Status: "active"} },
		Validate: ValidateDepartment,
		Payload: func(f DepartmentForm) any {
			return wirePayload(fm, f, "budget")
		},
		FromRecord: func(d Department) DepartmentForm {
			return DepartmentForm{
				Code:        d.Code,
				Name:        d.Name,
				Description: d.Description,
				ManagerID:   d.ManagerID,
				Budget:      optionalNumberText(d.Budget),
				Status:      d.Status,
			}
		},
		Columns: []table.Column[Department]{
			{Header: "Code", Accessor: table.Field[Department]("Code")},
			{Header: "Name", Accessor: table.Field[Department]("Name")},
			{Header: "Manager", Accessor: table.Field[Department]("manager_name")},
			{Header: "Employees", Accessor: table.Field[Department]("employee_count")},
			{Header: "Budget", Accessor: table.Field[Department]("budget"), Cell: func(d Department) string {
				if d.Budget == nil {
					return ""
				}
				return Money(*d.Budget)
			}},
			statusColumn[Department]("status", map[string]table.Variant{
				"active":   table.VariantSuccess,
				"inactive": table.VariantSecondary,
			}),
		},
	}
}

func init() {
	Register(Departments().Info)
}
