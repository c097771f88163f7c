package entity

import (
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var (
	employmentTypes  = []string{"full_time", "part_time", "contract", "intern"}
	employeeStatuses = []string{"active", "on_leave", "terminated"}
	// Position choices; anything else is kept through the Other option.
	positions = []string{"Engineer", "Accountant", "Manager", "Analyst", "Sales Representative", OptionOther}
)

// Employee is the wire record of /api/employees.
type Employee struct {
	ID             string  `json:"id"`
	EmployeeNumber string  `json:"employee_number"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone,omitempty"`
	DepartmentID   string  `json:"department_id,omitempty"`
	DepartmentName string  `json:"department_name,omitempty"`
	Position       string  `json:"position,omitempty"`
	EmploymentType string  `json:"employment_type"`
	Status         string  `json:"status"`
	HireDate       string  `json:"hire_date"`
	Salary         float64 `json:"salary"`
	CreatedAt      string  `json:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// FullName is first and last name.
func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// EmployeeForm is the create/edit form.
type EmployeeForm struct {
	EmployeeNumber string `form:"employeeNumber"`
	FirstName      string `form:"firstName"`
	LastName       string `form:"lastName"`
	Email          string `form:"email"`
	Phone          string `form:"phone"`
	DepartmentID   string `form:"departmentId" wire:"department_id"`
	Position       string `form:"position"`
	PositionOther  string `form:"positionOther" wire:"position_other"`
	EmploymentType string `form:"employmentType"`
	Status         string `form:"status"`
	HireDate       string `form:"hireDate"`
	Salary         string `form:"salary"`
}

// ValidateEmployee runs the local rules.
func ValidateEmployee(f EmployeeForm) validate.Errors {
	r := validate.New().
		Required("firstName", "First Name", f.FirstName).
		Required("lastName", "Last Name", f.LastName).
		Required("email", "Email", f.Email).
		Email("email", f.Email).
		Digits("phone", "Phone", f.Phone).
		OneOf("employmentType", "Employment Type", f.EmploymentType, employmentTypes).
		OneOf("status", "Status", f.Status, employeeStatuses).
		Required("hireDate", "Hire Date", f.HireDate).
		Date("hireDate", "Hire Date", f.HireDate).
		Positive("salary", "Salary", f.Salary)
	if f.Position == OptionOther {
		r.Required("positionOther", "Position", f.PositionOther)
	}
	return r.Errors()
}

// Employees returns the employee definition.
func Employees() Definition[Employee, EmployeeForm] {
	fm := fieldmap.FromStruct[EmployeeForm]()
	return Definition[Employee, EmployeeForm]{
		Info: Info{
			Key:         "employees",
			ListKey:     "employees",
			Group:       GroupHR,
			Label:       "Employee",
			Plural:      "Employees",
			Description: "Staff records, positions and compensation",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: employeeStatuses},
				{Name: "employment_type", Label: "Employment Type", Options: employmentTypes},
				{Name: "department_id", Label: "Department"},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "employeeNumber", Label: "Employee Number", Type: FieldText, Help: "Assigned automatically when blank"},
			{Name: "firstName", Label: "First Name", Type: FieldText, Required: true},
			{Name: "lastName", Label: "Last Name", Type: FieldText, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldText},
			{Name: "departmentId", Label: "Department ID", Type: FieldText},
			{Name: "position", Label: "Position", Type: FieldEnum, Options: positions},
			{Name: "positionOther", Label: "Other Position", Type: FieldText, Help: "Used when Position is Other"},
			{Name: "employmentType", Label: "Employment Type", Type: FieldEnum, Options: employmentTypes},
			{Name: "status", Label: "Status", Type: FieldEnum, Options: employeeStatuses},
			{Name: "hireDate", Label: "Hire Date", Type: FieldDate, Required: true},
			{Name: "salary", Label: "Salary", Type: FieldNumeric},
		},
		ID: func(e Employee) string { return e.ID },
		NewForm: func() EmployeeForm {
			return EmployeeForm{EmploymentType: "full_time", Status: "active"}
		},
		Validate: ValidateEmployee,
		Payload: func(f EmployeeForm) any {
			body := wirePayload(fm, f, "salary")
			body["position"] = JoinOption(f.Position, f.PositionOther, OptionOther)
			delete(body, "position_other")
			return body
		},
		FromRecord: func(e Employee) EmployeeForm {
			pos, other := SplitOption(e.Position, positions, OptionOther)
			return EmployeeForm{
				EmployeeNumber: e.EmployeeNumber,
				FirstName:      e.FirstName,
				LastName:       e.LastName,
				Email:          e.Email,
				Phone:          e.Phone,
				DepartmentID:   e.DepartmentID,
				Position:       pos,
				PositionOther:  other,
				EmploymentType: e.EmploymentType,
				Status:         e.Status,
				HireDate:       dateOnly(e.HireDate),
				Salary:         numberText(e.Salary),
			}
		},
		Columns: []table.Column[Employee]{
			{Header: "No.", Accessor: table.Field[Employee]("employee_number")},
			{Header: "Name", Accessor: table.Func(func(e Employee) any { return e.FullName() })},
			{Header: "Email", Accessor: table.Field[Employee]("Email")},
			{Header: "Department", Accessor: table.Field[Employee]("department_name")},
			{Header: "Position", Accessor: table.Field[Employee]("position")},
			{Header: "Hire Date", Accessor: table.Func(func(e Employee) any { return dateOnly(e.HireDate) })},
			statusColumn[Employee]("status", map[string]table.Variant{
				"active":     table.VariantSuccess,
				"on_leave":   table.VariantWarning,
				"terminated": table.VariantDestructive,
			}),
		},
		Actions: []SideAction[Employee]{
			{
				Name:    "terminate",
				Label:   "Terminate",
				Icon:    "user-x",
				Variant: table.ActionDestructive,
				Applies: func(e Employee) bool { return e.Status != "terminated" },
			},
		},
	}
}

func init() {
	Register(Employees().Info)
}
