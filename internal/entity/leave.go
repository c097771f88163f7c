package entity

import (
	"github.com/JonMunkholm/bizdash/internal/fieldmap"
	"github.com/JonMunkholm/bizdash/internal/table"
	"github.com/JonMunkholm/bizdash/internal/validate"
)

var (
	leaveTypes    = []string{"Annual", "Sick", "Parental", "Unpaid", OptionOther}
	leaveStatuses = []string{"pending", "approved", "rejected", "cancelled"}
)

// LeaveRequest is the wire record of /api/leave-requests.
type LeaveRequest struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	LeaveType    string  `json:"leave_type"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Days         float64 `json:"days"`
	Reason       string  `json:"reason,omitempty"`
	Status       string  `json:"status"`
	ReviewedAt   string  `json:"reviewed_at,omitempty"`
}

// LeaveRequestForm is the create/edit form.
type LeaveRequestForm struct {
	EmployeeID     string `form:"employeeId" wire:"employee_id"`
	LeaveType      string `form:"leaveType"`
	LeaveTypeOther string `form:"leaveTypeOther"`
	StartDate      string `form:"startDate"`
	EndDate        string `form:"endDate"`
	Reason         string `form:"reason"`
}

// ValidateLeaveRequest runs the local rules.
func ValidateLeaveRequest(f LeaveRequestForm) validate.Errors {
	r := validate.New().
		Required("employeeId", "Employee", f.EmployeeID).
		Required("leaveType", "Leave Type", f.LeaveType).
		OneOf("leaveType", "Leave Type", f.LeaveType, leaveTypes).
		Required("startDate", "Start Date", f.StartDate).
		Date("startDate", "Start Date", f.StartDate).
		Required("endDate", "End Date", f.EndDate).
		Date("endDate", "End Date", f.EndDate)
	if f.LeaveType == OptionOther {
		r.Required("leaveTypeOther", "Leave Type", f.LeaveTypeOther)
	}
	if start, ok := validate.ParseDate(f.StartDate); ok {
		if end, ok := validate.ParseDate(f.EndDate); ok {
			r.Check("endDate", !end.Before(start), "End date cannot be before start date")
		}
	}
	return r.Errors()
}

// LeaveRequests returns the leave request definition.
func LeaveRequests() Definition[LeaveRequest, LeaveRequestForm] {
	fm := fieldmap.FromStruct[LeaveRequestForm]()
	pending := func(l LeaveRequest) bool { return l.Status == "pending" }
	return Definition[LeaveRequest, LeaveRequestForm]{
		Info: Info{
			Key:         "leave-requests",
			ListKey:     "leave_requests",
			Group:       GroupHR,
			Label:       "Leave Request",
			Plural:      "Leave Requests",
			Description: "Time off requests and approvals",
			Filters: []FilterSpec{
				{Name: "status", Label: "Status", Options: leaveStatuses},
				{Name: "employee_id", Label: "Employee"},
			},
		},
		FieldMap: fm,
		Fields: []FieldSpec{
			{Name: "employeeId", Label: "Employee ID", Type: FieldText, Required: true},
			{Name: "leaveType", Label: "Leave Type", Type: FieldEnum, Options: leaveTypes, Required: true},
			{Name: "leaveTypeOther", Label: "Other Leave Type", Type: FieldText, Help: "Used when Leave Type is Other"},
			{Name: "startDate", Label: "Start Date", Type: FieldDate, Required: true},
			{Name: "endDate", Label: "End Date", Type: FieldDate, Required: true},
			{Name: "reason", Label: "Reason", Type: FieldTextarea},
		},
		ID:       func(l LeaveRequest) string { return l.ID },
		NewForm:  func() LeaveRequestForm { return LeaveRequestForm{LeaveType: "Annual"} },
		Validate: ValidateLeaveRequest,
		Payload: func(f LeaveRequestForm) any {
			body := wirePayload(fm, f)
			body["leave_type"] = JoinOption(f.LeaveType, f.LeaveTypeOther, OptionOther)
			delete(body, "leave_type_other")
			return body
		},
		FromRecord: func(l LeaveRequest) LeaveRequestForm {
			lt, other := SplitOption(l.LeaveType, leaveTypes, OptionOther)
			return LeaveRequestForm{
				EmployeeID:     l.EmployeeID,
				LeaveType:      lt,
				LeaveTypeOther: other,
				StartDate:      dateOnly(l.StartDate),
				EndDate:        dateOnly(l.EndDate),
				Reason:         l.Reason,
			}
		},
		Columns: []table.Column[LeaveRequest]{
			{Header: "Employee", Accessor: table.Func(func(l LeaveRequest) any {
				if l.EmployeeName != "" {
					return l.EmployeeName
				}
				return l.EmployeeID
			})},
			{Header: "Type", Accessor: table.Field[LeaveRequest]("leave_type")},
			{Header: "From", Accessor: table.Func(func(l LeaveRequest) any { return dateOnly(l.StartDate) })},
			{Header: "To", Accessor: table.Func(func(l LeaveRequest) any { return dateOnly(l.EndDate) })},
			{Header: "Days", Accessor: table.Field[LeaveRequest]("Days")},
			statusColumn[LeaveRequest]("status", map[string]table.Variant{
				"pending":   table.VariantWarning,
				"approved":  table.VariantSuccess,
				"rejected":  table.VariantDestructive,
				"cancelled": table.VariantSecondary,
			}),
		},
		Actions: []SideAction[LeaveRequest]{
			{Name: "approve", Label: "Approve", Icon: "check", Applies: pending},
			{Name: "reject", Label: "Reject", Icon: "x", Variant: table.ActionDestructive, Applies: pending},
		},
	}
}

func init() {
	Register(LeaveRequests().Info)
}
