package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employee struct {
	ID      int     `json:"id"`
	Name    string  `json:"full_name"`
	Status  string  `json:"status"`
	Salary  float64 `json:"salary"`
	Manager *string `json:"manager"`
}

func employees(n int) []employee {
	out := make([]employee, n)
	for i := range out {
		out[i] = employee{ID: i + 1, Name: fmt.Sprintf("Emp %d", i+1), Status: "active"}
	}
	return out
}

func nameColumns() []Column[employee] {
	return []Column[employee]{
		{Header: "Name", Accessor: Field[employee]("Name")},
	}
}

func TestPaginationSevenRecordsFivePerPage(t *testing.T) {
	tbl := New(employees(7), nameColumns())

	assert.Equal(t, 5, tbl.ItemsPerPage())
	assert.Equal(t, 2, tbl.TotalPages())
	assert.True(t, tbl.ShowPagination())
	assert.Len(t, tbl.PageData(), 5)

	tbl.OnPageChange(2)
	page := tbl.PageData()
	require.Len(t, page, 2)
	assert.Equal(t, 6, page[0].ID)
	assert.Equal(t, 7, page[1].ID)
}

func TestPagesConcatenateToData(t *testing.T) {
	for _, tc := range []struct{ n, per int }{{0, 5}, {1, 5}, {5, 5}, {6, 5}, {11, 3}, {10, 1}} {
		tbl := New(employees(tc.n), nameColumns(), WithItemsPerPage[employee](tc.per))
		var all []employee
		for p := 1; p <= tbl.TotalPages(); p++ {
			tbl.OnPageChange(p)
			page := tbl.PageData()
			assert.LessOrEqual(t, len(page), tc.per)
			all = append(all, page...)
		}
		assert.Equal(t, tc.n, len(all), "n=%d per=%d", tc.n, tc.per)
		if tc.n > 0 {
			assert.Equal(t, tbl.Data(), all)
		}
	}
}

func TestSinglePageHidesPagination(t *testing.T) {
	tbl := New(employees(5), nameColumns())
	assert.Equal(t, 1, tbl.TotalPages())
	assert.False(t, tbl.ShowPagination())

	empty := New([]employee{}, nameColumns())
	assert.Equal(t, 0, empty.TotalPages())
	assert.False(t, empty.ShowPagination())
	assert.Empty(t, empty.Rows())
}

func TestOutOfRangePageIsEmpty(t *testing.T) {
	tbl := New(employees(7), nameColumns())
	tbl.OnPageChange(9)
	assert.Equal(t, 9, tbl.CurrentPage())
	assert.Empty(t, tbl.PageData())
	assert.Empty(t, tbl.Rows())

	tbl.OnPageChange(0)
	assert.Empty(t, tbl.PageData())

	tbl.OnPageChange(3689348814741910324)
	assert.Empty(t, tbl.PageData())
	assert.Empty(t, tbl.Rows())

	tbl.OnPageChange(math.MaxInt)
	assert.Empty(t, tbl.PageData())
}

func TestSetDataClampsPage(t *testing.T) {
	tbl := New(employees(12), nameColumns())
	tbl.OnPageChange(3)
	tbl.SetData(employees(6))
	assert.Equal(t, 2, tbl.CurrentPage())
	assert.Len(t, tbl.PageData(), 1)

	tbl.SetData(nil)
	assert.Equal(t, 1, tbl.CurrentPage())
}

func TestBadgeResolution(t *testing.T) {
	col := Column[employee]{
		Header:        "Status",
		Accessor:      Field[employee]("status"),
		UseBadge:      true,
		BadgeVariants: map[string]Variant{"active": VariantSuccess, "terminated": VariantDestructive},
	}

	cell := ResolveCell(col, employee{Status: "active"})
	assert.Equal(t, CellView{Text: "active", Badge: VariantSuccess}, cell)

	cell = ResolveCell(col, employee{Status: "on_leave"})
	assert.Equal(t, CellView{Text: "on_leave"}, cell, "unmapped keys fall back to raw text")

	numeric := Column[employee]{
		Header:        "Salary",
		Accessor:      Field[employee]("Salary"),
		UseBadge:      true,
		BadgeVariants: map[string]Variant{"1000": VariantDefault},
	}
	assert.Equal(t, CellView{Text: "1000"}, ResolveCell(numeric, employee{Salary: 1000}), "non-string values never badge")
}

func TestCellTakesPrecedenceOverBadge(t *testing.T) {
	col := Column[employee]{
		Header:        "Status",
		Accessor:      Field[employee]("Status"),
		Cell:          func(e employee) string { return strings.ToUpper(e.Status) },
		UseBadge:      true,
		BadgeVariants: map[string]Variant{"active": VariantSuccess},
	}
	assert.Equal(t, CellView{Text: "ACTIVE"}, ResolveCell(col, employee{Status: "active"}))
}

func TestAccessorVariants(t *testing.T) {
	mgr := "Ada"
	e := employee{ID: 3, Name: "Bob", Salary: 1234.5, Manager: &mgr}

	assert.Equal(t, "Bob", Field[employee]("full_name").Resolve(e))
	assert.Equal(t, "Bob", Field[employee]("Name").Resolve(e))
	assert.Nil(t, Field[employee]("missing").Resolve(e))
	assert.Equal(t, 3, Func(func(e employee) any { return e.ID }).Resolve(e))
	assert.Nil(t, Accessor[employee]{}.Resolve(e))

	assert.Equal(t, "1234.5", ResolveCell(Column[employee]{Accessor: Field[employee]("salary")}, e).Text)
	assert.Equal(t, "Ada", ResolveCell(Column[employee]{Accessor: Field[employee]("manager")}, e).Text)
	assert.Equal(t, "", ResolveCell(Column[employee]{Accessor: Field[employee]("manager")}, employee{}).Text)
	assert.Equal(t, "", ResolveCell(Column[employee]{Accessor: Field[employee]("missing")}, e).Text)
}

func TestMapRows(t *testing.T) {
	rows := []map[string]any{{"id": "a", "name": "Alpha"}}
	tbl := New(rows, []Column[map[string]any]{{Header: "Name", Accessor: Field[map[string]any]("name")}},
		WithRowID(func(m map[string]any) string { return m["id"].(string) }))
	got := tbl.Rows()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "Alpha", got[0].Cells[0].Text)
}

func TestActionsInvokeWithRow(t *testing.T) {
	var edited, deleted []int
	tbl := New(employees(7), nameColumns(), WithActions(
		Action[employee]{Label: "Edit", OnClick: func(e employee) { edited = append(edited, e.ID) }},
		Action[employee]{Label: "Delete", Variant: ActionDestructive, OnClick: func(e employee) { deleted = append(deleted, e.ID) }},
		Action[employee]{Label: "Approve", Hidden: func(e employee) bool { return e.ID != 1 }},
	))

	require.NoError(t, tbl.Invoke("6", "Edit"))
	require.NoError(t, tbl.Invoke("2", "Delete"))
	assert.Equal(t, []int{6}, edited, "rows off the current page are still addressable")
	assert.Equal(t, []int{2}, deleted)

	assert.ErrorIs(t, tbl.Invoke("99", "Edit"), ErrRowNotFound)
	assert.ErrorIs(t, tbl.Invoke("1", "Archive"), ErrActionNotFound)
	assert.ErrorIs(t, tbl.Invoke("2", "Approve"), ErrActionNotFound)

	rows := tbl.Rows()
	assert.Len(t, rows[0].Actions, 3)
	assert.Len(t, rows[1].Actions, 2)
	assert.True(t, rows[1].Actions[1].Destructive)
	assert.Equal(t, "POST", rows[1].Actions[1].Method)
	assert.Equal(t, []string{"Name", ActionsHeader}, tbl.Headers())
}

func TestRowIDFallsBackToIndex(t *testing.T) {
	type plain struct{ Label string }
	tbl := New([]plain{{"x"}, {"y"}}, []Column[plain]{{Header: "L", Accessor: Field[plain]("Label")}})
	rows := tbl.Rows()
	assert.Equal(t, "0", rows[0].ID)
	assert.Equal(t, "1", rows[1].ID)
}

func TestHTMLRendersBadgesActionsAndPagination(t *testing.T) {
	data := employees(7)
	data[0].Name = `<script>alert("x")</script>`
	tbl := New(data, []Column[employee]{
		{Header: "Name", Accessor: Field[employee]("Name")},
		{Header: "Status", Accessor: Field[employee]("Status"), UseBadge: true,
			BadgeVariants: map[string]Variant{"active": VariantSuccess}},
	}, WithActions(Action[employee]{
		Label:   "Delete",
		Variant: ActionDestructive,
		Href:    func(e employee) string { return fmt.Sprintf("/employees/%d/delete", e.ID) },
	}))

	var buf bytes.Buffer
	err := HTML(tbl, func(p int) string { return fmt.Sprintf("/employees?page=%d", p) }, "tok").Render(context.Background(), &buf)
	require.NoError(t, err)
	out := buf.String()

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `class="badge badge-success"`)
	assert.Contains(t, out, `action="/employees/1/delete"`)
	assert.Contains(t, out, `name="csrf_token" value="tok"`)
	assert.Contains(t, out, "text-destructive")
	assert.Contains(t, out, `href="/employees?page=2"`)
	assert.Equal(t, 5, strings.Count(out, "data-row-id="))
}

func TestHTMLEmptyState(t *testing.T) {
	tbl := New([]employee{}, nameColumns(), WithEmptyMessage[employee]("No employees yet"))
	var buf bytes.Buffer
	require.NoError(t, HTML(tbl, nil, "").Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No employees yet")
	assert.NotContains(t, buf.String(), "pagination")
}

func TestWriteText(t *testing.T) {
	tbl := New(employees(7), nameColumns(), WithActions(Action[employee]{Label: "Edit"}))
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, tbl))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Emp 5")
	assert.NotContains(t, out, "Emp 6")
	assert.Contains(t, out, "Page 1 of 2 (7 rows)")
}

func TestWriteCSVIgnoresPagination(t *testing.T) {
	tbl := New(employees(7), nameColumns(), WithActions(Action[employee]{Label: "Edit"}))
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 8)
	assert.Equal(t, []string{"Name"}, recs[0])
	assert.Equal(t, []string{"Emp 7"}, recs[7])
}
