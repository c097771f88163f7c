package app

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/backend"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/store"
	"github.com/JonMunkholm/bizdash/internal/table"
)

func newServices(t *testing.T) *Services {
	t.Helper()
	srv := httptest.NewServer(backend.New(backend.NewMemoryRepository(), backend.Options{}).Handler())
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return New(client, Options{ItemsPerPage: 5, ServerPerPage: 15, BasePath: "/"})
}

func invoiceValues(number string) map[string]string {
	return map[string]string{
		"invoiceNumber": number,
		"customerName":  "Acme",
		"issueDate":     "2024-06-01",
		"dueDate":       "2024-07-01",
		"paymentTerms":  "Net 30",
		"total":         "1000",
	}
}

func TestEntitiesInRegistryOrder(t *testing.T) {
	s := newServices(t)

	var keys []string
	for _, e := range s.Entities() {
		keys = append(keys, e.Info().Key)
	}
	require.Len(t, keys, 7)
	for _, info := range entity.All() {
		assert.Contains(t, keys, info.Key)
	}

	inv, ok := s.Entity("invoices")
	require.True(t, ok)
	assert.Equal(t, []string{"send", "record-payment", "void"}, inv.ActionNames())

	_, ok = s.Entity("widgets")
	assert.False(t, ok)
}

func TestSaveCreatesAndLists(t *testing.T) {
	ctx := context.Background()
	inv, _ := newServices(t).Entity("invoices")

	res, err := inv.Save(ctx, "", invoiceValues("INV-9"))
	require.NoError(t, err)
	assert.Equal(t, "Invoice created successfully", res.Message)
	require.NotEmpty(t, res.ID)
	require.IsType(t, &entity.Invoice{}, res.Record)

	listing, err := inv.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, listing.Error)
	assert.Equal(t, 1, listing.Pagination.Total)
	require.Equal(t, 1, listing.Table.Len())

	row := listing.Table.Rows()[0]
	assert.Equal(t, res.ID, row.ID)
	var labels []string
	for _, a := range row.Actions {
		labels = append(labels, a.Label)
	}
	// A draft invoice can be sent or voided but not paid.
	assert.Equal(t, []string{"Edit", "Send", "Void", "Delete"}, labels)
	assert.Equal(t, "/invoices/"+res.ID+"/edit", row.Actions[0].Href)
	assert.Equal(t, "GET", row.Actions[0].Method)
	assert.Equal(t, "/invoices/"+res.ID+"/actions/send", row.Actions[1].Href)
	assert.True(t, row.Actions[3].Destructive)
}

func TestSaveLocalValidation(t *testing.T) {
	inv, _ := newServices(t).Entity("invoices")

	values := invoiceValues("")
	values["dueDate"] = "2024-05-01"
	res, err := inv.Save(context.Background(), "", values)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, res.Errors, "invoiceNumber")
	assert.Equal(t, "Due date must be after issue date", res.Errors["dueDate"])
	assert.Equal(t, "Acme", res.Values["customerName"])
}

func TestSaveServerFieldErrors(t *testing.T) {
	ctx := context.Background()
	inv, _ := newServices(t).Entity("invoices")

	_, err := inv.Save(ctx, "", invoiceValues("INV-9"))
	require.NoError(t, err)

	res, err := inv.Save(ctx, "", invoiceValues("inv-9"))
	var ve *store.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "The invoice number has already been taken.", res.Errors["invoiceNumber"])
	assert.Equal(t, "The given data was invalid.", res.Banner)
}

func TestEditValuesAndUpdate(t *testing.T) {
	ctx := context.Background()
	inv, _ := newServices(t).Entity("invoices")

	created, err := inv.Save(ctx, "", invoiceValues("INV-9"))
	require.NoError(t, err)

	values, err := inv.EditValues(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-9", values["invoiceNumber"])
	assert.Equal(t, "1000", values["total"])
	assert.Equal(t, "Net 30", values["paymentTerms"])

	values["paymentTerms"] = entity.OptionCustom
	values["paymentTermsCustom"] = "Net 90"
	res, err := inv.Save(ctx, created.ID, values)
	require.NoError(t, err)
	assert.Equal(t, "Invoice updated successfully", res.Message)

	rec, err := inv.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Net 90", rec.(*entity.Invoice).PaymentTerms)

	_, err = inv.EditValues(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActionAndDelete(t *testing.T) {
	ctx := context.Background()
	inv, _ := newServices(t).Entity("invoices")

	created, err := inv.Save(ctx, "", invoiceValues("INV-9"))
	require.NoError(t, err)

	msg, err := inv.Action(ctx, created.ID, "send", nil)
	require.NoError(t, err)
	assert.Equal(t, "Invoice sent", msg)

	msg, err = inv.Action(ctx, created.ID, "record-payment", map[string]string{"amount": "250"})
	require.NoError(t, err)
	assert.Equal(t, "Payment recorded", msg)

	rec, err := inv.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "partially_paid", rec.(*entity.Invoice).Status)
	assert.Equal(t, 250.0, rec.(*entity.Invoice).AmountPaid)

	_, err = inv.Action(ctx, created.ID, "refund", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = inv.Action(ctx, created.ID, "send", nil)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Only draft invoices can be sent.", apiErr.Message)

	msg, err = inv.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice deleted successfully", msg)

	listing, err := inv.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, listing.Table.Len())
	assert.Equal(t, "No invoices found", listing.Table.EmptyMessage())
}

func TestListFiltersAndTablePaging(t *testing.T) {
	ctx := context.Background()
	inv, _ := newServices(t).Entity("invoices")

	for _, n := range []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6", "A-7"} {
		_, err := inv.Save(ctx, "", invoiceValues(n))
		require.NoError(t, err)
	}

	listing, err := inv.List(ctx, ListOptions{TablePage: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, listing.Table.Len())
	assert.Equal(t, 2, listing.Table.TotalPages())
	assert.Equal(t, 2, listing.Table.CurrentPage())
	assert.Len(t, listing.Table.Rows(), 2)

	listing, err = inv.List(ctx, ListOptions{Filters: map[string]string{"status": "paid"}})
	require.NoError(t, err)
	assert.Zero(t, listing.Table.Len())
	assert.Equal(t, "paid", listing.Filters["status"])

	listing, err = inv.List(ctx, ListOptions{Reset: true})
	require.NoError(t, err)
	assert.Equal(t, 7, listing.Table.Len())
	assert.Empty(t, listing.Filters["status"])
}

func TestApplyBadges(t *testing.T) {
	cols := []table.Column[entity.Invoice]{
		{Header: "Customer", Accessor: table.Field[entity.Invoice]("customer_name")},
		{Header: "Status", UseBadge: true, BadgeVariants: map[string]table.Variant{"paid": table.VariantSuccess}},
	}

	assert.False(t, applyBadges(cols, nil)[0].UseBadge)

	out := applyBadges(cols, map[string]map[string]string{
		"Status":   {"paid": "outline", "sent": "warning", "odd": "sparkly"},
		"Customer": {"Acme": "success"},
	})
	assert.Equal(t, table.VariantOutline, out[1].BadgeVariants["paid"])
	assert.Equal(t, table.VariantWarning, out[1].BadgeVariants["sent"])
	assert.NotContains(t, out[1].BadgeVariants, "odd")
	assert.True(t, out[0].UseBadge)
	assert.Equal(t, table.VariantSuccess, out[0].BadgeVariants["Acme"])

	// The input columns are not modified.
	assert.Equal(t, table.VariantSuccess, cols[1].BadgeVariants["paid"])
	assert.False(t, cols[0].UseBadge)
}
