package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbStub struct {
	execTag  pgconn.CommandTag
	execErr  error
	execSQL  []string
	execArgs [][]any
	rows     *stubRows
	queryErr error
	row      pgx.Row
}

func (d *dbStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	d.execArgs = append(d.execArgs, args)
	return d.execTag, d.execErr
}

func (d *dbStub) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	if d.rows == nil {
		return &stubRows{}, nil
	}
	return d.rows, nil
}

func (d *dbStub) QueryRow(context.Context, string, ...any) pgx.Row {
	if d.row != nil {
		return d.row
	}
	return stubRow{err: errors.New("row not mocked")}
}

type stubRows struct {
	data [][]byte
	i    int
	err  error
}

func (r *stubRows) Close()                        {}
func (r *stubRows) Err() error                    { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}
func (r *stubRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}
func (r *stubRows) Scan(dest ...any) error {
	*(dest[0].(*[]byte)) = r.data[r.i-1]
	return nil
}
func (r *stubRows) Values() ([]any, error) { return nil, nil }
func (r *stubRows) RawValues() [][]byte    { return nil }
func (r *stubRows) Conn() *pgx.Conn        { return nil }

type stubRow struct {
	val any
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *[]byte:
		*d = r.val.([]byte)
	case *int:
		*d = r.val.(int)
	}
	return nil
}

func TestPostgresRepository_Migrate(t *testing.T) {
	db := &dbStub{}
	require.NoError(t, NewPostgresRepository(db).Migrate(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS records")

	db.execErr = errors.New("permission denied")
	assert.ErrorContains(t, NewPostgresRepository(db).Migrate(context.Background()), "migrate")
}

func TestPostgresRepository_List(t *testing.T) {
	db := &dbStub{rows: &stubRows{data: [][]byte{
		[]byte(`{"id":"b","total":10}`),
		[]byte(`{"id":"a","total":5}`),
	}}}
	recs, err := NewPostgresRepository(db).List(context.Background(), "invoices")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID())
	assert.Equal(t, 5.0, recs[1].Number("total"))

	db = &dbStub{rows: &stubRows{data: [][]byte{[]byte(`not json`)}}}
	_, err = NewPostgresRepository(db).List(context.Background(), "invoices")
	assert.ErrorContains(t, err, "decode")

	db = &dbStub{rows: &stubRows{err: errors.New("conn reset")}}
	_, err = NewPostgresRepository(db).List(context.Background(), "invoices")
	assert.ErrorContains(t, err, "conn reset")
}

func TestPostgresRepository_Get(t *testing.T) {
	id := uuid.NewString()
	ctx := context.Background()

	_, err := NewPostgresRepository(&dbStub{}).Get(ctx, "invoices", "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewPostgresRepository(&dbStub{row: stubRow{err: pgx.ErrNoRows}}).Get(ctx, "invoices", id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewPostgresRepository(&dbStub{row: stubRow{err: errors.New("timeout")}}).Get(ctx, "invoices", id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	rec, err := NewPostgresRepository(&dbStub{row: stubRow{val: []byte(`{"id":"` + id + `","status":"sent"}`)}}).Get(ctx, "invoices", id)
	require.NoError(t, err)
	assert.Equal(t, "sent", rec.String("status"))
}

func TestPostgresRepository_Writes(t *testing.T) {
	id := uuid.NewString()
	ctx := context.Background()

	db := &dbStub{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := NewPostgresRepository(db)
	require.NoError(t, repo.Insert(ctx, "invoices", Record{"id": id, "total": 12.5}))
	require.Len(t, db.execArgs, 1)
	assert.Equal(t, "invoices", db.execArgs[0][0])
	assert.Equal(t, uuid.MustParse(id), db.execArgs[0][1])
	assert.JSONEq(t, `{"id":"`+id+`","total":12.5}`, string(db.execArgs[0][2].([]byte)))

	assert.Error(t, repo.Insert(ctx, "invoices", Record{"id": "nope"}))

	db.execTag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, repo.Update(ctx, "invoices", Record{"id": id}), ErrNotFound)
	db.execTag = pgconn.NewCommandTag("UPDATE 1")
	assert.NoError(t, repo.Update(ctx, "invoices", Record{"id": id}))

	db.execTag = pgconn.NewCommandTag("DELETE 0")
	assert.ErrorIs(t, repo.Delete(ctx, "invoices", id), ErrNotFound)
	db.execTag = pgconn.NewCommandTag("DELETE 1")
	assert.NoError(t, repo.Delete(ctx, "invoices", id))
	assert.ErrorIs(t, repo.Delete(ctx, "invoices", "bad"), ErrNotFound)

	db.execTag = pgconn.NewCommandTag("DELETE 4")
	require.NoError(t, repo.Truncate(ctx, "invoices"))
	last := len(db.execSQL) - 1
	assert.Contains(t, db.execSQL[last], "DELETE FROM records WHERE kind = $1")
	assert.Equal(t, []any{"invoices"}, db.execArgs[last])
}

func TestPostgresRepository_Count(t *testing.T) {
	n, err := NewPostgresRepository(&dbStub{row: stubRow{val: 3}}).Count(context.Background(), "employees")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.Insert(ctx, "k", Record{"id": "1", "v": "a"}))
	require.NoError(t, repo.Insert(ctx, "k", Record{"id": "2", "v": "b"}))
	assert.Error(t, repo.Insert(ctx, "k", Record{"id": "1"}))

	recs, err := repo.List(ctx, "k")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID(), "newest first")

	// Returned records are copies.
	recs[0]["v"] = "changed"
	got, err := repo.Get(ctx, "k", "2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.String("v"))

	assert.ErrorIs(t, repo.Update(ctx, "k", Record{"id": "9"}), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "k", "1"))
	assert.ErrorIs(t, repo.Delete(ctx, "k", "1"), ErrNotFound)
	_, err = repo.Get(ctx, "k", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.Count(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Truncate(ctx, "k"))
	n, err = repo.Count(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}
