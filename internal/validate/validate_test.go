package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	errs := New().Required("firstName", "First Name", "  ").Errors()
	assert.Equal(t, Errors{"firstName": "First Name is required"}, errs)

	assert.True(t, New().Required("firstName", "First Name", "Ada").Valid())
}

func TestFirstFailureWins(t *testing.T) {
	errs := New().
		Required("email", "Email", "bad").
		Email("email", "bad").
		Check("email", false, "something else").
		Errors()

	assert.Equal(t, "Invalid email format", errs.Get("email"))
}

func TestEmail(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"ada@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"bad", false},
		{"no@tld", false},
		{"sp ace@example.com", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.valid, New().Email("email", tt.value).Valid())
		})
	}
}

func TestNumericAndPositive(t *testing.T) {
	assert.True(t, New().Numeric("salary", "Salary", "1,250.50").Valid())
	assert.Equal(t, "Salary must be a valid number",
		New().Numeric("salary", "Salary", "12a").Errors().Get("salary"))

	assert.Equal(t, "Amount must be greater than zero",
		New().Positive("amount", "Amount", "0").Errors().Get("amount"))
	assert.Equal(t, "Amount must be a valid number",
		New().Positive("amount", "Amount", "x").Errors().Get("amount"))
	assert.True(t, New().Positive("amount", "Amount", "").Valid())

	for _, v := range []string{"Inf", "+Infinity", "-inf", "NaN", "1e400"} {
		assert.Equal(t, "Salary must be a valid number",
			New().Numeric("salary", "Salary", v).Errors().Get("salary"), v)
		assert.Equal(t, "Amount must be a valid number",
			New().Positive("amount", "Amount", v).Errors().Get("amount"), v)
		_, ok := ParseNumber(v)
		assert.False(t, ok, v)
	}
}

func TestDigits(t *testing.T) {
	assert.True(t, New().Digits("code", "Code", "1010").Valid())
	assert.False(t, New().Digits("code", "Code", "10a0").Valid())
}

func TestDateAfter(t *testing.T) {
	msg := "Due date must be after issue date"

	assert.True(t, New().DateAfter("dueDate", msg, "2024-02-01", "2024-01-01").Valid())
	assert.Equal(t, msg, New().DateAfter("dueDate", msg, "2024-01-01", "2024-01-01").Errors().Get("dueDate"))
	assert.Equal(t, msg, New().DateAfter("dueDate", msg, "2023-12-31", "2024-01-01").Errors().Get("dueDate"))
	// unparseable dates are left to the Date rule
	assert.True(t, New().DateAfter("dueDate", msg, "", "2024-01-01").Valid())
}

func TestNotEqual(t *testing.T) {
	msg := "Debit and credit accounts must be different"
	assert.Equal(t, msg, New().NotEqual("creditAccountId", msg, "a1", "a1").Errors().Get("creditAccountId"))
	assert.True(t, New().NotEqual("creditAccountId", msg, "a1", "a2").Valid())
	assert.True(t, New().NotEqual("creditAccountId", msg, "", "").Valid())
}

func TestOneOf(t *testing.T) {
	opts := []string{"asset", "liability"}
	assert.True(t, New().OneOf("type", "Type", "Asset", opts).Valid())
	assert.Equal(t, "Type must be one of: asset, liability",
		New().OneOf("type", "Type", "income", opts).Errors().Get("type"))
}

func TestDatePart(t *testing.T) {
	assert.Equal(t, "2024-03-01", DatePart("2024-03-01T00:00:00.000000Z"))
	assert.Equal(t, "2024-03-01", DatePart("2024-03-01 10:00:00"))
	assert.Equal(t, "2024-03-01", DatePart("2024-03-01"))
	assert.Equal(t, "", DatePart(""))
}

func TestErrorsClone(t *testing.T) {
	e := Errors{"a": "x"}
	c := e.Clone()
	c["b"] = "y"
	assert.Len(t, e, 1)
}
