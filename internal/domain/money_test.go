package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/domain"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "string amount", raw: `"125.50"`, want: "125.50"},
		{name: "number amount", raw: `60`, want: "60.00"},
		{name: "number with cents", raw: `0.10`, want: "0.10"},
		{name: "null", raw: `null`, wantErr: domain.ErrMissingAmount},
		{name: "empty string", raw: `""`, wantErr: domain.ErrMissingAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseMoney(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.FormatMoney(got))
		})
	}
}

func TestParseMoney_Rejects(t *testing.T) {
	for _, raw := range []string{`"abc"`, `"1.234"`, `true`, `1e-3`} {
		_, err := domain.ParseMoney(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestMoney_JSON(t *testing.T) {
	var payload struct {
		Amount domain.Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 10.1}`), &payload))

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10.10"}`, string(out))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Departure *domain.Date        `json:"departureDate"`
		Arrival   domain.OptionalDate `json:"arrivalDate"`
		Other     domain.OptionalDate `json:"other"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"departureDate":"2024-06-10","arrivalDate":null}`), &payload))

	require.NotNil(t, payload.Departure)
	assert.Equal(t, "2024-06-10", payload.Departure.String())
	assert.True(t, payload.Arrival.Set)
	assert.Nil(t, payload.Arrival.Date)
	assert.False(t, payload.Other.Set)

	assert.Error(t, json.Unmarshal([]byte(`{"departureDate":"10/06/2024"}`), &payload))
}

func TestValidationError(t *testing.T) {
	verr := domain.NewValidationError()
	assert.Nil(t, verr.OrNil())

	verr.Add("discount", "first")
	verr.Add("discount", "second")
	verr.Merge(domain.FieldError("arrivalDate", "dates"))

	assert.Equal(t, "first", verr.Fields["discount"])
	assert.Equal(t, "dates; first", verr.Error())
}
