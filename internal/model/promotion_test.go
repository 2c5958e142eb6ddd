package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"grocery", CategoryGrocery},
		{"  Dining ", CategoryDining},
		{"ELECTRONIC", CategoryElectronic},
		{"electronics", CategoryMisc},
		{"", CategoryMisc},
		{"furniture", CategoryMisc},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategory(tt.input))
		})
	}
}

func TestCategoriesClosedSet(t *testing.T) {
	assert.Len(t, Categories, 12)
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
}

func TestNormalizePromotion(t *testing.T) {
	p := NormalizePromotion(Promotion{
		Company:  "  Best Buy ",
		Category: "gadgets",
		Message:  " $50 off ",
		Code:     " SPRING50",
	})

	assert.Equal(t, "Best Buy", p.Company)
	assert.Equal(t, CategoryMisc, p.Category)
	assert.Equal(t, "$50 off", p.Message)
	assert.Equal(t, "SPRING50", p.Code)
}

func TestPromotionKey(t *testing.T) {
	a := Promotion{Company: "Nike", Message: "20% off shoes", Code: "A"}
	b := Promotion{Company: "Nike", Message: "20% off shoes", Code: "B"}
	c := Promotion{Company: "Nike", Message: "Free shipping"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestPromotionIsExpired(t *testing.T) {
	today := NewDate(2025, time.March, 10)

	assert.False(t, Promotion{}.IsExpired(today), "no expiry never expires")
	assert.False(t, Promotion{ExpirationDate: today}.IsExpired(today), "expires end of day")
	assert.False(t, Promotion{ExpirationDate: today.AddDays(1)}.IsExpired(today))
	assert.True(t, Promotion{ExpirationDate: today.AddDays(-1)}.IsExpired(today))
}

func TestDateJSON(t *testing.T) {
	p := Promotion{Company: "Whole Foods", ExpirationDate: NewDate(2025, time.February, 28)}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expirationDate":"2025-02-28"`)

	var decoded Promotion
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.ExpirationDate.Equal(p.ExpirationDate))

	require.NoError(t, json.Unmarshal([]byte(`{"expirationDate":""}`), &decoded))
	assert.True(t, decoded.ExpirationDate.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"expirationDate":null}`), &decoded))
	assert.True(t, decoded.ExpirationDate.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"expirationDate":"03/15/2025"}`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"expirationDate":20250315}`), &decoded))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2025-03-15"))
	assert.Equal(t, "2025-03-15", d.String())

	require.NoError(t, d.Scan(time.Date(2025, 4, 1, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, "2025-04-01", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestDateOfIgnoresTimeOfDay(t *testing.T) {
	morning := DateOf(time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC))
	night := DateOf(time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC))
	assert.True(t, morning.Equal(night))
}
