package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/doordash-export/internal/doordash"
)

func TestFlattenOneRowPerItem(t *testing.T) {
	summary := &doordash.OrderSummary{
		OrderUUID:   "uuid-1",
		SubmittedAt: "2023-05-01T12:00:00Z",
		Store:       doordash.Store{Name: "Taqueria"},
		Orders: []doordash.SubOrder{
			{
				Creator: &doordash.Creator{FirstName: "Amy", LastName: "Lee"},
				Items: []doordash.Item{
					{Name: "Taco"},
					{Name: "Horchata"},
				},
			},
			{
				Creator: &doordash.Creator{FirstName: "Bo"},
				Items:   []doordash.Item{{Name: "Burrito"}},
			},
		},
	}

	rows, warnings := Flatten(summary)
	require.Len(t, rows, 3)
	assert.Empty(t, warnings)

	assert.Equal(t, "Taco", rows[0].Item)
	assert.Equal(t, "Horchata", rows[1].Item)
	assert.Equal(t, "Burrito", rows[2].Item)
	assert.Equal(t, "Amy Lee", rows[0].Person)
	assert.Equal(t, "Bo", rows[2].Person)
	for _, row := range rows {
		assert.Equal(t, "uuid-1", row.OrderID)
		assert.Equal(t, "2023-05-01T12:00:00Z", row.Date)
		assert.Equal(t, "Taqueria", row.Store)
	}
}

func TestFlattenDateFallsBackToCreatedAt(t *testing.T) {
	summary := &doordash.OrderSummary{
		ID:        "42",
		CreatedAt: "2023-05-01T12:00:00Z",
		Orders: []doordash.SubOrder{
			{Items: []doordash.Item{{Name: "Taco"}}},
		},
	}

	rows, warnings := Flatten(summary)
	require.Len(t, rows, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, "2023-05-01T12:00:00Z", rows[0].Date)
	assert.Equal(t, "42", rows[0].OrderID)
}

func TestFlattenMissingTimestampUsesSentinel(t *testing.T) {
	summary := &doordash.OrderSummary{
		OrderUUID: "uuid-1",
		Orders: []doordash.SubOrder{
			{Items: []doordash.Item{{Name: "Taco"}}},
		},
	}

	rows, warnings := Flatten(summary)
	require.Len(t, rows, 1)
	assert.Equal(t, SentinelDate, rows[0].Date)
	require.Len(t, warnings, 1)
	assert.Equal(t, "uuid-1", warnings[0].OrderID)
	assert.Contains(t, warnings[0].Message, "missing timestamp")
}

func TestFlattenMissingOrderIDSkipsOrder(t *testing.T) {
	summary := &doordash.OrderSummary{
		SubmittedAt: "2023-05-01T12:00:00Z",
		Orders: []doordash.SubOrder{
			{Items: []doordash.Item{{Name: "Taco"}}},
		},
	}

	rows, warnings := Flatten(summary)
	assert.Empty(t, rows)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "skipping")
}

func TestPersonNameDefaults(t *testing.T) {
	tests := []struct {
		name    string
		creator *doordash.Creator
		want    string
	}{
		{"both names", &doordash.Creator{FirstName: "Amy", LastName: "Lee"}, "Amy Lee"},
		{"missing last name", &doordash.Creator{FirstName: "Amy"}, "Amy"},
		{"missing first name", &doordash.Creator{LastName: "Lee"}, "Unknown Lee"},
		{"both missing", &doordash.Creator{}, "Unknown"},
		{"no creator", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := &doordash.OrderSummary{
				OrderUUID:   "uuid-1",
				SubmittedAt: "2023-05-01T12:00:00Z",
				Orders: []doordash.SubOrder{
					{Creator: tt.creator, Items: []doordash.Item{{Name: "Taco"}}},
				},
			}
			rows, _ := Flatten(summary)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Person)
		})
	}
}

func TestOptionsSummaryPreservesSourceOrder(t *testing.T) {
	summary := &doordash.OrderSummary{
		OrderUUID:   "uuid-1",
		SubmittedAt: "2023-05-01T12:00:00Z",
		Orders: []doordash.SubOrder{
			{
				Creator: &doordash.Creator{FirstName: "Bo"},
				Items: []doordash.Item{
					{
						Name: "Burrito",
						Extras: []doordash.Extra{
							{
								Name: "Protein",
								Options: []doordash.Option{
									{Name: "Steak"},
									{Name: "Extra Steak"},
								},
							},
							{
								Name:    "Salsa",
								Options: []doordash.Option{{Name: "Verde"}},
							},
						},
					},
				},
			},
		},
	}

	rows, _ := Flatten(summary)
	require.Len(t, rows, 1)
	assert.Equal(t, "Protein: Steak, Protein: Extra Steak, Salsa: Verde", rows[0].Options)
}

func TestOptionsSummaryEmptyWithoutExtras(t *testing.T) {
	summary := &doordash.OrderSummary{
		OrderUUID:   "uuid-1",
		SubmittedAt: "2023-05-01T12:00:00Z",
		Orders: []doordash.SubOrder{
			{Items: []doordash.Item{{Name: "Taco"}}},
		},
	}

	rows, _ := Flatten(summary)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Options)
}
