package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMonotonicity(t *testing.T) {
	requireTestDB(t)
	require.NoError(t, cleanupTestData())

	ctx := context.Background()

	next1, err := nextAvailableBookingID(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next1)

	// peeking does not allocate
	next2, err := nextAvailableBookingID(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, next1, next2)

	created, err := createBooking(ctx, testPool)
	require.NoError(t, err)
	assert.Equal(t, next1, created)

	next3, err := nextAvailableBookingID(ctx, testPool)
	require.NoError(t, err)
	assert.Greater(t, next3, created)

	created2, err := createBooking(ctx, testPool)
	require.NoError(t, err)
	assert.Greater(t, created2, created)
}

func TestEnsureBooking(t *testing.T) {
	requireTestDB(t)
	require.NoError(t, cleanupTestData())

	ctx := context.Background()

	created, err := ensureBooking(ctx, testPool, 7)
	require.NoError(t, err)
	assert.True(t, created)

	// second call sees the existing row
	created, err = ensureBooking(ctx, testPool, 7)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestListBookings(t *testing.T) {
	requireTestDB(t)
	require.NoError(t, cleanupTestData())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := createBooking(ctx, testPool)
		require.NoError(t, err)
	}

	w := makeRequest("GET", "/api/bookings", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var bookings []Booking
	require.NoError(t, parseJSONResponse(w, &bookings))
	require.Len(t, bookings, 3)

	// newest first
	assert.Equal(t, int64(3), bookings[0].BookingID)
	assert.Equal(t, int64(2), bookings[1].BookingID)
	assert.Equal(t, int64(1), bookings[2].BookingID)
	assert.False(t, bookings[0].CreatedAt.IsZero())
}

func TestTransactionsForBooking(t *testing.T) {
	requireTestDB(t)
	require.NoError(t, cleanupTestData())

	ctx := context.Background()
	bookingID, err := createBooking(ctx, testPool)
	require.NoError(t, err)

	// insert out of date order
	dates := []string{"2024-03-05", "2024-03-01", "2024-03-03"}
	for _, d := range dates {
		date, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		inserted, err := insertTransaction(ctx, testPool, Transaction{
			Amount:      decimal.NewFromInt(-10),
			Currency:    "EUR",
			Recipient:   "Shop " + d,
			Date:        date,
			Type:        "purchase",
			SourceLabel: "ordering.csv",
			BookingID:   bookingID,
		})
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	transactions, err := transactionsForBooking(ctx, testPool, bookingID)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	// date ascending
	assert.Equal(t, "Shop 2024-03-01", transactions[0].Recipient)
	assert.Equal(t, "Shop 2024-03-03", transactions[1].Recipient)
	assert.Equal(t, "Shop 2024-03-05", transactions[2].Recipient)

	t.Run("endpoint rejects non-numeric ids", func(t *testing.T) {
		w := makeRequest("GET", "/api/bookings/abc/transactions", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown booking yields an empty list", func(t *testing.T) {
		w := makeRequest("GET", "/api/bookings/999/transactions", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var empty []Transaction
		require.NoError(t, parseJSONResponse(w, &empty))
		assert.Empty(t, empty)
	})
}

func TestInsertTransactionUniqueness(t *testing.T) {
	requireTestDB(t)
	require.NoError(t, cleanupTestData())

	ctx := context.Background()
	bookingID, err := createBooking(ctx, testPool)
	require.NoError(t, err)

	base := Transaction{
		Amount:      decimal.RequireFromString("-42.50"),
		Currency:    "EUR",
		Recipient:   "Shop",
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Type:        "purchase",
		SourceLabel: "unique.csv",
		BookingID:   bookingID,
	}

	inserted, err := insertTransaction(ctx, testPool, base)
	require.NoError(t, err)
	assert.True(t, inserted)

	t.Run("identical tuple is absorbed", func(t *testing.T) {
		inserted, err := insertTransaction(ctx, testPool, base)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("differing excluded flag alone does not make a new entry", func(t *testing.T) {
		dup := base
		dup.Excluded = true
		inserted, err := insertTransaction(ctx, testPool, dup)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("any tuple column change makes a distinct entry", func(t *testing.T) {
		variants := []Transaction{base, base, base, base, base, base}
		variants[0].Amount = decimal.RequireFromString("-42.51")
		variants[1].Currency = "USD"
		variants[2].Recipient = "Other Shop"
		variants[3].Date = base.Date.AddDate(0, 0, 1)
		variants[4].Type = "refund"
		variants[5].SourceLabel = "unique2.csv"

		for _, v := range variants {
			inserted, err := insertTransaction(ctx, testPool, v)
			require.NoError(t, err)
			assert.True(t, inserted)
		}

		all, err := allTransactions(ctx, testPool)
		require.NoError(t, err)
		assert.Len(t, all, 7)
	})
}
