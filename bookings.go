package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Booking store operations. Ids are allocated MAX+1 inside a single insert
// statement; the primary key constraint is the arbiter under concurrent
// callers. Bookings are never deleted, so ids never repeat.

func createBooking(ctx context.Context, q querier) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO bookings (booking_id, created_at)
		SELECT COALESCE(MAX(booking_id), 0) + 1, now()
		FROM bookings
		RETURNING booking_id
	`).Scan(&id)
	return id, err
}

// nextAvailableBookingID returns the id the next createBooking would assign,
// without creating one.
func nextAvailableBookingID(ctx context.Context, q querier) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(booking_id), 0) + 1 FROM bookings
	`).Scan(&id)
	return id, err
}

// ensureBooking creates the booking row for the given id if it does not
// exist yet. Returns true when this call created it.
func ensureBooking(ctx context.Context, q querier, bookingID int64) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO bookings (booking_id, created_at)
		VALUES ($1, now())
		ON CONFLICT (booking_id) DO NOTHING
	`, bookingID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func listBookings(ctx context.Context, q querier) ([]Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT booking_id, created_at
		FROM bookings
		ORDER BY booking_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.BookingID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func transactionsForBooking(ctx context.Context, q querier, bookingID int64) ([]Transaction, error) {
	rows, err := q.Query(ctx, `
		SELECT transaction_id, amount::text, currency, recipient, date, type,
		       source_label, excluded, booking_id, created_at
		FROM transactions
		WHERE booking_id = $1
		ORDER BY date ASC, transaction_id ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// @Summary List bookings
// @Description Retrieve all bookings, newest first
// @Tags bookings
// @Produce json
// @Success 200 {array} Booking "List of bookings"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/bookings [get]
func getBookings(c *gin.Context) {
	bookings, err := listBookings(c.Request.Context(), dbPool)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// @Summary Create booking
// @Description Allocate and persist a new booking with the current timestamp
// @Tags bookings
// @Produce json
// @Success 201 {object} map[string]interface{} "Created booking id"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/bookings [post]
func postBooking(c *gin.Context) {
	id, err := createBooking(c.Request.Context(), dbPool)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating booking")
		statusCode, message := handleDatabaseError(err)
		c.JSON(statusCode, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking_id": id})
}

// @Summary Peek next booking id
// @Description Return the id the next created booking would receive, without creating one
// @Tags bookings
// @Produce json
// @Success 200 {object} map[string]interface{} "Next available booking id"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/bookings/next [get]
func getNextBookingID(c *gin.Context) {
	id, err := nextAvailableBookingID(c.Request.Context(), dbPool)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching next booking id")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching next booking id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"next_booking_id": id})
}

// @Summary List transactions of a booking
// @Description Retrieve the transactions of one booking, ordered by date ascending
// @Tags bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {array} Transaction "Transactions of the booking"
// @Failure 400 {object} map[string]interface{} "Invalid booking id"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/bookings/{id}/transactions [get]
func getBookingTransactions(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	transactions, err := transactionsForBooking(c.Request.Context(), dbPool, bookingID)
	if err != nil {
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Error fetching booking transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching booking transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}
